package server_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/code19m/errx"
	"github.com/gofiber/fiber/v2"
	"github.com/rise-and-shine/docqueue/http/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareOrder(t *testing.T) {
	var order []string
	mw := func(name string, priority int) server.Middleware {
		return server.Middleware{Priority: priority, Handler: func(c *fiber.Ctx) error {
			order = append(order, name)
			return c.Next()
		}}
	}

	srv := server.NewHTTPServer(server.Config{BodyLimit: 1024}, []server.Middleware{
		mw("low", 1),
		mw("high", 10),
		{Priority: 5},
		mw("mid-a", 5),
		mw("mid-b", 5),
	})
	srv.RegisterRouter(func(r fiber.Router) {
		r.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })
	})

	resp, err := srv.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, []string{"high", "mid-a", "mid-b", "low"}, order)
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", errx.New("bad", errx.WithType(errx.T_Validation)), http.StatusBadRequest},
		{"not found", errx.New("missing", errx.WithType(errx.T_NotFound)), http.StatusNotFound},
		{"conflict", errx.New("dup", errx.WithType(errx.T_Conflict)), http.StatusConflict},
		{"plain", assert.AnError, http.StatusInternalServerError},
		{"fiber 405", fiber.ErrMethodNotAllowed, http.StatusBadRequest},
		{"fiber 404", fiber.ErrNotFound, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, server.StatusCode(tt.err))
		})
	}
}

func TestUnknownRouteIsJSON(t *testing.T) {
	srv := server.NewHTTPServer(server.Config{BodyLimit: 1024}, nil)

	resp, err := srv.Test(httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON))
}
