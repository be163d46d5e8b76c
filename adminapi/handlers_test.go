package adminapi_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rise-and-shine/docqueue/adminapi"
	"github.com/rise-and-shine/docqueue/docqueue"
	"github.com/rise-and-shine/docqueue/docqueue/memstore"
	"github.com/rise-and-shine/docqueue/http/server"
	"github.com/rise-and-shine/docqueue/http/server/middleware"
	"github.com/rise-and-shine/docqueue/observability/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) (*server.HTTPServer, *docqueue.Queue) {
	t.Helper()

	q, err := docqueue.New(memstore.New(), docqueue.WithName("jobs"), docqueue.WithLogger(logger.NewNop()))
	require.NoError(t, err)

	srv := server.NewHTTPServer(server.Config{
		Host:      "127.0.0.1",
		Port:      8080,
		BodyLimit: 1 << 20,
	}, []server.Middleware{
		middleware.NewRecoveryMW(logger.NewNop()),
		middleware.NewTracingMW(),
		middleware.NewTimeoutMW(time.Second),
		middleware.NewLoggerMW(logger.NewNop()),
		middleware.NewErrorHandlerMW(false),
	})
	srv.RegisterRouter(adminapi.Routes(adminapi.NewRegistry(q)))

	return srv, q
}

func do(t *testing.T, srv *server.HTTPServer, method, path, body string) (int, map[string]any) {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := make(map[string]any)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestEnqueueAndStats(t *testing.T) {
	srv, q := newServer(t)

	status, body := do(t, srv, http.MethodPost, "/queues/jobs/messages", `{"payloads":[{"n":1},{"n":2}]}`)
	require.Equal(t, http.StatusCreated, status)
	assert.Len(t, body["ids"], 2)

	status, body = do(t, srv, http.MethodPost, "/queues/jobs/messages", `{"payloads":["later"],"delay":"1h"}`)
	require.Equal(t, http.StatusCreated, status)

	status, body = do(t, srv, http.MethodGet, "/queues/jobs/stats", "")
	require.Equal(t, http.StatusOK, status)
	assert.InDelta(t, 3, body["total"], 0)
	assert.InDelta(t, 2, body["size"], 0)
	assert.InDelta(t, 0, body["in_flight"], 0)
	assert.InDelta(t, 0, body["done"], 0)

	msg, err := q.Get(t.Context())
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.JSONEq(t, `{"n":1}`, string(msg.Payload))
}

func TestClean(t *testing.T) {
	srv, q := newServer(t)
	ctx := t.Context()

	_, err := q.AddBatch(ctx, []any{1, 2})
	require.NoError(t, err)
	msg, err := q.Get(ctx)
	require.NoError(t, err)
	_, err = q.Ack(ctx, msg.Ack)
	require.NoError(t, err)

	status, body := do(t, srv, http.MethodPost, "/queues/jobs/clean", "")
	require.Equal(t, http.StatusOK, status)
	assert.InDelta(t, 1, body["deleted"], 0)

	total, err := q.Total(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestListQueues(t *testing.T) {
	srv, _ := newServer(t)

	status, body := do(t, srv, http.MethodGet, "/queues", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{"jobs"}, body["queues"])
}

func TestErrors(t *testing.T) {
	srv, _ := newServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{
			name:   "unknown queue",
			method: http.MethodGet,
			path:   "/queues/nope/stats",
			status: http.StatusNotFound,
			code:   adminapi.CodeQueueNotFound,
		},
		{
			name:   "empty batch",
			method: http.MethodPost,
			path:   "/queues/jobs/messages",
			body:   `{"payloads":[]}`,
			status: http.StatusBadRequest,
			code:   "VALIDATION_FAILED",
		},
		{
			name:   "bad delay",
			method: http.MethodPost,
			path:   "/queues/jobs/messages",
			body:   `{"payloads":[1],"delay":"soon"}`,
			status: http.StatusBadRequest,
			code:   "VALIDATION_FAILED",
		},
		{
			name:   "negative delay",
			method: http.MethodPost,
			path:   "/queues/jobs/messages",
			body:   `{"payloads":[1],"delay":"-5s"}`,
			status: http.StatusBadRequest,
			code:   docqueue.CodeInvalidArgument,
		},
		{
			name:   "malformed body",
			method: http.MethodPost,
			path:   "/queues/jobs/messages",
			body:   `{"payloads":`,
			status: http.StatusBadRequest,
			code:   "INVALID_BODY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, srv, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, status)

			errBody, ok := body["error"].(map[string]any)
			require.True(t, ok, "error body: %v", body)
			assert.Equal(t, tt.code, errBody["code"])
			assert.NotEmpty(t, body["trace_id"])
		})
	}
}
