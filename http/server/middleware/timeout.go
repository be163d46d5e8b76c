package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/code19m/errx"
	"github.com/gofiber/fiber/v2"
	"github.com/rise-and-shine/docqueue/http/server"
)

const codeRequestTimeout = "REQUEST_TIMEOUT"

// NewTimeoutMW bounds the request context, and with it every store call made
// while handling the request, by duration. A handler failing after the
// deadline passed is answered with REQUEST_TIMEOUT.
func NewTimeoutMW(duration time.Duration) server.Middleware {
	return server.Middleware{
		Priority: 300,
		Handler: func(c *fiber.Ctx) error {
			ctx, cancel := context.WithTimeout(c.UserContext(), duration)
			defer cancel()

			c.SetUserContext(ctx)

			err := c.Next()
			if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return errx.Wrap(err,
					errx.WithCode(codeRequestTimeout),
					errx.WithType(errx.T_Internal),
					errx.WithDetails(errx.D{"timeout": duration.String()}),
				)
			}
			return err
		},
	}
}
