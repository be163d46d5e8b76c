package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rise-and-shine/docqueue/http/server"
)

// NewErrorHandlerMW renders errors returned by handlers as JSON, so the
// logger middleware above it sees the final status code. Trace and details
// are included unless hideDetails is set.
func NewErrorHandlerMW(hideDetails bool) server.Middleware {
	return server.Middleware{
		Priority: 400,
		Handler: func(c *fiber.Ctx) error {
			err := c.Next()
			if err == nil {
				return nil
			}
			return server.WriteErrorResponse(c, err, hideDetails)
		},
	}
}
