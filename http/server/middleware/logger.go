package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rise-and-shine/docqueue/http/server"
	"github.com/rise-and-shine/docqueue/observability/logger"
)

// NewLoggerMW logs each request at info, warn or error level by status class.
func NewLoggerMW(log logger.Logger) server.Middleware {
	log = log.Named("middleware.logger")

	return server.Middleware{
		Priority: 500,
		Handler: func(c *fiber.Ctx) error {
			start := time.Now()

			err := c.Next()

			statusCode := c.Response().StatusCode()
			if err != nil && statusCode < fiber.StatusBadRequest {
				statusCode = server.StatusCode(err)
			}

			l := log.WithContext(c.UserContext()).With(
				"http_status_code", statusCode,
				"http_method", c.Method(),
				"http_path", c.Path(),
				"http_route", c.Route().Path,
				"duration", time.Since(start).Round(time.Microsecond),
				"request_size", c.Request().Header.ContentLength(),
			)

			switch {
			case statusCode >= fiber.StatusInternalServerError && err != nil:
				l.Errorx(err)
			case statusCode >= fiber.StatusInternalServerError:
				l.Error("[http]: request failed")
			case statusCode >= fiber.StatusBadRequest:
				if err != nil {
					l.Warnx(err)
				} else {
					l.Warn("[http]: request rejected")
				}
			default:
				l.Info("[http]: request processed successfully")
			}

			return err
		},
	}
}
