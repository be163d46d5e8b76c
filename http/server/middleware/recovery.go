package middleware

import (
	"runtime"

	"github.com/code19m/errx"
	"github.com/gofiber/fiber/v2"
	"github.com/rise-and-shine/docqueue/http/server"
	"github.com/rise-and-shine/docqueue/observability/logger"
)

// NewRecoveryMW recovers panics anywhere below it and returns them as errx
// errors carrying the stack trace.
func NewRecoveryMW(logger logger.Logger) server.Middleware {
	return server.Middleware{
		Priority: 1000,
		Handler: func(c *fiber.Ctx) (err error) {
			log := logger.Named("middleware.recovery").WithContext(c.UserContext())

			defer func() {
				if r := recover(); r != nil {
					traceSize := 4096 // 4KB
					stackTrace := make([]byte, traceSize)
					stackTrace = stackTrace[:runtime.Stack(stackTrace, false)]

					log.
						With("stack_trace", string(stackTrace)).
						With("panic_message", r).
						Error("[http]: recovered from panic")

					err = errx.New("[http]: panic recovered", errx.WithDetails(errx.D{
						"stack_trace":   string(stackTrace),
						"panic_message": r,
					}))
				}
			}()

			return c.Next()
		},
	}
}
