package middleware

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/rise-and-shine/docqueue/http/server"
	"github.com/rise-and-shine/docqueue/meta"
	"github.com/rise-and-shine/docqueue/observability/tracing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// NewTracingMW opens a server span per request, names it after the matched
// route and injects the trace id and service identity into the request context.
// The trace id is echoed in the X-Trace-ID response header.
func NewTracingMW() server.Middleware {
	return server.Middleware{
		Priority: 900,
		Handler: func(c *fiber.Ctx) error {
			ctx, span := otel.Tracer("http-server").Start(c.UserContext(), fmt.Sprintf("%s %s", c.Method(), "/"),
				trace.WithSpanKind(trace.SpanKindServer),
			)
			defer span.End()

			setContext(ctx, c)

			err := c.Next()

			routerPattern := c.Route().Path
			if routerPattern != "" && routerPattern != "/" {
				span.SetName(fmt.Sprintf("%s %s", c.Method(), routerPattern))
			}

			span.SetAttributes(
				attribute.String("http.request.method", c.Method()),
				attribute.String("http.route", routerPattern),
				attribute.String("url.full", c.OriginalURL()),
				attribute.Int("http.response.status_code", c.Response().StatusCode()),
			)

			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}

			return err
		},
	}
}

func setContext(ctx context.Context, c *fiber.Ctx) {
	traceID := tracing.GetStartingTraceID(ctx)
	ctx = meta.InjectMetaToContext(ctx, map[meta.ContextKey]string{
		meta.TraceID:        traceID,
		meta.ServiceName:    meta.GetServiceName(),
		meta.ServiceVersion: meta.GetServiceVersion(),
	})

	c.Set("X-Trace-ID", traceID)
	c.SetUserContext(ctx)
}
