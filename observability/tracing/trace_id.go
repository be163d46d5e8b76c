package tracing

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// manualPrefix marks trace ids minted without an active span.
const manualPrefix = "man-"

// GetStartingTraceID returns the trace id of the span carried by ctx. When
// tracing is disabled or ctx has no span, a random id with the "man-" prefix
// is returned so the logs of one request or one message still correlate.
func GetStartingTraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return manualPrefix + uuid.NewString()
}
