package tracing_test

import (
	"context"
	"strings"
	"testing"

	"github.com/rise-and-shine/docqueue/observability/tracing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestGetStartingTraceID(t *testing.T) {
	t.Run("without span", func(t *testing.T) {
		first := tracing.GetStartingTraceID(context.Background())
		second := tracing.GetStartingTraceID(context.Background())

		assert.True(t, strings.HasPrefix(first, "man-"))
		assert.NotEqual(t, first, second)
	})

	t.Run("with span", func(t *testing.T) {
		tp := sdktrace.NewTracerProvider()
		t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

		ctx, span := tp.Tracer("test").Start(context.Background(), "op")
		defer span.End()

		assert.Equal(t, span.SpanContext().TraceID().String(), tracing.GetStartingTraceID(ctx))
	})
}

func TestInitGlobalTracerDisabled(t *testing.T) {
	shutdown, err := tracing.InitGlobalTracer(tracing.Config{Disable: true})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown())
}
