// Package tracing installs the global OpenTelemetry tracer provider. Message
// processing spans created by the worker are exported through it to an OTLP
// collector over gRPC.
package tracing

import (
	"context"
	"net"
	"time"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/docqueue/meta"
	"github.com/spf13/cast"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// InitGlobalTracer installs the global tracer provider and propagator and
// returns a function flushing and shutting the provider down.
//
// Service name and version come from meta.SetServiceInfo, so call it first.
func InitGlobalTracer(cfg Config) (func() error, error) {
	if cfg.Disable {
		otel.SetTracerProvider(noop.NewTracerProvider())
		return func() error { return nil }, nil
	}

	exporterAddr := net.JoinHostPort(cfg.ExporterHost, cast.ToString(cfg.ExporterPort))

	grpcTraceClient := otlptracegrpc.NewClient(
		otlptracegrpc.WithInsecure(),
		otlptracegrpc.WithEndpoint(exporterAddr),
		otlptracegrpc.WithReconnectionPeriod(reconnectionPeriod),
		otlptracegrpc.WithTimeout(clientTimeout),
	)

	exporter, err := otlptrace.New(
		context.Background(),
		grpcTraceClient,
	)
	if err != nil {
		return nil, errx.Wrap(err)
	}

	processor := trace.NewBatchSpanProcessor(exporter,
		trace.WithMaxQueueSize(maxQueueSize),
		trace.WithBatchTimeout(batchTimeout),
		trace.WithMaxExportBatchSize(maxExportBatchSize),
	)

	attrs := make([]attribute.KeyValue, 0, len(cfg.Tags))
	for k, v := range cfg.Tags {
		attrs = append(attrs, attribute.String(k, v))
	}
	attrs = append(attrs,
		attribute.String("service.name", meta.GetServiceName()),
		attribute.String("service.version", meta.GetServiceVersion()),
	)

	tp := trace.NewTracerProvider(
		trace.WithSampler(
			trace.ParentBased(trace.TraceIDRatioBased(cfg.SampleRate)),
		),
		trace.WithSpanProcessor(processor),
		trace.WithResource(
			resource.NewSchemaless(attrs...),
		),
	)

	// set global propagator and tracer provider
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
	)
	otel.SetTracerProvider(tp)

	return shutdownFunc(tp), nil
}

func shutdownFunc(tp *trace.TracerProvider) func() error {
	return func() error {
		const shutdownTimeout = 5 * time.Second

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := tp.ForceFlush(ctx)
		if err != nil {
			return errx.Wrap(err)
		}

		err = tp.Shutdown(ctx)
		return errx.Wrap(err)
	}
}
