package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/docqueue/docqueue"
	"github.com/rise-and-shine/docqueue/meta"
	"github.com/rise-and-shine/docqueue/observability/tracing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/rise-and-shine/docqueue/docqueue/worker"

type handleFunc func(context.Context, *docqueue.Message) error

func (p *Processor) buildProcessChain(h Handler) handleFunc {
	next := handleFunc(h)

	// last wrapper runs first
	next = p.processWithMetaInjection(next) // 3. meta injection
	next = p.processWithTracing(next)       // 2. tracing
	next = p.processWithRecovery(next)      // 1. recovery (outermost)

	return next
}

func (p *Processor) processWithMetaInjection(next handleFunc) handleFunc {
	return func(ctx context.Context, msg *docqueue.Message) error {
		ctx = meta.InjectMetaToContext(ctx, map[meta.ContextKey]string{
			meta.TraceID:        tracing.GetStartingTraceID(ctx),
			meta.ServiceName:    meta.GetServiceName(),
			meta.ServiceVersion: meta.GetServiceVersion(),
			meta.QueueName:      p.queue.Name(),
			meta.MessageID:      msg.ID,
			meta.Tries:          strconv.Itoa(msg.Tries),
		})
		return next(ctx, msg)
	}
}

func (p *Processor) processWithTracing(next handleFunc) handleFunc {
	return func(ctx context.Context, msg *docqueue.Message) error {
		ctx, span := otel.Tracer(tracerName).Start(ctx, "PROCESS "+p.queue.Name(),
			trace.WithAttributes(
				attribute.String("messaging.system", "docqueue"),
				attribute.String("messaging.operation", "process"),
				attribute.String("messaging.destination.name", p.queue.Name()),
				attribute.String("messaging.message.id", msg.ID),
				attribute.Int("docqueue.tries", msg.Tries),
			),
			trace.WithSpanKind(trace.SpanKindConsumer),
		)
		defer span.End()

		err := next(ctx, msg)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return err
	}
}

func (p *Processor) processWithRecovery(next handleFunc) handleFunc {
	return func(ctx context.Context, msg *docqueue.Message) (err error) {
		defer func() {
			if r := recover(); r != nil {
				stackTrace := make([]byte, 4096) // 4KB
				stackTrace = stackTrace[:runtime.Stack(stackTrace, false)]

				err = errx.New("[worker]: handler panicked", errx.WithDetails(errx.D{
					"message_id":    msg.ID,
					"panic_message": fmt.Sprintf("%v", r),
					"stack_trace":   string(stackTrace),
				}))
			}
		}()
		return next(ctx, msg)
	}
}
