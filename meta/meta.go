// Package meta carries per-message metadata through context so that loggers
// and tracers can correlate entries produced while a message is processed.
package meta

import "context"

// ContextKey is the type of keys stored in context by this package.
type ContextKey string

const (
	// TraceID correlates every log entry produced for one delivery.
	TraceID ContextKey = "trace_id"

	// ServiceName identifies the running service.
	ServiceName ContextKey = "service_name"

	// ServiceVersion is the version of the running service.
	ServiceVersion ContextKey = "service_version"

	// QueueName is the name of the queue a message was claimed from.
	QueueName ContextKey = "queue_name"

	// MessageID is the store-assigned id of the message being processed.
	MessageID ContextKey = "message_id"

	// Tries is the claim counter of the message being processed.
	Tries ContextKey = "tries"
)

//nolint:gochecknoglobals // fixed extraction order
var knownKeys = []ContextKey{
	TraceID,
	ServiceName,
	ServiceVersion,
	QueueName,
	MessageID,
	Tries,
}

// InjectMetaToContext returns a context carrying the non-empty values of data.
func InjectMetaToContext(ctx context.Context, data map[ContextKey]string) context.Context {
	for k, v := range data {
		if v != "" {
			ctx = context.WithValue(ctx, k, v) //nolint:fatcontext // finite number of keys
		}
	}
	return ctx
}

// ExtractMetaFromContext returns the non-empty string values stored under the known keys.
func ExtractMetaFromContext(ctx context.Context) map[ContextKey]string {
	data := make(map[ContextKey]string)
	for _, k := range knownKeys {
		if v, ok := ctx.Value(k).(string); ok && v != "" {
			data[k] = v
		}
	}
	return data
}
