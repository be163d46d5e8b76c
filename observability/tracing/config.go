package tracing

import "time"

const (
	reconnectionPeriod = 30 * time.Second
	clientTimeout      = 30 * time.Second
	maxQueueSize       = 10000
	batchTimeout       = 5 * time.Second
	maxExportBatchSize = 1024
)

// Config holds the tracing configuration.
type Config struct {
	// Disable installs a no-op tracer provider. Spans are still created but never exported.
	Disable bool `yaml:"disable" default:"false"`

	// SampleRate is the fraction of root traces sampled, between 0 and 1.
	SampleRate float64 `yaml:"sample_rate" default:"1" validate:"gte=0,lte=1"`

	// ExporterHost is the OTLP gRPC collector host.
	ExporterHost string `yaml:"exporter_host" validate:"required_if=Disable false"`

	// ExporterPort is the OTLP gRPC collector port.
	ExporterPort int `yaml:"exporter_port" validate:"required_if=Disable false"`

	// Tags are added as resource attributes to every span.
	Tags map[string]string `yaml:"tags"`
}
