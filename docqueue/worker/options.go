package worker

import (
	"time"

	"github.com/rise-and-shine/docqueue/observability/logger"
)

// Option configures a Processor.
type Option func(*options)

type options struct {
	pollInterval time.Duration
	visibility   time.Duration
	logger       logger.Logger
}

func defaultOptions() options {
	return options{
		pollInterval: time.Second,
		visibility:   0,
		logger:       nil,
	}
}

// WithPollInterval sets how often an idle processor looks for new work.
// Backlogs drain without waiting for the interval.
// Default: 1s.
func WithPollInterval(pollInterval time.Duration) Option {
	return func(o *options) {
		o.pollInterval = pollInterval
	}
}

// WithVisibility sets the lease taken on every claim.
// Default: the queue's default visibility.
func WithVisibility(visibility time.Duration) Option {
	return func(o *options) {
		o.visibility = visibility
	}
}

// WithLogger sets the logger. Default: the global logger named "docqueue.worker".
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}
