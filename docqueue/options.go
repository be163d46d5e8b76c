package docqueue

import (
	"time"

	"github.com/rise-and-shine/docqueue/observability/logger"
)

const (
	defaultVisibility = 30 * time.Second
	defaultMaxRetries = 5
)

// Option configures a Queue.
type Option func(*queueOptions)

type queueOptions struct {
	name       string
	visibility time.Duration
	delay      time.Duration
	deadLetter *Queue
	maxRetries int
	clock      func() time.Time
	logger     logger.Logger
}

func defaultOptions() queueOptions {
	return queueOptions{
		name:       "default",
		visibility: defaultVisibility,
		delay:      0,
		maxRetries: defaultMaxRetries,
		clock:      time.Now,
	}
}

// WithName names the queue in logs, traces and dead-letter details.
// Default: "default".
func WithName(name string) Option {
	return func(o *queueOptions) {
		o.name = name
	}
}

// WithDefaultVisibility sets the lease duration used by Get and Ping when the
// call does not override it.
// Default: 30s.
func WithDefaultVisibility(visibility time.Duration) Option {
	return func(o *queueOptions) {
		o.visibility = visibility
	}
}

// WithDefaultDelay sets how long added messages stay invisible when the call
// does not override it.
// Default: 0.
func WithDefaultDelay(delay time.Duration) Option {
	return func(o *queueOptions) {
		o.delay = delay
	}
}

// WithDeadLetter routes messages whose tries exceed the retry budget to dlq.
// Default: none, poisoned messages are retried forever.
func WithDeadLetter(dlq *Queue) Option {
	return func(o *queueOptions) {
		o.deadLetter = dlq
	}
}

// WithMaxRetries sets the retry budget checked against tries.
// Default: 5.
func WithMaxRetries(maxRetries int) Option {
	return func(o *queueOptions) {
		o.maxRetries = maxRetries
	}
}

// WithClock replaces time.Now. Every timestamp written to or compared in the
// store comes from this clock.
func WithClock(clock func() time.Time) Option {
	return func(o *queueOptions) {
		o.clock = clock
	}
}

// WithLogger sets the logger. Default: the global logger named "docqueue".
func WithLogger(l logger.Logger) Option {
	return func(o *queueOptions) {
		o.logger = l
	}
}

// AddOption configures a single Add or AddBatch call.
type AddOption func(*addConfig)

type addConfig struct {
	delay time.Duration
}

// WithDelay overrides the queue's default delay for one call.
func WithDelay(delay time.Duration) AddOption {
	return func(c *addConfig) {
		c.delay = delay
	}
}

// LeaseOption configures a single Get or Ping call.
type LeaseOption func(*leaseConfig)

type leaseConfig struct {
	visibility time.Duration
}

// WithVisibility overrides the queue's default lease duration for one call.
func WithVisibility(visibility time.Duration) LeaseOption {
	return func(c *leaseConfig) {
		c.visibility = visibility
	}
}
