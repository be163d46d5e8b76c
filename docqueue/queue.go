// Package docqueue implements a message queue on top of a document store that
// offers one atomic "find one matching document, update it, return it" primitive.
//
// Workers lease messages by claiming them: a claim bumps the tries counter, stamps a
// fresh random ack token and hides the message until its visibility window elapses.
// Ack, Ping and Fail are scoped to the ack token, so a worker whose lease expired and
// whose message was re-claimed elsewhere can no longer touch it. Any number of
// processes may share one store; the store's claim is the only coordination.
//
// Delivery is at-least-once. A message whose tries exceed the retry budget is moved
// to a dead-letter queue, when one is configured, carrying its id, ack, payload and
// tries so that the dead-letter consumer can see how it died.
//
// # States
//
//   - pending: not deleted, visible <= now
//   - in flight: not deleted, ack set, visible > now
//   - done: deleted set
//
// Only Clean removes documents, and only done ones.
package docqueue

import (
	"time"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/docqueue/observability/logger"
)

// Queue is a single named queue over a Store.
// It is safe for concurrent use by multiple goroutines.
type Queue struct {
	store Store
	opts  queueOptions

	logger logger.Logger
}

// New creates a Queue over store.
func New(store Store, opts ...Option) (*Queue, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	err := validateQueue(store, o)
	if err != nil {
		return nil, errx.Wrap(err)
	}

	l := o.logger
	if l == nil {
		l = logger.Named("docqueue")
	}

	return &Queue{
		store:  store,
		opts:   o,
		logger: l.With("queue", o.name),
	}, nil
}

func validateQueue(store Store, o queueOptions) error {
	switch {
	case store == nil:
		return newInvalidArgument("store is required", errx.D{"queue": o.name})
	case o.name == "":
		return newInvalidArgument("queue name must not be empty", errx.D{})
	case o.visibility <= 0:
		return newInvalidArgument("default visibility must be positive", errx.D{
			"queue":      o.name,
			"visibility": o.visibility.String(),
		})
	case o.delay < 0:
		return newInvalidArgument("default delay must not be negative", errx.D{
			"queue": o.name,
			"delay": o.delay.String(),
		})
	case o.maxRetries < 0:
		return newInvalidArgument("max retries must not be negative", errx.D{
			"queue":       o.name,
			"max_retries": o.maxRetries,
		})
	case o.deadLetter != nil && o.deadLetter.opts.name == o.name:
		return newInvalidArgument("dead-letter queue must have a different name", errx.D{"queue": o.name})
	case o.clock == nil:
		return newInvalidArgument("clock must not be nil", errx.D{"queue": o.name})
	}
	return nil
}

// Name returns the queue name.
func (q *Queue) Name() string {
	return q.opts.name
}

// MaxRetries returns the retry budget.
func (q *Queue) MaxRetries() int {
	return q.opts.maxRetries
}

// HasDeadLetter reports whether over-retried messages are forwarded to a dead-letter queue.
func (q *Queue) HasDeadLetter() bool {
	return q.opts.deadLetter != nil
}

// DefaultVisibility returns the lease duration used when a call does not override it.
func (q *Queue) DefaultVisibility() time.Duration {
	return q.opts.visibility
}

func (q *Queue) now() time.Time {
	return q.opts.clock()
}
