package docqueue

import (
	"context"
	"strings"

	"github.com/code19m/errx"
	"github.com/google/uuid"
)

// Get claims the oldest pending message and returns it leased to the caller.
// It returns nil, nil when no message is claimable.
//
// With a dead-letter queue configured, a claimed message whose tries exceed the
// retry budget is never returned: its envelope is added to the dead-letter queue,
// it is acked here, and Get claims again.
func (q *Queue) Get(ctx context.Context, opts ...LeaseOption) (*Message, error) {
	cfg, err := q.leaseConfig(opts)
	if err != nil {
		return nil, errx.Wrap(err)
	}

	for {
		msg, err := q.claim(ctx, cfg)
		if err != nil {
			return nil, errx.Wrap(err)
		}
		if msg == nil || !q.exhausted(msg) {
			return msg, nil
		}

		err = q.forwardToDeadLetter(ctx, msg)
		if err != nil {
			return nil, errx.Wrap(err)
		}
	}
}

func (q *Queue) claim(ctx context.Context, cfg leaseConfig) (*Message, error) {
	now := q.now()
	visible := now.Add(cfg.visibility)
	ack := newAckToken()

	doc, err := q.store.ClaimAndUpdate(ctx,
		Filter{
			Deleted:           Absent,
			VisibleAtOrBefore: &now,
		},
		Update{
			IncTries: true,
			Ack:      &ack,
			Visible:  &visible,
		},
		SortInsertion,
	)
	if err != nil {
		return nil, errx.Wrap(err, errx.WithDetails(errx.D{"queue": q.Name()}))
	}
	if doc == nil {
		return nil, nil
	}

	return doc.message(), nil
}

// exhausted reports whether msg must be dead-lettered instead of delivered.
func (q *Queue) exhausted(msg *Message) bool {
	return q.opts.deadLetter != nil && msg.Tries > q.opts.maxRetries
}

func (q *Queue) forwardToDeadLetter(ctx context.Context, msg *Message) error {
	dlq := q.opts.deadLetter

	dlqID, err := dlq.Add(ctx, msg)
	if err != nil {
		return errx.Wrap(err, errx.WithDetails(errx.D{
			"message_id":        msg.ID,
			"dead_letter_queue": dlq.Name(),
		}))
	}

	// The lease may run out while the envelope is written, so the source is
	// settled by token alone. A nil result means another claim took it over.
	now := q.now()
	doc, err := q.store.ClaimAndUpdate(ctx,
		Filter{Ack: msg.Ack, Deleted: Absent},
		Update{Deleted: &now},
		SortInsertion,
	)
	if err != nil {
		return errx.Wrap(err, errx.WithDetails(errx.D{
			"message_id":        msg.ID,
			"dead_letter_id":    dlqID,
			"dead_letter_queue": dlq.Name(),
		}))
	}
	if doc == nil {
		q.logger.With(
			"message_id", msg.ID,
			"dead_letter_id", dlqID,
			"dead_letter_queue", dlq.Name(),
		).Warn("[docqueue]: message re-claimed while being dead-lettered")
		return nil
	}

	q.logger.With(
		"message_id", msg.ID,
		"tries", msg.Tries,
		"dead_letter_queue", dlq.Name(),
		"dead_letter_id", dlqID,
	).Warn("[docqueue]: retry budget exhausted, message moved to dead-letter queue")

	return nil
}

func (q *Queue) leaseConfig(opts []LeaseOption) (leaseConfig, error) {
	cfg := leaseConfig{visibility: q.opts.visibility}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.visibility <= 0 {
		return cfg, newInvalidArgument("visibility must be positive", errx.D{
			"queue":      q.Name(),
			"visibility": cfg.visibility.String(),
		})
	}
	return cfg, nil
}

// newAckToken returns 32 random hex characters.
func newAckToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
