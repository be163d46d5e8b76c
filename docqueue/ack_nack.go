package docqueue

import (
	"context"
	"time"

	"github.com/code19m/errx"
)

// Ping extends the lease identified by ack to now + visibility and returns the message id.
// It fails with CodeUnknownAck when the lease has expired, was acked, or never existed.
func (q *Queue) Ping(ctx context.Context, ack string, opts ...LeaseOption) (string, error) {
	if ack == "" {
		return "", newUnknownAck(q.Name(), "ping", ack)
	}

	cfg, err := q.leaseConfig(opts)
	if err != nil {
		return "", errx.Wrap(err)
	}

	now := q.now()
	visible := now.Add(cfg.visibility)

	doc, err := q.store.ClaimAndUpdate(ctx,
		q.liveLease(ack, now),
		Update{Visible: &visible},
		SortInsertion,
	)
	if err != nil {
		return "", errx.Wrap(err, errx.WithDetails(errx.D{"queue": q.Name()}))
	}
	if doc == nil {
		return "", newUnknownAck(q.Name(), "ping", ack)
	}

	return doc.ID, nil
}

// Ack completes the message leased under ack and returns its id.
// Acking twice fails with CodeUnknownAck.
func (q *Queue) Ack(ctx context.Context, ack string) (string, error) {
	if ack == "" {
		return "", newUnknownAck(q.Name(), "ack", ack)
	}

	now := q.now()

	doc, err := q.store.ClaimAndUpdate(ctx,
		q.liveLease(ack, now),
		Update{Deleted: &now},
		SortInsertion,
	)
	if err != nil {
		return "", errx.Wrap(err, errx.WithDetails(errx.D{"queue": q.Name()}))
	}
	if doc == nil {
		return "", newUnknownAck(q.Name(), "ack", ack)
	}

	return doc.ID, nil
}

// Fail releases the lease early, making the message claimable right away.
// The ack token stays on the message until the next claim overwrites it.
//
// Unlike Ack and Ping, Fail matches on the token alone: it succeeds on a message
// whose lease already expired, as long as nobody re-claimed it.
func (q *Queue) Fail(ctx context.Context, ack string) (string, error) {
	if ack == "" {
		return "", newUnknownAck(q.Name(), "fail", ack)
	}

	now := q.now()

	doc, err := q.store.ClaimAndUpdate(ctx,
		Filter{Ack: ack},
		Update{Visible: &now},
		SortInsertion,
	)
	if err != nil {
		return "", errx.Wrap(err, errx.WithDetails(errx.D{"queue": q.Name()}))
	}
	if doc == nil {
		return "", newUnknownAck(q.Name(), "fail", ack)
	}

	return doc.ID, nil
}

func (q *Queue) liveLease(ack string, now time.Time) Filter {
	return Filter{
		Ack:          ack,
		Deleted:      Absent,
		VisibleAfter: &now,
	}
}
