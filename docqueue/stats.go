package docqueue

import (
	"context"

	"github.com/code19m/errx"
)

// Stats is a point-in-time view of a queue. The four counts are read
// separately and may disagree under concurrent mutation.
type Stats struct {
	Total    int64 `json:"total"`
	Size     int64 `json:"size"`
	InFlight int64 `json:"in_flight"`
	Done     int64 `json:"done"`
}

// Total counts every message still stored, in any state.
func (q *Queue) Total(ctx context.Context) (int64, error) {
	return q.count(ctx, Filter{})
}

// Size counts pending messages that are claimable now.
func (q *Queue) Size(ctx context.Context) (int64, error) {
	now := q.now()
	return q.count(ctx, Filter{
		Deleted:           Absent,
		VisibleAtOrBefore: &now,
	})
}

// InFlight counts messages leased and neither expired nor acked.
func (q *Queue) InFlight(ctx context.Context) (int64, error) {
	now := q.now()
	return q.count(ctx, Filter{
		Deleted:      Absent,
		Leased:       true,
		VisibleAfter: &now,
	})
}

// Done counts acked messages not yet removed by Clean.
func (q *Queue) Done(ctx context.Context) (int64, error) {
	return q.count(ctx, Filter{Deleted: Present})
}

// Stats collects all four counts.
func (q *Queue) Stats(ctx context.Context) (Stats, error) {
	var (
		s   Stats
		err error
	)

	s.Total, err = q.Total(ctx)
	if err != nil {
		return Stats{}, errx.Wrap(err)
	}
	s.Size, err = q.Size(ctx)
	if err != nil {
		return Stats{}, errx.Wrap(err)
	}
	s.InFlight, err = q.InFlight(ctx)
	if err != nil {
		return Stats{}, errx.Wrap(err)
	}
	s.Done, err = q.Done(ctx)
	if err != nil {
		return Stats{}, errx.Wrap(err)
	}

	return s, nil
}

// Clean physically removes acked messages and returns how many were removed.
// Pending and in-flight messages are never touched.
func (q *Queue) Clean(ctx context.Context) (int64, error) {
	n, err := q.store.Delete(ctx, Filter{Deleted: Present})
	if err != nil {
		return 0, errx.Wrap(err, errx.WithDetails(errx.D{"queue": q.Name()}))
	}
	if n > 0 {
		q.logger.With("removed", n).Debug("[docqueue]: cleaned done messages")
	}
	return n, nil
}

// CreateIndexes prepares the store when it needs it. Stores without
// indexes make this a no-op.
func (q *Queue) CreateIndexes(ctx context.Context) error {
	ic, ok := q.store.(IndexCreator)
	if !ok {
		return nil
	}
	err := ic.CreateIndexes(ctx)
	if err != nil {
		return errx.Wrap(err, errx.WithDetails(errx.D{"queue": q.Name()}))
	}
	return nil
}

func (q *Queue) count(ctx context.Context, f Filter) (int64, error) {
	n, err := q.store.Count(ctx, f)
	if err != nil {
		return 0, errx.Wrap(err, errx.WithDetails(errx.D{"queue": q.Name()}))
	}
	return n, nil
}
