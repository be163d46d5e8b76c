package docqueue

import (
	"context"
	"time"
)

// Store is the document collection a Queue runs on.
//
// ClaimAndUpdate is the only synchronization point of the whole queue: it must
// select, mutate and return one document as a single indivisible step.
// Implementations must also reject an update that sets a non-empty ack already
// held by another document, returning an error built with NewAckConflict.
type Store interface {
	// InsertMany stores docs in order and returns their ids in the same order.
	InsertMany(ctx context.Context, docs []Document) ([]string, error)

	// ClaimAndUpdate applies u to the first document matching f in sort order
	// and returns the updated document. It returns nil, nil when nothing matches.
	ClaimAndUpdate(ctx context.Context, f Filter, u Update, s Sort) (*Document, error)

	// Count returns the number of documents matching f.
	Count(ctx context.Context, f Filter) (int64, error)

	// Delete removes all documents matching f and returns how many were removed.
	Delete(ctx context.Context, f Filter) (int64, error)
}

// IndexCreator is implemented by stores that need indexes or schema objects
// created before use.
type IndexCreator interface {
	CreateIndexes(ctx context.Context) error
}

// Presence constrains whether an optional field is set.
type Presence int

const (
	// Any matches regardless of the field.
	Any Presence = iota
	// Absent matches documents where the field is not set.
	Absent
	// Present matches documents where the field is set.
	Present
)

// Filter selects documents. Zero fields do not constrain.
type Filter struct {
	Deleted Presence

	// VisibleAtOrBefore matches Visible <= t.
	VisibleAtOrBefore *time.Time

	// VisibleAfter matches Visible > t.
	VisibleAfter *time.Time

	// Ack matches an exact token when non-empty.
	Ack string

	// Leased matches documents holding any ack token.
	Leased bool
}

// Matches reports whether d satisfies f.
func (f Filter) Matches(d *Document) bool {
	switch f.Deleted {
	case Absent:
		if d.Deleted != nil {
			return false
		}
	case Present:
		if d.Deleted == nil {
			return false
		}
	case Any:
	}

	if f.VisibleAtOrBefore != nil && d.Visible.After(*f.VisibleAtOrBefore) {
		return false
	}
	if f.VisibleAfter != nil && !d.Visible.After(*f.VisibleAfter) {
		return false
	}
	if f.Ack != "" && d.Ack != f.Ack {
		return false
	}
	if f.Leased && d.Ack == "" {
		return false
	}
	return true
}

// Update describes the mutation applied by ClaimAndUpdate. Nil fields are left untouched.
type Update struct {
	IncTries bool
	Ack      *string
	Visible  *time.Time
	Deleted  *time.Time
}

// Apply mutates d in place.
func (u Update) Apply(d *Document) {
	if u.IncTries {
		d.Tries++
	}
	if u.Ack != nil {
		d.Ack = *u.Ack
	}
	if u.Visible != nil {
		d.Visible = *u.Visible
	}
	if u.Deleted != nil {
		deleted := *u.Deleted
		d.Deleted = &deleted
	}
}

// Sort is the order in which ClaimAndUpdate considers matching documents.
type Sort int

const (
	// SortInsertion considers the earliest inserted document first.
	SortInsertion Sort = iota
)
