// Package memstore is an in-process docqueue.Store. It is meant for tests and
// single-process deployments; its contents die with the process.
package memstore

import (
	"context"
	"slices"
	"strconv"
	"sync"

	"github.com/rise-and-shine/docqueue/docqueue"
)

// Store keeps documents in insertion order behind one mutex.
type Store struct {
	mu     sync.Mutex
	docs   []*docqueue.Document
	nextID int64
}

// New returns an empty Store.
func New() *Store {
	return &Store{}
}

// InsertMany implements docqueue.Store.
func (s *Store) InsertMany(ctx context.Context, docs []docqueue.Document) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		s.nextID++
		doc := clone(&d)
		doc.ID = strconv.FormatInt(s.nextID, 10)
		s.docs = append(s.docs, doc)
		ids = append(ids, doc.ID)
	}
	return ids, nil
}

// ClaimAndUpdate implements docqueue.Store. The whole find-and-modify runs
// under the store mutex.
func (s *Store) ClaimAndUpdate(
	ctx context.Context,
	f docqueue.Filter,
	u docqueue.Update,
	_ docqueue.Sort,
) (*docqueue.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.docs, f.Matches)
	if idx < 0 {
		return nil, nil
	}
	doc := s.docs[idx]

	if u.Ack != nil && *u.Ack != "" && s.ackTaken(*u.Ack, doc) {
		return nil, docqueue.NewAckConflict(nil, *u.Ack)
	}

	u.Apply(doc)
	return clone(doc), nil
}

// Count implements docqueue.Store.
func (s *Store) Count(ctx context.Context, f docqueue.Filter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, d := range s.docs {
		if f.Matches(d) {
			n++
		}
	}
	return n, nil
}

// Delete implements docqueue.Store.
func (s *Store) Delete(ctx context.Context, f docqueue.Filter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.docs)
	s.docs = slices.DeleteFunc(s.docs, f.Matches)
	return int64(before - len(s.docs)), nil
}

func (s *Store) ackTaken(ack string, except *docqueue.Document) bool {
	for _, d := range s.docs {
		if d != except && d.Ack == ack {
			return true
		}
	}
	return false
}

func clone(d *docqueue.Document) *docqueue.Document {
	c := *d
	c.Payload = slices.Clone(d.Payload)
	if d.Deleted != nil {
		deleted := *d.Deleted
		c.Deleted = &deleted
	}
	return &c
}
