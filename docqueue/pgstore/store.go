// Package pgstore is a docqueue.Store backed by PostgreSQL.
//
// All queues share one table, partitioned by queue name. A claim is a single
// UPDATE over a row-locked sub-select, so any number of processes can claim from
// the same queue without handing one message out twice.
package pgstore

import (
	"context"
	"strconv"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/docqueue/docqueue"
	"github.com/rise-and-shine/docqueue/pg"
	"github.com/uptrace/bun"
)

const defaultSchema = "docqueue"

// Option configures a Store.
type Option func(*Store)

// WithSchema sets the schema holding the messages table.
// Default: "docqueue".
func WithSchema(schema string) Option {
	return func(s *Store) {
		s.schema = schema
	}
}

// Store keeps the documents of one queue.
type Store struct {
	db        bun.IDB
	schema    string
	queueName string
}

var (
	_ docqueue.Store        = (*Store)(nil)
	_ docqueue.IndexCreator = (*Store)(nil)
)

// New returns a Store for queueName. db may be a *bun.DB or a bun.Tx.
func New(db bun.IDB, queueName string, opts ...Option) (*Store, error) {
	s := &Store{
		db:        db,
		schema:    defaultSchema,
		queueName: queueName,
	}
	for _, opt := range opts {
		opt(s)
	}

	switch {
	case db == nil:
		return nil, errx.New("[pgstore]: db is required", errx.WithType(errx.T_Validation))
	case queueName == "":
		return nil, errx.New("[pgstore]: queue name is required", errx.WithType(errx.T_Validation))
	case s.schema == "":
		return nil, errx.New("[pgstore]: schema must not be empty", errx.WithType(errx.T_Validation))
	}

	return s, nil
}

// CreateIndexes creates the schema, the table, its indexes and the stats view.
// It is idempotent.
func (s *Store) CreateIndexes(ctx context.Context) error {
	err := migrate(ctx, s.db, s.schema)
	if err != nil {
		return errx.Wrap(err, errx.WithDetails(pg.GetPgErrorDetails(err, nil)))
	}
	return nil
}

// InsertMany implements docqueue.Store. The batch is inserted in one transaction.
func (s *Store) InsertMany(ctx context.Context, docs []docqueue.Document) ([]string, error) {
	ids := make([]string, 0, len(docs))

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, doc := range docs {
			id, err := s.insertDocument(ctx, tx, doc)
			if err != nil {
				return errx.Wrap(err)
			}
			ids = append(ids, strconv.FormatInt(id, 10))
		}
		return nil
	})
	if err != nil {
		return nil, errx.Wrap(err, errx.WithDetails(pg.GetPgErrorDetails(err, nil)))
	}

	return ids, nil
}

// ClaimAndUpdate implements docqueue.Store.
func (s *Store) ClaimAndUpdate(
	ctx context.Context,
	f docqueue.Filter,
	u docqueue.Update,
	_ docqueue.Sort,
) (*docqueue.Document, error) {
	rows, err := s.claimDocument(ctx, s.db, f, u)
	if err != nil {
		return nil, errx.Wrap(err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	return rows[0].document(), nil
}

// Count implements docqueue.Store.
func (s *Store) Count(ctx context.Context, f docqueue.Filter) (int64, error) {
	n, err := s.countDocuments(ctx, s.db, f)
	if err != nil {
		return 0, errx.Wrap(err, errx.WithDetails(pg.GetPgErrorDetails(err, nil)))
	}
	return n, nil
}

// Delete implements docqueue.Store.
func (s *Store) Delete(ctx context.Context, f docqueue.Filter) (int64, error) {
	n, err := s.deleteDocuments(ctx, s.db, f)
	if err != nil {
		return 0, errx.Wrap(err, errx.WithDetails(pg.GetPgErrorDetails(err, nil)))
	}
	return n, nil
}

func (r row) document() *docqueue.Document {
	doc := &docqueue.Document{
		ID:      strconv.FormatInt(r.ID, 10),
		Payload: []byte(r.Payload),
		Visible: r.Visible,
		Tries:   r.Tries,
		Deleted: r.Deleted,
	}
	if r.Ack != nil {
		doc.Ack = *r.Ack
	}
	return doc
}
