package pgstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/docqueue/docqueue"
	"github.com/rise-and-shine/docqueue/pg"
	"github.com/uptrace/bun"
)

type row struct {
	ID      int64      `bun:"id"`
	Payload string     `bun:"payload"`
	Visible time.Time  `bun:"visible"`
	Ack     *string    `bun:"ack"`
	Tries   int        `bun:"tries"`
	Deleted *time.Time `bun:"deleted"`
}

const returning = "m.id, m.payload::text AS payload, m.visible, m.ack, m.tries, m.deleted"

func (s *Store) tableName() string {
	return fmt.Sprintf("%s.%s", s.schema, tableMessages)
}

func (s *Store) insertDocument(ctx context.Context, db bun.IDB, doc docqueue.Document) (int64, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (
			queue_name,
			payload,
			visible,
			ack,
			tries,
			deleted
		) VALUES (
			?, ?::jsonb, ?, ?, ?, ?
		) RETURNING id
	`, s.tableName())

	var id int64
	err := db.NewRaw(query,
		s.queueName,
		string(doc.Payload),
		doc.Visible,
		nullable(doc.Ack),
		doc.Tries,
		doc.Deleted,
	).Scan(ctx, &id)

	return id, errx.Wrap(err)
}

// claimDocument runs the filter, the update and the return in one statement.
// Row locks make concurrent claims pick different rows. Lookups by token wait
// for the lock instead of skipping, so a concurrent claim never hides a lease.
func (s *Store) claimDocument(
	ctx context.Context,
	db bun.IDB,
	f docqueue.Filter,
	u docqueue.Update,
) ([]row, error) {
	where, whereArgs := s.where(f)
	set, setArgs := setClause(u)

	lock := "FOR UPDATE"
	if f.Ack == "" {
		lock += " SKIP LOCKED"
	}

	query := fmt.Sprintf(`
		WITH selected AS (
			SELECT id
			FROM %s
			WHERE %s
			ORDER BY id ASC
			LIMIT 1
			%s
		)
		UPDATE %s m
		SET %s
		FROM selected s
		WHERE m.id = s.id
		RETURNING %s
	`, s.tableName(), where, lock, s.tableName(), set, returning)

	args := append(whereArgs, setArgs...)

	var rows []row
	err := db.NewRaw(query, args...).Scan(ctx, &rows)
	switch {
	case err == nil, pg.IsNotFound(err):
		return rows, nil
	case pg.ConstraintName(err) == ackUniqueIndex:
		return nil, docqueue.NewAckConflict(err, *u.Ack)
	default:
		return nil, errx.Wrap(err, errx.WithDetails(pg.GetPgErrorDetails(err, nil)))
	}
}

func (s *Store) countDocuments(ctx context.Context, db bun.IDB, f docqueue.Filter) (int64, error) {
	where, args := s.where(f)
	query := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM %s
		WHERE %s
	`, s.tableName(), where)

	var n int64
	err := db.NewRaw(query, args...).Scan(ctx, &n)
	return n, errx.Wrap(err)
}

func (s *Store) deleteDocuments(ctx context.Context, db bun.IDB, f docqueue.Filter) (int64, error) {
	where, args := s.where(f)
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE %s
	`, s.tableName(), where)

	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errx.Wrap(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, errx.Wrap(err)
	}

	return rowsAffected, nil
}

func (s *Store) where(f docqueue.Filter) (string, []any) {
	clauses := []string{"queue_name = ?"}
	args := []any{s.queueName}

	switch f.Deleted {
	case docqueue.Absent:
		clauses = append(clauses, "deleted IS NULL")
	case docqueue.Present:
		clauses = append(clauses, "deleted IS NOT NULL")
	case docqueue.Any:
	}
	if f.VisibleAtOrBefore != nil {
		clauses = append(clauses, "visible <= ?")
		args = append(args, *f.VisibleAtOrBefore)
	}
	if f.VisibleAfter != nil {
		clauses = append(clauses, "visible > ?")
		args = append(args, *f.VisibleAfter)
	}
	if f.Ack != "" {
		clauses = append(clauses, "ack = ?")
		args = append(args, f.Ack)
	}
	if f.Leased {
		clauses = append(clauses, "ack IS NOT NULL")
	}

	return strings.Join(clauses, " AND "), args
}

func setClause(u docqueue.Update) (string, []any) {
	var (
		sets []string
		args []any
	)

	if u.IncTries {
		sets = append(sets, "tries = m.tries + 1")
	}
	if u.Ack != nil {
		sets = append(sets, "ack = ?")
		args = append(args, nullable(*u.Ack))
	}
	if u.Visible != nil {
		sets = append(sets, "visible = ?")
		args = append(args, *u.Visible)
	}
	if u.Deleted != nil {
		sets = append(sets, "deleted = ?")
		args = append(args, *u.Deleted)
	}
	if len(sets) == 0 {
		sets = append(sets, "tries = m.tries")
	}

	return strings.Join(sets, ", "), args
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
