package pg_test

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rise-and-shine/docqueue/pg"
	"github.com/stretchr/testify/assert"
)

type stringer string

func (s stringer) String() string { return string(s) }

type panicky struct{}

func (panicky) String() string { panic("half built") }

func TestErrorClassification(t *testing.T) {
	dup := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "idx_messages_ack"})
	check := &pgconn.PgError{Code: "23514", ConstraintName: "messages_tries_check"}

	assert.True(t, pg.IsConflict(dup))
	assert.Equal(t, "idx_messages_ack", pg.ConstraintName(dup))

	assert.False(t, pg.IsConflict(check))
	assert.Empty(t, pg.ConstraintName(check))

	assert.False(t, pg.IsConflict(errors.New("boom")))
	assert.True(t, pg.IsNotFound(fmt.Errorf("claim: %w", sql.ErrNoRows)))
	assert.False(t, pg.IsNotFound(errors.New("boom")))
}

func TestGetPgErrorDetails(t *testing.T) {
	d := pg.GetPgErrorDetails(&pgconn.PgError{Code: "23505", TableName: "messages"}, stringer(`SELECT "id"`))
	assert.Equal(t, "SELECT id", d["query"])
	assert.Equal(t, "23505", d["pg.code"])
	assert.Equal(t, "messages", d["pg.table"])

	d = pg.GetPgErrorDetails(errors.New("boom"), panicky{})
	assert.Empty(t, d)

	d = pg.GetPgErrorDetails(errors.New("boom"), nil)
	assert.Empty(t, d)
}
