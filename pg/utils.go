package pg

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/code19m/errx"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

func asPgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	ok := errors.As(err, &pgErr)
	return pgErr, ok
}

// IsConflict reports whether err is a unique constraint violation.
func IsConflict(err error) bool {
	pgErr, ok := asPgError(err)
	return ok && pgErr.Code == uniqueViolation
}

// ConstraintName returns the constraint a unique violation refers to, or "".
func ConstraintName(err error) string {
	if !IsConflict(err) {
		return ""
	}
	pgErr, _ := asPgError(err)
	return pgErr.ConstraintName
}

// IsNotFound reports whether err means no row matched.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// GetPgErrorDetails collects the fields of a PostgreSQL error, and the query
// when one is given, as errx details.
func GetPgErrorDetails(err error, query fmt.Stringer) errx.D {
	details := errx.D{}
	if q := safeString(query); q != "" {
		details["query"] = strings.ReplaceAll(q, `"`, "")
	}

	pgErr, ok := asPgError(err)
	if !ok {
		return details
	}

	details["pg.code"] = pgErr.Code
	details["pg.message"] = pgErr.Message
	details["pg.detail"] = pgErr.Detail
	details["pg.hint"] = pgErr.Hint
	details["pg.table"] = pgErr.TableName
	details["pg.constraint"] = pgErr.ConstraintName

	return details
}

// safeString calls String on query, recovering from the panics some bun
// queries raise while they are only partially built.
func safeString(query fmt.Stringer) (s string) {
	defer func() {
		if recover() != nil {
			s = ""
		}
	}()
	if query == nil {
		return ""
	}
	return query.String()
}
