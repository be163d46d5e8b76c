// Package hooks holds bun query hooks.
package hooks

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/rise-and-shine/docqueue/observability/logger"
	"github.com/uptrace/bun"
)

var _ bun.QueryHook = (*DebugHook)(nil)

// DebugHook logs every query with its arguments and duration. Failed queries
// are logged at error level, empty claims and slow queries at warn level.
type DebugHook struct {
	log  logger.Logger
	slow time.Duration
}

// DebugHookOption configures a DebugHook.
type DebugHookOption func(*DebugHook)

// WithSlowQueryThreshold logs queries taking at least threshold at warn level.
// Zero disables slow query detection.
// Default: 100ms.
func WithSlowQueryThreshold(threshold time.Duration) DebugHookOption {
	return func(h *DebugHook) {
		h.slow = threshold
	}
}

// NewDebugHook returns a hook writing to log.
func NewDebugHook(log logger.Logger, opts ...DebugHookOption) *DebugHook {
	h := &DebugHook{
		log:  log,
		slow: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *DebugHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *DebugHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	took := time.Since(event.StartTime)

	entry := h.log.WithContext(ctx).With(
		"query", strings.ReplaceAll(event.Query, `"`, ""),
		"duration", took.Round(time.Microsecond),
	)
	if len(event.QueryArgs) > 0 {
		entry = entry.With("args", event.QueryArgs)
	}

	msg := "[pg]: " + event.Operation()

	switch {
	// a claim finding nothing returns ErrNoRows
	case errors.Is(event.Err, sql.ErrNoRows):
		entry.Debug(msg + " (no rows)")
	case event.Err != nil && !errors.Is(event.Err, sql.ErrTxDone):
		entry.With("error", event.Err.Error()).Error(msg)
	case h.slow > 0 && took >= h.slow:
		entry.Warn(msg + " (slow)")
	default:
		entry.Debug(msg)
	}
}
