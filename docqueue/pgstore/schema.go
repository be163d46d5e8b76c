package pgstore

import (
	"context"
	"fmt"

	"github.com/code19m/errx"
	"github.com/uptrace/bun"
)

const (
	tableMessages  = "messages"
	ackUniqueIndex = "idx_messages_ack"
)

func schemaSQL(schema string) string {
	table := schema + "." + tableMessages
	return fmt.Sprintf(`
CREATE SCHEMA IF NOT EXISTS %[1]s;

CREATE TABLE IF NOT EXISTS %[2]s (
    id BIGSERIAL PRIMARY KEY,
    queue_name VARCHAR(255) NOT NULL,
    payload JSONB NOT NULL,
    visible TIMESTAMPTZ NOT NULL,
    ack VARCHAR(64),
    tries INT NOT NULL DEFAULT 0,
    deleted TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- claim path and the size/in-flight counts
CREATE INDEX IF NOT EXISTS idx_messages_claim
ON %[2]s (queue_name, deleted, visible, id);

-- ack, ping and fail look a lease up by token; a token is never held twice
CREATE UNIQUE INDEX IF NOT EXISTS %[3]s
ON %[2]s (ack)
WHERE ack IS NOT NULL;

-- clean
CREATE INDEX IF NOT EXISTS idx_messages_done
ON %[2]s (queue_name)
WHERE deleted IS NOT NULL;

CREATE OR REPLACE VIEW %[1]s.queue_stats AS
SELECT
    queue_name,
    COUNT(*) AS total,
    COUNT(*) FILTER (WHERE deleted IS NULL AND visible <= CURRENT_TIMESTAMP) AS size,
    COUNT(*) FILTER (WHERE deleted IS NULL AND ack IS NOT NULL AND visible > CURRENT_TIMESTAMP) AS in_flight,
    COUNT(*) FILTER (WHERE deleted IS NOT NULL) AS done,
    MAX(tries) FILTER (WHERE deleted IS NULL) AS max_tries
FROM %[2]s
GROUP BY queue_name;
`, schema, table, ackUniqueIndex)
}

func migrate(ctx context.Context, db bun.IDB, schema string) error {
	_, err := db.ExecContext(ctx, schemaSQL(schema))
	return errx.Wrap(err)
}
