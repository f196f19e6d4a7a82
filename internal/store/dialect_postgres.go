package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresDialect implements Dialect for PostgreSQL via pgx/stdlib.
type PostgresDialect struct{}

func (d *PostgresDialect) Name() string       { return "postgres" }
func (d *PostgresDialect) DriverName() string { return "pgx" }

func (d *PostgresDialect) NewParamBuilder() ParamBuilder {
	return &paramBuilder{prefix: "$"}
}

func (d *PostgresDialect) SchemaSQL() string { return pgSchemaSQL }

func (d *PostgresDialect) MapError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %w", ErrUniqueViolation, err)
	}
	// Fall back to the message for errors that lost their type on the way up.
	errStr := err.Error()
	if strings.Contains(errStr, "23505") || strings.Contains(errStr, "duplicate key") {
		return fmt.Errorf("%w: %w", ErrUniqueViolation, err)
	}
	return err
}

const pgSchemaSQL = `
CREATE TABLE IF NOT EXISTS trackables (
    id          TEXT PRIMARY KEY,
    key         TEXT,
    name        TEXT NOT NULL,
    kind        TEXT NOT NULL,
    value_type  TEXT NOT NULL DEFAULT 'range',
    config_json TEXT NOT NULL DEFAULT '{}',
    icon        TEXT,
    color       TEXT,
    sort_order  INTEGER NOT NULL DEFAULT 0,
    deleted_at  TEXT,
    created_at  TEXT NOT NULL,
    updated_at  TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_trackables_key ON trackables (key) WHERE deleted_at IS NULL;
CREATE INDEX IF NOT EXISTS idx_trackables_deleted_at ON trackables (deleted_at) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS daily_entries (
    trackable_id TEXT NOT NULL REFERENCES trackables(id),
    date         TEXT NOT NULL,
    value_type   TEXT NOT NULL,
    value_bool   INTEGER,
    value_int    INTEGER,
    value_num    DOUBLE PRECISION,
    value_text   TEXT,
    updated_at   TEXT NOT NULL,
    PRIMARY KEY (trackable_id, date)
);
CREATE INDEX IF NOT EXISTS idx_daily_entries_date ON daily_entries (date);
`

// Compile-time check
var _ Dialect = (*PostgresDialect)(nil)
