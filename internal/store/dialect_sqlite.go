package store

import (
	"fmt"
	"strings"
)

// SQLiteDialect implements Dialect for SQLite via modernc.org/sqlite.
type SQLiteDialect struct{}

func (d *SQLiteDialect) Name() string       { return "sqlite" }
func (d *SQLiteDialect) DriverName() string { return "sqlite" }

func (d *SQLiteDialect) NewParamBuilder() ParamBuilder {
	return &paramBuilder{prefix: "?"}
}

func (d *SQLiteDialect) SchemaSQL() string { return sqliteSchemaSQL }

func (d *SQLiteDialect) MapError(err error) error {
	if err == nil {
		return nil
	}
	errStr := err.Error()
	if strings.Contains(errStr, "UNIQUE constraint failed") || strings.Contains(errStr, "constraint failed: UNIQUE") {
		return fmt.Errorf("%w: %w", ErrUniqueViolation, err)
	}
	return err
}

// Booleans live in INTEGER columns and timestamps in TEXT so both dialects
// scan into the same Go types.
const sqliteSchemaSQL = `
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
    value_num    REAL,
    value_text   TEXT,
    updated_at   TEXT NOT NULL,
    PRIMARY KEY (trackable_id, date)
);
CREATE INDEX IF NOT EXISTS idx_daily_entries_date ON daily_entries (date);
`

// Compile-time check
var _ Dialect = (*SQLiteDialect)(nil)
