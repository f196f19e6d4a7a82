package store

import (
	"context"
	"fmt"
)

// Bootstrap creates the tracker tables. Safe to call on every start.
func (s *Store) Bootstrap(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, s.Dialect.SchemaSQL()); err != nil {
		return fmt.Errorf("bootstrap tables: %w", err)
	}
	return nil
}
