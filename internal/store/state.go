package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// GetState reads a per-source resume marker set by an adapter.
func (s *Store) GetState(ctx context.Context, source, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM ingest_state WHERE source = ? AND key = ?
	`, source, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get ingest state: %w", err)
	}
	return v, true, nil
}

// SetState records a per-source resume marker.
func (s *Store) SetState(ctx context.Context, source, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ingest_state (source, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(source, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, source, key, value, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to set ingest state: %w", err)
	}
	return nil
}
