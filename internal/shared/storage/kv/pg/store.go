package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"signaware-client/internal/shared/storage/kv"
)

// Store implements kv.Store on the client_state table.
type Store struct {
	DB      *sql.DB
	Profile string
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	const query = `
SELECT value FROM client_state
WHERE profile = $1 AND key = $2`

	var value string
	err := s.DB.QueryRowContext(ctx, query, s.Profile, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", kv.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("select client_state: %w", err)
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	const query = `
INSERT INTO client_state (profile, key, value, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (profile, key) DO UPDATE SET
  value = EXCLUDED.value,
  updated_at = now()`

	if _, err := s.DB.ExecContext(ctx, query, s.Profile, key, value); err != nil {
		return fmt.Errorf("upsert client_state: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	const query = `DELETE FROM client_state WHERE profile = $1 AND key = $2`

	for _, k := range keys {
		if _, err := s.DB.ExecContext(ctx, query, s.Profile, k); err != nil {
			return fmt.Errorf("delete client_state: %w", err)
		}
	}
	return nil
}

var _ kv.Store = (*Store)(nil)
