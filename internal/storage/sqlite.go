package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/edjs/internal/shared"
)

// SQLiteStore implements [Store] on the session_storage table.
type SQLiteStore struct {
	db    *sql.DB
	scope string
}

// NewSQLiteStore creates a [SQLiteStore] for scope
func NewSQLiteStore(db *sql.DB, scope string) *SQLiteStore {
	return &SQLiteStore{db: db, scope: scope}
}

func (s *SQLiteStore) Scope() string { return s.scope }

func (s *SQLiteStore) Get(ctx context.Context, key string) (string, bool, error) {
	query := `SELECT value FROM session_storage WHERE scope = ? AND key = ?`

	var value string
	err := s.db.QueryRowContext(ctx, query, s.scope, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: failed to read %s: %v", shared.ErrStorage, key, err)
	}
	return value, true, nil
}

// Set upserts key, refreshing updated_at.
func (s *SQLiteStore) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO session_storage (scope, key, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(scope, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`

	if _, err := s.db.ExecContext(ctx, query, s.scope, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("%w: failed to write %s: %v", shared.ErrStorage, key, err)
	}
	return nil
}

func (s *SQLiteStore) Remove(ctx context.Context, key string) error {
	query := `DELETE FROM session_storage WHERE scope = ? AND key = ?`

	if _, err := s.db.ExecContext(ctx, query, s.scope, key); err != nil {
		return fmt.Errorf("%w: failed to remove %s: %v", shared.ErrStorage, key, err)
	}
	return nil
}

// Keys lists the keys stored in this scope, ordered by name.
func (s *SQLiteStore) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM session_storage WHERE scope = ? ORDER BY key`, s.scope)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list keys: %v", shared.ErrStorage, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("%w: failed to scan key: %v", shared.ErrStorage, err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// PurgeScope deletes every key of the scope, the equivalent of closing the tab.
func (s *SQLiteStore) PurgeScope(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM session_storage WHERE scope = ?`, s.scope)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to purge scope %s: %v", shared.ErrStorage, s.scope, err)
	}
	return res.RowsAffected()
}
