package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/indepth/internal/interfaces"
)

// KVStorage implements the KeyValueStorage interface for SQLite
type KVStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
}

// NewKVStorage creates a new KVStorage instance
func NewKVStorage(db *SQLiteDB, logger arbor.ILogger) interfaces.KeyValueStorage {
	return &KVStorage{
		db:     db,
		logger: logger,
	}
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// Get retrieves a value by key
func (s *KVStorage) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.DB().QueryRowContext(ctx, `SELECT value FROM key_value_store WHERE key = ?`, normalizeKey(key)).Scan(&value)
	if err == sql.ErrNoRows {
		return "", interfaces.ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get key: %w", err)
	}
	return value, nil
}

// Set inserts or updates a key/value pair
func (s *KVStorage) Set(ctx context.Context, key string, value string, description string) error {
	now := time.Now().Unix()
	_, err := s.db.DB().ExecContext(ctx, `
		INSERT INTO key_value_store (key, value, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			description = excluded.description,
			updated_at = excluded.updated_at`,
		normalizeKey(key), value, description, now, now)
	if err != nil {
		return fmt.Errorf("failed to set key/value: %w", err)
	}
	return nil
}

// Delete removes a key/value pair
func (s *KVStorage) Delete(ctx context.Context, key string) error {
	result, err := s.db.DB().ExecContext(ctx, `DELETE FROM key_value_store WHERE key = ?`, normalizeKey(key))
	if err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return interfaces.ErrKeyNotFound
	}
	return nil
}

// List returns all key/value pairs ordered by key
func (s *KVStorage) List(ctx context.Context) ([]interfaces.KeyValuePair, error) {
	rows, err := s.db.DB().QueryContext(ctx,
		`SELECT key, value, description, created_at, updated_at FROM key_value_store ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list key/value pairs: %w", err)
	}
	defer rows.Close()

	var pairs []interfaces.KeyValuePair
	for rows.Next() {
		var (
			pair             interfaces.KeyValuePair
			created, updated int64
		)
		if err := rows.Scan(&pair.Key, &pair.Value, &pair.Description, &created, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan key/value pair: %w", err)
		}
		pair.CreatedAt = time.Unix(created, 0)
		pair.UpdatedAt = time.Unix(updated, 0)
		pairs = append(pairs, pair)
	}
	return pairs, rows.Err()
}
