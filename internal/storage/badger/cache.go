package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/ternarybob/indepth/internal/interfaces"
)

const cachePrefix = "cache:"

// Cache stores JSON values as raw badger entries with native TTL.
// Entries live beside badgerhold records under their own key prefix.
type Cache struct {
	db *BadgerDB
}

// NewCache creates a cache over an open database. Close is a no-op; the
// storage manager owns the connection.
func NewCache(db *BadgerDB) interfaces.CacheService {
	return &Cache{db: db}
}

func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	var raw []byte
	err := c.db.Store().Badger().View(func(tx *badger.Txn) error {
		item, err := tx.Get([]byte(cachePrefix + key))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("failed to decode cache entry %s: %w", key, err)
	}
	return true, nil
}

func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry %s: %w", key, err)
	}

	entry := badger.NewEntry([]byte(cachePrefix+key), raw)
	if ttl > 0 {
		entry = entry.WithTTL(ttl)
	}
	return c.db.Store().Badger().Update(func(tx *badger.Txn) error {
		return tx.SetEntry(entry)
	})
}

func (c *Cache) Close() error {
	return nil
}
