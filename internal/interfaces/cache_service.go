package interfaces

import (
	"context"
	"time"
)

// CacheService stores JSON-encodable values with a time-to-live
type CacheService interface {
	// Get decodes the cached value into dest. Returns false on a miss.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Close() error
}
