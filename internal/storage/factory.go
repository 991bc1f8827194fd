package storage

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/indepth/internal/common"
	"github.com/ternarybob/indepth/internal/interfaces"
	"github.com/ternarybob/indepth/internal/storage/badger"
	"github.com/ternarybob/indepth/internal/storage/redis"
	"github.com/ternarybob/indepth/internal/storage/sqlite"
)

// NewStorageManager creates the catalog store selected by config.Storage.Type
func NewStorageManager(logger arbor.ILogger, config *common.Config) (interfaces.StorageManager, error) {
	switch config.Storage.Type {
	case "", "badger":
		return badger.NewManager(logger, &config.Storage.Badger)
	case "sqlite":
		return sqlite.NewManager(logger, &config.Storage.SQLite)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", config.Storage.Type)
	}
}

// NewCache creates the market data cache selected by config.Cache.Backend.
// The badger backend shares the storage manager's database and is only
// available when that manager is badger; otherwise caching is disabled.
func NewCache(ctx context.Context, logger arbor.ILogger, config *common.Config, manager interfaces.StorageManager) (interfaces.CacheService, error) {
	switch config.Cache.Backend {
	case "redis":
		cache, err := redis.Dial(ctx, config.Cache.RedisAddr)
		if err != nil {
			return nil, err
		}
		logger.Debug().Str("addr", config.Cache.RedisAddr).Msg("Using redis market data cache")
		return cache, nil
	case "badger":
		if m, ok := manager.(*badger.Manager); ok {
			return m.Cache(), nil
		}
		logger.Warn().Str("storage", config.Storage.Type).Msg("Badger cache requires badger storage, caching disabled")
		return nil, nil
	default:
		return nil, nil
	}
}
