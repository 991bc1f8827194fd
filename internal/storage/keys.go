package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/indepth/internal/interfaces"
)

// KeyFile is one section of a keys TOML file:
//
//	[eodhd_api_key]
//	value = "..."
//	description = "EODHD market data"
type KeyFile struct {
	Value       string `toml:"value"`
	Description string `toml:"description"`
}

// LoadKeysFromFiles seeds the KV store from every *.toml file in dir, in name
// order, so later files override earlier ones. A missing directory is not an
// error. Returns the number of keys stored.
func LoadKeysFromFiles(ctx context.Context, logger arbor.ILogger, kv interfaces.KeyValueStorage, dir string) (int, error) {
	if dir == "" {
		return 0, nil
	}
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		logger.Debug().Str("dir", dir).Msg("Keys directory not found, skipping")
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read keys directory: %w", err)
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".toml" {
			continue
		}

		keys, err := readKeyFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			logger.Warn().Err(err).Str("file", entry.Name()).Msg("Skipping key file")
			continue
		}

		names := make([]string, 0, len(keys))
		for name := range keys {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			key := keys[name]
			if strings.TrimSpace(key.Value) == "" {
				logger.Warn().Str("file", entry.Name()).Str("key", name).Msg("Key has no value")
				continue
			}
			description := key.Description
			if description == "" {
				description = "Loaded from " + entry.Name()
			}
			if err := kv.Set(ctx, name, key.Value, description); err != nil {
				return loaded, fmt.Errorf("failed to store key %s: %w", name, err)
			}
			loaded++
		}
	}

	logger.Debug().Int("loaded", loaded).Str("dir", dir).Msg("Loaded keys from files")
	return loaded, nil
}

func readKeyFile(path string) (map[string]KeyFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var keys map[string]KeyFile
	if err := toml.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return keys, nil
}
