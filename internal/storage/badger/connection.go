package badger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/indepth/internal/common"
)

// maxConflictRetries bounds Update retries after badger.ErrConflict
const maxConflictRetries = 5

// BadgerDB holds the catalog store: sources, reports, chunks, keys and cached market data
type BadgerDB struct {
	store   *badgerhold.Store
	logger  arbor.ILogger
	config  *common.BadgerConfig
	writeMu sync.Mutex // serializes multi-record write transactions
}

// NewBadgerDB opens (creating if needed) the badgerhold store at config.Path
func NewBadgerDB(logger arbor.ILogger, config *common.BadgerConfig) (*BadgerDB, error) {
	if config.ResetOnStartup {
		if _, err := os.Stat(config.Path); err == nil {
			logger.Debug().Str("path", config.Path).Msg("Resetting catalog (reset_on_startup=true)")
			if err := os.RemoveAll(config.Path); err != nil {
				logger.Warn().Err(err).Str("path", config.Path).Msg("Failed to reset catalog directory")
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(config.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create catalog directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = config.Path
	options.ValueDir = config.Path
	options.Logger = nil // badger's own logger is noisy; arbor covers open/close

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger catalog at %s: %w", config.Path, err)
	}

	logger.Debug().Str("path", config.Path).Msg("InDepth catalog opened (badger)")

	return &BadgerDB{
		store:  store,
		logger: logger,
		config: config,
	}, nil
}

// Store returns the underlying badgerhold store
func (b *BadgerDB) Store() *badgerhold.Store {
	return b.store
}

// Update runs fn in one read-write transaction. Writers are serialized and a
// transaction that still loses a conflict (against a single-record badgerhold
// write) is retried, so fn must be safe to run more than once.
func (b *BadgerDB) Update(fn func(tx *badger.Txn) error) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	var err error
	for attempt := 0; attempt <= maxConflictRetries; attempt++ {
		err = b.store.Badger().Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		b.logger.Debug().Int("attempt", attempt+1).Msg("Catalog write conflict, retrying")
	}
	return err
}

// Close closes the catalog
func (b *BadgerDB) Close() error {
	if b.store != nil {
		return b.store.Close()
	}
	return nil
}
