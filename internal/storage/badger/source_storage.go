package badger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/indepth/internal/common"
	"github.com/ternarybob/indepth/internal/interfaces"
	"github.com/ternarybob/indepth/internal/models"
)

// SourceStorage implements the SourceStorage interface for Badger
type SourceStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
	mu     sync.Mutex // serializes get-or-create on Name
}

// NewSourceStorage creates a new SourceStorage instance
func NewSourceStorage(db *BadgerDB, logger arbor.ILogger) interfaces.SourceStorage {
	return &SourceStorage{
		db:     db,
		logger: logger,
	}
}

func (s *SourceStorage) GetOrCreateSource(ctx context.Context, name, baseURL string) (*models.Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.GetSourceByName(ctx, name)
	if err == nil {
		return existing, nil
	}
	if err != interfaces.ErrNotFound {
		return nil, err
	}

	source := &models.Source{
		ID:        common.NewSourceID(),
		Name:      name,
		BaseURL:   baseURL,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.db.Store().Insert(source.ID, source); err != nil {
		return nil, fmt.Errorf("failed to create source: %w", err)
	}

	s.logger.Debug().Str("id", source.ID).Str("name", name).Msg("Source created")
	return source, nil
}

func (s *SourceStorage) GetSource(ctx context.Context, id string) (*models.Source, error) {
	var source models.Source
	if err := s.db.Store().Get(id, &source); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get source: %w", err)
	}
	return &source, nil
}

func (s *SourceStorage) GetSourceByName(ctx context.Context, name string) (*models.Source, error) {
	var sources []models.Source
	if err := s.db.Store().Find(&sources, badgerhold.Where("Name").Eq(name).Index("Name")); err != nil {
		return nil, fmt.Errorf("failed to find source: %w", err)
	}
	if len(sources) == 0 {
		return nil, interfaces.ErrNotFound
	}
	return &sources[0], nil
}

func (s *SourceStorage) ListSources(ctx context.Context) ([]*models.Source, error) {
	var sources []models.Source
	if err := s.db.Store().Find(&sources, nil); err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i].Name < sources[j].Name })

	result := make([]*models.Source, len(sources))
	for i := range sources {
		result[i] = &sources[i]
	}
	return result, nil
}

func (s *SourceStorage) MarkScraped(ctx context.Context, id string, at time.Time) error {
	var source models.Source
	if err := s.db.Store().Get(id, &source); err != nil {
		if err == badgerhold.ErrNotFound {
			return interfaces.ErrNotFound
		}
		return fmt.Errorf("failed to get source: %w", err)
	}

	at = at.UTC()
	source.LastScrapedAt = &at
	if err := s.db.Store().Update(id, &source); err != nil {
		return fmt.Errorf("failed to update source: %w", err)
	}
	return nil
}
