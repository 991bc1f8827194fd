package badger

import (
	"context"
	"fmt"
	"sort"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/indepth/internal/common"
	"github.com/ternarybob/indepth/internal/interfaces"
	"github.com/ternarybob/indepth/internal/models"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db     *BadgerDB
	source interfaces.SourceStorage
	report interfaces.ReportStorage
	chunk  interfaces.ChunkStorage
	kv     interfaces.KeyValueStorage
	cache  interfaces.CacheService
	logger arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (*Manager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:     db,
		source: NewSourceStorage(db, logger),
		report: NewReportStorage(db, logger),
		chunk:  NewChunkStorage(db, logger),
		kv:     NewKVStorage(db, logger),
		cache:  NewCache(db),
		logger: logger,
	}

	logger.Info().Str("path", config.Path).Msg("Badger storage manager initialized")
	return manager, nil
}

func (m *Manager) SourceStorage() interfaces.SourceStorage {
	return m.source
}

func (m *Manager) ReportStorage() interfaces.ReportStorage {
	return m.report
}

func (m *Manager) ChunkStorage() interfaces.ChunkStorage {
	return m.chunk
}

func (m *Manager) KeyValueStorage() interfaces.KeyValueStorage {
	return m.kv
}

// Cache returns a TTL cache sharing this database
func (m *Manager) Cache() interfaces.CacheService {
	return m.cache
}

func (m *Manager) StatusSummary(ctx context.Context) (*models.StatusSummary, error) {
	store := m.db.Store()
	summary := &models.StatusSummary{
		DownloadStatus:   make(map[models.DownloadStatus]int),
		ProcessingStatus: make(map[models.ProcessingStatus]int),
	}

	sources, err := store.Count(&models.Source{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to count sources: %w", err)
	}
	chunks, err := store.Count(&models.Chunk{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to count chunks: %w", err)
	}
	embedded, err := store.Count(&models.Chunk{}, badgerhold.Where("HasEmbedding").Eq(true).Index("HasEmbedding"))
	if err != nil {
		return nil, fmt.Errorf("failed to count embedded chunks: %w", err)
	}

	var reports []models.Report
	if err := store.Find(&reports, nil); err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	for _, r := range reports {
		summary.DownloadStatus[r.DownloadStatus]++
		summary.ProcessingStatus[r.ProcessingStatus]++
	}

	summary.Sources = int(sources)
	summary.Reports = len(reports)
	summary.Chunks = int(chunks)
	summary.EmbeddedChunks = int(embedded)
	return summary, nil
}

func (m *Manager) CostSummary(ctx context.Context) ([]models.CostSummary, error) {
	store := m.db.Store()

	var sources []models.Source
	if err := store.Find(&sources, nil); err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	var reports []models.Report
	if err := store.Find(&reports, nil); err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	bySource := make(map[string]*models.CostSummary)
	names := make(map[string]string, len(sources))
	for _, s := range sources {
		names[s.ID] = s.Name
	}
	for _, r := range reports {
		name, ok := names[r.SourceID]
		if !ok {
			continue
		}
		row, ok := bySource[name]
		if !ok {
			row = &models.CostSummary{Name: name}
			bySource[name] = row
		}
		row.Total++
		if r.DownloadStatus == models.DownloadDownloaded {
			row.Downloaded++
		}
		if r.ProcessingStatus == models.ProcessingEmbedded {
			row.Embedded++
		}
		row.TotalCost += r.ExtractionCost + r.EmbeddingCost
	}

	result := make([]models.CostSummary, 0, len(bySource))
	for _, row := range bySource {
		row.TotalCost = common.Round(row.TotalCost, 4)
		result = append(result, *row)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
