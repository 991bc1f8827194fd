package badger

import (
	"context"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/indepth/internal/common"
	"github.com/ternarybob/indepth/internal/interfaces"
	"github.com/ternarybob/indepth/internal/models"
)

// ChunkStorage implements the ChunkStorage interface for Badger
type ChunkStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewChunkStorage creates a new ChunkStorage instance
func NewChunkStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ChunkStorage {
	return &ChunkStorage{
		db:     db,
		logger: logger,
	}
}

// SaveChunks writes all chunks in one badger transaction. Every chunk write
// touches the shared ReportID and HasEmbedding index keys, so concurrent
// pipeline workers go through BadgerDB.Update.
func (s *ChunkStorage) SaveChunks(ctx context.Context, chunks []*models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	store := s.db.Store()
	err := s.db.Update(func(tx *badger.Txn) error {
		for _, c := range chunks {
			if c.ReportID == "" {
				return fmt.Errorf("chunk %d has no report id", c.ChunkIndex)
			}
			c.ID = common.ChunkID(c.ReportID, c.ChunkIndex)
			c.HasEmbedding = len(c.Embedding) > 0
			if err := store.TxUpsert(tx, c.ID, c); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save chunks: %w", err)
	}
	return nil
}

func (s *ChunkStorage) GetChunks(ctx context.Context, reportID string) ([]*models.Chunk, error) {
	var query *badgerhold.Query
	if reportID != "" {
		query = badgerhold.Where("ReportID").Eq(reportID).Index("ReportID")
	}
	return s.find(query)
}

func (s *ChunkStorage) GetEmbeddedChunks(ctx context.Context) ([]*models.Chunk, error) {
	return s.find(badgerhold.Where("HasEmbedding").Eq(true).Index("HasEmbedding"))
}

func (s *ChunkStorage) DeleteChunks(ctx context.Context, reportID string) error {
	store := s.db.Store()
	err := s.db.Update(func(tx *badger.Txn) error {
		return store.TxDeleteMatching(tx, &models.Chunk{}, badgerhold.Where("ReportID").Eq(reportID).Index("ReportID"))
	})
	if err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	return nil
}

func (s *ChunkStorage) find(query *badgerhold.Query) ([]*models.Chunk, error) {
	var chunks []models.Chunk
	if err := s.db.Store().Find(&chunks, query); err != nil {
		return nil, fmt.Errorf("failed to find chunks: %w", err)
	}

	sort.Slice(chunks, func(i, j int) bool {
		if chunks[i].ReportID != chunks[j].ReportID {
			return chunks[i].ReportID < chunks[j].ReportID
		}
		return chunks[i].ChunkIndex < chunks[j].ChunkIndex
	})

	result := make([]*models.Chunk, len(chunks))
	for i := range chunks {
		result[i] = &chunks[i]
	}
	return result, nil
}
