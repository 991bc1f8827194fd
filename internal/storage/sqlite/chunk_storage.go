package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/indepth/internal/common"
	"github.com/ternarybob/indepth/internal/interfaces"
	"github.com/ternarybob/indepth/internal/models"
)

// ChunkStorage implements interfaces.ChunkStorage for SQLite
type ChunkStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
}

// NewChunkStorage creates a new ChunkStorage instance
func NewChunkStorage(db *SQLiteDB, logger arbor.ILogger) interfaces.ChunkStorage {
	return &ChunkStorage{
		db:     db,
		logger: logger,
	}
}

const chunkColumns = `id, report_id, chunk_index, content, page_start, page_end, token_count, is_table, embedding, embedding_model`

// SaveChunks inserts or replaces chunks in a single transaction
func (s *ChunkStorage) SaveChunks(ctx context.Context, chunks []*models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO chunks (`+chunkColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare chunk insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		c.ID = common.ChunkID(c.ReportID, c.ChunkIndex)
		c.HasEmbedding = len(c.Embedding) > 0

		var embedding interface{}
		if c.HasEmbedding {
			embedding = c.Embedding
		}
		isTable := 0
		if c.IsTable {
			isTable = 1
		}
		if _, err := stmt.ExecContext(ctx, c.ID, c.ReportID, c.ChunkIndex, c.Content,
			nullInt(c.PageStart), nullInt(c.PageEnd), c.TokenCount, isTable, embedding, c.EmbeddingModel); err != nil {
			return fmt.Errorf("failed to save chunk %s: %w", c.ID, err)
		}
	}

	return tx.Commit()
}

func (s *ChunkStorage) GetChunks(ctx context.Context, reportID string) ([]*models.Chunk, error) {
	if reportID == "" {
		return s.query(ctx, `SELECT `+chunkColumns+` FROM chunks ORDER BY report_id, chunk_index`)
	}
	return s.query(ctx, `SELECT `+chunkColumns+` FROM chunks WHERE report_id = ? ORDER BY chunk_index`, reportID)
}

func (s *ChunkStorage) GetEmbeddedChunks(ctx context.Context) ([]*models.Chunk, error) {
	return s.query(ctx, `SELECT `+chunkColumns+` FROM chunks WHERE embedding IS NOT NULL ORDER BY report_id, chunk_index`)
}

func (s *ChunkStorage) DeleteChunks(ctx context.Context, reportID string) error {
	if _, err := s.db.DB().ExecContext(ctx, `DELETE FROM chunks WHERE report_id = ?`, reportID); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	return nil
}

func (s *ChunkStorage) query(ctx context.Context, query string, args ...interface{}) ([]*models.Chunk, error) {
	rows, err := s.db.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []*models.Chunk
	for rows.Next() {
		var (
			c                  models.Chunk
			pageStart, pageEnd sql.NullInt64
			isTable            int
		)
		if err := rows.Scan(&c.ID, &c.ReportID, &c.ChunkIndex, &c.Content, &pageStart, &pageEnd,
			&c.TokenCount, &isTable, &c.Embedding, &c.EmbeddingModel); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		c.PageStart = intPtr(pageStart)
		c.PageEnd = intPtr(pageEnd)
		c.IsTable = isTable != 0
		c.HasEmbedding = len(c.Embedding) > 0
		chunks = append(chunks, &c)
	}
	return chunks, rows.Err()
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
