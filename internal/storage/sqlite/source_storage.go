package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/indepth/internal/common"
	"github.com/ternarybob/indepth/internal/interfaces"
	"github.com/ternarybob/indepth/internal/models"
)

// SourceStorage implements interfaces.SourceStorage for SQLite
type SourceStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
}

// NewSourceStorage creates a new SourceStorage instance
func NewSourceStorage(db *SQLiteDB, logger arbor.ILogger) interfaces.SourceStorage {
	return &SourceStorage{
		db:     db,
		logger: logger,
	}
}

const sourceColumns = `id, name, base_url, last_scraped_at, created_at`

func (s *SourceStorage) GetOrCreateSource(ctx context.Context, name, baseURL string) (*models.Source, error) {
	_, err := s.db.DB().ExecContext(ctx,
		`INSERT INTO sources (id, name, base_url, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO NOTHING`,
		common.NewSourceID(), name, baseURL, time.Now().Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to create source: %w", err)
	}
	return s.GetSourceByName(ctx, name)
}

func (s *SourceStorage) GetSource(ctx context.Context, id string) (*models.Source, error) {
	row := s.db.DB().QueryRowContext(ctx, `SELECT `+sourceColumns+` FROM sources WHERE id = ?`, id)
	return s.scanSource(row)
}

func (s *SourceStorage) GetSourceByName(ctx context.Context, name string) (*models.Source, error) {
	row := s.db.DB().QueryRowContext(ctx, `SELECT `+sourceColumns+` FROM sources WHERE name = ?`, name)
	return s.scanSource(row)
}

func (s *SourceStorage) ListSources(ctx context.Context) ([]*models.Source, error) {
	rows, err := s.db.DB().QueryContext(ctx, `SELECT `+sourceColumns+` FROM sources ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	var sources []*models.Source
	for rows.Next() {
		source, err := s.scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, source)
	}
	return sources, rows.Err()
}

func (s *SourceStorage) MarkScraped(ctx context.Context, id string, at time.Time) error {
	result, err := s.db.DB().ExecContext(ctx, `UPDATE sources SET last_scraped_at = ? WHERE id = ?`, at.Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to update source: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return interfaces.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func (s *SourceStorage) scanSource(row scanner) (*models.Source, error) {
	var (
		source      models.Source
		lastScraped sql.NullInt64
		createdAt   int64
	)
	err := row.Scan(&source.ID, &source.Name, &source.BaseURL, &lastScraped, &createdAt)
	if err == sql.ErrNoRows {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan source: %w", err)
	}

	source.CreatedAt = time.Unix(createdAt, 0).UTC()
	if lastScraped.Valid {
		t := time.Unix(lastScraped.Int64, 0).UTC()
		source.LastScrapedAt = &t
	}
	return &source, nil
}
