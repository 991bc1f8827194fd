package sqlite

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/indepth/internal/common"
	"github.com/ternarybob/indepth/internal/interfaces"
	"github.com/ternarybob/indepth/internal/models"
)

// Manager implements the StorageManager interface
type Manager struct {
	db     *SQLiteDB
	source interfaces.SourceStorage
	report interfaces.ReportStorage
	chunk  interfaces.ChunkStorage
	kv     interfaces.KeyValueStorage
	logger arbor.ILogger
}

// NewManager creates a new SQLite storage manager
func NewManager(logger arbor.ILogger, config *common.SQLiteConfig) (*Manager, error) {
	db, err := NewSQLiteDB(logger, config)
	if err != nil {
		return nil, err
	}

	return &Manager{
		db:     db,
		source: NewSourceStorage(db, logger),
		report: NewReportStorage(db, logger),
		chunk:  NewChunkStorage(db, logger),
		kv:     NewKVStorage(db, logger),
		logger: logger,
	}, nil
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

func (m *Manager) StatusSummary(ctx context.Context) (*models.StatusSummary, error) {
	db := m.db.DB()
	summary := &models.StatusSummary{
		DownloadStatus:   make(map[models.DownloadStatus]int),
		ProcessingStatus: make(map[models.ProcessingStatus]int),
	}

	counts := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM sources`, &summary.Sources},
		{`SELECT COUNT(*) FROM reports`, &summary.Reports},
		{`SELECT COUNT(*) FROM chunks`, &summary.Chunks},
		{`SELECT COUNT(*) FROM chunks WHERE embedding IS NOT NULL`, &summary.EmbeddedChunks},
	}
	for _, c := range counts {
		if err := db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("failed to count: %w", err)
		}
	}

	if err := m.groupCounts(ctx, "download_status", func(status string, n int) {
		summary.DownloadStatus[models.DownloadStatus(status)] = n
	}); err != nil {
		return nil, err
	}
	if err := m.groupCounts(ctx, "processing_status", func(status string, n int) {
		summary.ProcessingStatus[models.ProcessingStatus(status)] = n
	}); err != nil {
		return nil, err
	}

	return summary, nil
}

// groupCounts counts reports per value of a status column; column is never user input
func (m *Manager) groupCounts(ctx context.Context, column string, record func(string, int)) error {
	rows, err := m.db.DB().QueryContext(ctx, `SELECT `+column+`, COUNT(*) FROM reports GROUP BY `+column)
	if err != nil {
		return fmt.Errorf("failed to group reports by %s: %w", column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return fmt.Errorf("failed to scan %s count: %w", column, err)
		}
		record(status, n)
	}
	return rows.Err()
}

func (m *Manager) CostSummary(ctx context.Context) ([]models.CostSummary, error) {
	rows, err := m.db.DB().QueryContext(ctx,
		`SELECT name, total, downloaded, embedded, total_cost FROM cost_summary ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query cost summary: %w", err)
	}
	defer rows.Close()

	var result []models.CostSummary
	for rows.Next() {
		var row models.CostSummary
		if err := rows.Scan(&row.Name, &row.Total, &row.Downloaded, &row.Embedded, &row.TotalCost); err != nil {
			return nil, fmt.Errorf("failed to scan cost summary: %w", err)
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
