package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/indepth/internal/common"
	"github.com/ternarybob/indepth/internal/interfaces"
	"github.com/ternarybob/indepth/internal/models"
)

// ReportStorage implements interfaces.ReportStorage for SQLite
type ReportStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
}

// NewReportStorage creates a new ReportStorage instance
func NewReportStorage(db *SQLiteDB, logger arbor.ILogger) interfaces.ReportStorage {
	return &ReportStorage{
		db:     db,
		logger: logger,
	}
}

const reportColumns = `id, source_id, external_id, title, category, author, published_date, url,
	file_name, file_size_bytes, file_hash, download_status, download_error, processing_status,
	page_count, extraction_method, extraction_cost_usd, embedding_cost_usd, created_at`

func (s *ReportStorage) UpsertReport(ctx context.Context, report *models.Report) (*models.Report, bool, error) {
	stored := *report
	if stored.ID == "" {
		stored.ID = common.NewReportID()
	}
	if stored.DownloadStatus == "" {
		stored.DownloadStatus = models.DownloadPending
	}
	if stored.ProcessingStatus == "" {
		stored.ProcessingStatus = models.ProcessingUnprocessed
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}

	result, err := s.db.DB().ExecContext(ctx,
		`INSERT INTO reports (id, source_id, external_id, title, category, author, published_date, url,
			file_name, download_status, processing_status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_id, external_id) DO NOTHING`,
		stored.ID, stored.SourceID, stored.ExternalID, stored.Title, stored.Category, stored.Author,
		stored.PublishedDate, stored.URL, stored.FileName, string(stored.DownloadStatus),
		string(stored.ProcessingStatus), stored.CreatedAt.Unix())
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert report: %w", err)
	}

	created := false
	if n, _ := result.RowsAffected(); n > 0 {
		created = true
	}

	row := s.db.DB().QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM reports WHERE source_id = ? AND external_id = ?`,
		stored.SourceID, stored.ExternalID)
	existing, err := scanReport(row)
	if err != nil {
		return nil, false, err
	}
	return existing, created, nil
}

func (s *ReportStorage) GetReport(ctx context.Context, id string) (*models.Report, error) {
	row := s.db.DB().QueryRowContext(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = ?`, id)
	return scanReport(row)
}

func (s *ReportStorage) ListReports(ctx context.Context, q models.ReportQuery) ([]*models.Report, error) {
	var (
		where []string
		args  []interface{}
	)
	if q.SourceID != "" {
		where = append(where, "source_id = ?")
		args = append(args, q.SourceID)
	}
	if q.DownloadStatus != "" {
		where = append(where, "download_status = ?")
		args = append(args, string(q.DownloadStatus))
	}
	if q.ProcessingStatus != "" {
		where = append(where, "processing_status = ?")
		args = append(args, string(q.ProcessingStatus))
	}

	query := `SELECT ` + reportColumns + ` FROM reports`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY published_date DESC, created_at DESC`
	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", q.Limit)
	}

	rows, err := s.db.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var reports []*models.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

func (s *ReportStorage) UpdateDownload(ctx context.Context, id string, update models.DownloadUpdate) error {
	result, err := s.db.DB().ExecContext(ctx,
		`UPDATE reports SET
			download_status = ?,
			file_name = COALESCE(NULLIF(?, ''), file_name),
			file_size_bytes = COALESCE(NULLIF(?, 0), file_size_bytes),
			file_hash = COALESCE(NULLIF(?, ''), file_hash),
			download_error = ?
		WHERE id = ?`,
		string(update.Status), update.FileName, update.FileSizeBytes, update.FileHash, update.Error, id)
	return affected(result, err, "download")
}

func (s *ReportStorage) UpdateProcessing(ctx context.Context, id string, update models.ProcessingUpdate) error {
	result, err := s.db.DB().ExecContext(ctx,
		`UPDATE reports SET
			processing_status = ?,
			page_count = COALESCE(?, page_count),
			extraction_method = COALESCE(?, extraction_method),
			extraction_cost_usd = COALESCE(?, extraction_cost_usd),
			embedding_cost_usd = COALESCE(?, embedding_cost_usd)
		WHERE id = ?`,
		string(update.Status), nullInt(update.PageCount), nullString(update.ExtractionMethod),
		nullFloat(update.ExtractionCost), nullFloat(update.EmbeddingCost), id)
	return affected(result, err, "processing")
}

func affected(result sql.Result, err error, what string) error {
	if err != nil {
		return fmt.Errorf("failed to update report %s: %w", what, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return interfaces.ErrNotFound
	}
	return nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func scanReport(row scanner) (*models.Report, error) {
	var (
		r                          models.Report
		downloadStatus, procStatus string
		createdAt                  int64
	)
	err := row.Scan(&r.ID, &r.SourceID, &r.ExternalID, &r.Title, &r.Category, &r.Author,
		&r.PublishedDate, &r.URL, &r.FileName, &r.FileSizeBytes, &r.FileHash, &downloadStatus,
		&r.DownloadError, &procStatus, &r.PageCount, &r.ExtractionMethod, &r.ExtractionCost,
		&r.EmbeddingCost, &createdAt)
	if err == sql.ErrNoRows {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan report: %w", err)
	}
	r.DownloadStatus = models.DownloadStatus(downloadStatus)
	r.ProcessingStatus = models.ProcessingStatus(procStatus)
	r.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &r, nil
}
