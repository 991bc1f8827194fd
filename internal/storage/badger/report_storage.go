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

// ReportStorage implements the ReportStorage interface for Badger
type ReportStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
	mu     sync.Mutex // serializes read-modify-write on reports
}

// NewReportStorage creates a new ReportStorage instance
func NewReportStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ReportStorage {
	return &ReportStorage{
		db:     db,
		logger: logger,
	}
}

func (s *ReportStorage) UpsertReport(ctx context.Context, report *models.Report) (*models.Report, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var existing []models.Report
	query := badgerhold.Where("SourceID").Eq(report.SourceID).Index("SourceID").And("ExternalID").Eq(report.ExternalID)
	if err := s.db.Store().Find(&existing, query); err != nil {
		return nil, false, fmt.Errorf("failed to find report: %w", err)
	}
	if len(existing) > 0 {
		return &existing[0], false, nil
	}

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

	if err := s.db.Store().Insert(stored.ID, &stored); err != nil {
		return nil, false, fmt.Errorf("failed to insert report: %w", err)
	}
	return &stored, true, nil
}

func (s *ReportStorage) GetReport(ctx context.Context, id string) (*models.Report, error) {
	var report models.Report
	if err := s.db.Store().Get(id, &report); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return &report, nil
}

func (s *ReportStorage) ListReports(ctx context.Context, q models.ReportQuery) ([]*models.Report, error) {
	var query *badgerhold.Query
	and := func(field string, value interface{}) {
		if query == nil {
			query = badgerhold.Where(field).Eq(value)
		} else {
			query = query.And(field).Eq(value)
		}
	}
	if q.SourceID != "" {
		and("SourceID", q.SourceID)
	}
	if q.DownloadStatus != "" {
		and("DownloadStatus", q.DownloadStatus)
	}
	if q.ProcessingStatus != "" {
		and("ProcessingStatus", q.ProcessingStatus)
	}

	var reports []models.Report
	if err := s.db.Store().Find(&reports, query); err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	sort.SliceStable(reports, func(i, j int) bool {
		if reports[i].PublishedDate != reports[j].PublishedDate {
			return reports[i].PublishedDate > reports[j].PublishedDate
		}
		return reports[i].CreatedAt.After(reports[j].CreatedAt)
	})
	if q.Limit > 0 && len(reports) > q.Limit {
		reports = reports[:q.Limit]
	}

	result := make([]*models.Report, len(reports))
	for i := range reports {
		result[i] = &reports[i]
	}
	return result, nil
}

func (s *ReportStorage) UpdateDownload(ctx context.Context, id string, update models.DownloadUpdate) error {
	return s.modify(id, func(r *models.Report) {
		r.DownloadStatus = update.Status
		if update.FileName != "" {
			r.FileName = update.FileName
		}
		if update.FileSizeBytes != 0 {
			r.FileSizeBytes = update.FileSizeBytes
		}
		if update.FileHash != "" {
			r.FileHash = update.FileHash
		}
		r.DownloadError = update.Error
	})
}

func (s *ReportStorage) UpdateProcessing(ctx context.Context, id string, update models.ProcessingUpdate) error {
	return s.modify(id, func(r *models.Report) {
		r.ProcessingStatus = update.Status
		if update.PageCount != nil {
			r.PageCount = *update.PageCount
		}
		if update.ExtractionMethod != nil {
			r.ExtractionMethod = *update.ExtractionMethod
		}
		if update.ExtractionCost != nil {
			r.ExtractionCost = *update.ExtractionCost
		}
		if update.EmbeddingCost != nil {
			r.EmbeddingCost = *update.EmbeddingCost
		}
	})
}

func (s *ReportStorage) modify(id string, apply func(*models.Report)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var report models.Report
	if err := s.db.Store().Get(id, &report); err != nil {
		if err == badgerhold.ErrNotFound {
			return interfaces.ErrNotFound
		}
		return fmt.Errorf("failed to get report: %w", err)
	}
	apply(&report)
	if err := s.db.Store().Update(id, &report); err != nil {
		return fmt.Errorf("failed to update report: %w", err)
	}
	return nil
}
