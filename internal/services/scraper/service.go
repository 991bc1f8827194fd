package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/indepth/internal/interfaces"
	"github.com/ternarybob/indepth/internal/models"
	"github.com/ternarybob/indepth/internal/services/workers"
)

// Source is a publisher the catalog can scrape and download from
type Source interface {
	Name() string
	BaseURL() string
	ScrapeListing(ctx context.Context, opts ListingOptions) ([]Listing, error)
	Fetch(ctx context.Context, report *models.Report, destDir string) (*Download, error)
}

// ScrapeStats summarizes a catalog scrape
type ScrapeStats struct {
	Source   string
	Found    int
	New      int
	Existing int
}

// DownloadStats summarizes a download run
type DownloadStats struct {
	Attempted  int
	Downloaded int
	Restricted int
	Skipped    int
	Failed     int
	Bytes      int64
}

// Service catalogs report metadata and downloads pending files
type Service struct {
	storage     interfaces.StorageManager
	sources     map[string]Source
	downloadDir string
	workers     int
	logger      arbor.ILogger
}

// NewService creates a scraper service over the given sources
func NewService(storage interfaces.StorageManager, sources []Source, downloadDir string, workerCount int, logger arbor.ILogger) *Service {
	registry := make(map[string]Source, len(sources))
	for _, src := range sources {
		registry[strings.ToLower(src.Name())] = src
	}
	if workerCount <= 0 {
		workerCount = 1
	}
	return &Service{
		storage:     storage,
		sources:     registry,
		downloadDir: downloadDir,
		workers:     workerCount,
		logger:      logger,
	}
}

func (s *Service) source(name string) (Source, error) {
	if name == "" {
		name = KCIFName
	}
	src, ok := s.sources[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown source %q", name)
	}
	return src, nil
}

// Scrape records listing metadata for a source. Known reports are left untouched.
func (s *Service) Scrape(ctx context.Context, sourceName string, opts ListingOptions) (*ScrapeStats, error) {
	src, err := s.source(sourceName)
	if err != nil {
		return nil, err
	}

	record, err := s.storage.SourceStorage().GetOrCreateSource(ctx, src.Name(), src.BaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to register source: %w", err)
	}

	listings, err := src.ScrapeListing(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to scrape %s: %w", src.Name(), err)
	}

	stats := &ScrapeStats{Source: src.Name(), Found: len(listings)}
	for _, l := range listings {
		_, created, err := s.storage.ReportStorage().UpsertReport(ctx, &models.Report{
			SourceID:      record.ID,
			ExternalID:    l.ExternalID,
			Title:         l.Title,
			Category:      l.Category,
			Author:        l.Author,
			PublishedDate: l.PublishedDate,
			URL:           l.URL,
		})
		if err != nil {
			return stats, fmt.Errorf("failed to save report %s: %w", l.ExternalID, err)
		}
		if created {
			stats.New++
		} else {
			stats.Existing++
		}
	}

	if err := s.storage.SourceStorage().MarkScraped(ctx, record.ID, time.Now().UTC()); err != nil {
		return stats, err
	}

	s.logger.Info().
		Str("source", src.Name()).
		Int("found", stats.Found).
		Int("new", stats.New).
		Msg("Catalog scrape completed")
	return stats, nil
}

// DownloadPending fetches files for reports still pending, newest first
func (s *Service) DownloadPending(ctx context.Context, limit int) (*DownloadStats, error) {
	pending, err := s.storage.ReportStorage().ListReports(ctx, models.ReportQuery{
		DownloadStatus: models.DownloadPending,
		Limit:          limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pending reports: %w", err)
	}

	bySource := make(map[string]Source)
	sources, err := s.storage.SourceStorage().ListSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	for _, rec := range sources {
		if src, ok := s.sources[strings.ToLower(rec.Name)]; ok {
			bySource[rec.ID] = src
		}
	}

	stats := &DownloadStats{}
	var mu sync.Mutex
	count := func(fn func()) {
		mu.Lock()
		fn()
		mu.Unlock()
	}

	pool := workers.NewPool(ctx, s.workers, s.logger)
	pool.Start()
	for _, report := range pending {
		report := report
		src, ok := bySource[report.SourceID]
		if !ok {
			s.logger.Debug().Str("report_id", report.ID).Msg("No scraper for report source")
			continue
		}
		stats.Attempted++
		if err := pool.Submit(func(ctx context.Context) error {
			return s.download(ctx, src, report, count, stats)
		}); err != nil {
			break
		}
	}
	pool.Wait()

	s.logger.Info().
		Int("downloaded", stats.Downloaded).
		Int("restricted", stats.Restricted).
		Int("skipped", stats.Skipped).
		Int("failed", stats.Failed).
		Msg("Downloads completed")

	if errs := pool.Errors(); len(errs) > 0 {
		return stats, fmt.Errorf("failed to record %d download results: %w", len(errs), errs[0])
	}
	return stats, ctx.Err()
}

func (s *Service) download(ctx context.Context, src Source, report *models.Report, count func(func()), stats *DownloadStats) error {
	update := models.DownloadUpdate{}

	result, err := src.Fetch(ctx, report, s.downloadDir)
	switch {
	case err == nil:
		update.Status = models.DownloadDownloaded
		update.FileName = result.FileName
		update.FileSizeBytes = result.SizeBytes
		update.FileHash = result.Hash
		count(func() {
			stats.Downloaded++
			stats.Bytes += result.SizeBytes
		})
	case errors.Is(err, ErrRestricted):
		update.Status = models.DownloadRestricted
		update.Error = err.Error()
		count(func() { stats.Restricted++ })
	case errors.Is(err, ErrNoFile):
		update.Status = models.DownloadSkipped
		update.Error = err.Error()
		count(func() { stats.Skipped++ })
	default:
		if ctx.Err() != nil {
			return nil
		}
		s.logger.Warn().Err(err).Str("report_id", report.ID).Str("title", report.Title).Msg("Download failed")
		update.Status = models.DownloadFailed
		update.Error = err.Error()
		count(func() { stats.Failed++ })
	}

	return s.storage.ReportStorage().UpdateDownload(ctx, report.ID, update)
}
