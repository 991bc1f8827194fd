package processing

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indepth/internal/interfaces"
	"github.com/ternarybob/indepth/internal/models"
	"github.com/ternarybob/indepth/internal/services/chunker"
	"github.com/ternarybob/indepth/internal/services/embeddings"
	"github.com/ternarybob/indepth/internal/services/workers"
)

// MethodPlainText marks reports whose body was saved as markdown or text instead of a PDF
const MethodPlainText = "text"

// Options bound a single processing run
type Options struct {
	Limit        int     // Max reports considered, 0 = unlimited
	CostLimitUSD float64 // Stop starting new reports once spend reaches this, 0 = unlimited
}

// Stats summarizes a processing run
type Stats struct {
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
	Considered     int
	Extracted      int
	Chunked        int
	Embedded       int
	Failed         int
	EmbedFailed    int
	Skipped        int
	ExtractionCost float64
	EmbeddingCost  float64
	TotalCost      float64
	BudgetReached  bool
}

// Service runs downloaded reports through extract, chunk and embed
type Service struct {
	storage     interfaces.StorageManager
	extractor   interfaces.PDFExtractor
	chunker     *chunker.Chunker
	embedder    interfaces.EmbeddingService
	downloadDir string
	workers     int
	logger      arbor.ILogger

	mu      sync.Mutex
	running bool
}

// NewService creates a new processing service
func NewService(
	storage interfaces.StorageManager,
	extractor interfaces.PDFExtractor,
	chunker *chunker.Chunker,
	embedder interfaces.EmbeddingService,
	downloadDir string,
	workerCount int,
	logger arbor.ILogger,
) *Service {
	if workerCount <= 0 {
		workerCount = 1
	}
	return &Service{
		storage:     storage,
		extractor:   extractor,
		chunker:     chunker,
		embedder:    embedder,
		downloadDir: downloadDir,
		workers:     workerCount,
		logger:      logger,
	}
}

// run tracks the totals of one ProcessPending call across workers
type run struct {
	mu    sync.Mutex
	stats *Stats
	limit float64
}

func (r *run) overBudget() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.limit > 0 && r.stats.TotalCost >= r.limit {
		r.stats.BudgetReached = true
		return true
	}
	return false
}

func (r *run) update(fn func(s *Stats)) {
	r.mu.Lock()
	fn(r.stats)
	r.stats.TotalCost = r.stats.ExtractionCost + r.stats.EmbeddingCost
	r.mu.Unlock()
}

// ProcessPending processes downloaded reports that have not reached the embedded state.
// Reports already chunked only have their embeddings retried.
func (s *Service) ProcessPending(ctx context.Context, opts Options) (*Stats, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, fmt.Errorf("processing already in progress")
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	stats := &Stats{StartTime: time.Now()}

	pending, err := s.pendingReports(ctx, opts.Limit)
	if err != nil {
		return nil, err
	}
	stats.Considered = len(pending)

	s.logger.Info().
		Int("reports", len(pending)).
		Str("model", s.embedder.ModelName()).
		Float64("cost_limit_usd", opts.CostLimitUSD).
		Msg("Starting report processing")

	r := &run{stats: stats, limit: opts.CostLimitUSD}
	pool := workers.NewPool(ctx, s.workers, s.logger)
	pool.Start()

	for _, report := range pending {
		report := report
		if err := pool.Submit(func(ctx context.Context) error {
			if r.overBudget() {
				r.update(func(st *Stats) { st.Skipped++ })
				return nil
			}
			return s.processReport(ctx, report, r)
		}); err != nil {
			break
		}
	}
	pool.Wait()

	// Storage errors abort a single report; the rest of the batch still ran
	if errs := pool.Errors(); len(errs) > 0 {
		stats.Failed += len(errs)
		s.logger.Warn().Err(errs[0]).Int("count", len(errs)).Msg("Reports aborted by storage errors")
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	if stats.BudgetReached {
		s.logger.Warn().
			Float64("total_cost_usd", stats.TotalCost).
			Float64("cost_limit_usd", opts.CostLimitUSD).
			Int("skipped", stats.Skipped).
			Msg("Cost limit reached, remaining reports left for the next run")
	}

	s.logger.Info().
		Int("extracted", stats.Extracted).
		Int("chunked", stats.Chunked).
		Int("embedded", stats.Embedded).
		Int("failed", stats.Failed).
		Int("embed_failed", stats.EmbedFailed).
		Float64("total_cost_usd", stats.TotalCost).
		Dur("duration", stats.Duration).
		Msg("Report processing completed")

	if err := ctx.Err(); err != nil {
		return stats, err
	}
	return stats, nil
}

func (s *Service) pendingReports(ctx context.Context, limit int) ([]*models.Report, error) {
	var pending []*models.Report
	for _, status := range []models.ProcessingStatus{
		models.ProcessingUnprocessed,
		models.ProcessingExtracted,
		models.ProcessingChunked,
	} {
		reports, err := s.storage.ReportStorage().ListReports(ctx, models.ReportQuery{
			DownloadStatus:   models.DownloadDownloaded,
			ProcessingStatus: status,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list %s reports: %w", status, err)
		}
		pending = append(pending, reports...)
	}
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (s *Service) processReport(ctx context.Context, report *models.Report, r *run) error {
	reports := s.storage.ReportStorage()

	var chunks []*models.Chunk
	if report.ProcessingStatus == models.ProcessingChunked {
		stored, err := s.storage.ChunkStorage().GetChunks(ctx, report.ID)
		if err != nil {
			return fmt.Errorf("failed to load chunks for %s: %w", report.ID, err)
		}
		chunks = stored
	}

	if len(chunks) == 0 {
		pages, method, err := s.extract(ctx, report)
		if err != nil {
			s.logger.Warn().Err(err).Str("report_id", report.ID).Msg("Extraction failed")
			r.update(func(st *Stats) { st.Failed++ })
			return reports.UpdateProcessing(ctx, report.ID, models.ProcessingUpdate{Status: models.ProcessingFailed})
		}
		pageCount := len(pages)
		if err := reports.UpdateProcessing(ctx, report.ID, models.ProcessingUpdate{
			Status:           models.ProcessingExtracted,
			PageCount:        &pageCount,
			ExtractionMethod: &method,
		}); err != nil {
			return err
		}
		r.update(func(st *Stats) { st.Extracted++ })

		chunks = s.chunker.Chunk(report.ID, strings.Join(pages, "\n\n"), pages)
		if len(chunks) == 0 {
			r.update(func(st *Stats) { st.Failed++ })
			return reports.UpdateProcessing(ctx, report.ID, models.ProcessingUpdate{Status: models.ProcessingFailed})
		}
		if err := s.storage.ChunkStorage().DeleteChunks(ctx, report.ID); err != nil {
			return fmt.Errorf("failed to clear chunks for %s: %w", report.ID, err)
		}
		if err := s.storage.ChunkStorage().SaveChunks(ctx, chunks); err != nil {
			return fmt.Errorf("failed to save chunks for %s: %w", report.ID, err)
		}
		if err := reports.UpdateProcessing(ctx, report.ID, models.ProcessingUpdate{Status: models.ProcessingChunked}); err != nil {
			return err
		}
		r.update(func(st *Stats) { st.Chunked++ })
		s.logger.Debug().Str("report_id", report.ID).Int("pages", pageCount).Int("chunks", len(chunks)).Msg("Report chunked")
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, cost, err := s.embedder.EmbedBatch(ctx, texts)
	if err == nil && len(vectors) != len(chunks) {
		err = fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}
	if err != nil {
		// Left chunked so the next run retries the embedding only
		s.logger.Warn().Err(err).Str("report_id", report.ID).Msg("Embedding failed")
		r.update(func(st *Stats) { st.EmbedFailed++ })
		return nil
	}

	model := s.embedder.ModelName()
	for i, c := range chunks {
		c.Embedding = embeddings.EncodeVector(vectors[i])
		c.EmbeddingModel = model
	}
	if err := s.storage.ChunkStorage().SaveChunks(ctx, chunks); err != nil {
		return fmt.Errorf("failed to save embeddings for %s: %w", report.ID, err)
	}

	total := report.EmbeddingCost + cost
	if err := reports.UpdateProcessing(ctx, report.ID, models.ProcessingUpdate{
		Status:        models.ProcessingEmbedded,
		EmbeddingCost: &total,
	}); err != nil {
		return err
	}
	r.update(func(st *Stats) {
		st.Embedded++
		st.EmbeddingCost += cost
	})
	s.logger.Debug().Str("report_id", report.ID).Int("chunks", len(chunks)).Float64("cost_usd", cost).Msg("Report embedded")
	return nil
}

// extract returns one entry per page in page order, empty for pages without text
func (s *Service) extract(ctx context.Context, report *models.Report) ([]string, string, error) {
	if report.FileName == "" {
		return nil, "", fmt.Errorf("report has no downloaded file")
	}
	path := filepath.Join(s.downloadDir, report.FileName)
	if _, err := os.Stat(path); err != nil {
		return nil, "", fmt.Errorf("file not found: %s", path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".txt":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read %s: %w", path, err)
		}
		text := strings.TrimSpace(string(data))
		if text == "" {
			return nil, "", fmt.Errorf("no text in %s", path)
		}
		return []string{text}, MethodPlainText, nil
	case ".pdf":
	default:
		return nil, "", fmt.Errorf("unsupported file type: %s", filepath.Ext(path))
	}

	result, err := s.extractor.ExtractPages(ctx, path)
	if err != nil {
		return nil, "", err
	}
	if len(result.Pages) == 0 || strings.TrimSpace(result.FullText) == "" {
		return nil, "", fmt.Errorf("no extractable text in %s", path)
	}

	count := result.PageCount
	for _, p := range result.Pages {
		if p.PageNumber > count {
			count = p.PageNumber
		}
	}
	pages := make([]string, count)
	for _, p := range result.Pages {
		if p.PageNumber >= 1 {
			pages[p.PageNumber-1] = p.Text
		}
	}
	return pages, result.Method, nil
}
