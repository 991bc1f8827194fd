package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indepth/internal/interfaces"
	"github.com/ternarybob/indepth/internal/models"
)

const DefaultTopK = 5

// Query is a semantic search request. Dates are inclusive YYYY-MM-DD bounds.
type Query struct {
	Text     string
	TopK     int
	DateFrom string
	DateTo   string
	Source   string
}

func (q Query) filtered() bool {
	return q.DateFrom != "" || q.DateTo != "" || q.Source != ""
}

// Hit is a ranked result with its report, which may be nil if it was deleted
type Hit struct {
	Rank   int
	Score  float64
	Chunk  *models.Chunk
	Report *models.Report
}

// Results holds ranked hits and the number of chunks searched
type Results struct {
	Query     string
	Hits      []Hit
	IndexSize int
}

// Retriever embeds queries and searches the chunk index
type Retriever struct {
	storage  interfaces.StorageManager
	embedder interfaces.EmbeddingService
	index    *Index
	logger   arbor.ILogger
}

// NewRetriever creates a retriever. The index is rebuilt for each search so
// long-running callers see newly embedded reports.
func NewRetriever(storage interfaces.StorageManager, embedder interfaces.EmbeddingService, logger arbor.ILogger) *Retriever {
	return &Retriever{
		storage:  storage,
		embedder: embedder,
		index:    NewIndex(storage.ChunkStorage(), logger),
		logger:   logger,
	}
}

// Search runs q and returns ranked hits. An empty index yields no hits and no error.
func (r *Retriever) Search(ctx context.Context, q Query) (*Results, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, fmt.Errorf("search query is empty")
	}
	if q.TopK <= 0 {
		q.TopK = DefaultTopK
	}

	if err := r.index.Build(ctx); err != nil {
		return nil, err
	}
	results := &Results{Query: q.Text, Hits: []Hit{}, IndexSize: r.index.Size()}
	if r.index.Size() == 0 {
		return results, nil
	}

	filter, err := r.buildFilter(ctx, q)
	if err != nil {
		return nil, err
	}

	vec, err := r.embedder.Embed(ctx, q.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	reports := make(map[string]*models.Report)
	for rank, res := range r.index.Search(vec, q.TopK, filter) {
		report, ok := reports[res.Chunk.ReportID]
		if !ok {
			report, err = r.storage.ReportStorage().GetReport(ctx, res.Chunk.ReportID)
			if err != nil {
				r.logger.Debug().Err(err).Str("report_id", res.Chunk.ReportID).Msg("Report not found for chunk")
				report = nil
			}
			reports[res.Chunk.ReportID] = report
		}
		results.Hits = append(results.Hits, Hit{
			Rank:   rank + 1,
			Score:  res.Score,
			Chunk:  res.Chunk,
			Report: report,
		})
	}

	r.logger.Debug().
		Str("query", q.Text).
		Int("hits", len(results.Hits)).
		Int("index_size", results.IndexSize).
		Msg("Search complete")

	return results, nil
}

// buildFilter returns the ids of reports matching the query's date range and
// source, or nil when no filter was requested. Undated reports never match a
// date bound.
func (r *Retriever) buildFilter(ctx context.Context, q Query) (ReportFilter, error) {
	if !q.filtered() {
		return nil, nil
	}

	sourceID := ""
	if q.Source != "" {
		sources, err := r.storage.SourceStorage().ListSources(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list sources: %w", err)
		}
		for _, s := range sources {
			if strings.EqualFold(s.Name, q.Source) {
				sourceID = s.ID
				break
			}
		}
		if sourceID == "" {
			return ReportFilter{}, nil
		}
	}

	reports, err := r.storage.ReportStorage().ListReports(ctx, models.ReportQuery{SourceID: sourceID})
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	filter := make(ReportFilter)
	for _, rpt := range reports {
		if q.DateFrom != "" && (rpt.PublishedDate == "" || rpt.PublishedDate < q.DateFrom) {
			continue
		}
		if q.DateTo != "" && (rpt.PublishedDate == "" || rpt.PublishedDate > q.DateTo) {
			continue
		}
		filter[rpt.ID] = struct{}{}
	}
	return filter, nil
}
