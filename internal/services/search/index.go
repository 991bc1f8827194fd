package search

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indepth/internal/interfaces"
	"github.com/ternarybob/indepth/internal/models"
	"github.com/ternarybob/indepth/internal/services/embeddings"
)

// ReportFilter restricts results to a set of report ids.
// A nil filter allows every report; an empty one allows none.
type ReportFilter map[string]struct{}

// Allows reports whether reportID passes the filter
func (f ReportFilter) Allows(reportID string) bool {
	if f == nil {
		return true
	}
	_, ok := f[reportID]
	return ok
}

// Result is one scored chunk
type Result struct {
	Chunk *models.Chunk
	Score float64
}

// Index is an in-memory brute-force cosine index over embedded chunks.
// Vectors are stored row-major in one contiguous slice.
type Index struct {
	store  interfaces.ChunkStorage
	logger arbor.ILogger

	chunks []*models.Chunk
	matrix []float32
	dim    int
}

// NewIndex creates an empty index backed by store
func NewIndex(store interfaces.ChunkStorage, logger arbor.ILogger) *Index {
	return &Index{store: store, logger: logger}
}

func (i *Index) Size() int { return len(i.chunks) }

func (i *Index) Dim() int { return i.dim }

// Build replaces the index contents with every embedded chunk in the store.
// Chunks whose vector length differs from the first are skipped.
func (i *Index) Build(ctx context.Context) error {
	chunks, err := i.store.GetEmbeddedChunks(ctx)
	if err != nil {
		return fmt.Errorf("failed to load embedded chunks: %w", err)
	}

	i.chunks = i.chunks[:0]
	i.matrix = i.matrix[:0]
	i.dim = 0

	for _, c := range chunks {
		vec, err := embeddings.DecodeVector(c.Embedding)
		if err != nil || len(vec) == 0 {
			i.logger.Warn().Str("chunk_id", c.ID).Msg("Skipping chunk with unreadable embedding")
			continue
		}
		if i.dim == 0 {
			i.dim = len(vec)
		}
		if len(vec) != i.dim {
			i.logger.Warn().
				Str("chunk_id", c.ID).
				Int("dimension", len(vec)).
				Int("expected", i.dim).
				Msg("Skipping chunk with mismatched embedding dimension")
			continue
		}
		i.chunks = append(i.chunks, c)
		i.matrix = append(i.matrix, vec...)
	}

	if len(i.chunks) == 0 {
		i.logger.Warn().Msg("No embedded chunks found")
		return nil
	}

	i.logger.Info().
		Int("chunks", len(i.chunks)).
		Int("dimension", i.dim).
		Msg("Built search index")
	return nil
}

// Search returns up to topK chunks ranked by cosine similarity to query.
// Stored vectors are assumed unit length; the query is normalized here.
func (i *Index) Search(query []float32, topK int, filter ReportFilter) []Result {
	if len(i.chunks) == 0 || topK <= 0 {
		return []Result{}
	}
	if len(query) != i.dim {
		i.logger.Warn().
			Int("query_dimension", len(query)).
			Int("index_dimension", i.dim).
			Msg("Query dimension does not match index")
		return []Result{}
	}

	var sum float64
	for _, f := range query {
		sum += float64(f) * float64(f)
	}
	qnorm := math.Sqrt(sum) + 1e-10

	scores := make([]float64, len(i.chunks))
	order := make([]int, len(i.chunks))
	for row, c := range i.chunks {
		order[row] = row
		if !filter.Allows(c.ReportID) {
			scores[row] = math.Inf(-1)
			continue
		}
		base := row * i.dim
		var dot float64
		for j, q := range query {
			dot += float64(i.matrix[base+j]) * float64(q)
		}
		scores[row] = dot / qnorm
	}

	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] > scores[order[b]] })

	k := topK
	if k > len(order) {
		k = len(order)
	}
	results := make([]Result, 0, k)
	for _, row := range order[:k] {
		if math.IsInf(scores[row], -1) {
			continue
		}
		results = append(results, Result{Chunk: i.chunks[row], Score: scores[row]})
	}
	return results
}
