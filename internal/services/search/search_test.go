package search

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/indepth/internal/common"
	"github.com/ternarybob/indepth/internal/interfaces"
	"github.com/ternarybob/indepth/internal/models"
	"github.com/ternarybob/indepth/internal/services/embeddings"
	"github.com/ternarybob/indepth/internal/storage/badger"
)

type memoryChunks struct {
	interfaces.ChunkStorage
	chunks []*models.Chunk
}

func (m *memoryChunks) GetEmbeddedChunks(ctx context.Context) ([]*models.Chunk, error) {
	return m.chunks, nil
}

func embedded(reportID string, index int, vec ...float32) *models.Chunk {
	return &models.Chunk{
		ID:         common.ChunkID(reportID, index),
		ReportID:   reportID,
		ChunkIndex: index,
		Content:    fmt.Sprintf("%s chunk %d", reportID, index),
		Embedding:  embeddings.EncodeVector(embeddings.Normalize(vec)),
	}
}

func key(c *models.Chunk) string {
	return fmt.Sprintf("%s/%d", c.ReportID, c.ChunkIndex)
}

func buildIndex(t *testing.T, chunks ...*models.Chunk) *Index {
	t.Helper()
	idx := NewIndex(&memoryChunks{chunks: chunks}, arbor.NewLogger())
	require.NoError(t, idx.Build(context.Background()))
	return idx
}

func TestIndex_Empty(t *testing.T) {
	idx := buildIndex(t)
	assert.Equal(t, 0, idx.Size())
	assert.Empty(t, idx.Search([]float32{1, 0}, 5, nil))
}

func TestIndex_SelfMatchRanksFirst(t *testing.T) {
	chunks := []*models.Chunk{
		embedded("r1", 0, 1, 0, 0),
		embedded("r1", 1, 0.7, 0.7, 0),
		embedded("r2", 0, 0, 0, 1),
	}
	idx := buildIndex(t, chunks...)
	assert.Equal(t, 3, idx.Size())
	assert.Equal(t, 3, idx.Dim())

	// Unnormalized query with the same direction as r2/0
	results := idx.Search([]float32{0, 0, 5}, 1, nil)
	require.Len(t, results, 1)
	assert.Equal(t, "r2/0", key(results[0].Chunk))
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)

	results = idx.Search([]float32{1, 0.1, 0}, 10, nil)
	require.Len(t, results, 3)
	assert.Equal(t, "r1/0", key(results[0].Chunk))
	assert.Equal(t, "r1/1", key(results[1].Chunk))
	assert.Greater(t, results[0].Score, results[1].Score)
	assert.Greater(t, results[1].Score, results[2].Score)
}

func TestIndex_FilterNeverLeaks(t *testing.T) {
	idx := buildIndex(t,
		embedded("r1", 0, 1, 0),
		embedded("r1", 1, 0.9, 0.1),
		embedded("r2", 0, 0, 1),
	)

	tests := []struct {
		name   string
		filter ReportFilter
		want   []string
	}{
		{"nil allows all", nil, []string{"r1/0", "r1/1", "r2/0"}},
		{"single report", ReportFilter{"r2": {}}, []string{"r2/0"}},
		{"empty allows none", ReportFilter{}, nil},
		{"unknown report", ReportFilter{"r9": {}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, r := range idx.Search([]float32{1, 0}, 10, tt.filter) {
				got = append(got, key(r.Chunk))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIndex_SkipsMismatchedDimensions(t *testing.T) {
	idx := buildIndex(t,
		embedded("r1", 0, 1, 0),
		embedded("r1", 1, 1, 0, 0),
		&models.Chunk{ID: "bad", ReportID: "r1", Embedding: []byte{1, 2, 3}},
	)
	assert.Equal(t, 1, idx.Size())
	assert.Empty(t, idx.Search([]float32{1, 0, 0}, 5, nil))
}

// fixedEmbedder maps query text to a vector
type fixedEmbedder struct {
	vectors map[string][]float32
}

func (f *fixedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	v, ok := f.vectors[text]
	if !ok {
		return nil, fmt.Errorf("no vector for %q", text)
	}
	return v, nil
}

func (f *fixedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, float64, error) {
	return nil, 0, fmt.Errorf("not used")
}

func (f *fixedEmbedder) ModelName() string { return "fixed" }

func (f *fixedEmbedder) Dimension() int { return 2 }

type catalog struct {
	storage interfaces.StorageManager
	reports map[string]*models.Report
}

func newCatalog(t *testing.T) *catalog {
	t.Helper()
	ctx := context.Background()
	m, err := badger.NewManager(arbor.NewLogger(), &common.BadgerConfig{Path: filepath.Join(t.TempDir(), "db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	kcif, err := m.SourceStorage().GetOrCreateSource(ctx, "KCIF", "https://www.kcif.or.kr")
	require.NoError(t, err)
	other, err := m.SourceStorage().GetOrCreateSource(ctx, "Other", "https://other.example")
	require.NoError(t, err)

	c := &catalog{storage: m, reports: make(map[string]*models.Report)}
	for _, r := range []struct {
		key, sourceID, date string
		vec                 []float32
	}{
		{"jan", kcif.ID, "2024-01-15", []float32{1, 0}},
		{"mar", kcif.ID, "2024-03-02", []float32{0.8, 0.6}},
		{"undated", kcif.ID, "", []float32{0.6, 0.8}},
		{"other", other.ID, "2024-02-01", []float32{0, 1}},
	} {
		stored, _, err := m.ReportStorage().UpsertReport(ctx, &models.Report{
			SourceID:      r.sourceID,
			ExternalID:    r.key,
			Title:         "Report " + r.key,
			PublishedDate: r.date,
		})
		require.NoError(t, err)
		c.reports[r.key] = stored

		page := 3
		require.NoError(t, m.ChunkStorage().SaveChunks(ctx, []*models.Chunk{{
			ReportID:  stored.ID,
			Content:   "Content of " + r.key,
			PageStart: &page,
			PageEnd:   &page,
			Embedding: embeddings.EncodeVector(r.vec),
		}}))
	}
	return c
}

func TestRetriever_Search(t *testing.T) {
	c := newCatalog(t)
	r := NewRetriever(c.storage, &fixedEmbedder{vectors: map[string][]float32{"rates": {1, 0}}}, arbor.NewLogger())

	tests := []struct {
		name  string
		query Query
		want  []string
	}{
		{"unfiltered", Query{Text: "rates", TopK: 10}, []string{"jan", "mar", "undated", "other"}},
		{"top k", Query{Text: "rates", TopK: 2}, []string{"jan", "mar"}},
		{"date from", Query{Text: "rates", DateFrom: "2024-02-01"}, []string{"mar", "other"}},
		{"date range", Query{Text: "rates", DateFrom: "2024-01-01", DateTo: "2024-02-01"}, []string{"jan", "other"}},
		{"source case insensitive", Query{Text: "rates", Source: "kcif"}, []string{"jan", "mar", "undated"}},
		{"unknown source", Query{Text: "rates", Source: "nobody"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := r.Search(context.Background(), tt.query)
			require.NoError(t, err)
			assert.Equal(t, 4, res.IndexSize)

			var got []string
			for i, h := range res.Hits {
				assert.Equal(t, i+1, h.Rank)
				require.NotNil(t, h.Report)
				got = append(got, h.Report.ExternalID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRetriever_EmptyIndex(t *testing.T) {
	m, err := badger.NewManager(arbor.NewLogger(), &common.BadgerConfig{Path: filepath.Join(t.TempDir(), "db")})
	require.NoError(t, err)
	defer m.Close()

	r := NewRetriever(m, &fixedEmbedder{}, arbor.NewLogger())
	res, err := r.Search(context.Background(), Query{Text: "anything"})
	require.NoError(t, err)
	assert.Empty(t, res.Hits)
	assert.Equal(t, 0, res.IndexSize)
	assert.Contains(t, FormatResults(res), "Run 'indepth process' first")

	_, err = r.Search(context.Background(), Query{Text: "  "})
	assert.Error(t, err)
}

func TestPageLabel(t *testing.T) {
	one, two, five := 1, 2, 5
	tests := []struct {
		start, end *int
		want       string
	}{
		{&one, &one, "p.1"},
		{&two, &five, "p.2-5"},
		{nil, nil, ""},
		{&one, nil, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PageLabel(tt.start, tt.end))
	}
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "line one line two", Excerpt("line one\nline two"))

	long := strings.Repeat("a", 200)
	got := Excerpt(long)
	assert.Equal(t, strings.Repeat("a", 150)+"...", got)
}

func TestFormatResults(t *testing.T) {
	c := newCatalog(t)
	r := NewRetriever(c.storage, &fixedEmbedder{vectors: map[string][]float32{"rates": {1, 0}}}, arbor.NewLogger())

	res, err := r.Search(context.Background(), Query{Text: "rates", TopK: 2})
	require.NoError(t, err)

	out := FormatResults(res)
	assert.Contains(t, out, "Search: rates")
	assert.Contains(t, out, "Report jan")
	assert.Contains(t, out, "2024-01-15")
	assert.Contains(t, out, "p.3")
	assert.Contains(t, out, "1.000")
	assert.Contains(t, out, "Showing top 2 of 4 chunks")

	assert.Equal(t, "No results found.\n", FormatResults(&Results{IndexSize: 3}))
}
