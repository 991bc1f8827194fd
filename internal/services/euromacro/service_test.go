package euromacro

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/indepth/internal/common"
	"github.com/ternarybob/indepth/internal/models"
	"github.com/ternarybob/indepth/internal/services/scraper"
	"github.com/ternarybob/indepth/internal/services/search"
)

type fakeScraper struct {
	err   error
	calls []scraper.ListingOptions
}

func (f *fakeScraper) Scrape(ctx context.Context, sourceName string, opts scraper.ListingOptions) (*scraper.ScrapeStats, error) {
	f.calls = append(f.calls, opts)
	if f.err != nil {
		return nil, f.err
	}
	return &scraper.ScrapeStats{Source: sourceName, Found: 3, New: 1}, nil
}

type fakeSearcher struct {
	mu      sync.Mutex
	hits    map[string][]search.Hit
	size    int
	err     error
	queries []search.Query
}

func (f *fakeSearcher) Search(ctx context.Context, q search.Query) (*search.Results, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	return &search.Results{Query: q.Text, Hits: f.hits[q.Text], IndexSize: f.size}, nil
}

type fakeNarrator struct {
	text   string
	err    error
	system string
	user   string
}

func (f *fakeNarrator) Narrate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.system, f.user = systemPrompt, userPrompt
	return f.text, f.err
}

func hit(reportID, title, content string, score float64) search.Hit {
	return search.Hit{
		Score: score,
		Chunk: &models.Chunk{ReportID: reportID, Content: content},
		Report: &models.Report{
			ID:            reportID,
			Title:         title,
			URL:           "https://www.kcif.or.kr/annual/" + reportID,
			PublishedDate: "2025-03-10",
		},
	}
}

func testConfig() common.EuroMacroConfig {
	return common.EuroMacroConfig{TopK: 5, MinScore: 0.3, MaxTokens: 8192}
}

func TestCollect(t *testing.T) {
	searcher := &fakeSearcher{
		size: 40,
		hits: map[string][]search.Hit{
			Queries[0]: {hit("rpt_1", "Euro area outlook", "Growth is slowing.", 0.82), hit("rpt_2", "Weak hit", "noise", 0.2)},
			Queries[1]: {hit("rpt_1", "Euro area outlook", "Duplicate report.", 0.9), hit("rpt_3", "ECB holds rates", strings.Repeat("가", 600), 0.61234)},
			Queries[2]: {{Score: 0.7, Chunk: &models.Chunk{ReportID: "rpt_gone"}}},
		},
	}
	scrape := &fakeScraper{}
	svc := NewService(scrape, searcher, nil, "", testConfig(), arbor.NewLogger())

	results, err := svc.Collect(context.Background(), 2025, 3, false)
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, KCIFAgentName, r.AgentName)
	assert.Empty(t, r.Error)
	assert.Equal(t, Queries, r.SearchQueries)
	require.Len(t, r.Findings, 2, "deduplicated by report, weak and orphaned hits dropped")
	assert.Equal(t, "Euro area outlook", r.Findings[0].Title)
	assert.Equal(t, "Growth is slowing.", r.Findings[0].Summary)
	assert.Equal(t, 0.6123, r.Findings[1].RelevanceScore)
	assert.Len(t, []rune(r.Findings[1].Summary), 500)

	require.Len(t, scrape.calls, 1)
	assert.Equal(t, scraper.ListingOptions{Year: 2025, Month: 3}, scrape.calls[0])

	require.Len(t, searcher.queries, len(Queries))
	assert.Equal(t, "2025-01-29", searcher.queries[0].DateFrom)
	assert.Equal(t, "2025-05-02", searcher.queries[0].DateTo)
	assert.Equal(t, 5, searcher.queries[0].TopK)
}

func TestCollect_Degrades(t *testing.T) {
	tests := []struct {
		name       string
		scraper    *fakeScraper
		searcher   *fakeSearcher
		skip       bool
		wantError  string
		wantScrape int
	}{
		{
			name:       "scrape failure still searches",
			scraper:    &fakeScraper{err: errors.New("kcif down")},
			searcher:   &fakeSearcher{size: 10},
			wantScrape: 1,
		},
		{
			name:      "skip update",
			scraper:   &fakeScraper{},
			searcher:  &fakeSearcher{size: 10},
			skip:      true,
			wantError: "",
		},
		{
			name:       "empty library",
			scraper:    &fakeScraper{},
			searcher:   &fakeSearcher{},
			wantError:  "No embedded documents in KCIF database",
			wantScrape: 1,
		},
		{
			name:       "search failure recorded",
			scraper:    &fakeScraper{},
			searcher:   &fakeSearcher{err: errors.New("embedder offline")},
			wantError:  "embedder offline",
			wantScrape: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.scraper, tt.searcher, nil, "", testConfig(), arbor.NewLogger())
			results, err := svc.Collect(context.Background(), 2025, 3, tt.skip)
			require.NoError(t, err)
			require.Len(t, results, 1)
			assert.Empty(t, results[0].Findings)
			assert.Equal(t, tt.wantError, results[0].Error)
			assert.Len(t, tt.scraper.calls, tt.wantScrape)
		})
	}
}

func TestCollect_InvalidMonthAndCancel(t *testing.T) {
	svc := NewService(&fakeScraper{}, &fakeSearcher{}, nil, "", testConfig(), arbor.NewLogger())

	_, err := svc.Collect(context.Background(), 2025, 13, true)
	assert.ErrorContains(t, err, "invalid report month")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.Collect(ctx, 2025, 3, true)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSynthesize(t *testing.T) {
	results := []models.AgentResult{{
		AgentName: KCIFAgentName,
		Findings: []models.MacroFinding{
			{Title: "ECB holds rates", Summary: "Rates unchanged.", SourceName: "KCIF", PublishedDate: "2025-03-07", SourceURL: "https://example.com/1"},
			{Title: "Bund yields rise", Summary: "Fiscal expansion."},
		},
	}}
	narrator := &fakeNarrator{text: "Preamble dropped.\n\n## Executive Summary\nGrowth is flat.\n\n## Inflation and the ECB\nRates on hold.\n"}
	svc := NewService(nil, nil, narrator, "claude-sonnet-4-5", testConfig(), arbor.NewLogger())

	report, err := svc.Synthesize(context.Background(), results, 2025, 3)
	require.NoError(t, err)

	assert.Equal(t, "European Macro Review: March 2025", report.Title)
	assert.Equal(t, "claude-sonnet-4-5", report.ModelUsed)
	assert.Equal(t, 2, report.TotalFindings)
	assert.Equal(t, []models.ReportSection{
		{Heading: "Executive Summary", Content: "Growth is flat."},
		{Heading: "Inflation and the ECB", Content: "Rates on hold."},
	}, report.Sections)

	assert.Equal(t, SystemPrompt, narrator.system)
	assert.Contains(t, narrator.user, "March 2025")
	assert.Contains(t, narrator.user, "1. **ECB holds rates** [KCIF] (2025-03-07)")
	assert.Contains(t, narrator.user, "URL: https://example.com/1")
	assert.Contains(t, narrator.user, "2. **Bund yields rise**")
}

func TestSynthesize_NoFindingsSkipsClaude(t *testing.T) {
	narrator := &fakeNarrator{err: errors.New("must not be called")}
	svc := NewService(nil, nil, narrator, "m", testConfig(), arbor.NewLogger())

	report, err := svc.Synthesize(context.Background(), []models.AgentResult{{AgentName: KCIFAgentName, Error: "No embedded documents in KCIF database"}}, 2025, 3)
	require.NoError(t, err)
	assert.Zero(t, report.TotalFindings)
	require.Len(t, report.Sections, 1)
	assert.Equal(t, "No Findings", report.Sections[0].Heading)
	assert.Empty(t, narrator.user)
}

func TestSynthesize_Errors(t *testing.T) {
	results := []models.AgentResult{{AgentName: KCIFAgentName, Findings: []models.MacroFinding{{Title: "t"}}}}

	_, err := NewService(nil, nil, nil, "", testConfig(), arbor.NewLogger()).Synthesize(context.Background(), results, 2025, 3)
	assert.ErrorContains(t, err, "ANTHROPIC_API_KEY")

	_, err = NewService(nil, nil, &fakeNarrator{err: errors.New("overloaded")}, "", testConfig(), arbor.NewLogger()).
		Synthesize(context.Background(), results, 2025, 3)
	assert.ErrorContains(t, err, "2025-03")
	assert.ErrorContains(t, err, "overloaded")
}

func TestParseSections(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []models.ReportSection
	}{
		{
			name: "no headings",
			text: "  Just prose.  ",
			want: []models.ReportSection{{Heading: "Report", Content: "Just prose."}},
		},
		{
			name: "headings",
			text: "## One\nA\n### Sub\nB\n## Two  \n\nC",
			want: []models.ReportSection{
				{Heading: "One", Content: "A\n### Sub\nB"},
				{Heading: "Two", Content: "C"},
			},
		},
		{
			name: "empty section",
			text: "## One\n## Two\nX",
			want: []models.ReportSection{{Heading: "One", Content: ""}, {Heading: "Two", Content: "X"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSections(tt.text))
		})
	}
}

func TestBuildContext(t *testing.T) {
	got := BuildContext([]models.AgentResult{
		{AgentName: "Media", Error: "timeout"},
		{AgentName: "Empty"},
		{AgentName: KCIFAgentName, Findings: []models.MacroFinding{{Title: "T", Summary: " S "}}},
	})
	assert.Contains(t, got, "[Media] error: timeout")
	assert.NotContains(t, got, "Empty")
	assert.Contains(t, got, "### KCIF findings\n\n1. **T**\n   S\n")
}

func TestFindingsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := FindingsPath(dir, 2025, 3)
	assert.Equal(t, filepath.Join(dir, "euro_macro", "2025-03-findings.json"), path)

	results := []models.AgentResult{{
		AgentName:     KCIFAgentName,
		Findings:      []models.MacroFinding{{Title: "유럽 경제 전망", Summary: "요약", RelevanceScore: 0.8}},
		SearchQueries: Queries,
	}}
	require.NoError(t, SaveFindings(path, results, 2025, 3))

	file, err := LoadFindings(path)
	require.NoError(t, err)
	assert.Equal(t, 2025, file.Meta.Year)
	assert.Equal(t, 3, file.Meta.Month)
	assert.Equal(t, PipelineVersion, file.Meta.PipelineVersion)
	assert.False(t, file.Meta.GeneratedAt.IsZero())
	assert.Equal(t, results, file.AgentResults)
}

func TestLoadFindings_Invalid(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
		return p
	}

	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "missing", path: filepath.Join(dir, "absent.json"), want: "failed to read findings"},
		{name: "not json", path: write("bad.json", "{"), want: "failed to parse findings"},
		{name: "bad month", path: write("month.json", `{"meta":{"year":2025,"month":0},"agent_results":[]}`), want: "invalid findings"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFindings(tt.path)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}
