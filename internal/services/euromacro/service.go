package euromacro

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/indepth/internal/common"
	"github.com/ternarybob/indepth/internal/interfaces"
	"github.com/ternarybob/indepth/internal/models"
	"github.com/ternarybob/indepth/internal/services/scraper"
	"github.com/ternarybob/indepth/internal/services/search"
)

const (
	PipelineVersion = "2.0"
	KCIFAgentName   = "KCIF"

	summaryLength = 500
)

// Queries run against the KCIF library, in Korean to match the corpus.
// In order: European outlook, ECB rates and policy, eurozone inflation,
// European markets, recession risk, EU fiscal policy.
var Queries = []string{
	"유럽 경제 전망",
	"ECB 금리 통화정책",
	"유로존 인플레이션 물가",
	"유럽 금융시장 동향",
	"유럽 경기침체 리스크",
	"EU 재정정책",
}

// Scraper catalogs listings for one month
type Scraper interface {
	Scrape(ctx context.Context, sourceName string, opts scraper.ListingOptions) (*scraper.ScrapeStats, error)
}

// Searcher runs semantic queries over the embedded library
type Searcher interface {
	Search(ctx context.Context, q search.Query) (*search.Results, error)
}

// Service collects KCIF findings for a month and has Claude synthesize them
// into a European macro review. Collection needs scraper and searcher;
// synthesis needs narrator. Unused dependencies may be nil.
type Service struct {
	scraper  Scraper
	searcher Searcher
	narrator interfaces.NarrativeService
	model    string
	config   common.EuroMacroConfig
	logger   arbor.ILogger
}

func NewService(scraper Scraper, searcher Searcher, narrator interfaces.NarrativeService, model string, config common.EuroMacroConfig, logger arbor.ILogger) *Service {
	if config.TopK <= 0 {
		config.TopK = search.DefaultTopK
	}
	return &Service{
		scraper:  scraper,
		searcher: searcher,
		narrator: narrator,
		model:    model,
		config:   config,
		logger:   logger,
	}
}

// Run collects and synthesizes in one pass
func (s *Service) Run(ctx context.Context, year, month int, skipUpdate bool) (*models.EuroMacroReport, error) {
	results, err := s.Collect(ctx, year, month, skipUpdate)
	if err != nil {
		return nil, err
	}
	return s.Synthesize(ctx, results, year, month)
}

// Collect refreshes the KCIF catalog for the month unless skipUpdate, then
// searches the library. A failed refresh is logged and collection continues
// with what is already embedded; a failed search is recorded on the result.
func (s *Service) Collect(ctx context.Context, year, month int, skipUpdate bool) ([]models.AgentResult, error) {
	if err := validMonth(year, month); err != nil {
		return nil, err
	}

	if !skipUpdate && s.scraper != nil {
		stats, err := s.scraper.Scrape(ctx, scraper.KCIFName, scraper.ListingOptions{Year: year, Month: month})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Warn().Err(err).Msg("KCIF update skipped")
		} else {
			s.logger.Info().Int("found", stats.Found).Int("new", stats.New).Msg("KCIF catalog updated")
		}
	}

	result := s.searchKCIF(ctx, year, month)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return []models.AgentResult{result}, nil
}

// searchKCIF runs every query over reports published from a month before the
// target month to two months after it, keeping the best chunk per report.
func (s *Service) searchKCIF(ctx context.Context, year, month int) models.AgentResult {
	result := models.AgentResult{AgentName: KCIFAgentName, Findings: []models.MacroFinding{}, SearchQueries: Queries}
	if s.searcher == nil {
		result.Error = "search is not configured"
		return result
	}

	target := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	from := target.AddDate(0, 0, -31).Format("2006-01-02")
	to := target.AddDate(0, 0, 62).Format("2006-01-02")

	seen := make(map[string]bool)
	searched := 0
	for _, q := range Queries {
		res, err := s.searcher.Search(ctx, search.Query{Text: q, TopK: s.config.TopK, DateFrom: from, DateTo: to})
		if err != nil {
			s.logger.Warn().Err(err).Str("query", q).Msg("KCIF query failed")
			result.Error = err.Error()
			if ctx.Err() != nil {
				return result
			}
			continue
		}
		searched = max(searched, res.IndexSize)

		for _, hit := range res.Hits {
			if hit.Report == nil || seen[hit.Chunk.ReportID] || hit.Score < s.config.MinScore {
				continue
			}
			seen[hit.Chunk.ReportID] = true
			result.Findings = append(result.Findings, models.MacroFinding{
				Title:          hit.Report.Title,
				Summary:        truncate(hit.Chunk.Content, summaryLength),
				SourceURL:      hit.Report.URL,
				SourceName:     KCIFAgentName,
				PublishedDate:  hit.Report.PublishedDate,
				RelevanceScore: common.Round(hit.Score, 4),
				Category:       hit.Report.Category,
			})
		}
	}

	if len(result.Findings) > 0 {
		result.Error = ""
	} else if result.Error == "" && searched == 0 {
		result.Error = "No embedded documents in KCIF database"
	}

	s.logger.Debug().
		Int("findings", len(result.Findings)).
		Str("from", from).
		Str("to", to).
		Msg("KCIF research complete")
	return result
}

// Synthesize asks Claude to write the report from the collected findings.
// With no findings the report holds a single placeholder section and Claude
// is not called.
func (s *Service) Synthesize(ctx context.Context, results []models.AgentResult, year, month int) (*models.EuroMacroReport, error) {
	if err := validMonth(year, month); err != nil {
		return nil, err
	}

	report := &models.EuroMacroReport{
		Year:         year,
		Month:        month,
		Title:        Title(year, month),
		AgentResults: results,
		ModelUsed:    s.model,
		GeneratedAt:  time.Now().UTC(),
	}
	for _, r := range results {
		report.TotalFindings += len(r.Findings)
	}

	if report.TotalFindings == 0 {
		report.Sections = []models.ReportSection{{
			Heading: "No Findings",
			Content: "The research agents returned no material for this month.",
		}}
		return report, nil
	}

	if s.narrator == nil {
		return nil, fmt.Errorf("synthesis requires the Claude narrator (set ANTHROPIC_API_KEY)")
	}

	body, err := s.narrator.Narrate(ctx, SystemPrompt, UserPrompt(year, month, BuildContext(results)))
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize euro macro report for %d-%02d: %w", year, month, err)
	}
	report.Sections = ParseSections(body)

	s.logger.Info().
		Int("findings", report.TotalFindings).
		Int("sections", len(report.Sections)).
		Msg("Euro macro report synthesized")
	return report, nil
}

// Title is the report heading for a month, e.g. "European Macro Review: March 2025"
func Title(year, month int) string {
	return "European Macro Review: " + monthLabel(year, month)
}

func monthLabel(year, month int) string {
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).Format("January 2006")
}

// BuildContext flattens findings into the document Claude synthesizes from
func BuildContext(results []models.AgentResult) string {
	var b strings.Builder
	for _, r := range results {
		if r.Error != "" && len(r.Findings) == 0 {
			fmt.Fprintf(&b, "[%s] error: %s\n\n", r.AgentName, r.Error)
			continue
		}
		if len(r.Findings) == 0 {
			continue
		}
		fmt.Fprintf(&b, "### %s findings\n\n", r.AgentName)
		for i, f := range r.Findings {
			fmt.Fprintf(&b, "%d. **%s**", i+1, f.Title)
			if f.SourceName != "" {
				fmt.Fprintf(&b, " [%s]", f.SourceName)
			}
			if f.PublishedDate != "" {
				fmt.Fprintf(&b, " (%s)", f.PublishedDate)
			}
			fmt.Fprintf(&b, "\n   %s\n", strings.TrimSpace(f.Summary))
			if f.SourceURL != "" {
				fmt.Fprintf(&b, "   URL: %s\n", f.SourceURL)
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

var headingPattern = regexp.MustCompile(`(?m)^##[ \t]+(.+)$`)

// ParseSections splits markdown on "## " headings. Text before the first
// heading is dropped; text with no headings becomes one "Report" section.
func ParseSections(text string) []models.ReportSection {
	matches := headingPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return []models.ReportSection{{Heading: "Report", Content: strings.TrimSpace(text)}}
	}

	sections := make([]models.ReportSection, 0, len(matches))
	for i, m := range matches {
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		sections = append(sections, models.ReportSection{
			Heading: strings.TrimSpace(text[m[2]:m[3]]),
			Content: strings.TrimSpace(text[m[1]:end]),
		})
	}
	return sections
}

// FindingsPath is the default findings file, e.g. reports/euro_macro/2025-03-findings.json
func FindingsPath(reportsDir string, year, month int) string {
	return filepath.Join(reportsDir, "euro_macro", fmt.Sprintf("%d-%02d-findings.json", year, month))
}

// SaveFindings writes results to path in the findings envelope
func SaveFindings(path string, results []models.AgentResult, year, month int) error {
	file := models.FindingsFile{
		Meta: models.FindingsMeta{
			Year:            year,
			Month:           month,
			GeneratedAt:     time.Now().UTC(),
			PipelineVersion: PipelineVersion,
		},
		AgentResults: results,
	}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode findings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create findings directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write findings: %w", err)
	}
	return nil
}

// LoadFindings reads a findings file written by SaveFindings
func LoadFindings(path string) (*models.FindingsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read findings: %w", err)
	}
	var file models.FindingsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse findings %s: %w", filepath.Base(path), err)
	}
	if err := validator.New().Struct(file); err != nil {
		return nil, fmt.Errorf("invalid findings %s: %w", filepath.Base(path), err)
	}
	return &file, nil
}

func validMonth(year, month int) error {
	if year < 2000 || month < 1 || month > 12 {
		return fmt.Errorf("invalid report month %d-%02d", year, month)
	}
	return nil
}

func truncate(s string, n int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= n {
		return string(runes)
	}
	return string(runes[:n])
}
