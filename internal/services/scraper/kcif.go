package scraper

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/indepth/internal/common"
	"github.com/ternarybob/indepth/internal/models"
)

const (
	KCIFName    = "KCIF"
	KCIFBaseURL = "https://www.kcif.or.kr"

	kcifListPath = "/front/board/boardList.do"
	kcifViewPath = "/front/board/boardView.do"
)

// KCIFBoards maps report categories to KCIF board ids
var KCIFBoards = map[string]string{
	"focus":   "3",
	"daily":   "4",
	"weekly":  "5",
	"special": "6",
}

var kcifBoardOrder = []string{"3", "5", "4", "6"}

var (
	ErrRestricted = errors.New("access restricted")
	ErrNoFile     = errors.New("no downloadable file")
)

var (
	contentIDPattern   = regexp.MustCompile(`contentId[=,](\d+)`)
	numericIDPattern   = regexp.MustCompile(`(\d{4,})`)
	boardIDPattern     = regexp.MustCompile(`boardId[=,](\d+)`)
	datePattern        = regexp.MustCompile(`(\d{4})[.\-/](\d{1,2})[.\-/](\d{1,2})`)
	fileDownPattern    = regexp.MustCompile(`((?:/[^'"]+)?fileDown[^'"]*)`)
	dispositionPattern = regexp.MustCompile(`filename[*]?="?([^";\n]+)"?`)
	whitespacePattern  = regexp.MustCompile(`\s+`)
)

// Listing is report metadata discovered on a listing page
type Listing struct {
	ExternalID    string
	Title         string
	Category      string
	Author        string
	PublishedDate string
	URL           string
}

// ListingOptions narrows a listing scrape. Zero values mean no restriction.
type ListingOptions struct {
	Year  int
	Month int
	Limit int
}

// Download describes a file saved by Fetch
type Download struct {
	FileName  string
	SizeBytes int64
	Hash      string
}

// KCIFScraper scrapes report listings and files from kcif.or.kr
type KCIFScraper struct {
	baseURL   string
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
	maxPages  int
	boards    []string
	logger    arbor.ILogger
}

// KCIFOption configures a KCIFScraper
type KCIFOption func(*KCIFScraper)

// WithBaseURL points the scraper at another host
func WithBaseURL(baseURL string) KCIFOption {
	return func(s *KCIFScraper) {
		s.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithBoards restricts scraping to the given board ids or category names
func WithBoards(boards ...string) KCIFOption {
	return func(s *KCIFScraper) {
		s.boards = s.boards[:0]
		for _, b := range boards {
			if id, ok := KCIFBoards[strings.ToLower(b)]; ok {
				b = id
			}
			s.boards = append(s.boards, b)
		}
	}
}

// NewKCIFScraper creates a scraper using the scraper config for politeness settings
func NewKCIFScraper(config common.ScraperConfig, logger arbor.ILogger, opts ...KCIFOption) *KCIFScraper {
	limit := rate.Inf
	if config.RateLimit > 0 {
		limit = rate.Limit(config.RateLimit)
	}
	maxPages := config.MaxPages
	if maxPages <= 0 {
		maxPages = 10
	}
	s := &KCIFScraper{
		baseURL:   KCIFBaseURL,
		client:    &http.Client{Timeout: common.ParseDuration(config.Timeout, 30*time.Second)},
		limiter:   rate.NewLimiter(limit, 1),
		userAgent: config.UserAgent,
		maxPages:  maxPages,
		boards:    append([]string(nil), kcifBoardOrder...),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *KCIFScraper) Name() string { return KCIFName }

func (s *KCIFScraper) BaseURL() string { return s.baseURL }

// ScrapeListing walks each board's listing pages until a page is empty,
// maxPages is reached or the limit is met. A failing board is logged and skipped.
func (s *KCIFScraper) ScrapeListing(ctx context.Context, opts ListingOptions) ([]Listing, error) {
	var all []Listing
	for _, board := range s.boards {
		results, err := s.scrapeBoard(ctx, board, opts)
		if err != nil {
			if ctx.Err() != nil {
				return all, ctx.Err()
			}
			s.logger.Warn().Err(err).Str("board_id", board).Msg("Failed to scrape board")
		}
		all = append(all, results...)
		s.logger.Info().Int("results", len(results)).Str("board_id", board).Msg("Scraped board")

		if opts.Limit > 0 && len(all) >= opts.Limit {
			return all[:opts.Limit], nil
		}
	}
	return all, nil
}

func (s *KCIFScraper) scrapeBoard(ctx context.Context, board string, opts ListingOptions) ([]Listing, error) {
	category := categoryFor(board)
	var results []Listing

	for page := 1; page <= s.maxPages; page++ {
		params := url.Values{}
		params.Set("boardId", board)
		params.Set("page", strconv.Itoa(page))
		if opts.Year > 0 {
			params.Set("searchYear", strconv.Itoa(opts.Year))
		}
		if opts.Month > 0 {
			params.Set("searchMonth", fmt.Sprintf("%02d", opts.Month))
		}

		doc, err := s.fetchDocument(ctx, s.baseURL+kcifListPath+"?"+params.Encode())
		if err != nil {
			return results, fmt.Errorf("board %s page %d: %w", board, page, err)
		}

		pageResults := s.parseListingPage(doc, category)
		if len(pageResults) == 0 {
			break
		}
		results = append(results, pageResults...)

		if opts.Limit > 0 && len(results) >= opts.Limit {
			return results[:opts.Limit], nil
		}
	}
	return results, nil
}

func categoryFor(board string) string {
	for name, id := range KCIFBoards {
		if id == board {
			return name
		}
	}
	return board
}

func (s *KCIFScraper) parseListingPage(doc *goquery.Document, category string) []Listing {
	rows := doc.Find("table tbody tr")
	if rows.Length() == 0 {
		rows = doc.Find(".board-list li, .bbs-list li, .list-item")
	}

	var results []Listing
	rows.Each(func(_ int, row *goquery.Selection) {
		if l, ok := s.parseRow(row, category); ok {
			results = append(results, l)
		}
	})
	return results
}

func (s *KCIFScraper) parseRow(row *goquery.Selection, category string) (Listing, bool) {
	link := row.Find("a[href]").First()
	if link.Length() == 0 {
		return Listing{}, false
	}
	title := strings.TrimSpace(link.Text())
	if title == "" {
		return Listing{}, false
	}

	href, _ := link.Attr("href")
	contentID := extractContentID(href)
	if contentID == "" {
		return Listing{}, false
	}

	board := "3"
	if m := boardIDPattern.FindStringSubmatch(href); m != nil {
		board = m[1]
	}

	return Listing{
		ExternalID:    contentID,
		Title:         title,
		Category:      category,
		Author:        strings.TrimSpace(row.Find(".writer, .author, td:nth-of-type(3)").First().Text()),
		PublishedDate: extractDate(row),
		URL:           fmt.Sprintf("%s%s?boardId=%s&contentId=%s", s.baseURL, kcifViewPath, board, contentID),
	}, true
}

func extractContentID(href string) string {
	if m := contentIDPattern.FindStringSubmatch(href); m != nil {
		return m[1]
	}
	if m := numericIDPattern.FindStringSubmatch(href); m != nil {
		return m[1]
	}
	return ""
}

// extractDate prefers a dedicated date cell and falls back to any date in the row
func extractDate(row *goquery.Selection) string {
	if d := parseDate(row.Find(".date, .reg-date, td:nth-of-type(4)").First().Text()); d != "" {
		return d
	}
	return parseDate(row.Text())
}

func parseDate(text string) string {
	m := datePattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	return fmt.Sprintf("%s-%02d-%02d", m[1], month, day)
}

// Fetch downloads the report file into destDir. A report page without an
// attachment has its body saved as markdown instead. Returns ErrRestricted on
// 401/403 and ErrNoFile when the page has neither.
func (s *KCIFScraper) Fetch(ctx context.Context, report *models.Report, destDir string) (*Download, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create download dir: %w", err)
	}

	doc, err := s.fetchDocument(ctx, report.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch view page: %w", err)
	}

	fileURL := findFileURL(doc)
	if fileURL == "" {
		return s.saveBody(doc, report, destDir)
	}

	resolved, err := resolveURL(report.URL, fileURL)
	if err != nil {
		return nil, err
	}
	return s.downloadFile(ctx, resolved, report, destDir)
}

// findFileURL looks for an attachment link on a report view page
func findFileURL(doc *goquery.Document) string {
	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		lower := strings.ToLower(href)
		if strings.HasPrefix(lower, "javascript:") {
			if m := fileDownPattern.FindStringSubmatch(href); m != nil {
				found = m[1]
				return false
			}
			return true
		}
		for _, marker := range []string{".pdf", ".hwp", "download", "filedown"} {
			if strings.Contains(lower, marker) {
				found = href
				return false
			}
		}
		text := strings.ToLower(strings.TrimSpace(a.Text()))
		for _, kw := range []string{"다운로드", "download", "pdf", "첨부"} {
			if strings.Contains(text, kw) {
				found = href
				return false
			}
		}
		return true
	})
	if found != "" {
		return found
	}

	doc.Find("[onclick]").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		onclick, _ := el.Attr("onclick")
		if m := fileDownPattern.FindStringSubmatch(onclick); m != nil {
			found = m[1]
			return false
		}
		return true
	})
	return found
}

func resolveURL(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid page url %q: %w", base, err)
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid file url %q: %w", ref, err)
	}
	return b.ResolveReference(r).String(), nil
}

func (s *KCIFScraper) downloadFile(ctx context.Context, fileURL string, report *models.Report, destDir string) (*Download, error) {
	resp, err := s.do(ctx, fileURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, ErrRestricted
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("file download returned status %d", resp.StatusCode)
	}
	// A login form served in place of the attachment
	if strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		return nil, ErrRestricted
	}

	name := fileNameFor(resp.Header, report)
	path := filepath.Join(destDir, name)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(f, h), resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("failed to write %s: %w", path, err)
	}

	s.logger.Info().Str("file", name).Int64("bytes", n).Msg("Downloaded report")
	return &Download{FileName: name, SizeBytes: n, Hash: hex.EncodeToString(h.Sum(nil))}, nil
}

// saveBody converts the report page body to markdown
func (s *KCIFScraper) saveBody(doc *goquery.Document, report *models.Report, destDir string) (*Download, error) {
	body := doc.Find(".view-content, .view-cont, .board-view .content, .bbs-view, article").First()
	if body.Length() == 0 {
		return nil, ErrNoFile
	}
	html, err := body.Html()
	if err != nil {
		return nil, fmt.Errorf("failed to read report body: %w", err)
	}

	converter := md.NewConverter(s.baseURL, true, nil)
	text, err := converter.ConvertString(html)
	if err != nil {
		return nil, fmt.Errorf("failed to convert report body: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrNoFile
	}

	content := []byte("# " + report.Title + "\n\n" + text + "\n")
	name := generatedFileName(report, ".md")
	path := filepath.Join(destDir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", path, err)
	}

	sum := sha256.Sum256(content)
	s.logger.Info().Str("file", name).Msg("Saved report body as markdown")
	return &Download{FileName: name, SizeBytes: int64(len(content)), Hash: hex.EncodeToString(sum[:])}, nil
}

// fileNameFor takes the Content-Disposition name when present, else generates one
func fileNameFor(header http.Header, report *models.Report) string {
	if m := dispositionPattern.FindStringSubmatch(header.Get("Content-Disposition")); m != nil {
		name := strings.TrimSpace(m[1])
		if i := strings.Index(name, "''"); i >= 0 {
			name = name[i+2:]
		}
		if decoded, err := url.PathUnescape(name); err == nil {
			name = decoded
		}
		name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
		if name != "" && name != "." && name != "/" {
			return name
		}
	}

	ext := ".pdf"
	if strings.Contains(header.Get("Content-Type"), "hwp") {
		ext = ".hwp"
	}
	return generatedFileName(report, ext)
}

func generatedFileName(report *models.Report, ext string) string {
	safe := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || r == '_' || r == '-' {
			return r
		}
		return -1
	}, report.Title)
	if runes := []rune(safe); len(runes) > 60 {
		safe = string(runes[:60])
	}
	safe = whitespacePattern.ReplaceAllString(strings.TrimSpace(safe), "_")
	return fmt.Sprintf("%s_%s%s", report.ExternalID, safe, ext)
}

func (s *KCIFScraper) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	resp, err := s.do(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s returned status %d", pageURL, resp.StatusCode)
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", pageURL, err)
	}
	return doc, nil
}

func (s *KCIFScraper) do(ctx context.Context, target string) (*http.Response, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", target, err)
	}
	return resp, nil
}
