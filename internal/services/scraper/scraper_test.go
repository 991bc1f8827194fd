package scraper

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/indepth/internal/common"
	"github.com/ternarybob/indepth/internal/models"
	"github.com/ternarybob/indepth/internal/storage/badger"
)

var pdfBytes = []byte("%PDF-1.4\n1 0 obj << >> endobj\n%%EOF\n")

const focusListing = `<html><body><table><tbody>
<tr><td>1</td><td><a href="/front/board/boardView.do?boardId=3&contentId=1001">유럽 경제 전망</a></td><td>Kim</td><td>2024.03.05</td></tr>
<tr><td>2</td><td><a href="javascript:fn_view('3','1002')">ECB Watch</a></td><td>Lee</td><td>2024-2-7</td></tr>
<tr><td colspan="4">No link here 2024.01.01</td></tr>
</tbody></table></body></html>`

const weeklyListing = `<html><body><ul class="board-list">
<li><a href="boardView.do?boardId=5&contentId=2001">Weekly Credit</a><span class="date">2024/01/09</span></li>
<li><a href="boardView.do?boardId=5&contentId=2002">Weekly Notice</a> posted 2024.1.2</li>
</ul></body></html>`

const emptyListing = `<html><body><table><tbody></tbody></table></body></html>`

func kcifServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/front/board/boardList.do", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("page") != "1" {
			fmt.Fprint(w, emptyListing)
			return
		}
		switch q.Get("boardId") {
		case "3":
			fmt.Fprint(w, focusListing)
		case "5":
			fmt.Fprint(w, weeklyListing)
		case "4":
			http.Error(w, "maintenance", http.StatusServiceUnavailable)
		default:
			fmt.Fprint(w, emptyListing)
		}
	})
	mux.HandleFunc("/front/board/boardView.do", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("contentId") {
		case "1001":
			fmt.Fprint(w, `<html><body><h1>유럽 경제 전망</h1><a href="/list">Back</a><a href="/files/focus_1001.pdf">첨부파일</a></body></html>`)
		case "1002":
			fmt.Fprint(w, `<html><body><span onclick="location.href='/common/fileDown.do?fileId=77'">첨부</span></body></html>`)
		case "2001":
			fmt.Fprint(w, `<html><body><div class="view-content"><h2>Weekly summary</h2><p>Spreads <b>tightened</b>.</p></div></body></html>`)
		default:
			fmt.Fprint(w, `<html><body><p>Members only</p></body></html>`)
		}
	})
	mux.HandleFunc("/files/focus_1001.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="KCIF_Focus_1001.pdf"`)
		_, _ = w.Write(pdfBytes)
	})
	mux.HandleFunc("/common/fileDown.do", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "77", r.URL.Query().Get("fileId"))
		http.Error(w, "login required", http.StatusForbidden)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestScraper(srv *httptest.Server, boards ...string) *KCIFScraper {
	cfg := common.ScraperConfig{UserAgent: "indepth-test", MaxPages: 10, Timeout: "5s"}
	return NewKCIFScraper(cfg, arbor.NewLogger(), WithBaseURL(srv.URL), WithBoards(boards...))
}

func TestKCIFScraper_ScrapeListing(t *testing.T) {
	srv := kcifServer(t)
	s := newTestScraper(srv, "focus", "daily", "5")

	listings, err := s.ScrapeListing(context.Background(), ListingOptions{Year: 2024, Month: 3})
	require.NoError(t, err)

	want := []Listing{
		{ExternalID: "1001", Title: "유럽 경제 전망", Category: "focus", Author: "Kim", PublishedDate: "2024-03-05",
			URL: srv.URL + "/front/board/boardView.do?boardId=3&contentId=1001"},
		{ExternalID: "1002", Title: "ECB Watch", Category: "focus", Author: "Lee", PublishedDate: "2024-02-07",
			URL: srv.URL + "/front/board/boardView.do?boardId=3&contentId=1002"},
		{ExternalID: "2001", Title: "Weekly Credit", Category: "weekly", PublishedDate: "2024-01-09",
			URL: srv.URL + "/front/board/boardView.do?boardId=5&contentId=2001"},
		{ExternalID: "2002", Title: "Weekly Notice", Category: "weekly", PublishedDate: "2024-01-02",
			URL: srv.URL + "/front/board/boardView.do?boardId=5&contentId=2002"},
	}
	assert.Equal(t, want, listings)
}

func TestKCIFScraper_ScrapeListingLimit(t *testing.T) {
	srv := kcifServer(t)
	listings, err := newTestScraper(srv, "3", "5").ScrapeListing(context.Background(), ListingOptions{Limit: 3})
	require.NoError(t, err)
	require.Len(t, listings, 3)
	assert.Equal(t, "2001", listings[2].ExternalID)
}

func TestKCIFScraper_SendsSearchParams(t *testing.T) {
	var got []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.URL.RawQuery)
		assert.Equal(t, "indepth-test", r.Header.Get("User-Agent"))
		fmt.Fprint(w, emptyListing)
	}))
	defer srv.Close()

	_, err := newTestScraper(srv, "6").ScrapeListing(context.Background(), ListingOptions{Year: 2025, Month: 4})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "boardId=6&page=1&searchMonth=04&searchYear=2025", got[0])
}

func TestFileNameFor(t *testing.T) {
	report := &models.Report{ExternalID: "42", Title: "Euro Area: Outlook (2024)!"}
	tests := []struct {
		name        string
		disposition string
		contentType string
		want        string
	}{
		{"quoted", `attachment; filename="report.pdf"`, "application/pdf", "report.pdf"},
		{"rfc5987", `attachment; filename*=UTF-8''%EC%9C%A0%EB%9F%BD.pdf`, "application/pdf", "유럽.pdf"},
		{"path stripped", `attachment; filename="../../etc/passwd"`, "", "passwd"},
		{"generated pdf", "", "application/pdf", "42_Euro_Area_Outlook_2024.pdf"},
		{"generated hwp", "", "application/x-hwp", "42_Euro_Area_Outlook_2024.hwp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.disposition != "" {
				h.Set("Content-Disposition", tt.disposition)
			}
			h.Set("Content-Type", tt.contentType)
			assert.Equal(t, tt.want, fileNameFor(h, report))
		})
	}
}

func TestGeneratedFileName_Truncates(t *testing.T) {
	name := generatedFileName(&models.Report{ExternalID: "7", Title: strings.Repeat("가", 80)}, ".pdf")
	assert.Equal(t, "7_"+strings.Repeat("가", 60)+".pdf", name)
}

func TestParseDate(t *testing.T) {
	tests := map[string]string{
		"2024.03.05":         "2024-03-05",
		"posted 2024/1/9 am": "2024-01-09",
		"2024-12-31":         "2024-12-31",
		"no date":            "",
	}
	for in, want := range tests {
		assert.Equal(t, want, parseDate(in), in)
	}
}

func TestService_ScrapeAndDownload(t *testing.T) {
	srv := kcifServer(t)
	ctx := context.Background()

	m, err := badger.NewManager(arbor.NewLogger(), &common.BadgerConfig{Path: filepath.Join(t.TempDir(), "db")})
	require.NoError(t, err)
	defer m.Close()

	dir := t.TempDir()
	svc := NewService(m, []Source{newTestScraper(srv, "3", "5")}, dir, 2, arbor.NewLogger())

	stats, err := svc.Scrape(ctx, "kcif", ListingOptions{})
	require.NoError(t, err)
	assert.Equal(t, &ScrapeStats{Source: KCIFName, Found: 4, New: 4}, stats)

	stats, err = svc.Scrape(ctx, "", ListingOptions{})
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Existing)
	assert.Zero(t, stats.New)

	src, err := m.SourceStorage().GetSourceByName(ctx, KCIFName)
	require.NoError(t, err)
	assert.NotNil(t, src.LastScrapedAt)
	assert.Equal(t, srv.URL, src.BaseURL)

	dl, err := svc.DownloadPending(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 4, dl.Attempted)
	assert.Equal(t, 2, dl.Downloaded)
	assert.Equal(t, 1, dl.Restricted)
	assert.Equal(t, 1, dl.Skipped)
	assert.Zero(t, dl.Failed)

	reports, err := m.ReportStorage().ListReports(ctx, models.ReportQuery{})
	require.NoError(t, err)
	byID := make(map[string]*models.Report)
	for _, r := range reports {
		byID[r.ExternalID] = r
	}

	focus := byID["1001"]
	assert.Equal(t, models.DownloadDownloaded, focus.DownloadStatus)
	assert.Equal(t, "KCIF_Focus_1001.pdf", focus.FileName)
	assert.Equal(t, int64(len(pdfBytes)), focus.FileSizeBytes)
	sum := sha256.Sum256(pdfBytes)
	assert.Equal(t, hex.EncodeToString(sum[:]), focus.FileHash)
	saved, err := os.ReadFile(filepath.Join(dir, focus.FileName))
	require.NoError(t, err)
	assert.Equal(t, pdfBytes, saved)

	assert.Equal(t, models.DownloadRestricted, byID["1002"].DownloadStatus)
	assert.Equal(t, ErrRestricted.Error(), byID["1002"].DownloadError)

	weekly := byID["2001"]
	assert.Equal(t, models.DownloadDownloaded, weekly.DownloadStatus)
	assert.Equal(t, "2001_Weekly_Credit.md", weekly.FileName)
	body, err := os.ReadFile(filepath.Join(dir, weekly.FileName))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(body), "# Weekly Credit\n\n"))
	assert.Contains(t, string(body), "Spreads **tightened**.")

	assert.Equal(t, models.DownloadSkipped, byID["2002"].DownloadStatus)

	// Nothing pending on the next run
	dl, err = svc.DownloadPending(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, dl.Attempted)
}

func TestService_UnknownSource(t *testing.T) {
	svc := NewService(nil, nil, t.TempDir(), 1, arbor.NewLogger())
	_, err := svc.Scrape(context.Background(), "nobody", ListingOptions{})
	assert.ErrorContains(t, err, "unknown source")
}
