package mcp

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ternarybob/indepth/internal/models"
	"github.com/ternarybob/indepth/internal/services/search"
)

// formatSearch renders hits as markdown for an MCP client
func formatSearch(res *search.Results) string {
	if res.IndexSize == 0 {
		return "No embedded documents in database. Run 'indepth process' first."
	}
	if len(res.Hits) == 0 {
		return fmt.Sprintf("No results found for %q.", res.Query)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Results for %q\n\n", res.Query)
	for _, h := range res.Hits {
		title := "Report " + h.Chunk.ReportID
		date, url := "", ""
		if h.Report != nil {
			title = h.Report.Title
			date = h.Report.PublishedDate
			url = h.Report.URL
		}
		fmt.Fprintf(&b, "## %d. %s\n\n", h.Rank, title)
		fmt.Fprintf(&b, "- **Score:** %.3f\n", h.Score)
		if date != "" {
			fmt.Fprintf(&b, "- **Published:** %s\n", date)
		}
		if pages := search.PageLabel(h.Chunk.PageStart, h.Chunk.PageEnd); pages != "" {
			fmt.Fprintf(&b, "- **Pages:** %s\n", pages)
		}
		if url != "" {
			fmt.Fprintf(&b, "- **URL:** %s\n", url)
		}
		b.WriteString("\n")
		b.WriteString(strings.TrimSpace(h.Chunk.Content))
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Showing top %d of %d chunks", len(res.Hits), res.IndexSize)
	return b.String()
}

// formatStatus renders catalog counts and per-source cost as markdown
func formatStatus(summary *models.StatusSummary, costs []models.CostSummary) string {
	var b strings.Builder
	b.WriteString("# Reference Library\n\n")
	fmt.Fprintf(&b, "- **Sources:** %d\n- **Reports:** %d\n- **Chunks:** %d\n- **Embedded chunks:** %d\n",
		summary.Sources, summary.Reports, summary.Chunks, summary.EmbeddedChunks)

	writeCounts(&b, "Download status", toStrings(summary.DownloadStatus))
	writeCounts(&b, "Processing status", toStrings(summary.ProcessingStatus))

	if len(costs) > 0 {
		b.WriteString("\n## Cost by source\n\n| Source | Reports | Downloaded | Embedded | Cost (USD) |\n|--------|--------:|-----------:|---------:|-----------:|\n")
		for _, c := range costs {
			fmt.Fprintf(&b, "| %s | %d | %d | %d | $%.4f |\n", c.Name, c.Total, c.Downloaded, c.Embedded, c.TotalCost)
		}
	}
	return b.String()
}

func toStrings[K ~string](m map[K]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[string(k)] = v
	}
	return out
}

func writeCounts(b *strings.Builder, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintf(b, "\n## %s\n\n", title)
	for _, k := range keys {
		fmt.Fprintf(b, "- %s: %d\n", k, counts[k])
	}
}
