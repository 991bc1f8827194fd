package search

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

const (
	excerptLength = 150
	titleLength   = 38
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	panelStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("36")).
			Padding(0, 1)
)

func scoreStyle(score float64) lipgloss.Style {
	switch {
	case score >= 0.7:
		return cellStyle.Bold(true).Foreground(lipgloss.Color("42"))
	case score >= 0.5:
		return cellStyle.Foreground(lipgloss.Color("34"))
	case score >= 0.3:
		return cellStyle.Foreground(lipgloss.Color("220"))
	default:
		return cellStyle.Foreground(lipgloss.Color("241"))
	}
}

// PageLabel renders a chunk's page range as "p.N" or "p.N-M"
func PageLabel(start, end *int) string {
	if start == nil || end == nil || *start == 0 || *end == 0 {
		return ""
	}
	if *start == *end {
		return fmt.Sprintf("p.%d", *start)
	}
	return fmt.Sprintf("p.%d-%d", *start, *end)
}

// Excerpt returns the first 150 characters on one line
func Excerpt(content string) string {
	runes := []rune(content)
	if len(runes) <= excerptLength {
		return strings.ReplaceAll(content, "\n", " ")
	}
	return strings.ReplaceAll(string(runes[:excerptLength]), "\n", " ") + "..."
}

func hitTitle(h Hit) string {
	if h.Report == nil {
		return fmt.Sprintf("Report %s", h.Chunk.ReportID)
	}
	title := h.Report.Title
	if r := []rune(title); len(r) > titleLength {
		title = string(r[:titleLength])
	}
	if h.Report.PublishedDate != "" {
		title += "\n" + dimStyle.Render(h.Report.PublishedDate)
	}
	return title
}

// FormatResults renders results as a console table with a summary footer
func FormatResults(res *Results) string {
	if res.IndexSize == 0 {
		return "No embedded documents in database. Run 'indepth process' first.\n"
	}
	if len(res.Hits) == 0 {
		return "No results found.\n"
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderRow(true).
		Headers("#", "Score", "Report", "Pages", "Excerpt").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 1 && row >= 0 && row < len(res.Hits) {
				return scoreStyle(res.Hits[row].Score)
			}
			if col == 4 {
				return cellStyle.Width(62)
			}
			return cellStyle
		})

	for _, h := range res.Hits {
		t.Row(
			fmt.Sprintf("%d", h.Rank),
			fmt.Sprintf("%.3f", h.Score),
			hitTitle(h),
			PageLabel(h.Chunk.PageStart, h.Chunk.PageEnd),
			Excerpt(h.Chunk.Content),
		)
	}

	var b strings.Builder
	b.WriteString(panelStyle.Render("Search: " + res.Query))
	b.WriteString("\n")
	b.WriteString(t.String())
	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Showing top %d of %d chunks", len(res.Hits), res.IndexSize)))
	b.WriteString("\n")
	return b.String()
}
