package render

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/ternarybob/indepth/internal/models"
)

// EuroMacro renders the monthly macro review with a contents list, a source
// appendix and a generation footer.
func EuroMacro(r *models.EuroMacroReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", r.Title)

	b.WriteString("## Contents\n\n")
	for _, s := range r.Sections {
		fmt.Fprintf(&b, "- [%s](#%s)\n", s.Heading, anchor(s.Heading))
	}
	b.WriteString("\n")

	for _, s := range r.Sections {
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", s.Heading, strings.TrimSpace(s.Content))
	}

	b.WriteString("---\n\n## Sources\n\n")
	for _, ar := range r.AgentResults {
		if len(ar.Findings) == 0 {
			continue
		}
		fmt.Fprintf(&b, "### %s\n\n", ar.AgentName)
		for _, f := range ar.Findings {
			line := "- " + f.Title
			if f.PublishedDate != "" {
				line += " (" + f.PublishedDate + ")"
			}
			if f.SourceURL != "" {
				line += " " + f.SourceURL
			}
			b.WriteString(line + "\n")
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "---\n\n*Generated %s | Model: %s | Findings: %d*\n",
		r.GeneratedAt.Format("2006-01-02 15:04 MST"), r.ModelUsed, r.TotalFindings)
	return b.String()
}

// EuroMacroFileName is the saved name of a review, e.g. "2025-03.md"
func EuroMacroFileName(r *models.EuroMacroReport) string {
	return fmt.Sprintf("%d-%02d.md", r.Year, r.Month)
}

// EuroMacroSummary renders per-agent collection counts for the console
func EuroMacroSummary(results []models.AgentResult) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Agent", "Findings", "Queries", "Status").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 1 || col == 2 {
				return valueStyle
			}
			return cellStyle
		})
	for _, ar := range results {
		status := "ok"
		if ar.Error != "" {
			status = "error: " + ar.Error
		}
		t.Row(ar.AgentName, fmt.Sprintf("%d", len(ar.Findings)), fmt.Sprintf("%d", len(ar.SearchQueries)), status)
	}
	return titleStyle.Render("Research agents") + "\n" + t.String() + "\n"
}

// anchor is the GitHub-style fragment for a heading
func anchor(heading string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(heading)) {
		switch {
		case r == ' ' || r == '-':
			b.WriteRune('-')
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			b.WriteRune(r)
		}
	}
	return b.String()
}
