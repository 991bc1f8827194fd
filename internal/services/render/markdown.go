package render

import (
	"fmt"
	"strings"

	"github.com/ternarybob/indepth/internal/models"
)

// Markdown renders the report as a markdown document. data may be nil.
func Markdown(r *models.InvestmentReport, data *models.ReportData) string {
	var sections []string
	sections = append(sections, markdownHeader(r))

	if r.Technical != nil {
		sections = append(sections, markdownTable(technicalSection(r)))
	}
	if r.Fundamental != nil {
		sections = append(sections, markdownTable(fundamentalSection(r)))
	}
	if r.Options != nil {
		sections = append(sections, markdownTable(optionsSection(r)))
	}
	if r.Macro != nil {
		sections = append(sections, markdownTable(macroSection(r)))
	}
	if r.Sentiment != nil {
		sections = append(sections, markdownTable(sentimentSection(r)))
	}
	if data != nil && len(data.CalendarEvents) > 0 {
		sections = append(sections, markdownCalendar(data.CalendarEvents))
	}
	if data != nil && len(data.News) > 0 {
		sections = append(sections, markdownNews(data.News))
	}
	if r.Portfolio != nil {
		sections = append(sections, markdownTable(portfolioSection(r)))
	}
	if len(r.DimensionResults) > 0 {
		sections = append(sections, markdownSummary(r))
	}
	sections = append(sections, markdownVerdict(r))
	if strings.TrimSpace(r.Narrative) != "" {
		sections = append(sections, "## Analyst Narrative\n\n"+strings.TrimSpace(r.Narrative)+"\n")
	}
	return strings.Join(sections, "\n")
}

// ReportFileName is the saved name of a report, e.g. "AAPL_2024-05-01.md"
func ReportFileName(r *models.InvestmentReport) string {
	return fmt.Sprintf("%s_%s.md", r.Ticker, r.GeneratedAt.Format("2006-01-02"))
}

func markdownHeader(r *models.InvestmentReport) string {
	return fmt.Sprintf("# Investment Analysis: %s (%s)\n\n**Price:** %s  \n**Date:** %s\n",
		companyName(r), r.Ticker, Price(r.CurrentPrice), r.GeneratedAt.Format("2006-01-02"))
}

func markdownTable(s section) string {
	lines := []string{"## " + s.title + "\n"}
	if s.wide() {
		lines = append(lines, "| Metric | Value | Metric | Value |", "|--------|------:|--------|------:|")
	} else {
		lines = append(lines, "| Metric | Value |", "|--------|------:|")
	}
	for _, row := range s.rows {
		lines = append(lines, "| "+strings.Join(row, " | ")+" |")
	}
	if s.signal != nil {
		if s.wide() {
			lines = append(lines, fmt.Sprintf("| Signal | %s | Confidence | %s |", s.signal.Signal, ConfidenceBar(s.signal.Confidence)))
		} else {
			lines = append(lines, fmt.Sprintf("| Signal | %s |", s.signal.Signal))
		}
	}
	return strings.Join(lines, "\n") + "\n"
}

func markdownCalendar(events []models.CalendarEvent) string {
	lines := []string{"## Upcoming Events\n", "| Date | Event | Details |", "|------|-------|---------|"}
	for _, ev := range events {
		lines = append(lines, fmt.Sprintf("| %s | %s | %s |", ev.Date, ev.Event, ev.Details))
	}
	return strings.Join(lines, "\n") + "\n"
}

func markdownNews(articles []models.NewsArticle) string {
	lines := []string{"## Recent News\n"}
	for _, a := range articles {
		lines = append(lines, fmt.Sprintf("### [%s](%s)\n", a.Title, a.Link))
		var meta []string
		if a.Publisher != "" {
			meta = append(meta, "**"+a.Publisher+"**")
		}
		if a.Published != "" {
			meta = append(meta, a.Published)
		}
		if len(meta) > 0 {
			lines = append(lines, strings.Join(meta, " | ")+"\n")
		}
	}
	return strings.Join(lines, "\n")
}

func markdownSummary(r *models.InvestmentReport) string {
	lines := []string{
		"## Signal Summary\n",
		"| Dimension | Weight | Signal | Confidence | Score |",
		"|-----------|-------:|:------:|:----------:|------:|",
	}
	for _, row := range summaryRows(r) {
		lines = append(lines, "| "+strings.Join(row, " | ")+" |")
	}
	return strings.Join(lines, "\n") + "\n"
}

func markdownVerdict(r *models.InvestmentReport) string {
	lines := []string{
		"## Overall Assessment\n",
		fmt.Sprintf("**Verdict:** %s  ", r.OverallSignal),
		fmt.Sprintf("**Score:** %+.2f | **Confidence:** %.0f%%\n", r.OverallScore, r.OverallConfidence*100),
	}
	if r.Summary != "" {
		lines = append(lines, "> "+r.Summary+"\n")
	}
	return strings.Join(lines, "\n")
}
