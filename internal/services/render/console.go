package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/ternarybob/indepth/internal/models"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).MarginTop(1)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	metricStyle = cellStyle.Foreground(lipgloss.Color("36"))
	valueStyle  = cellStyle.Align(lipgloss.Right)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	panelStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("36")).
			Padding(0, 1)
)

var signalColors = map[models.Signal]lipgloss.Style{
	models.SignalStrongBuy:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
	models.SignalBuy:        lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
	models.SignalLeanBuy:    lipgloss.NewStyle().Foreground(lipgloss.Color("40")),
	models.SignalNeutral:    lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
	models.SignalLeanSell:   lipgloss.NewStyle().Foreground(lipgloss.Color("172")),
	models.SignalSell:       lipgloss.NewStyle().Foreground(lipgloss.Color("160")),
	models.SignalStrongSell: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
}

// SignalStyle returns the display style of a signal
func SignalStyle(s models.Signal) lipgloss.Style {
	if style, ok := signalColors[s]; ok {
		return style
	}
	return lipgloss.NewStyle()
}

// Console renders the report for a terminal
func Console(r *models.InvestmentReport) string {
	var b strings.Builder

	b.WriteString(panelStyle.Render(fmt.Sprintf("Investment Analysis\n%s (%s)  %s",
		lipgloss.NewStyle().Bold(true).Render(companyName(r)), r.Ticker, Price(r.CurrentPrice))))
	b.WriteString("\n")

	var sections []section
	if r.Fundamental != nil {
		sections = append(sections, fundamentalSection(r))
	}
	if r.Technical != nil {
		sections = append(sections, technicalSection(r))
	}
	if r.Options != nil {
		sections = append(sections, optionsSection(r))
	}
	if r.Macro != nil {
		sections = append(sections, macroSection(r))
	}
	if r.Sentiment != nil {
		sections = append(sections, sentimentSection(r))
	}
	if r.Portfolio != nil {
		sections = append(sections, portfolioSection(r))
	}
	for _, s := range sections {
		b.WriteString(consoleTable(s))
	}

	if len(r.DimensionResults) > 0 {
		b.WriteString(consoleSummary(r))
	}

	verdict := fmt.Sprintf("%s  score %+.2f  confidence %.0f%%",
		SignalStyle(r.OverallSignal).Render(r.OverallSignal.String()), r.OverallScore, r.OverallConfidence*100)
	if r.Summary != "" {
		verdict += "\n" + r.Summary
	}
	b.WriteString(titleStyle.Render("Overall Assessment"))
	b.WriteString("\n")
	b.WriteString(panelStyle.Render(verdict))
	b.WriteString("\n")
	return b.String()
}

func consoleTable(s section) string {
	headers := []string{"Metric", "Value"}
	if s.wide() {
		headers = append(headers, "Metric", "Value")
	}

	rows := append([][]string(nil), s.rows...)
	signalRow := -1
	if s.signal != nil {
		signalRow = len(rows)
		row := []string{"Signal", SignalStyle(s.signal.Signal).Render(s.signal.Signal.String())}
		if s.wide() {
			row = append(row, "Confidence", ConfidenceBar(s.signal.Confidence))
		}
		rows = append(rows, row)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col%2 == 0:
				return metricStyle
			case row == signalRow:
				return cellStyle
			default:
				return valueStyle
			}
		})

	return titleStyle.Render(s.title) + "\n" + t.String() + "\n"
}

func consoleSummary(r *models.InvestmentReport) string {
	rows := summaryRows(r)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Dimension", "Weight", "Signal", "Confidence", "Score").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 2 && row >= 0 && row < len(r.DimensionResults) && r.DimensionResults[row].Available {
				return cellStyle.Inherit(SignalStyle(r.DimensionResults[row].Signal.Signal))
			}
			if col == 1 || col == 4 {
				return valueStyle
			}
			return cellStyle
		})
	return titleStyle.Render("Signal Summary") + "\n" + t.String() + "\n"
}

// Status renders catalog counts and per-source cost
func Status(summary *models.StatusSummary, costs []models.CostSummary) string {
	var b strings.Builder

	b.WriteString(panelStyle.Render(fmt.Sprintf("Sources %d  Reports %d  Chunks %d  Embedded %d",
		summary.Sources, summary.Reports, summary.Chunks, summary.EmbeddedChunks)))
	b.WriteString("\n")

	b.WriteString(titleStyle.Render("Download status"))
	b.WriteString("\n")
	b.WriteString(countTable(stringKeys(summary.DownloadStatus)))
	b.WriteString(titleStyle.Render("Processing status"))
	b.WriteString("\n")
	b.WriteString(countTable(stringKeys(summary.ProcessingStatus)))

	if len(costs) > 0 {
		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("Source", "Reports", "Downloaded", "Embedded", "Cost (USD)").
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return headerStyle
				}
				if col > 0 {
					return valueStyle
				}
				return cellStyle
			})
		for _, c := range costs {
			t.Row(c.Name, fmt.Sprintf("%d", c.Total), fmt.Sprintf("%d", c.Downloaded),
				fmt.Sprintf("%d", c.Embedded), fmt.Sprintf("$%.4f", c.TotalCost))
		}
		b.WriteString(titleStyle.Render("Cost summary"))
		b.WriteString("\n")
		b.WriteString(t.String())
		b.WriteString("\n")
	}
	return b.String()
}

func stringKeys[K ~string](m map[K]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[string(k)] = v
	}
	return out
}

func countTable(counts map[string]int) string {
	if len(counts) == 0 {
		return dimStyle.Render("none") + "\n"
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Status", "Count").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 1 {
				return valueStyle
			}
			return cellStyle
		})
	for _, k := range keys {
		t.Row(k, fmt.Sprintf("%d", counts[k]))
	}
	return t.String() + "\n"
}
