// Package portfolio reads current holdings from a Google Sheet or a YAML file.
package portfolio

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ternarybob/indepth/internal/models"
)

// Header aliases, matched case-insensitively in priority order
var (
	tickerColumns = []string{"ticker", "symbol", "stock", "name"}
	sharesColumns = []string{"shares", "quantity", "qty", "units"}
	valueColumns  = []string{"market value", "value", "market_value", "total"}
	costColumns   = []string{"cost basis", "cost", "cost_basis", "avg cost"}
)

var (
	tickerCleaner = regexp.MustCompile(`[^A-Za-z.]`)
	numberCleaner = regexp.MustCompile(`[,$\s]`)
)

// parseRows reads a header row followed by holdings. Rows with no ticker or
// non-positive shares are skipped.
func parseRows(rows [][]string) []models.PortfolioHolding {
	if len(rows) == 0 {
		return nil
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}

	var holdings []models.PortfolioHolding
	for _, row := range rows[1:] {
		if h, ok := parseRow(header, row); ok {
			holdings = append(holdings, h)
		}
	}
	return holdings
}

func parseRow(header, row []string) (models.PortfolioHolding, bool) {
	if len(row) < 2 {
		return models.PortfolioHolding{}, false
	}

	fields := make(map[string]string, len(row))
	for i, v := range row {
		if i < len(header) {
			fields[header[i]] = strings.TrimSpace(v)
		}
	}

	ticker := strings.ToUpper(tickerCleaner.ReplaceAllString(findField(fields, tickerColumns), ""))
	if ticker == "" {
		return models.PortfolioHolding{}, false
	}

	shares := parseNumber(findField(fields, sharesColumns))
	if shares == nil || *shares <= 0 {
		return models.PortfolioHolding{}, false
	}

	return models.PortfolioHolding{
		Ticker:      ticker,
		Shares:      *shares,
		MarketValue: parseNumber(findField(fields, valueColumns)),
		CostBasis:   parseNumber(findField(fields, costColumns)),
	}, true
}

func findField(fields map[string]string, candidates []string) string {
	for _, key := range candidates {
		if v := fields[key]; v != "" {
			return v
		}
	}
	return ""
}

func parseNumber(s string) *float64 {
	cleaned := numberCleaner.ReplaceAllString(s, "")
	if cleaned == "" {
		return nil
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &v
}

// cellStrings converts a Sheets value grid to strings
func cellStrings(values [][]interface{}) [][]string {
	rows := make([][]string, len(values))
	for i, row := range values {
		rows[i] = make([]string, len(row))
		for j, cell := range row {
			rows[i][j] = fmt.Sprint(cell)
		}
	}
	return rows
}
