package render

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
)

const notAvailable = "N/A"

var groupingFormats = []string{"#,###.", "#,###.#", "#,###.##", "#,###.###", "#,###.####"}

func grouped(v float64, decimals int) string {
	if decimals < 0 {
		decimals = 0
	}
	if decimals >= len(groupingFormats) {
		decimals = len(groupingFormats) - 1
	}
	return humanize.FormatFloat(groupingFormats[decimals], v)
}

// Pct renders a signed percentage, e.g. "+12.35%"
func Pct(v *float64, decimals int) string {
	if v == nil {
		return notAvailable
	}
	return fmt.Sprintf("%+.*f%%", decimals, *v)
}

// Number renders a value with thousands separators
func Number(v *float64, decimals int) string {
	if v == nil {
		return notAvailable
	}
	return grouped(*v, decimals)
}

// LargeNumber renders dollar amounts in T/B/M units
func LargeNumber(v *float64) string {
	if v == nil {
		return notAvailable
	}
	abs := math.Abs(*v)
	sign := ""
	if *v < 0 {
		sign = "-"
	}
	switch {
	case abs >= 1e12:
		return fmt.Sprintf("%s$%.2fT", sign, abs/1e12)
	case abs >= 1e9:
		return fmt.Sprintf("%s$%.2fB", sign, abs/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("%s$%.2fM", sign, abs/1e6)
	}
	return sign + "$" + grouped(abs, 0)
}

// Ratio renders a multiple, e.g. "1.50x"
func Ratio(v *float64) string {
	if v == nil {
		return notAvailable
	}
	return fmt.Sprintf("%.2fx", *v)
}

// Price renders a dollar price, e.g. "$1,234.50"
func Price(v *float64) string {
	if v == nil {
		return notAvailable
	}
	return "$" + grouped(*v, 2)
}

// ConfidenceBar renders confidence as a 10 cell bar
func ConfidenceBar(confidence float64) string {
	const width = 10
	filled := int(math.RoundToEven(confidence * width))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func count(n int64) string {
	v := float64(n)
	return Number(&v, 0)
}
