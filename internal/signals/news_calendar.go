package signals

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ternarybob/indepth/internal/models"
)

// MaxNewsArticles is the number of headlines carried into a report
const MaxNewsArticles = 10

// SelectNews keeps the first max feed items that carry a title
func SelectNews(feed []models.NewsArticle, max int) []models.NewsArticle {
	if len(feed) > max {
		feed = feed[:max]
	}
	out := make([]models.NewsArticle, 0, len(feed))
	for _, a := range feed {
		if strings.TrimSpace(a.Title) == "" {
			continue
		}
		out = append(out, a)
	}
	return out
}

// CalendarEvents lists upcoming earnings and dividend dates
func CalendarEvents(cal models.CalendarInfo) []models.CalendarEvent {
	var events []models.CalendarEvent

	var details []string
	if cal.EarningsAverage != nil {
		details = append(details, "EPS Est: "+formatNumber(*cal.EarningsAverage))
	}
	if cal.EarningsLow != nil && cal.EarningsHigh != nil {
		details = append(details, fmt.Sprintf("Range: %s - %s", formatNumber(*cal.EarningsLow), formatNumber(*cal.EarningsHigh)))
	}
	for _, d := range cal.EarningsDates {
		if d == "" {
			continue
		}
		events = append(events, models.CalendarEvent{Date: d, Event: "Earnings", Details: strings.Join(details, ", ")})
	}

	if cal.DividendDate != "" {
		events = append(events, models.CalendarEvent{Date: cal.DividendDate, Event: "Dividend"})
	}
	if cal.ExDividendDate != "" {
		events = append(events, models.CalendarEvent{Date: cal.ExDividendDate, Event: "Ex-Dividend"})
	}
	return events
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
