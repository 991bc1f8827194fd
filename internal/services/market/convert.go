package market

import (
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/indepth/internal/eodhd"
	"github.com/ternarybob/indepth/internal/models"
)

const (
	maxQuarters      = 8
	chainStrikeWidth = 10 // strikes kept either side of the middle of the nearest expiry
)

// barsFromEOD converts EODHD bars, dropping rows without a parseable date
func barsFromEOD(rows eodhd.EODResponse) []models.PriceBar {
	bars := make([]models.PriceBar, 0, len(rows))
	for _, r := range rows {
		if r.Date.IsZero() {
			continue
		}
		bars = append(bars, models.PriceBar{
			Date:   r.Date,
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: r.Volume,
		})
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars
}

// snapshotFromFundamentals maps the fundamentals document onto the analysis snapshot.
// Fields EODHD reports as zero for "unknown" are treated as missing.
func snapshotFromFundamentals(symbol string, f *eodhd.FundamentalsResponse, now time.Time) *models.CompanySnapshot {
	snap := &models.CompanySnapshot{Symbol: symbol}
	if f == nil {
		return snap
	}

	if g := f.General; g != nil {
		snap.Name = g.Name
		snap.Sector = g.Sector
		if snap.Sector == "" {
			snap.Sector = g.GicSector
		}
		snap.Industry = g.Industry
	}

	if h := f.Highlights; h != nil {
		snap.MarketCap = h.MarketCapitalization.NonZero()
		snap.PEGRatio = h.PEGRatio.NonZero()
		snap.RevenueGrowth = h.QuarterlyRevenueGrowthYOY.Ptr()
		snap.EarningsGrowth = h.QuarterlyEarningsGrowthYOY.Ptr()
		snap.ProfitMargins = h.ProfitMargin.Ptr()
		snap.OperatingMargins = h.OperatingMarginTTM.Ptr()
		if h.RevenueTTM.Valid && h.RevenueTTM.Value > 0 && h.GrossProfitTTM.Valid {
			v := h.GrossProfitTTM.Value / h.RevenueTTM.Value
			snap.GrossMargins = &v
		}
		snap.TargetMeanPrice = h.WallStreetTargetPrice.NonZero()
		snap.TotalRevenue = h.RevenueTTM.NonZero()
	}

	if v := f.Valuation; v != nil {
		snap.TrailingPE = v.TrailingPE.NonZero()
		snap.ForwardPE = v.ForwardPE.NonZero()
		snap.PriceToBook = v.PriceBookMRQ.NonZero()
		snap.PriceToSales = v.PriceSalesTTM.NonZero()
		snap.EVToEBITDA = v.EnterpriseValueEbitda.NonZero()
	}
	if snap.TrailingPE == nil && f.Highlights != nil {
		snap.TrailingPE = f.Highlights.PERatio.NonZero()
	}

	if r := f.AnalystRatings; r != nil {
		counts := &models.RatingCounts{
			StrongBuy:  r.StrongBuy,
			Buy:        r.Buy,
			Hold:       r.Hold,
			Sell:       r.Sell,
			StrongSell: r.StrongSell,
		}
		total := counts.StrongBuy + counts.Buy + counts.Hold + counts.Sell + counts.StrongSell
		if total > 0 {
			snap.Ratings = counts
			snap.AnalystOpinions = total
		}
		snap.RecommendationKey = recommendationKey(r.Rating)
		if snap.TargetMeanPrice == nil {
			snap.TargetMeanPrice = r.TargetPrice.NonZero()
		}
	}

	if fin := f.Financials; fin != nil {
		applyStatements(snap, fin)
	}
	if s := f.SharesStats; s != nil && snap.TotalCash != nil && s.SharesOutstanding.Valid && s.SharesOutstanding.Value > 0 {
		v := *snap.TotalCash / s.SharesOutstanding.Value
		snap.CashPerShare = &v
	}

	snap.Calendar = calendarFrom(f, now)
	return snap
}

func applyStatements(snap *models.CompanySnapshot, fin *eodhd.Financials) {
	if fin.IncomeStatement != nil {
		yearly := eodhd.Latest(fin.IncomeStatement.Yearly)
		if rev := yearly.Value("totalRevenue"); rev != nil && *rev != 0 {
			snap.TotalRevenue = rev
		}
		if ebit, interest := yearly.Value("ebit"), yearly.Value("interestExpense"); ebit != nil && interest != nil && *interest != 0 {
			v := *ebit / abs(*interest)
			snap.InterestCoverage = &v
		}

		periods := eodhd.Periods(fin.IncomeStatement.Quarterly)
		for i, p := range periods {
			if i >= maxQuarters {
				break
			}
			row := fin.IncomeStatement.Quarterly[p]
			snap.Quarterly = append(snap.Quarterly, models.QuarterlyFinancials{
				Date:            p,
				Revenue:         row.Value("totalRevenue"),
				NetIncome:       row.Value("netIncome"),
				GrossProfit:     row.Value("grossProfit"),
				OperatingIncome: row.Value("operatingIncome"),
			})
		}
		if len(snap.Quarterly) >= 2 {
			snap.RevenueQuarterlyGrowth = growth(snap.Quarterly[0].Revenue, snap.Quarterly[1].Revenue)
			snap.EarningsQuarterlyGrowth = growth(snap.Quarterly[0].NetIncome, snap.Quarterly[1].NetIncome)
		}
	}

	if fin.CashFlow != nil {
		if fcf := eodhd.Latest(fin.CashFlow.Yearly).Value("freeCashFlow"); fcf != nil {
			snap.FreeCashFlow = fcf
		}
	}

	if fin.BalanceSheet != nil {
		bs := eodhd.Latest(fin.BalanceSheet.Quarterly)
		if bs == nil {
			bs = eodhd.Latest(fin.BalanceSheet.Yearly)
		}
		assets, liabilities := bs.Value("totalCurrentAssets"), bs.Value("totalCurrentLiabilities")
		if assets != nil && liabilities != nil && *liabilities != 0 {
			v := *assets / *liabilities
			snap.CurrentRatio = &v
		}

		debt := bs.Value("shortLongTermDebtTotal")
		if debt == nil {
			short, long := bs.Value("shortTermDebt"), bs.Value("longTermDebt")
			if short != nil || long != nil {
				v := deref(short) + deref(long)
				debt = &v
			}
		}
		snap.TotalDebt = debt

		if equity := bs.Value("totalStockholderEquity"); debt != nil && equity != nil && *equity > 0 {
			v := *debt / *equity * 100
			snap.DebtToEquity = &v
		}

		cash := bs.Value("cashAndShortTermInvestments")
		if cash == nil {
			cash = bs.Value("cash")
		}
		snap.TotalCash = cash
	}
}

// recommendationKey buckets the 1-5 consensus rating into the
// recommendation vocabulary the sentiment rules score
func recommendationKey(rating eodhd.Number) string {
	if !rating.Valid || rating.Value <= 0 {
		return ""
	}
	switch r := rating.Value; {
	case r >= 4.5:
		return "strong_buy"
	case r >= 3.5:
		return "buy"
	case r >= 2.5:
		return "hold"
	case r >= 1.5:
		return "sell"
	default:
		return "strong_sell"
	}
}

// calendarFrom collects upcoming earnings (reports without an actual EPS dated
// today or later) and dividend dates
func calendarFrom(f *eodhd.FundamentalsResponse, now time.Time) models.CalendarInfo {
	var cal models.CalendarInfo
	today := now.UTC().Format("2006-01-02")

	if e := f.Earnings; e != nil {
		seen := make(map[string]bool)
		for _, h := range e.History {
			date := h.ReportDate
			if date == "" {
				date = h.Date
			}
			if date < today || h.EPSActual.Valid || seen[date] {
				continue
			}
			seen[date] = true
			cal.EarningsDates = append(cal.EarningsDates, date)
		}
		sort.Strings(cal.EarningsDates)

		for _, t := range e.Trend {
			if t.Period != "0q" {
				continue
			}
			cal.EarningsAverage = t.EarningsEstimateAvg.Ptr()
			cal.EarningsLow = t.EarningsEstimateLow.Ptr()
			cal.EarningsHigh = t.EarningsEstimateHigh.Ptr()
			break
		}
	}

	if sd := f.SplitsDividends; sd != nil {
		cal.DividendDate = validDate(sd.DividendDate)
		cal.ExDividendDate = validDate(sd.ExDividendDate)
	}
	return cal
}

// newsFromEODHD converts articles. The publisher is the link's host without "www."
func newsFromEODHD(items eodhd.NewsResponse) []models.NewsArticle {
	articles := make([]models.NewsArticle, 0, len(items))
	for _, item := range items {
		article := models.NewsArticle{
			Title: strings.TrimSpace(item.Title),
			Link:  item.Link,
		}
		if u, err := url.Parse(item.Link); err == nil {
			article.Publisher = strings.TrimPrefix(u.Hostname(), "www.")
		}
		if !item.Date.IsZero() {
			article.Published = item.Date.UTC().Format("2006-01-02 15:04") + " UTC"
		}
		articles = append(articles, article)
	}
	return articles
}

// chainFromOptions keeps the nearest expiry on or after today and the strikes
// around the middle of its ladder. Both rights are kept for each selected strike.
func chainFromOptions(resp *eodhd.OptionsResponse, now time.Time) []models.OptionContract {
	if resp == nil {
		return nil
	}
	today := now.UTC().Format("2006-01-02")

	var expiry *eodhd.OptionsExpiry
	for _, e := range resp.SortedExpiries() {
		if e.ExpirationDate >= today {
			e := e
			expiry = &e
			break
		}
	}
	if expiry == nil {
		return nil
	}

	strikeSet := make(map[float64]bool)
	for _, quotes := range expiry.Options {
		for _, q := range quotes {
			if q.Strike.Valid {
				strikeSet[q.Strike.Value] = true
			}
		}
	}
	strikes := make([]float64, 0, len(strikeSet))
	for s := range strikeSet {
		strikes = append(strikes, s)
	}
	sort.Float64s(strikes)

	mid := len(strikes) / 2
	lo := mid - chainStrikeWidth
	if lo < 0 {
		lo = 0
	}
	hi := mid + chainStrikeWidth
	if hi > len(strikes) {
		hi = len(strikes)
	}
	selected := make(map[float64]bool, hi-lo)
	for _, s := range strikes[lo:hi] {
		selected[s] = true
	}

	var contracts []models.OptionContract
	for _, side := range []struct {
		key   string
		right string
	}{{"CALL", models.OptionCall}, {"PUT", models.OptionPut}} {
		for _, q := range expiry.Options[side.key] {
			if !q.Strike.Valid || !selected[q.Strike.Value] {
				continue
			}
			var iv *float64
			if q.ImpliedVolatility.Valid {
				v := q.ImpliedVolatility.Value / 100
				iv = &v
			}
			contracts = append(contracts, models.OptionContract{
				Strike:       q.Strike.Value,
				Expiry:       expiry.ExpirationDate,
				Right:        side.right,
				Bid:          q.Bid.Ptr(),
				Ask:          q.Ask.Ptr(),
				Volume:       q.Volume.Int(),
				OpenInterest: q.OpenInterest.Int(),
				Greeks: models.GreeksSnapshot{
					Delta:             q.Delta.Ptr(),
					Gamma:             q.Gamma.Ptr(),
					Theta:             q.Theta.Ptr(),
					Vega:              q.Vega.Ptr(),
					ImpliedVolatility: iv,
				},
			})
		}
	}

	sort.SliceStable(contracts, func(i, j int) bool {
		if contracts[i].Strike != contracts[j].Strike {
			return contracts[i].Strike < contracts[j].Strike
		}
		return contracts[i].Right < contracts[j].Right
	})
	return contracts
}

func validDate(s string) string {
	if s == "" || strings.HasPrefix(s, "0000") {
		return ""
	}
	return s
}

func growth(current, previous *float64) *float64 {
	if current == nil || previous == nil || *previous == 0 {
		return nil
	}
	v := (*current - *previous) / abs(*previous)
	return &v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
