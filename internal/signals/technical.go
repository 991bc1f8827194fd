package signals

import (
	"sort"
	"time"

	"github.com/ternarybob/indepth/internal/models"
)

// minTechnicalBars is the shortest history the technical dimension will score
const minTechnicalBars = 20

// TechnicalAnalyzer scores momentum, trend and moving-average structure
type TechnicalAnalyzer struct{}

// NewTechnicalAnalyzer creates a TechnicalAnalyzer
func NewTechnicalAnalyzer() *TechnicalAnalyzer {
	return &TechnicalAnalyzer{}
}

// Analyze computes indicators from daily bars (oldest first). A nil currentPrice
// falls back to the last close. The indicator series is returned for rendering.
func (a *TechnicalAnalyzer) Analyze(history []models.PriceBar, currentPrice *float64) (*models.TechnicalData, models.SignalWithConfidence, models.IndicatorSeries) {
	if len(history) < minTechnicalBars {
		return &models.TechnicalData{CurrentPrice: currentPrice, Trend: neutralTrend()},
			neutral(0.2, "Insufficient price history"),
			models.IndicatorSeries{}
	}

	closing := closes(history)
	price := closing[len(closing)-1]
	if currentPrice != nil {
		price = *currentPrice
	}

	ma := movingAverages(closing, price)
	data := &models.TechnicalData{
		CurrentPrice:      &price,
		MovingAverages:    ma,
		Momentum:          momentum(history),
		SupportResistance: supportResistance(closing, price),
		Trend:             trend(ma, closing),
	}

	return data, a.score(data), indicatorSeries(history)
}

func neutralTrend() models.TrendAnalysis {
	return models.TrendAnalysis{
		ShortTerm:  models.TrendNeutral,
		MediumTerm: models.TrendNeutral,
		LongTerm:   models.TrendNeutral,
	}
}

func movingAverages(closing []float64, price float64) models.MovingAverages {
	sma20 := last(rollingMean(closing, 20))
	var sma50, sma200 *float64
	if len(closing) >= 50 {
		sma50 = last(rollingMean(closing, 50))
	}
	if len(closing) >= 200 {
		sma200 = last(rollingMean(closing, 200))
	}

	vs := func(sma *float64) *float64 {
		if !truthy(sma) {
			return nil
		}
		v := (price/(*sma) - 1) * 100
		return &v
	}

	return models.MovingAverages{
		SMA20:         sma20,
		SMA50:         sma50,
		SMA200:        sma200,
		EMA12:         last(emaAdjusted(closing, 12)),
		EMA26:         last(emaAdjusted(closing, 26)),
		PriceVsSMA20:  vs(sma20),
		PriceVsSMA50:  vs(sma50),
		PriceVsSMA200: vs(sma200),
	}
}

func momentum(history []models.PriceBar) models.MomentumIndicators {
	closing := closes(history)
	high := make([]float64, len(history))
	low := make([]float64, len(history))
	for i, b := range history {
		high[i] = b.High
		low[i] = b.Low
	}

	line, sig, hist := macd(closing, 12, 26, 9)
	k, d := stochastic(high, low, closing, 14, 3)

	return models.MomentumIndicators{
		RSI14:         last(rsi(closing, 14)),
		MACD:          last(line),
		MACDSignal:    last(sig),
		MACDHistogram: last(hist),
		StochasticK:   last(k),
		StochasticD:   last(d),
		ADX:           last(adx(high, low, closing, 14)),
	}
}

// supportResistance finds local extrema over the last 60 closes
func supportResistance(closing []float64, price float64) models.SupportResistance {
	recent := closing
	if len(recent) > 60 {
		recent = recent[len(recent)-60:]
	}
	if len(recent) < 10 {
		return models.SupportResistance{}
	}

	var supports, resistances []float64
	for i := 1; i < len(recent)-1; i++ {
		v := recent[i]
		if recent[i-1] > v && recent[i+1] > v && v < price {
			supports = append(supports, v)
		}
		if recent[i-1] < v && recent[i+1] < v && v > price {
			resistances = append(resistances, v)
		}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(supports)))
	sort.Float64s(resistances)

	sr := models.SupportResistance{
		SupportLevels:    head(supports, 5),
		ResistanceLevels: head(resistances, 5),
	}
	if len(supports) > 0 {
		s := supports[0]
		sr.NearestSupport = &s
		if s != 0 {
			d := (price - s) / price * 100
			sr.DistanceToSupportPct = &d
		}
	}
	if len(resistances) > 0 {
		r := resistances[0]
		sr.NearestResistance = &r
		if r != 0 {
			d := (r - price) / price * 100
			sr.DistanceToResistancePct = &d
		}
	}
	return sr
}

func head(values []float64, n int) []float64 {
	if len(values) > n {
		return values[:n]
	}
	return values
}

// trend compares the last close with each moving average and looks for a
// 50/200 crossover on the final bar
func trend(ma models.MovingAverages, closing []float64) models.TrendAnalysis {
	price := closing[len(closing)-1]

	direction := func(sma *float64) string {
		switch {
		case truthy(sma) && price > *sma:
			return models.TrendBullish
		case truthy(sma) && price < *sma:
			return models.TrendBearish
		default:
			return models.TrendNeutral
		}
	}

	t := models.TrendAnalysis{
		ShortTerm:   direction(ma.SMA20),
		MediumTerm:  direction(ma.SMA50),
		LongTerm:    direction(ma.SMA200),
		Above200SMA: truthy(ma.SMA200) && price > *ma.SMA200,
	}

	if ma.SMA50 != nil && ma.SMA200 != nil && len(closing) >= 201 {
		sma50 := rollingMean(closing, 50)
		sma200 := rollingMean(closing, 200)
		n := len(closing)
		prev := sma50[n-2] - sma200[n-2]
		curr := sma50[n-1] - sma200[n-1]
		if prev < 0 && curr >= 0 {
			t.GoldenCross = true
		} else if prev > 0 && curr <= 0 {
			t.DeathCross = true
		}
	}

	return t
}

func (a *TechnicalAnalyzer) score(data *models.TechnicalData) models.SignalWithConfidence {
	var card scorecard

	if r := data.Momentum.RSI14; r != nil {
		switch {
		case *r < 30:
			card.add(0.7, "RSI oversold")
		case *r < 40:
			card.add(0.3, "RSI approaching oversold")
		case *r > 70:
			card.add(-0.7, "RSI overbought")
		case *r > 60:
			card.add(-0.3, "RSI approaching overbought")
		default:
			card.add(0.1, "RSI neutral")
		}
	}

	if h := data.Momentum.MACDHistogram; h != nil {
		if *h > 0 {
			card.add(0.4, "MACD bullish")
		} else {
			card.add(-0.4, "MACD bearish")
		}
	}

	trendScore := map[string]float64{
		models.TrendBullish: 0.3,
		models.TrendNeutral: 0.0,
		models.TrendBearish: -0.3,
	}
	card.add(trendScore[data.Trend.ShortTerm], "")
	card.add(trendScore[data.Trend.MediumTerm], "")

	if data.Trend.GoldenCross {
		card.add(0.6, "Golden cross detected")
	} else if data.Trend.DeathCross {
		card.add(-0.6, "Death cross detected")
	}

	if data.Trend.Above200SMA {
		card.add(0.3, "Above 200 SMA")
	} else if data.MovingAverages.SMA200 != nil {
		card.add(-0.3, "Below 200 SMA")
	}

	signal := card.scaled(0.85, 7)
	if signal.Rationale == "" {
		signal.Rationale = "Mixed signals"
	}
	return signal
}

// indicatorSeries builds full-length series for charting and the report sidecar
func indicatorSeries(history []models.PriceBar) models.IndicatorSeries {
	closing := closes(history)
	series := models.IndicatorSeries{
		Dates:  make([]time.Time, len(history)),
		Close:  closing,
		SMA20:  rollingMean(closing, 20),
		RSI14:  rsi(closing, 14),
		Volume: make([]int64, len(history)),
	}
	for i, b := range history {
		series.Dates[i] = b.Date
		series.Volume[i] = b.Volume
	}
	if len(closing) >= 50 {
		series.SMA50 = rollingMean(closing, 50)
	}
	if len(closing) >= 200 {
		series.SMA200 = rollingMean(closing, 200)
	}
	series.MACDLine, series.MACDSignal, series.MACDHistogram = macd(closing, 12, 26, 9)
	return series
}
