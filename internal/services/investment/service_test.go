package investment

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/indepth/internal/common"
	"github.com/ternarybob/indepth/internal/interfaces"
	"github.com/ternarybob/indepth/internal/models"
)

// fakeMarket serves canned data and records every history request
type fakeMarket struct {
	mu        sync.Mutex
	company   *models.CompanySnapshot
	histories map[string][]models.PriceBar
	chain     []models.OptionContract
	news      []models.NewsArticle
	requested []string
}

func (f *fakeMarket) GetHistory(ctx context.Context, symbol string, days int) ([]models.PriceBar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requested = append(f.requested, symbol)
	bars, ok := f.histories[symbol]
	if !ok {
		return nil, errors.New("no data")
	}
	return bars, nil
}

func (f *fakeMarket) GetCompany(ctx context.Context, symbol string) (*models.CompanySnapshot, error) {
	if f.company == nil {
		return nil, errors.New("not found")
	}
	return f.company, nil
}

func (f *fakeMarket) GetNews(ctx context.Context, symbol string, limit int) ([]models.NewsArticle, error) {
	return f.news, nil
}

func (f *fakeMarket) GetOptionChain(ctx context.Context, symbol string) ([]models.OptionContract, error) {
	return f.chain, nil
}

func (f *fakeMarket) requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]string(nil), f.requested...)
	sort.Strings(out)
	return out
}

type fakeHoldings struct {
	holdings []models.PortfolioHolding
	err      error
}

func (f *fakeHoldings) ReadHoldings(ctx context.Context) ([]models.PortfolioHolding, error) {
	return f.holdings, f.err
}

// series returns n daily bars starting 2024-01-01 with closes start, start+step, ...
func series(n int, start, step float64) []models.PriceBar {
	bars := make([]models.PriceBar, n)
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		c := start + float64(i)*step
		bars[i] = models.PriceBar{Date: day.AddDate(0, 0, i), Open: c, High: c + 0.5, Low: c - 0.5, Close: c, Volume: 1000}
	}
	return bars
}

func testConfig() common.AnalysisConfig {
	return common.NewDefaultConfig().Analysis
}

func newTestService(market *fakeMarket, holdings *fakeHoldings, config common.AnalysisConfig) *Service {
	var hp interfaces.HoldingsProvider
	if holdings != nil {
		hp = holdings
	}
	svc := NewService(market, hp, config, arbor.NewLogger())
	svc.now = func() time.Time { return time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC) }
	return svc
}

func TestAnalyze_WithoutOptionsOrPortfolio(t *testing.T) {
	market := &fakeMarket{
		company: &models.CompanySnapshot{
			Name:       "Apple Inc",
			Sector:     "Technology",
			TrailingPE: models.Float(12),
			Calendar:   models.CalendarInfo{DividendDate: "2024-09-15"},
			Quarterly: []models.QuarterlyFinancials{
				{Date: "2024-06-30", Revenue: models.Float(100), NetIncome: models.Float(20)},
			},
		},
		histories: map[string][]models.PriceBar{
			"AAPL.US":  series(250, 100, 1),
			"SPY.US":   series(250, 100, 0.5),
			"XLK.US":   series(250, 100, 0.5),
			"TNX.INDX": series(250, 4, 0),
		},
		news: []models.NewsArticle{{Title: "Headline"}, {Title: ""}},
	}

	report, data, err := newTestService(market, nil, testConfig()).Analyze(context.Background(), "aapl")
	require.NoError(t, err)

	assert.Equal(t, "AAPL", report.Ticker)
	assert.Equal(t, "Apple Inc", report.CompanyName)
	assert.Equal(t, 349.0, *report.CurrentPrice, "falls back to the last close")
	assert.NotNil(t, report.FundamentalSignal)
	assert.NotNil(t, report.TechnicalSignal)
	assert.NotNil(t, report.MacroSignal)
	assert.NotNil(t, report.SentimentSignal)
	assert.Nil(t, report.OptionsSignal)
	assert.Nil(t, report.PortfolioSignal)

	require.Len(t, report.DimensionResults, 6)
	assert.Equal(t, "Options", report.DimensionResults[4].Name)
	assert.False(t, report.DimensionResults[4].Available)
	assert.False(t, report.DimensionResults[5].Available)

	assert.Len(t, data.History, 250)
	assert.Len(t, data.Indicators.Close, 250)
	assert.Equal(t, []models.NewsArticle{{Title: "Headline"}}, data.News)
	assert.Equal(t, []string{"2024-06-30"}, data.FundamentalsHistory.Dates)
	require.Len(t, data.CalendarEvents, 1)
	assert.Equal(t, "Dividend", data.CalendarEvents[0].Event)

	assert.Contains(t, market.requests(), "XLK.US")
}

func TestAnalyze_NoData(t *testing.T) {
	market := &fakeMarket{histories: map[string][]models.PriceBar{}}
	report, data, err := newTestService(market, nil, testConfig()).Analyze(context.Background(), "ZZZ")
	require.NoError(t, err)

	assert.Equal(t, "ZZZ", report.Ticker)
	assert.Nil(t, report.CurrentPrice)
	assert.Equal(t, models.SignalNeutral, report.OverallSignal)
	assert.Zero(t, report.OverallConfidence)
	assert.Zero(t, report.OverallScore)
	assert.Equal(t, "No analysis dimensions available.", report.Summary)
	for _, d := range report.DimensionResults {
		assert.False(t, d.Available, d.Name)
	}
	assert.Empty(t, data.History)
}

func TestAnalyze_OnlyOptionsAndPortfolio(t *testing.T) {
	market := &fakeMarket{
		histories: map[string][]models.PriceBar{"MSFT.US": series(130, 200, 1)},
		chain: []models.OptionContract{
			{Strike: 150, Right: models.OptionCall, Volume: 100, OpenInterest: 50},
			{Strike: 150, Right: models.OptionPut, Volume: 200, OpenInterest: 50},
		},
	}
	holdings := &fakeHoldings{holdings: []models.PortfolioHolding{
		{Ticker: "MSFT", Shares: 10, MarketValue: models.Float(3000)},
	}}

	report, _, err := newTestService(market, holdings, testConfig()).Analyze(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.Nil(t, report.FundamentalSignal)
	assert.Nil(t, report.TechnicalSignal)
	require.NotNil(t, report.OptionsSignal)
	require.NotNil(t, report.PortfolioSignal)

	available := 0
	for _, d := range report.DimensionResults {
		if d.Available {
			available++
		}
	}
	assert.Equal(t, 2, available)
	assert.NotEqual(t, "No analysis dimensions available.", report.Summary)
}

func TestAnalyze_EmptyTicker(t *testing.T) {
	_, _, err := newTestService(&fakeMarket{}, nil, testConfig()).Analyze(context.Background(), "  ")
	assert.Error(t, err)
}

func TestAnalyze_FundamentalsUnavailable(t *testing.T) {
	market := &fakeMarket{histories: map[string][]models.PriceBar{"AAPL.US": series(30, 100, 1)}}

	report, data, err := newTestService(market, nil, testConfig()).Analyze(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", report.CompanyName)
	assert.Nil(t, report.FundamentalSignal)
	assert.Nil(t, report.SentimentSignal)
	assert.NotNil(t, report.TechnicalSignal)
	assert.Empty(t, data.CalendarEvents)
}

func TestAnalyze_PortfolioAndOptions(t *testing.T) {
	market := &fakeMarket{
		company: &models.CompanySnapshot{Name: "Apple Inc", Sector: "Technology", CurrentPrice: models.Float(150)},
		histories: map[string][]models.PriceBar{
			"AAPL.US": series(130, 100, 1),
			"MSFT.US": series(130, 200, 1),
		},
		chain: []models.OptionContract{
			{Strike: 150, Right: models.OptionCall, Volume: 100, OpenInterest: 50},
			{Strike: 150, Right: models.OptionPut, Volume: 200, OpenInterest: 50},
		},
	}
	holdings := &fakeHoldings{holdings: []models.PortfolioHolding{
		{Ticker: "MSFT", Shares: 10, MarketValue: models.Float(3000)},
		{Ticker: "AAPL", Shares: 5, MarketValue: models.Float(1000)},
	}}

	config := testConfig()
	config.SectorETFs = map[string]string{"Technology": "QQQ"}

	report, _, err := newTestService(market, holdings, config).Analyze(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.Equal(t, 150.0, *report.CurrentPrice)
	require.NotNil(t, report.OptionsSignal)
	require.NotNil(t, report.PortfolioSignal)
	assert.Equal(t, 25.0, *report.Portfolio.CurrentWeight)

	requests := market.requests()
	assert.Contains(t, requests, "QQQ.US")
	assert.Contains(t, requests, "MSFT.US")
	assert.NotContains(t, requests, "XLK.US")
}

func TestAnalyze_HoldingsFailure(t *testing.T) {
	market := &fakeMarket{histories: map[string][]models.PriceBar{"AAPL.US": series(30, 100, 1)}}
	holdings := &fakeHoldings{err: errors.New("sheet unavailable")}

	report, _, err := newTestService(market, holdings, testConfig()).Analyze(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Nil(t, report.PortfolioSignal)
}

func TestAnalyze_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	market := &fakeMarket{histories: map[string][]models.PriceBar{"AAPL.US": series(30, 100, 1)}}
	_, _, err := newTestService(market, nil, testConfig()).Analyze(ctx, "AAPL")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWeightsFromConfig(t *testing.T) {
	w := WeightsFromConfig(testConfig().Weights)
	assert.Equal(t, 0.30, w[models.DimensionFundamental])
	assert.Equal(t, 0.10, w[models.DimensionPortfolio])
	assert.Len(t, w, 6)
}
