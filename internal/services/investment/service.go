// Package investment runs a full analysis for one ticker: concurrent data
// fetches, the six dimension analyzers, then the weighted aggregate.
package investment

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"github.com/ternarybob/indepth/internal/common"
	"github.com/ternarybob/indepth/internal/interfaces"
	"github.com/ternarybob/indepth/internal/models"
	"github.com/ternarybob/indepth/internal/signals"
)

const (
	portfolioHistoryDays = 183
	maxConcurrentFetches = 8
)

// Service produces InvestmentReports
type Service struct {
	market     interfaces.MarketDataProvider
	holdings   interfaces.HoldingsProvider
	config     common.AnalysisConfig
	aggregator *signals.Aggregator
	logger     arbor.ILogger
	now        func() time.Time

	fundamental *signals.FundamentalAnalyzer
	technical   *signals.TechnicalAnalyzer
	options     *signals.OptionsAnalyzer
	macro       *signals.MacroAnalyzer
	sentiment   *signals.SentimentAnalyzer
	portfolio   *signals.PortfolioAnalyzer
}

// NewService creates the analysis service. holdings may be nil, in which case
// the portfolio dimension is never available.
func NewService(market interfaces.MarketDataProvider, holdings interfaces.HoldingsProvider, config common.AnalysisConfig, logger arbor.ILogger) *Service {
	return &Service{
		market:      market,
		holdings:    holdings,
		config:      config,
		aggregator:  signals.NewAggregator(WeightsFromConfig(config.Weights)),
		logger:      logger,
		now:         time.Now,
		fundamental: signals.NewFundamentalAnalyzer(),
		technical:   signals.NewTechnicalAnalyzer(),
		options:     signals.NewOptionsAnalyzer(),
		macro:       signals.NewMacroAnalyzer(),
		sentiment:   signals.NewSentimentAnalyzer(),
		portfolio:   signals.NewPortfolioAnalyzer(),
	}
}

// WeightsFromConfig converts configured base weights
func WeightsFromConfig(w common.WeightsConfig) signals.Weights {
	return signals.Weights{
		models.DimensionFundamental: w.Fundamental,
		models.DimensionTechnical:   w.Technical,
		models.DimensionOptions:     w.Options,
		models.DimensionMacro:       w.Macro,
		models.DimensionSentiment:   w.Sentiment,
		models.DimensionPortfolio:   w.Portfolio,
	}
}

// inputs holds the raw data of one run. A nil field or non-nil error means
// the fetch failed and the dependent dimension is skipped.
type inputs struct {
	company    *models.CompanySnapshot
	companyErr error
	history    []models.PriceBar
	historyErr error
	news       []models.NewsArticle
	chain      []models.OptionContract

	market []models.PriceBar
	sector []models.PriceBar
	yield  []models.PriceBar

	holdings    []models.PortfolioHolding
	holdingsErr error
	histories   map[string][]models.PriceBar
}

// Analyze fetches all inputs for ticker and returns the finalized report and
// its render sidecar. Failed fetches only make their dimensions unavailable;
// it fails for an empty ticker or a cancelled ctx.
func (s *Service) Analyze(ctx context.Context, ticker string) (*models.InvestmentReport, *models.ReportData, error) {
	t := common.ParseTicker(ticker, s.config.DefaultExchange)
	if t.Code == "" {
		return nil, nil, fmt.Errorf("ticker is required")
	}

	in, err := s.fetch(ctx, t)
	if err != nil {
		return nil, nil, err
	}
	if in.company == nil && len(in.history) == 0 {
		// degrade to whatever options and portfolio data there is
		s.logger.Warn().
			Err(firstErr(in.historyErr, in.companyErr)).
			Str("symbol", t.EODHDSymbol()).
			Msg("No price history or fundamentals, analyzing remaining dimensions")
	}

	report := &models.InvestmentReport{
		Ticker:      t.Code,
		CompanyName: t.Code,
		GeneratedAt: s.now(),
	}
	if in.company != nil {
		if in.company.Name != "" {
			report.CompanyName = in.company.Name
		}
		report.Sector = in.company.Sector
		report.CurrentPrice = in.company.CurrentPrice
	}
	if report.CurrentPrice == nil && len(in.history) > 0 {
		report.CurrentPrice = models.Float(in.history[len(in.history)-1].Close)
	}

	indicators := s.analyze(report, t, in)
	s.aggregator.Aggregate(report)

	data := &models.ReportData{
		History:    in.history,
		Indicators: indicators,
		News:       signals.SelectNews(in.news, signals.MaxNewsArticles),
	}
	if in.company != nil {
		data.FundamentalsHistory = signals.FundamentalsHistoryFrom(in.company.Quarterly)
		data.CalendarEvents = signals.CalendarEvents(in.company.Calendar)
	}

	s.logger.Info().
		Str("ticker", report.Ticker).
		Str("signal", report.OverallSignal.String()).
		Float64("score", report.OverallScore).
		Float64("confidence", report.OverallConfidence).
		Msg("Analysis complete")

	return report, data, nil
}

// analyze runs every dimension whose inputs are present and returns the
// technical indicator series for rendering
func (s *Service) analyze(report *models.InvestmentReport, t common.Ticker, in *inputs) models.IndicatorSeries {
	var series models.IndicatorSeries
	if in.company != nil {
		data, sig := s.fundamental.Analyze(in.company)
		report.Fundamental, report.FundamentalSignal = data, &sig

		sdata, ssig := s.sentiment.Analyze(in.company, report.CurrentPrice)
		report.Sentiment, report.SentimentSignal = sdata, &ssig
	}

	if in.historyErr == nil {
		data, sig, indicators := s.technical.Analyze(in.history, report.CurrentPrice)
		report.Technical, report.TechnicalSignal = data, &sig
		series = indicators

		mdata, msig := s.macro.Analyze(report.Sector, signals.MacroHistories{
			Stock:  in.history,
			Market: in.market,
			Sector: in.sector,
			Yield:  in.yield,
		})
		report.Macro, report.MacroSignal = mdata, &msig
	}

	if len(in.chain) > 0 {
		data, sig := s.options.Analyze(in.chain, report.CurrentPrice)
		report.Options, report.OptionsSignal = data, &sig
	}

	if s.holdings != nil && in.holdingsErr == nil {
		data, sig := s.portfolio.Analyze(t.Code, in.holdings, in.histories)
		report.Portfolio, report.PortfolioSignal = data, &sig
	}
	return series
}

// fetch gathers every input. Individual failures are logged and recorded;
// only context cancellation aborts the run.
func (s *Service) fetch(ctx context.Context, t common.Ticker) (*inputs, error) {
	symbol := t.EODHDSymbol()
	days := s.config.HistoryDays
	in := &inputs{histories: make(map[string][]models.PriceBar)}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)

	g.Go(func() error {
		in.company, in.companyErr = s.market.GetCompany(gctx, symbol)
		s.warn(in.companyErr, symbol, "fundamentals")
		return gctx.Err()
	})
	g.Go(func() error {
		in.history, in.historyErr = s.market.GetHistory(gctx, symbol, days)
		s.warn(in.historyErr, symbol, "history")
		return gctx.Err()
	})
	g.Go(func() error {
		news, err := s.market.GetNews(gctx, symbol, signals.MaxNewsArticles)
		s.warn(err, symbol, "news")
		in.news = news
		return gctx.Err()
	})
	g.Go(func() error {
		chain, err := s.market.GetOptionChain(gctx, symbol)
		s.warn(err, symbol, "options")
		in.chain = chain
		return gctx.Err()
	})
	g.Go(func() error {
		in.market = s.benchmark(gctx, signals.MarketBenchmark, days)
		return gctx.Err()
	})
	g.Go(func() error {
		in.yield = s.benchmark(gctx, signals.TenYearYield, days)
		return gctx.Err()
	})
	if s.holdings != nil {
		g.Go(func() error {
			in.holdings, in.holdingsErr = s.holdings.ReadHoldings(gctx)
			s.warn(in.holdingsErr, symbol, "holdings")
			return gctx.Err()
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analysis of %s cancelled: %w", symbol, err)
	}

	// Second wave depends on the sector and the holdings list
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)

	sector := ""
	if in.company != nil {
		sector = in.company.Sector
	}
	g.Go(func() error {
		in.sector = s.benchmark(gctx, s.sectorETF(sector), days)
		return gctx.Err()
	})

	if s.holdings != nil && in.holdingsErr == nil && len(in.holdings) > 0 {
		var mu sync.Mutex
		target := strings.ToUpper(t.Code)
		for _, ticker := range s.portfolio.Tickers(target, in.holdings) {
			ticker := ticker
			g.Go(func() error {
				sym := common.ParseTicker(ticker, s.config.DefaultExchange).EODHDSymbol()
				bars, err := s.market.GetHistory(gctx, sym, portfolioHistoryDays)
				s.warn(err, sym, "portfolio history")
				if err == nil {
					mu.Lock()
					in.histories[ticker] = bars
					mu.Unlock()
				}
				return gctx.Err()
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analysis of %s cancelled: %w", symbol, err)
	}
	return in, nil
}

func (s *Service) benchmark(ctx context.Context, ticker string, days int) []models.PriceBar {
	symbol := common.ParseTicker(ticker, "US").EODHDSymbol()
	bars, err := s.market.GetHistory(ctx, symbol, days)
	s.warn(err, symbol, "benchmark history")
	return bars
}

func (s *Service) sectorETF(sector string) string {
	if etf, ok := s.config.SectorETFs[sector]; ok && etf != "" {
		return etf
	}
	return signals.SectorETF(sector)
}

func (s *Service) warn(err error, symbol, what string) {
	if err == nil {
		return
	}
	s.logger.Warn().Err(err).Str("symbol", symbol).Msgf("Failed to fetch %s", what)
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
