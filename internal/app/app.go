package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/indepth/internal/common"
	"github.com/ternarybob/indepth/internal/eodhd"
	"github.com/ternarybob/indepth/internal/interfaces"
	"github.com/ternarybob/indepth/internal/services/chunker"
	"github.com/ternarybob/indepth/internal/services/embeddings"
	"github.com/ternarybob/indepth/internal/services/euromacro"
	"github.com/ternarybob/indepth/internal/services/investment"
	"github.com/ternarybob/indepth/internal/services/llm"
	"github.com/ternarybob/indepth/internal/services/market"
	"github.com/ternarybob/indepth/internal/services/mcp"
	"github.com/ternarybob/indepth/internal/services/notion"
	"github.com/ternarybob/indepth/internal/services/pdf"
	"github.com/ternarybob/indepth/internal/services/portfolio"
	"github.com/ternarybob/indepth/internal/services/processing"
	"github.com/ternarybob/indepth/internal/services/scraper"
	"github.com/ternarybob/indepth/internal/services/search"
	"github.com/ternarybob/indepth/internal/storage"
)

// App holds the storage layer and builds services on first use, so commands
// only need the credentials of the services they touch.
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager
	Cache          interfaces.CacheService

	embedder   interfaces.EmbeddingService
	retriever  *search.Retriever
	processing *processing.Service
	scraper    *scraper.Service
	investment *investment.Service
}

// New opens the catalog store and the market data cache
func New(ctx context.Context, cfg *common.Config, logger arbor.ILogger) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
	}

	storageManager, err := storage.NewStorageManager(logger, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage manager: %w", err)
	}
	a.StorageManager = storageManager

	if _, err := storage.LoadKeysFromFiles(ctx, logger, storageManager.KeyValueStorage(), cfg.Storage.KeysDir); err != nil {
		_ = storageManager.Close()
		return nil, err
	}

	cache, err := storage.NewCache(ctx, logger, cfg, storageManager)
	if err != nil {
		// the cache is an optimisation; run uncached rather than fail
		logger.Warn().Err(err).Str("backend", cfg.Cache.Backend).Msg("Market data cache unavailable")
		cache = nil
	}
	a.Cache = cache

	logger.Debug().
		Str("storage", cfg.Storage.Type).
		Str("cache", cfg.Cache.Backend).
		Msg("Application initialized")

	return a, nil
}

// Embedder builds the configured embedding provider
func (a *App) Embedder(ctx context.Context) (interfaces.EmbeddingService, error) {
	if a.embedder != nil {
		return a.embedder, nil
	}

	apiKey := ""
	if a.Config.Embedding.Provider == "gemini" {
		key, err := common.ResolveAPIKey(ctx, a.StorageManager.KeyValueStorage(), interfaces.KeyGemini, a.Config.Embedding.GeminiAPIKey)
		if err != nil {
			return nil, fmt.Errorf("gemini embedding provider needs an API key (set GEMINI_API_KEY): %w", err)
		}
		apiKey = key
	}

	embedder, err := embeddings.NewService(ctx, &a.Config.Embedding, apiKey, a.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	a.embedder = embedder
	return embedder, nil
}

// Retriever builds semantic search over embedded chunks
func (a *App) Retriever(ctx context.Context) (*search.Retriever, error) {
	if a.retriever != nil {
		return a.retriever, nil
	}
	embedder, err := a.Embedder(ctx)
	if err != nil {
		return nil, err
	}
	a.retriever = search.NewRetriever(a.StorageManager, embedder, a.Logger)
	return a.retriever, nil
}

// Processing builds the extract, chunk and embed pipeline
func (a *App) Processing(ctx context.Context) (*processing.Service, error) {
	if a.processing != nil {
		return a.processing, nil
	}
	embedder, err := a.Embedder(ctx)
	if err != nil {
		return nil, err
	}

	ref := a.Config.Reference
	chunk := chunker.New(chunker.Options{
		TargetTokens: ref.TargetTokens,
		MinTokens:    ref.MinTokens,
		MaxTokens:    ref.MaxTokens,
	})

	a.processing = processing.NewService(
		a.StorageManager,
		pdf.NewExtractor(a.Logger),
		chunk,
		embedder,
		ref.DownloadDir,
		a.Config.Processing.Workers,
		a.Logger,
	)
	return a.processing, nil
}

// Scraper builds the catalog and download service with every known source
func (a *App) Scraper() *scraper.Service {
	if a.scraper == nil {
		sources := []scraper.Source{
			scraper.NewKCIFScraper(a.Config.Scraper, a.Logger),
		}
		a.scraper = scraper.NewService(a.StorageManager, sources, a.Config.Reference.DownloadDir, a.Config.Scraper.Workers, a.Logger)
	}
	return a.scraper
}

// Investment builds the analysis service backed by EODHD
func (a *App) Investment(ctx context.Context) (*investment.Service, error) {
	if a.investment != nil {
		return a.investment, nil
	}

	apiKey, err := common.ResolveAPIKey(ctx, a.StorageManager.KeyValueStorage(), interfaces.KeyEODHD, a.Config.EODHD.APIKey)
	if err != nil {
		return nil, fmt.Errorf("EODHD API key is required for analysis (set EODHD_API_KEY): %w", err)
	}

	client := eodhd.NewClient(apiKey,
		eodhd.WithBaseURL(a.Config.EODHD.BaseURL),
		eodhd.WithTimeout(common.ParseDuration(a.Config.EODHD.Timeout, 30*time.Second)),
		eodhd.WithRateLimit(a.Config.EODHD.RateLimit),
		eodhd.WithLogger(a.Logger),
	)
	marketData := market.NewService(client, a.Cache, common.ParseDuration(a.Config.Cache.TTL, market.DefaultCacheTTL), a.Logger)

	holdings, err := a.Holdings(ctx)
	if err != nil {
		// portfolio context is optional
		a.Logger.Warn().Err(err).Msg("Portfolio holdings unavailable")
		holdings = nil
	}

	a.investment = investment.NewService(marketData, holdings, a.Config.Analysis, a.Logger)
	return a.investment, nil
}

// Holdings returns the configured holdings source, Sheets first, then a
// YAML file. Returns nil with no error when neither is configured.
func (a *App) Holdings(ctx context.Context) (interfaces.HoldingsProvider, error) {
	p := a.Config.Portfolio
	switch {
	case p.SheetsID != "" && p.CredentialsFile != "":
		reader, err := portfolio.NewSheetsReader(ctx, p.CredentialsFile, p.SheetsID, p.Range, a.Logger)
		if err != nil {
			return nil, err
		}
		return reader, nil
	case p.HoldingsFile != "":
		return portfolio.NewFileReader(p.HoldingsFile), nil
	default:
		return nil, nil
	}
}

// Narrator builds the Claude narrative service
func (a *App) Narrator(ctx context.Context) (interfaces.NarrativeService, error) {
	apiKey, err := common.ResolveAPIKey(ctx, a.StorageManager.KeyValueStorage(), interfaces.KeyAnthropic, a.Config.Claude.APIKey)
	if err != nil {
		return nil, fmt.Errorf("Anthropic API key is required for --narrate (set ANTHROPIC_API_KEY): %w", err)
	}
	return llm.NewClaudeService(&a.Config.Claude, apiKey, a.Logger)
}

// EuroMacro builds the monthly macro review service. collect wires the KCIF
// scraper and search; synthesize wires a Claude narrator with the larger
// euro_macro token budget.
func (a *App) EuroMacro(ctx context.Context, collect, synthesize bool) (*euromacro.Service, error) {
	var scrape euromacro.Scraper
	var searcher euromacro.Searcher
	if collect {
		r, err := a.Retriever(ctx)
		if err != nil {
			return nil, err
		}
		scrape, searcher = a.Scraper(), r
	}

	var narrator interfaces.NarrativeService
	model := a.Config.Claude.Model
	if synthesize {
		apiKey, err := common.ResolveAPIKey(ctx, a.StorageManager.KeyValueStorage(), interfaces.KeyAnthropic, a.Config.Claude.APIKey)
		if err != nil {
			return nil, fmt.Errorf("Anthropic API key is required for synthesis (set ANTHROPIC_API_KEY): %w", err)
		}
		claude := a.Config.Claude
		claude.MaxTokens = a.Config.EuroMacro.MaxTokens
		svc, err := llm.NewClaudeService(&claude, apiKey, a.Logger)
		if err != nil {
			return nil, err
		}
		narrator, model = svc, svc.Model()
	}

	return euromacro.NewService(scrape, searcher, narrator, model, a.Config.EuroMacro, a.Logger), nil
}

// Publisher builds the Notion publisher and returns the parent page id
func (a *App) Publisher(ctx context.Context) (*notion.Publisher, string, error) {
	token, err := common.ResolveAPIKey(ctx, a.StorageManager.KeyValueStorage(), interfaces.KeyNotion, a.Config.Notion.Token)
	if err != nil {
		return nil, "", fmt.Errorf("NOTION_TOKEN not set in environment or .env")
	}
	if a.Config.Notion.PageID == "" {
		return nil, "", fmt.Errorf("NOTION_PAGE_ID not set in environment or .env")
	}
	return notion.NewPublisher(token, a.Logger), a.Config.Notion.PageID, nil
}

// MCPServer exposes the services that can be built with the available
// credentials; missing ones are logged and their tools left out.
func (a *App) MCPServer(ctx context.Context) *mcp.Server {
	var searcher mcp.Searcher
	if r, err := a.Retriever(ctx); err != nil {
		a.Logger.Warn().Err(err).Msg("Search tool disabled")
	} else {
		searcher = r
	}

	var analyzer mcp.Analyzer
	if svc, err := a.Investment(ctx); err != nil {
		a.Logger.Warn().Err(err).Msg("Analyze tool disabled")
	} else {
		analyzer = svc
	}

	return mcp.NewServer(searcher, a.StorageManager, analyzer, a.Logger)
}

// RunPipeline scrapes the latest listings, downloads new files and processes
// them. Used by the scheduler; a failing stage is logged and later stages still run.
func (a *App) RunPipeline(ctx context.Context) error {
	svc := a.Scraper()
	if stats, err := svc.Scrape(ctx, scraper.KCIFName, scraper.ListingOptions{}); err != nil {
		a.Logger.Warn().Err(err).Msg("Scheduled scrape failed")
	} else {
		a.Logger.Info().Int("found", stats.Found).Int("new", stats.New).Msg("Scheduled scrape complete")
	}

	if stats, err := svc.DownloadPending(ctx, 0); err != nil {
		a.Logger.Warn().Err(err).Msg("Scheduled download had failures")
	} else {
		a.Logger.Info().Int("downloaded", stats.Downloaded).Int("failed", stats.Failed).Msg("Scheduled download complete")
	}

	proc, err := a.Processing(ctx)
	if err != nil {
		return err
	}
	stats, err := proc.ProcessPending(ctx, processing.Options{
		Limit:        a.Config.Processing.Limit,
		CostLimitUSD: a.Config.Processing.CostLimitUSD,
	})
	if err != nil {
		return fmt.Errorf("scheduled processing failed: %w", err)
	}
	a.Logger.Info().
		Int("embedded", stats.Embedded).
		Int("failed", stats.Failed).
		Float64("cost_usd", stats.TotalCost).
		Msg("Scheduled processing complete")
	return nil
}

// Close releases the cache and the storage layer
func (a *App) Close() error {
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close cache")
		}
	}
	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
	}
	return nil
}
