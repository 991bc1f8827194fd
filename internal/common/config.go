package common

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"

	"github.com/ternarybob/indepth/internal/interfaces"
)

// Config represents the application configuration
type Config struct {
	Storage    StorageConfig    `toml:"storage"`
	Logging    LoggingConfig    `toml:"logging"`
	Analysis   AnalysisConfig   `toml:"analysis"`
	EODHD      EODHDConfig      `toml:"eodhd"`
	Cache      CacheConfig      `toml:"cache"`
	Portfolio  PortfolioConfig  `toml:"portfolio"`
	Reference  ReferenceConfig  `toml:"reference"`
	Embedding  EmbeddingConfig  `toml:"embedding"`
	Processing ProcessingConfig `toml:"processing"`
	Scraper    ScraperConfig    `toml:"scraper"`
	Claude     ClaudeConfig     `toml:"claude"`
	Notion     NotionConfig     `toml:"notion"`
	EuroMacro  EuroMacroConfig  `toml:"euro_macro"`
}

type StorageConfig struct {
	Type    string       `toml:"type" validate:"oneof=badger sqlite"` // "badger" (default) or "sqlite"
	KeysDir string       `toml:"keys_dir"`                            // TOML files seeding the KV store with API keys
	Badger  BadgerConfig `toml:"badger"`
	SQLite  SQLiteConfig `toml:"sqlite"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// SQLiteConfig represents SQLite-specific configuration
type SQLiteConfig struct {
	Path          string `toml:"path"`
	CacheSizeMB   int    `toml:"cache_size_mb"`
	WALMode       bool   `toml:"wal_mode"`
	BusyTimeoutMS int    `toml:"busy_timeout_ms"`
}

type LoggingConfig struct {
	Level  string   `toml:"level" validate:"oneof=trace debug info warn error"`
	Output []string `toml:"output"` // "stdout", "console", "file"
}

// AnalysisConfig controls the investment analysis run
type AnalysisConfig struct {
	Weights         WeightsConfig     `toml:"weights"`
	HistoryDays     int               `toml:"history_days" validate:"gte=30"` // Calendar days of daily bars to request
	DefaultExchange string            `toml:"default_exchange"`               // EODHD exchange suffix for bare tickers
	ReportsDir      string            `toml:"reports_dir"`                    // Markdown output directory for analyze
	SectorETFs      map[string]string `toml:"sector_etfs"`                    // Overrides for the sector to ETF map
}

// WeightsConfig holds the base weight of each analysis dimension
type WeightsConfig struct {
	Fundamental float64 `toml:"fundamental" validate:"gte=0"`
	Technical   float64 `toml:"technical" validate:"gte=0"`
	Options     float64 `toml:"options" validate:"gte=0"`
	Macro       float64 `toml:"macro" validate:"gte=0"`
	Sentiment   float64 `toml:"sentiment" validate:"gte=0"`
	Portfolio   float64 `toml:"portfolio" validate:"gte=0"`
}

type EODHDConfig struct {
	APIKey    string  `toml:"api_key"`
	BaseURL   string  `toml:"base_url"`
	RateLimit float64 `toml:"rate_limit"` // Requests per second
	Timeout   string  `toml:"timeout"`
}

// CacheConfig controls caching of upstream market data
type CacheConfig struct {
	Backend   string `toml:"backend" validate:"oneof=none badger redis"`
	RedisAddr string `toml:"redis_addr"`
	TTL       string `toml:"ttl"`
}

// PortfolioConfig locates current holdings
type PortfolioConfig struct {
	SheetsID        string `toml:"sheets_id"`        // Google Sheets spreadsheet id
	CredentialsFile string `toml:"credentials_file"` // Service account JSON
	Range           string `toml:"range"`            // A1 range; first row is the header
	HoldingsFile    string `toml:"holdings_file"`    // YAML alternative to Sheets
}

// ReferenceConfig controls the research report corpus
type ReferenceConfig struct {
	DownloadDir  string `toml:"download_dir"`
	TargetTokens int    `toml:"target_tokens" validate:"gt=0"`
	MinTokens    int    `toml:"min_tokens" validate:"gt=0"`
	MaxTokens    int    `toml:"max_tokens" validate:"gtfield=MinTokens"`
}

type EmbeddingConfig struct {
	Provider     string `toml:"provider" validate:"oneof=local gemini"`
	LocalModel   string `toml:"local_model"`
	LocalURL     string `toml:"local_url"` // llama-server started with --embedding
	GeminiModel  string `toml:"gemini_model"`
	GeminiAPIKey string `toml:"gemini_api_key"`
	Dimension    int    `toml:"dimension" validate:"gt=0"`
}

type ProcessingConfig struct {
	Schedule     string  `toml:"schedule"` // Cron schedule format (with seconds)
	Limit        int     `toml:"limit"`    // Max reports per run, 0 = unlimited
	CostLimitUSD float64 `toml:"cost_limit_usd" validate:"gte=0"`
	Workers      int     `toml:"workers" validate:"gt=0"`
}

type ScraperConfig struct {
	UserAgent string  `toml:"user_agent"`
	RateLimit float64 `toml:"rate_limit"` // Requests per second
	Timeout   string  `toml:"timeout"`
	MaxPages  int     `toml:"max_pages" validate:"gt=0"`
	Workers   int     `toml:"workers" validate:"gt=0"`
}

// ClaudeConfig contains Anthropic Claude API configuration for the report narrative
type ClaudeConfig struct {
	APIKey    string `toml:"api_key"`
	Model     string `toml:"model"`
	MaxTokens int    `toml:"max_tokens"`
	Timeout   string `toml:"timeout"`
}

// EuroMacroConfig tunes the monthly European macro report
type EuroMacroConfig struct {
	TopK      int     `toml:"top_k" validate:"gt=0"`      // Hits kept per research query
	MinScore  float64 `toml:"min_score"`                  // Hits scoring below this are dropped
	MaxTokens int     `toml:"max_tokens" validate:"gt=0"` // Synthesis response budget
}

type NotionConfig struct {
	Token  string `toml:"token"`
	PageID string `toml:"page_id"` // Parent page for published reports
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Type:    "badger",
			KeysDir: "./keys",
			Badger: BadgerConfig{
				Path: "./data/indepth",
			},
			SQLite: SQLiteConfig{
				Path:          "./data/indepth.db",
				CacheSizeMB:   64,
				WALMode:       true,
				BusyTimeoutMS: 5000,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
		Analysis: AnalysisConfig{
			Weights: WeightsConfig{
				Fundamental: 0.30,
				Technical:   0.20,
				Options:     0.15,
				Macro:       0.15,
				Sentiment:   0.10,
				Portfolio:   0.10,
			},
			HistoryDays:     400,
			DefaultExchange: "US",
			ReportsDir:      "reports",
		},
		EODHD: EODHDConfig{
			BaseURL:   "https://eodhd.com/api",
			RateLimit: 10,
			Timeout:   "30s",
		},
		Cache: CacheConfig{
			Backend: "badger",
			TTL:     "6h",
		},
		Portfolio: PortfolioConfig{
			Range: "A:F",
		},
		Reference: ReferenceConfig{
			DownloadDir:  "./data/reports",
			TargetTokens: 320,
			MinTokens:    256,
			MaxTokens:    384,
		},
		Embedding: EmbeddingConfig{
			Provider:    "local",
			LocalModel:  "nomic-ai/nomic-embed-text-v2-moe",
			LocalURL:    "http://127.0.0.1:8086",
			GeminiModel: "text-embedding-004",
			Dimension:   768,
		},
		Processing: ProcessingConfig{
			Schedule: "0 0 */6 * * *",
			Workers:  4,
		},
		Scraper: ScraperConfig{
			UserAgent: UserAgent(),
			RateLimit: 1,
			Timeout:   "30s",
			MaxPages:  10,
			Workers:   2,
		},
		Claude: ClaudeConfig{
			Model:     "claude-haiku-4-5",
			MaxTokens: 2048,
			Timeout:   "2m",
		},
		EuroMacro: EuroMacroConfig{
			TopK:      5,
			MinScore:  0.3,
			MaxTokens: 8192,
		},
	}
}

// LoadFromFile loads configuration from a single file
func LoadFromFile(kvStorage interfaces.KeyValueStorage, path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles(kvStorage)
	}
	return LoadFromFiles(kvStorage, path)
}

// LoadFromFiles loads defaults, merges each file in order (later files win),
// then applies environment overrides and validates the result.
func LoadFromFiles(kvStorage interfaces.KeyValueStorage, paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadDotEnv loads .env files into the process environment. Missing files are ignored.
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		_ = godotenv.Load(p)
	}
}

// Validate checks struct constraints and the cron schedule
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(c.Processing.Schedule); err != nil {
		return fmt.Errorf("invalid processing schedule %q: %w", c.Processing.Schedule, err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if storageType := os.Getenv("INDEPTH_STORAGE_TYPE"); storageType != "" {
		config.Storage.Type = strings.ToLower(storageType)
	}
	if badgerPath := os.Getenv("INDEPTH_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}
	if sqlitePath := os.Getenv("INDEPTH_SQLITE_PATH"); sqlitePath != "" {
		config.Storage.SQLite.Path = sqlitePath
	}

	if level := os.Getenv("INDEPTH_LOG_LEVEL"); level != "" {
		config.Logging.Level = strings.ToLower(level)
	}
	if output := os.Getenv("INDEPTH_LOG_OUTPUT"); output != "" {
		var outputs []string
		for _, o := range strings.Split(output, ",") {
			if o = strings.TrimSpace(o); o != "" {
				outputs = append(outputs, o)
			}
		}
		config.Logging.Output = outputs
	}

	if apiKey := os.Getenv("INDEPTH_EODHD_API_KEY"); apiKey != "" {
		config.EODHD.APIKey = apiKey
	} else if apiKey := os.Getenv("EODHD_API_KEY"); apiKey != "" {
		config.EODHD.APIKey = apiKey
	}

	if backend := os.Getenv("INDEPTH_CACHE_BACKEND"); backend != "" {
		config.Cache.Backend = strings.ToLower(backend)
	}
	if addr := os.Getenv("INDEPTH_REDIS_ADDR"); addr != "" {
		config.Cache.RedisAddr = addr
	}

	if sheetsID := os.Getenv("INDEPTH_SHEETS_ID"); sheetsID != "" {
		config.Portfolio.SheetsID = sheetsID
	}
	if creds := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); creds != "" && config.Portfolio.CredentialsFile == "" {
		config.Portfolio.CredentialsFile = creds
	}

	if dir := os.Getenv("INDEPTH_DOWNLOAD_DIR"); dir != "" {
		config.Reference.DownloadDir = dir
	}

	if provider := os.Getenv("INDEPTH_EMBEDDING_PROVIDER"); provider != "" {
		config.Embedding.Provider = strings.ToLower(provider)
	}
	if url := os.Getenv("INDEPTH_EMBEDDING_URL"); url != "" {
		config.Embedding.LocalURL = url
	}

	if costLimit := os.Getenv("INDEPTH_COST_LIMIT_USD"); costLimit != "" {
		if v, err := strconv.ParseFloat(costLimit, 64); err == nil {
			config.Processing.CostLimitUSD = v
		}
	}
	if schedule := os.Getenv("INDEPTH_PROCESSING_SCHEDULE"); schedule != "" {
		config.Processing.Schedule = schedule
	}

	if model := os.Getenv("INDEPTH_CLAUDE_MODEL"); model != "" {
		config.Claude.Model = model
	}

	if token := os.Getenv("NOTION_TOKEN"); token != "" {
		config.Notion.Token = token
	}
	if pageID := os.Getenv("NOTION_PAGE_ID"); pageID != "" {
		config.Notion.PageID = pageID
	}
}

// FlagOverrides carries command-line values that take precedence over files and env
type FlagOverrides struct {
	Verbose      bool
	StorageType  string
	Provider     string
	SheetsID     string
	Credentials  string
	HoldingsFile string
	CostLimitUSD float64
}

// ApplyFlagOverrides applies command-line flag overrides to config.
// Flags have the highest priority.
func ApplyFlagOverrides(config *Config, flags FlagOverrides) {
	if flags.Verbose {
		config.Logging.Level = "debug"
	}
	if flags.StorageType != "" {
		config.Storage.Type = flags.StorageType
	}
	if flags.Provider != "" {
		config.Embedding.Provider = flags.Provider
	}
	if flags.SheetsID != "" {
		config.Portfolio.SheetsID = flags.SheetsID
	}
	if flags.Credentials != "" {
		config.Portfolio.CredentialsFile = flags.Credentials
	}
	if flags.HoldingsFile != "" {
		config.Portfolio.HoldingsFile = flags.HoldingsFile
	}
	if flags.CostLimitUSD > 0 {
		config.Processing.CostLimitUSD = flags.CostLimitUSD
	}
}

// ParseDuration parses a duration string, returning fallback when empty or malformed
func ParseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// ResolveAPIKey resolves an API key by name with priority:
// environment variables, then KV store, then the config fallback.
func ResolveAPIKey(ctx context.Context, kvStorage interfaces.KeyValueStorage, name string, configFallback string) (string, error) {
	keyToEnvMapping := map[string][]string{
		interfaces.KeyEODHD:     {"INDEPTH_EODHD_API_KEY", "EODHD_API_KEY"},
		interfaces.KeyGemini:    {"INDEPTH_GEMINI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"},
		interfaces.KeyAnthropic: {"INDEPTH_CLAUDE_API_KEY", "ANTHROPIC_API_KEY"},
		interfaces.KeyNotion:    {"NOTION_TOKEN"},
	}

	if envVarNames, ok := keyToEnvMapping[name]; ok {
		for _, envVarName := range envVarNames {
			if envValue := os.Getenv(envVarName); envValue != "" {
				return envValue, nil
			}
		}
	}

	if kvStorage != nil {
		apiKey, err := kvStorage.Get(ctx, name)
		if err == nil && apiKey != "" {
			return apiKey, nil
		}
	}

	if configFallback != "" {
		return configFallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment, KV store, or config", name)
}
