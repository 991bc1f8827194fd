package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/indepth/internal/app"
	"github.com/ternarybob/indepth/internal/common"
)

const defaultConfigFile = "indepth.toml"

var (
	// Global flags
	configFiles []string
	verbose     bool
	storageType string

	// Command flags that feed common.ApplyFlagOverrides
	sheetsID     string
	credentials  string
	holdingsFile string
	provider     string
	costLimit    float64

	// Global state, set in PersistentPreRunE
	config *common.Config
	logger arbor.ILogger

	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

var rootCmd = &cobra.Command{
	Use:   "indepth",
	Short: "Full-spectrum investment analysis",
	Long: `InDepth scores a ticker across fundamental, technical, options, macro,
sentiment and portfolio dimensions, and maintains a searchable library of
economic research reports.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringArrayVarP(&configFiles, "config", "c", nil, "Configuration file path (repeatable, later files override earlier ones)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&storageType, "storage", "", "Storage backend: badger or sqlite (overrides config)")

	rootCmd.AddCommand(analyzeCmd, publishCmd, scrapeCmd, downloadCmd, processCmd,
		searchCmd, statusCmd, scheduleCmd, euroMacroCmd, mcpCmd, versionCmd)
}

// loadConfig resolves configuration: defaults, files, .env and environment,
// then command-line flags.
func loadConfig(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" {
		return nil
	}

	if len(configFiles) == 0 {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			configFiles = append(configFiles, defaultConfigFile)
		}
	}

	common.LoadDotEnv()

	cfg, err := common.LoadFromFiles(nil, configFiles...)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	common.ApplyFlagOverrides(cfg, common.FlagOverrides{
		Verbose:      verbose,
		StorageType:  storageType,
		Provider:     provider,
		SheetsID:     sheetsID,
		Credentials:  credentials,
		HoldingsFile: holdingsFile,
		CostLimitUSD: costLimit,
	})

	// keep stdout clean for interactive output; the MCP transport owns it entirely
	if !verbose || cmd.Name() == "mcp" {
		cfg.Logging.Output = fileOnly(cfg.Logging.Output)
	}

	config = cfg
	logger = common.SetupLogger(cfg)
	logger.Debug().
		Strs("config_files", configFiles).
		Str("storage", cfg.Storage.Type).
		Str("embedding", cfg.Embedding.Provider).
		Msg("Configuration loaded")
	return nil
}

func fileOnly(outputs []string) []string {
	var out []string
	for _, o := range outputs {
		if o == "file" {
			out = append(out, o)
		}
	}
	return out
}

func openApp(ctx context.Context) (*app.App, error) {
	a, err := app.New(ctx, config, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize application: %w", err)
	}
	return a, nil
}

// withTicker treats a bare first argument as "analyze ARG"
func withTicker(args []string) []string {
	if len(args) == 0 {
		return args
	}
	first := args[0]
	if first == "" || first[0] == '-' || first == "help" || first == "completion" {
		return args
	}
	for _, c := range rootCmd.Commands() {
		if c.Name() == first || c.HasAlias(first) {
			return args
		}
	}
	return append([]string{"analyze"}, args...)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetArgs(withTicker(os.Args[1:]))
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if ctx.Err() != nil {
			fmt.Fprintln(os.Stderr, warnStyle.Render("Cancelled."))
		} else {
			fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		}
		os.Exit(1)
	}
}
