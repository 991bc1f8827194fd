package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ternarybob/indepth/internal/models"
	"github.com/ternarybob/indepth/internal/services/euromacro"
	"github.com/ternarybob/indepth/internal/services/render"
)

var (
	macroYear         int
	macroMonth        int
	macroCollectOnly  bool
	macroFromFindings string
	macroFindingsPath string
	macroSkipUpdate   bool
)

var euroMacroCmd = &cobra.Command{
	Use:   "euro-macro",
	Short: "Write the monthly European macro review from KCIF research",
	Long: `Collects KCIF findings for a month by semantic search and has Claude
synthesize them into a markdown review.

  indepth euro-macro --year 2025 --month 3                  collect and synthesize
  indepth euro-macro --year 2025 --month 3 --collect-only   write findings.json only
  indepth euro-macro --from-findings reports/euro_macro/2025-03-findings.json`,
	Args: cobra.NoArgs,
	RunE: runEuroMacro,
}

func init() {
	euroMacroCmd.Flags().IntVar(&macroYear, "year", 0, "Report year (default: current)")
	euroMacroCmd.Flags().IntVar(&macroMonth, "month", 0, "Report month 1-12 (default: current)")
	euroMacroCmd.Flags().BoolVar(&macroCollectOnly, "collect-only", false, "Collect findings and save them without synthesis")
	euroMacroCmd.Flags().StringVar(&macroFromFindings, "from-findings", "", "Synthesize from a saved findings file")
	euroMacroCmd.Flags().StringVar(&macroFindingsPath, "findings", "", "Findings output path for --collect-only")
	euroMacroCmd.Flags().BoolVar(&macroSkipUpdate, "skip-update", false, "Do not refresh the KCIF catalog before searching")
	euroMacroCmd.MarkFlagsMutuallyExclusive("collect-only", "from-findings")
}

func runEuroMacro(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	now := time.Now()
	year, month := macroYear, macroMonth
	if year == 0 {
		year = now.Year()
	}
	if month == 0 {
		month = int(now.Month())
	}

	var saved *models.FindingsFile
	if macroFromFindings != "" {
		f, err := euromacro.LoadFindings(macroFromFindings)
		if err != nil {
			return err
		}
		saved = f
		year, month = f.Meta.Year, f.Meta.Month
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	svc, err := a.EuroMacro(ctx, saved == nil, !macroCollectOnly)
	if err != nil {
		return err
	}

	var results []models.AgentResult
	if saved != nil {
		results = saved.AgentResults
	} else {
		results, err = svc.Collect(ctx, year, month, macroSkipUpdate)
		if err != nil {
			return err
		}
	}
	fmt.Print(render.EuroMacroSummary(results))

	if macroCollectOnly {
		path := macroFindingsPath
		if path == "" {
			path = euromacro.FindingsPath(config.Analysis.ReportsDir, year, month)
		}
		if err := euromacro.SaveFindings(path, results, year, month); err != nil {
			return err
		}
		fmt.Println(successStyle.Render("Findings saved to " + path))
		return nil
	}

	report, err := svc.Synthesize(ctx, results, year, month)
	if err != nil {
		return err
	}

	dir := filepath.Join(config.Analysis.ReportsDir, "euro_macro")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create reports directory: %w", err)
	}
	path := filepath.Join(dir, render.EuroMacroFileName(report))
	if err := os.WriteFile(path, []byte(render.EuroMacro(report)), 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	fmt.Printf("%s: %d sections from %d findings\n", report.Title, len(report.Sections), report.TotalFindings)
	fmt.Println(successStyle.Render("Report saved to " + path))
	return nil
}
