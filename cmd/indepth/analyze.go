package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ternarybob/indepth/internal/app"
	"github.com/ternarybob/indepth/internal/models"
	"github.com/ternarybob/indepth/internal/services/llm"
	"github.com/ternarybob/indepth/internal/services/pdf"
	"github.com/ternarybob/indepth/internal/services/render"
	"github.com/ternarybob/indepth/internal/services/search"
)

const narrativeReferences = 5

var (
	narrate   bool
	exportPDF bool
	noSave    bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze TICKER",
	Short: "Run investment analysis",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&sheetsID, "sheets-id", "", "Google Sheets ID for portfolio")
	analyzeCmd.Flags().StringVar(&credentials, "credentials", "", "Path to Google service account JSON")
	analyzeCmd.Flags().StringVar(&holdingsFile, "holdings", "", "YAML holdings file (alternative to Sheets)")
	analyzeCmd.Flags().BoolVar(&narrate, "narrate", false, "Append a Claude-written narrative to the report")
	analyzeCmd.Flags().BoolVar(&exportPDF, "pdf", false, "Also export the report as PDF")
	analyzeCmd.Flags().BoolVar(&noSave, "no-save", false, "Print only; do not write the markdown report")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	svc, err := a.Investment(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Analyzing %s...\n", strings.ToUpper(args[0]))
	report, data, err := svc.Analyze(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Println(render.Console(report))

	if narrate {
		if err := addNarrative(ctx, a, report, data); err != nil {
			// the report is still useful without commentary
			fmt.Fprintln(os.Stderr, warnStyle.Render("Narrative unavailable: "+err.Error()))
		}
	}

	markdown := render.Markdown(report, data)
	if noSave {
		return nil
	}

	dir := config.Analysis.ReportsDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create reports directory: %w", err)
	}
	path := filepath.Join(dir, render.ReportFileName(report))
	if err := os.WriteFile(path, []byte(markdown), 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	fmt.Println(successStyle.Render("Report saved to " + path))

	if exportPDF {
		title := fmt.Sprintf("%s (%s)", report.CompanyName, report.Ticker)
		content, err := pdf.NewExporter(logger).Export(markdown, title)
		if err != nil {
			return err
		}
		pdfPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".pdf"
		if err := os.WriteFile(pdfPath, content, 0o644); err != nil {
			return fmt.Errorf("failed to write PDF: %w", err)
		}
		fmt.Println(successStyle.Render("PDF saved to " + pdfPath))
	}
	return nil
}

// addNarrative asks Claude for commentary, grounding it in matching research
// passages when the reference library has any.
func addNarrative(ctx context.Context, a *app.App, report *models.InvestmentReport, data *models.ReportData) error {
	narrator, err := a.Narrator(ctx)
	if err != nil {
		return err
	}

	var references []string
	if retriever, err := a.Retriever(ctx); err == nil {
		query := strings.TrimSpace(report.CompanyName + " " + report.Sector)
		if res, err := retriever.Search(ctx, search.Query{Text: query, TopK: narrativeReferences}); err == nil {
			for _, h := range res.Hits {
				title := h.Chunk.ReportID
				if h.Report != nil {
					title = h.Report.Title
					if h.Report.PublishedDate != "" {
						title += " (" + h.Report.PublishedDate + ")"
					}
				}
				references = append(references, title+": "+search.Excerpt(h.Chunk.Content))
			}
		} else {
			logger.Debug().Err(err).Msg("Reference search skipped")
		}
	}

	return llm.AddNarrative(ctx, narrator, report, render.Markdown(report, data), references)
}
