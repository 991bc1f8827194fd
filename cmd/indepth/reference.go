package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ternarybob/indepth/internal/services/processing"
	"github.com/ternarybob/indepth/internal/services/render"
	"github.com/ternarybob/indepth/internal/services/scraper"
	"github.com/ternarybob/indepth/internal/services/search"
)

var (
	scrapeSource string
	scrapeYear   int
	scrapeMonth  int
	scrapeLimit  int

	downloadLimit int
	processLimit  int

	searchTopK   int
	searchFrom   string
	searchTo     string
	searchSource string
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Catalog research report listings",
	Args:  cobra.NoArgs,
	RunE:  runScrape,
}

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download pending report files",
	Args:  cobra.NoArgs,
	RunE:  runDownload,
}

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Extract, chunk and embed downloaded reports",
	Args:  cobra.NoArgs,
	RunE:  runProcess,
}

var searchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Semantic search over embedded report chunks",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show reference library status and costs",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	scrapeCmd.Flags().StringVar(&scrapeSource, "source", scraper.KCIFName, "Report source to scrape")
	scrapeCmd.Flags().IntVar(&scrapeYear, "year", 0, "Only listings published in this year")
	scrapeCmd.Flags().IntVar(&scrapeMonth, "month", 0, "Only listings published in this month (requires --year)")
	scrapeCmd.Flags().IntVar(&scrapeLimit, "limit", 0, "Maximum listings to catalog (0 = all)")

	downloadCmd.Flags().IntVar(&downloadLimit, "limit", 0, "Maximum files to download (0 = all)")

	processCmd.Flags().IntVar(&processLimit, "limit", 0, "Maximum reports to process (0 = config value)")
	processCmd.Flags().Float64Var(&costLimit, "cost-limit", 0, "Stop when estimated spend reaches this many USD")
	processCmd.Flags().StringVar(&provider, "provider", "", "Embedding provider: local or gemini")

	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", search.DefaultTopK, "Number of results")
	searchCmd.Flags().StringVar(&searchFrom, "from", "", "Published on or after (YYYY-MM-DD)")
	searchCmd.Flags().StringVar(&searchTo, "to", "", "Published on or before (YYYY-MM-DD)")
	searchCmd.Flags().StringVar(&searchSource, "source", "", "Restrict to one source")
}

func runScrape(cmd *cobra.Command, args []string) error {
	if scrapeMonth != 0 && scrapeYear == 0 {
		return fmt.Errorf("--month requires --year")
	}

	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	stats, err := a.Scraper().Scrape(ctx, scrapeSource, scraper.ListingOptions{
		Year:  scrapeYear,
		Month: scrapeMonth,
		Limit: scrapeLimit,
	})
	if err != nil {
		return err
	}

	fmt.Println(successStyle.Render(fmt.Sprintf("Scraped %s: %d found, %d new, %d already cataloged",
		stats.Source, stats.Found, stats.New, stats.Existing)))
	return nil
}

func runDownload(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	stats, err := a.Scraper().DownloadPending(ctx, downloadLimit)
	if stats != nil {
		fmt.Printf("Downloaded %d of %d (%s); %d restricted, %d skipped, %d failed\n",
			stats.Downloaded, stats.Attempted, humanize.Bytes(uint64(stats.Bytes)),
			stats.Restricted, stats.Skipped, stats.Failed)
	}
	return err
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	svc, err := a.Processing(ctx)
	if err != nil {
		return err
	}

	limit := processLimit
	if limit == 0 {
		limit = config.Processing.Limit
	}

	stats, err := svc.ProcessPending(ctx, processing.Options{
		Limit:        limit,
		CostLimitUSD: config.Processing.CostLimitUSD,
	})
	if err != nil {
		return err
	}

	if stats.Considered == 0 {
		fmt.Println("No downloaded reports waiting to be processed. Run 'indepth download' first.")
		return nil
	}

	fmt.Printf("Processed %d reports in %s: %d extracted, %d chunked, %d embedded, %d failed\n",
		stats.Considered, stats.Duration.Round(100*time.Millisecond), stats.Extracted, stats.Chunked, stats.Embedded, stats.Failed)
	if stats.EmbedFailed > 0 {
		fmt.Fprintln(os.Stderr, warnStyle.Render(fmt.Sprintf("%d chunks could not be embedded; rerun to retry", stats.EmbedFailed)))
	}
	fmt.Printf("Estimated cost: $%.4f\n", stats.TotalCost)
	if stats.BudgetReached {
		fmt.Fprintln(os.Stderr, warnStyle.Render(fmt.Sprintf("Cost limit of $%.2f reached; %d reports left pending",
			config.Processing.CostLimitUSD, stats.Skipped)))
	}
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	retriever, err := a.Retriever(ctx)
	if err != nil {
		return err
	}

	res, err := retriever.Search(ctx, search.Query{
		Text:     strings.Join(args, " "),
		TopK:     searchTopK,
		DateFrom: searchFrom,
		DateTo:   searchTo,
		Source:   searchSource,
	})
	if err != nil {
		return err
	}

	fmt.Println(search.FormatResults(res))
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	summary, err := a.StorageManager.StatusSummary(ctx)
	if err != nil {
		return fmt.Errorf("failed to read status: %w", err)
	}
	costs, err := a.StorageManager.CostSummary(ctx)
	if err != nil {
		return fmt.Errorf("failed to read costs: %w", err)
	}

	fmt.Println(render.Status(summary, costs))
	return nil
}
