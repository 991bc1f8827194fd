package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ternarybob/indepth/internal/common"
	"github.com/ternarybob/indepth/internal/services/processing"
)

var (
	runNow         bool
	runTimeout     time.Duration
	scheduleString string
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Scrape, download and process reports on a cron schedule",
	Long: `Runs the reference pipeline (scrape, download, process) on the configured
cron schedule until interrupted. Overlapping runs are skipped.`,
	Args: cobra.NoArgs,
	RunE: runSchedule,
}

func init() {
	scheduleCmd.Flags().BoolVar(&runNow, "now", false, "Run once immediately before waiting for the schedule")
	scheduleCmd.Flags().DurationVar(&runTimeout, "timeout", 30*time.Minute, "Maximum duration of one run")
	scheduleCmd.Flags().StringVar(&scheduleString, "cron", "", "Cron expression with seconds (overrides config)")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	schedule := config.Processing.Schedule
	if scheduleString != "" {
		schedule = scheduleString
	}
	if schedule == "" {
		schedule = processing.DefaultSchedule
	}

	common.PrintBanner(common.GetVersion())

	scheduler := processing.NewScheduler(a.RunPipeline, runTimeout, logger)
	if err := scheduler.Start(schedule); err != nil {
		return err
	}
	defer scheduler.Stop()

	fmt.Printf("Scheduler running (%s). Press Ctrl+C to stop.\n", schedule)
	if runNow {
		scheduler.RunNow()
	}

	<-ctx.Done()
	fmt.Println("Stopping scheduler...")
	return nil
}
