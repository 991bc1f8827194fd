package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var publishCmd = &cobra.Command{
	Use:   "publish MD_PATH",
	Short: "Publish a markdown report to Notion",
	Long:  `Creates a child page under NOTION_PAGE_ID. NOTION_TOKEN and NOTION_PAGE_ID are read from the environment or .env.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runPublish,
}

func runPublish(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	path := args[0]
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("file not found: %s", path)
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	publisher, parentID, err := a.Publisher(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stderr, "Publishing report to Notion...")
	url, err := publisher.PublishFile(ctx, path, parentID)
	if err != nil {
		return err
	}
	fmt.Println(successStyle.Render("Published to Notion: ") + url)
	return nil
}
