package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ternarybob/indepth/internal/common"
	"github.com/ternarybob/indepth/internal/services/euromacro"
	"github.com/ternarybob/indepth/internal/storage/sqlite"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version, storage schema and findings format",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%s %s\n", common.AppName, common.GetFullVersion())
		fmt.Printf("  sqlite schema:   v%d\n", sqlite.SchemaVersion)
		fmt.Printf("  findings format: %s\n", euromacro.PipelineVersion)
	},
}
