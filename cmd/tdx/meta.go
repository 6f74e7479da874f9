package main

import (
	"fmt"
	"time"

	"github.com/franz/tunedex/internal/util"
	"github.com/spf13/cobra"
)

var metaCmd = &cobra.Command{
	Use:   "meta",
	Short: "Extract metadata for indexed files that have none yet",
	Long: `Read tags from every indexed file that has never been through metadata
extraction and store the result.

Files with unreadable tags are marked as processed without metadata and are
not retried.`,
	Args: cobra.NoArgs,
	RunE: runMeta,
}

func init() {
	rootCmd.AddCommand(metaCmd)
}

func runMeta(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := openApp(cfg, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	start := time.Now()
	res, err := a.library.BackfillMetadata(ctx)
	if err != nil {
		return fmt.Errorf("metadata extraction failed: %w", err)
	}

	util.SuccessLog("Extraction complete in %v", time.Since(start).Round(time.Millisecond))
	util.InfoLog("  Files processed: %d", res.Processed)
	util.InfoLog("  With metadata: %d", res.WithMetadata)
	if res.Skipped > 0 {
		util.WarnLog("  Unreadable tags: %d", res.Skipped)
	}

	return nil
}
