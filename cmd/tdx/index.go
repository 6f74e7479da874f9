package main

import (
	"fmt"
	"time"

	"github.com/franz/tunedex/internal/util"
	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Reconcile the index with the filesystem",
	Long: `Reconcile the index with the filesystem below a path relative to the
library root (the whole library when omitted).

Rows for files and directories that no longer exist are deleted, new audio
files and directories are indexed. Running it twice without filesystem
changes in between does nothing the second time.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)

	indexCmd.Flags().Bool("no-recursive", false, "only reconcile the directory itself")
	indexCmd.Flags().Bool("meta", false, "extract metadata for newly indexed files")
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	noRecursive, _ := cmd.Flags().GetBool("no-recursive")
	withMeta, _ := cmd.Flags().GetBool("meta")

	a, err := openApp(cfg, appOptions{Progress: true, CascadeMeta: withMeta})
	if err != nil {
		return err
	}
	defer a.Close()

	relPath := ""
	if len(args) > 0 {
		relPath = args[0]
	}

	util.InfoLog("Reconciling %s", displayPath(a.library.BasePath(), relPath))
	start := time.Now()

	res, err := a.library.Reconcile(ctx, relPath, !noRecursive)
	if err != nil {
		return fmt.Errorf("reconcile failed: %w", err)
	}

	util.SuccessLog("Reconcile complete in %v", time.Since(start).Round(time.Millisecond))
	util.InfoLog("  Files indexed: %d", res.FilesIndexed)
	util.InfoLog("  Directories indexed: %d", res.DirsIndexed)
	util.InfoLog("  Files deleted: %d", res.FilesDeleted)
	util.InfoLog("  Directories deleted: %d", res.DirsDeleted)

	if !withMeta {
		st, err := a.store.GetStats()
		if err == nil && st.PendingMetadata > 0 {
			util.InfoLog("")
			util.InfoLog("%d files pending metadata. Next step: tdx meta", st.PendingMetadata)
		}
	}

	return nil
}

func displayPath(base, relPath string) string {
	if relPath == "" {
		return base
	}
	return base + "/" + relPath
}
