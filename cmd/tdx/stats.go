package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index and artwork cache statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := openApp(cfg, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	st, err := a.library.Stats()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Library:          %s\n", a.library.BasePath())
	fmt.Fprintf(out, "Database:         %s", cfg.DB)
	if info, err := os.Stat(cfg.DB); err == nil {
		fmt.Fprintf(out, " (%s)", humanize.Bytes(uint64(info.Size())))
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Directories:      %s\n", humanize.Comma(int64(st.Directories)))
	fmt.Fprintf(out, "Files:            %s\n", humanize.Comma(int64(st.Files)))
	fmt.Fprintf(out, "  with metadata:  %s\n", humanize.Comma(int64(st.WithMetadata)))
	fmt.Fprintf(out, "  pending:        %s\n", humanize.Comma(int64(st.PendingMetadata)))
	fmt.Fprintf(out, "Artists:          %s\n", humanize.Comma(int64(st.Artists)))
	fmt.Fprintf(out, "Albums:           %s\n", humanize.Comma(int64(st.Albums)))
	fmt.Fprintf(out, "Genres:           %s\n", humanize.Comma(int64(st.Genres)))
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Artwork cache:    %s images, %s (%s)\n",
		humanize.Comma(int64(st.CacheFiles)), humanize.Bytes(uint64(st.CacheBytes)), cfg.Artwork.CacheDir)
	fmt.Fprintf(out, "Online lookups:   %s\n", humanize.Comma(int64(st.ArtworkLookups)))

	return nil
}
