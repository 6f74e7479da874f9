package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/franz/tunedex/internal/util"
	"github.com/spf13/cobra"
)

var artCmd = &cobra.Command{
	Use:   "art <path>",
	Short: "Resolve cover artwork for a file or directory",
	Long: `Resolve cover artwork for a path relative to the library root.

The first source that yields an image wins:
1. the picture embedded in the file's tags (files only)
2. the artwork cache
3. an image in the album folder (cover.jpg, folder.png, ...)
4. MusicBrainz / Cover Art Archive, when media.fetch_album_art is enabled

The image is written to --output, or to stdout when it is not a terminal.`,
	Args: cobra.ExactArgs(1),
	RunE: runArt,
}

var artClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Empty the artwork cache",
	Args:  cobra.NoArgs,
	RunE:  runArtClear,
}

func init() {
	rootCmd.AddCommand(artCmd)
	artCmd.AddCommand(artClearCmd)

	artCmd.Flags().StringP("output", "o", "", "write the image to this file")
	artClearCmd.Flags().Duration("lookups-older-than", 0, "also forget online lookups cached longer ago than this (0 forgets all)")
}

func runArt(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	output, _ := cmd.Flags().GetString("output")

	a, err := openApp(cfg, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	start := time.Now()
	res, err := a.library.ResolveArtwork(ctx, args[0])
	if err != nil {
		return err
	}

	util.InfoLog("Found %s artwork from %s (%s) in %v",
		res.MIME, res.Source, humanize.Bytes(uint64(len(res.Data))), time.Since(start).Round(time.Millisecond))

	switch {
	case output != "":
		if err := os.WriteFile(output, res.Data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", output, err)
		}
		util.SuccessLog("Wrote %s", output)
	case !util.IsTerminal(os.Stdout):
		if _, err := cmd.OutOrStdout().Write(res.Data); err != nil {
			return fmt.Errorf("failed to write image: %w", err)
		}
	default:
		util.InfoLog("Use --output or redirect stdout to save the image")
	}

	return nil
}

func runArtClear(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	olderThan, _ := cmd.Flags().GetDuration("lookups-older-than")

	a, err := openApp(cfg, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	files, err := a.artwork.Cache().Clear()
	if err != nil {
		return err
	}
	lookups, err := a.store.ClearArtworkLookups(olderThan)
	if err != nil {
		return err
	}

	util.SuccessLog("Removed %d cached images and %d online lookups", files, lookups)
	return nil
}
