package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/franz/tunedex/internal/store"
	"github.com/franz/tunedex/internal/util"
	"github.com/spf13/cobra"
)

var lsCmd = &cobra.Command{
	Use:   "ls [path]",
	Short: "List an indexed directory",
	Long: `List the subdirectories and files the index holds for a path relative to
the library root. Directories along the path that exist on disk but are not
indexed yet are indexed on the way; the listing itself is not reconciled.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLs,
}

func init() {
	rootCmd.AddCommand(lsCmd)

	lsCmd.Flags().BoolP("long", "L", false, "show title, artist and album for files with metadata")
}

func runLs(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	long, _ := cmd.Flags().GetBool("long")

	a, err := openApp(cfg, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	relPath := ""
	if len(args) > 0 {
		relPath = args[0]
	}

	l, err := a.library.Browse(ctx, relPath)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	width := 0
	if f, ok := out.(*os.File); ok && util.IsTerminal(f) {
		width = util.GetTerminalWidth()
	}

	fmt.Fprintf(out, "/%s\n", l.CurrentPath)
	for _, d := range l.Directories {
		printLine(out, width, "  "+d.Path+"/")
	}
	for _, f := range l.Files {
		line := "  " + f.Filename
		if long {
			line += describeFile(a.store, f)
		}
		printLine(out, width, line)
	}

	if len(l.Directories) == 0 && len(l.Files) == 0 {
		fmt.Fprintln(out, "  (empty - run 'tdx index' to reconcile)")
	}
	return nil
}

// describeFile renders a file's metadata as a column suffix
func describeFile(s *store.Store, f *store.File) string {
	if f.MetaIndexedAt == nil {
		return "  [pending]"
	}
	if f.MetaDataID == 0 {
		return "  [no tags]"
	}

	md, err := s.GetMetaData(f.MetaDataID)
	if err != nil || md == nil {
		return ""
	}

	var parts []string
	if md.Title != nil {
		parts = append(parts, *md.Title)
	}
	if md.ArtistID != 0 {
		if artist, err := s.GetArtist(md.ArtistID); err == nil && artist != nil {
			parts = append(parts, artist.Name)
		}
	}
	if md.AlbumID != 0 {
		if album, err := s.GetAlbum(md.AlbumID); err == nil && album != nil {
			parts = append(parts, album.Name)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "  " + strings.Join(parts, " - ")
}

func printLine(w io.Writer, width int, line string) {
	if width > 0 && len([]rune(line)) > width {
		line = string([]rune(line)[:width-1]) + "…"
	}
	fmt.Fprintln(w, line)
}
