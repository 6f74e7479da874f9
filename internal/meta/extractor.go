package meta

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/franz/tunedex/internal/report"
	"github.com/franz/tunedex/internal/store"
	"github.com/franz/tunedex/internal/util"
)

// Extractor maps tag data onto MetaData rows
type Extractor struct {
	store  *store.Store
	reader TagReader
	dedup  *Deduplicator
	logger *report.EventLogger
	now    func() time.Time
}

// Config holds extractor configuration
type Config struct {
	Store  *store.Store
	Reader TagReader
	Logger *report.EventLogger
}

// New creates a new metadata extractor
func New(cfg *Config) *Extractor {
	return &Extractor{
		store:  cfg.Store,
		reader: cfg.Reader,
		dedup:  NewDeduplicator(cfg.Store),
		logger: cfg.Logger,
		now:    time.Now,
	}
}

// Result summarizes a metadata backfill
type Result struct {
	Processed    int
	WithMetadata int
	Skipped      int // stamped without metadata because tags were unreadable
}

// Extract reads the tags of the file at path and persists exactly one
// MetaData row. Unreadable tags yield (nil, nil) and no row; only store
// failures are returned as errors.
func (e *Extractor) Extract(ctx context.Context, path string) (*store.MetaData, error) {
	tags, err := e.reader.ReadTags(ctx, path)
	if err != nil {
		if errors.Is(err, util.ErrTagRead) {
			util.DebugLog("No readable tags in %s: %v", path, err)
			return nil, nil
		}
		return nil, err
	}

	artist, err := e.dedup.GetOrCreateArtist(tags.Artist)
	if err != nil {
		return nil, err
	}

	albumArtist := artist
	if strings.TrimSpace(tags.AlbumArtist) != "" {
		aa, err := e.dedup.GetOrCreateArtist(tags.AlbumArtist)
		if err != nil {
			return nil, err
		}
		if aa != nil {
			albumArtist = aa
		}
	}

	md := &store.MetaData{
		Track:      parseOptionalInt(tags.Track),
		TrackTotal: parseOptionalInt(tags.TrackTotal),
		Year:       parseOptionalInt(tags.Year),
		Duration:   tags.Duration,
	}
	if title := strings.TrimSpace(tags.Title); title != "" {
		md.Title = &title
	}
	if artist != nil {
		md.ArtistID = artist.ID
	}

	if strings.TrimSpace(tags.Album) != "" {
		album, err := e.dedup.GetOrCreateAlbum(tags.Album, albumArtist)
		if err != nil {
			return nil, err
		}
		if album != nil {
			md.AlbumID = album.ID
		}
	}

	if strings.TrimSpace(tags.Genre) != "" {
		genre, err := e.dedup.GetOrCreateGenre(tags.Genre)
		if err != nil {
			return nil, err
		}
		if genre != nil {
			md.GenreID = genre.ID
		}
	}

	if err := e.store.InsertMetaData(md); err != nil {
		return nil, err
	}

	return md, nil
}

// UpdateFile extracts metadata for a file located at path, attaches the
// result (possibly none) and stamps meta_indexed_at. A file with unreadable
// tags is stamped too, so it is not retried.
func (e *Extractor) UpdateFile(ctx context.Context, file *store.File, path string) (*store.MetaData, error) {
	md, err := e.Extract(ctx, path)
	if err != nil {
		e.logger.LogMeta(path, false, err)
		return nil, fmt.Errorf("failed to extract metadata for %s: %w", path, err)
	}

	var metaID int64
	if md != nil {
		metaID = md.ID
	}
	if err := e.store.SetFileMetadata(file.ID, metaID, e.now()); err != nil {
		e.logger.LogMeta(path, false, err)
		return nil, err
	}

	e.logger.LogMeta(path, md != nil, nil)
	return md, nil
}

// ReindexMissing runs extraction for every file that has never been
// through it, sequentially.
func (e *Extractor) ReindexMissing(ctx context.Context) (*Result, error) {
	files, err := e.store.FilesMissingMetadata()
	if err != nil {
		return nil, err
	}

	result := &Result{}
	if len(files) == 0 {
		util.DebugLog("No files pending metadata")
		return result, nil
	}
	util.InfoLog("Extracting metadata for %d files", len(files))

	dirPaths := make(map[int64]string)
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		dir, ok := dirPaths[f.DirectoryID]
		if !ok {
			dir, err = e.store.AbsolutePath(f.DirectoryID)
			if err != nil {
				return result, err
			}
			dirPaths[f.DirectoryID] = dir
		}

		md, err := e.UpdateFile(ctx, f, filepath.Join(dir, f.Filename))
		if err != nil {
			return result, err
		}

		result.Processed++
		if md != nil {
			result.WithMetadata++
		} else {
			result.Skipped++
		}

		if result.Processed%500 == 0 {
			util.InfoLog("Metadata: %d/%d files", result.Processed, len(files))
		}
	}

	return result, nil
}

// parseOptionalInt returns nil for blank or non-integer text
func parseOptionalInt(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}
