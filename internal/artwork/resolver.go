// Package artwork resolves cover images for library paths through an
// ordered fallback chain: embedded tags, the disk cache, local folder
// files, then an optional online source.
package artwork

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/franz/tunedex/internal/meta"
	"github.com/franz/tunedex/internal/report"
	"github.com/franz/tunedex/internal/util"
	"github.com/h2non/filetype"
	"github.com/spf13/afero"
)

// Source names the step of the chain that produced an image
type Source string

const (
	SourceEmbedded Source = "embedded"
	SourceCache    Source = "cache"
	SourceLocal    Source = "local"
	SourceOnline   Source = "online"
)

// Result is a resolved image
type Result struct {
	Data   []byte
	MIME   string
	Source Source
}

// Resolver walks the artwork fallback chain
type Resolver struct {
	fs      afero.Fs
	reader  meta.TagReader
	cache   *Cache
	maxSize int
	online  OnlineSource
	logger  *report.EventLogger
}

// Config holds resolver configuration
type Config struct {
	Fs       afero.Fs
	Reader   meta.TagReader
	CacheDir string
	MaxSize  int
	// Online is consulted last; nil disables online fetching
	Online OnlineSource
	Logger *report.EventLogger
}

// NewResolver creates an artwork resolver
func NewResolver(cfg *Config) *Resolver {
	return &Resolver{
		fs:      cfg.Fs,
		reader:  cfg.Reader,
		cache:   NewCache(cfg.Fs, cfg.CacheDir),
		maxSize: cfg.MaxSize,
		online:  cfg.Online,
		logger:  cfg.Logger,
	}
}

// Cache returns the resolver's disk cache
func (r *Resolver) Cache() *Cache {
	return r.cache
}

// Resolve returns artwork for path, which may be an audio file or a
// directory. The first step that yields an image wins:
//
//  1. a regular file's embedded picture (never cached); without one, path
//     is retargeted to the file's directory
//  2. the cache entry for the directory
//  3. a local image in the directory, cached only when it was resized
//  4. the online source, if configured; its bytes are always cached
//
// Online failures are swallowed. When nothing is found, or path does not
// exist, the error wraps util.ErrNotFound.
func (r *Resolver) Resolve(ctx context.Context, path string) (*Result, error) {
	start := time.Now()
	path = filepath.Clean(path)

	info, err := r.fs.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, util.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	dir := path
	if info.Mode().IsRegular() {
		if data := r.embedded(ctx, path); data != nil {
			return r.found(path, data, SourceEmbedded, start), nil
		}
		dir = filepath.Dir(path)
	}

	if data, ok := r.cache.Get(dir); ok {
		return r.found(path, data, SourceCache, start), nil
	}

	img, err := FetchLocal(r.fs, dir, r.maxSize)
	if err != nil {
		util.WarnLog("Local artwork scan failed for %s: %v", dir, err)
	}
	if img != nil {
		if img.Resized {
			r.store(dir, img.Data)
		}
		return r.found(path, img.Data, SourceLocal, start), nil
	}

	if r.online != nil {
		keywords := Keywords(dir)
		util.InfoLog("Fetching album art for keywords '%s'", keywords)
		data, err := r.online.Fetch(ctx, keywords)
		if err == nil && len(data) > 0 {
			r.store(dir, data)
			return r.found(path, data, SourceOnline, start), nil
		}
		util.DebugLog("Online artwork lookup for '%s' failed: %v", keywords, err)
	}

	r.logger.LogArtwork(path, "", 0, time.Since(start))
	return nil, fmt.Errorf("no artwork for %s: %w", path, util.ErrNotFound)
}

// embedded returns the picture stored in the file's tags, or nil
func (r *Resolver) embedded(ctx context.Context, path string) []byte {
	if r.reader == nil {
		return nil
	}
	tags, err := r.reader.ReadTags(ctx, path)
	if err != nil || tags.Picture == nil || len(tags.Picture.Data) == 0 {
		return nil
	}
	return tags.Picture.Data
}

func (r *Resolver) store(dir string, data []byte) {
	if err := r.cache.Put(dir, data); err != nil {
		util.WarnLog("Failed to cache artwork for %s: %v", dir, err)
	}
}

func (r *Resolver) found(path string, data []byte, source Source, start time.Time) *Result {
	r.logger.LogArtwork(path, string(source), int64(len(data)), time.Since(start))
	return &Result{Data: data, MIME: DetectMIME(data), Source: source}
}

// DetectMIME sniffs the image type of data
func DetectMIME(data []byte) string {
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return "application/octet-stream"
	}
	return kind.MIME.Value
}
