// Package library is the entry point for callers: it maps paths relative to
// the library root onto the index, the reconciler, metadata backfill and
// artwork resolution.
package library

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/franz/tunedex/internal/artwork"
	"github.com/franz/tunedex/internal/meta"
	"github.com/franz/tunedex/internal/scan"
	"github.com/franz/tunedex/internal/store"
	"github.com/franz/tunedex/internal/util"
)

// Service ties the index to the filesystem below one base path
type Service struct {
	store      *store.Store
	root       *store.Directory
	reconciler *scan.Reconciler
	extractor  *meta.Extractor
	artwork    *artwork.Resolver
}

// Config holds service dependencies
type Config struct {
	Store      *store.Store
	BasePath   string
	Reconciler *scan.Reconciler
	Extractor  *meta.Extractor
	Artwork    *artwork.Resolver
}

// New creates a library service, creating the root directory row for
// BasePath on first use
func New(cfg *Config) (*Service, error) {
	base, err := filepath.Abs(cfg.BasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base path: %w", err)
	}

	root, err := cfg.Store.EnsureRoot(base)
	if err != nil {
		return nil, err
	}

	return &Service{
		store:      cfg.Store,
		root:       root,
		reconciler: cfg.Reconciler,
		extractor:  cfg.Extractor,
		artwork:    cfg.Artwork,
	}, nil
}

// Root returns the library root directory
func (s *Service) Root() *store.Directory {
	return s.root
}

// BasePath returns the absolute filesystem path of the library root
func (s *Service) BasePath() string {
	return s.root.Path
}

// Listing is the indexed content of one directory
type Listing struct {
	Current     *store.Directory
	CurrentPath string             // relative to the root; "" for the root
	Parents     []*store.Directory // below the root, outermost first
	Files       []*store.File
	Directories []*store.Directory
}

// resolve turns relPath into the directory chain below the root, indexing
// directories on demand. The last element is the target; an empty chain
// means the root.
func (s *Service) resolve(ctx context.Context, relPath string) ([]*store.Directory, error) {
	segments := scan.SplitRelativePath(relPath)
	if len(segments) == 0 {
		return nil, nil
	}
	return s.reconciler.ResolveOrIndex(ctx, s.root, segments)
}

// Reconcile brings the index in sync with the filesystem for relPath and,
// when recursive, everything below it. An empty relPath reconciles the
// whole library.
func (s *Service) Reconcile(ctx context.Context, relPath string, recursive bool) (*scan.Result, error) {
	chain, err := s.resolve(ctx, relPath)
	if err != nil {
		return nil, err
	}

	target := s.root
	if len(chain) > 0 {
		target = chain[len(chain)-1]
	}

	return s.reconciler.Reconcile(ctx, target, recursive)
}

// Browse lists the indexed files and subdirectories of relPath. It reads
// the index as it is; only directories along relPath are indexed on
// demand.
func (s *Service) Browse(ctx context.Context, relPath string) (*Listing, error) {
	chain, err := s.resolve(ctx, relPath)
	if err != nil {
		return nil, err
	}

	l := &Listing{Current: s.root}
	if len(chain) > 0 {
		l.Current = chain[len(chain)-1]
		l.Parents = chain[:len(chain)-1]
		segments := make([]string, len(chain))
		for i, d := range chain {
			segments[i] = d.Path
		}
		l.CurrentPath = strings.Join(segments, "/")
	}

	l.Files, l.Directories, err = s.store.ListDirectory(l.Current.ID)
	if err != nil {
		return nil, err
	}

	return l, nil
}

// BackfillMetadata extracts metadata for every file not yet processed
func (s *Service) BackfillMetadata(ctx context.Context) (*meta.Result, error) {
	return s.extractor.ReindexMissing(ctx)
}

// ResolveArtwork returns artwork for the file or directory at relPath
func (s *Service) ResolveArtwork(ctx context.Context, relPath string) (*artwork.Result, error) {
	segments := scan.SplitRelativePath(relPath)
	for _, seg := range segments {
		if seg == "." || seg == ".." {
			return nil, fmt.Errorf("invalid path segment %q: %w", seg, util.ErrNotFound)
		}
	}

	return s.artwork.Resolve(ctx, filepath.Join(append([]string{s.root.Path}, segments...)...))
}

// Stats is a snapshot of the index and the artwork cache
type Stats struct {
	store.Stats
	CacheFiles int
	CacheBytes int64
}

// Stats counts index rows and artwork cache usage
func (s *Service) Stats() (*Stats, error) {
	st, err := s.store.GetStats()
	if err != nil {
		return nil, err
	}

	out := &Stats{Stats: *st}
	if s.artwork != nil {
		out.CacheFiles, out.CacheBytes, err = s.artwork.Cache().Usage()
		if err != nil {
			return nil, fmt.Errorf("failed to measure artwork cache: %w", err)
		}
	}
	return out, nil
}
