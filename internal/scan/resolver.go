package scan

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/franz/tunedex/internal/store"
	"github.com/franz/tunedex/internal/util"
	"github.com/spf13/afero"
)

// SplitRelativePath splits a slash-separated path relative to the library
// root into segments. Empty segments are dropped, so "", "/" and "a//b/"
// are accepted.
func SplitRelativePath(rel string) []string {
	rel = filepath.ToSlash(rel)
	var segments []string
	for _, seg := range strings.Split(rel, "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	return segments
}

// ResolveOrIndex walks segments downward from base and returns the
// Directory chain, one entry per segment. Segments that are not yet indexed
// are inserted, but only after confirming the directory exists on disk; a
// missing segment yields util.ErrNotFound and leaves nothing behind.
// Existing rows are trusted without touching the filesystem.
func (r *Reconciler) ResolveOrIndex(ctx context.Context, base *store.Directory, segments []string) ([]*store.Directory, error) {
	path, err := r.store.AbsolutePath(base.ID)
	if err != nil {
		return nil, err
	}

	chain := make([]*store.Directory, 0, len(segments))
	current := base

	for _, seg := range segments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if seg == "" || seg == "." || seg == ".." || strings.ContainsRune(seg, filepath.Separator) {
			return nil, fmt.Errorf("invalid path segment %q: %w", seg, util.ErrNotFound)
		}

		path = filepath.Join(path, seg)

		child, err := r.store.GetChildDirectory(current.ID, seg)
		if err != nil {
			return nil, err
		}

		if child == nil {
			ok, err := afero.DirExists(r.fs, path)
			if err != nil {
				return nil, fmt.Errorf("failed to stat %s: %w", path, err)
			}
			if !ok {
				return nil, fmt.Errorf("%s: %w", path, util.ErrNotFound)
			}

			var created bool
			child, created, err = r.store.InsertDirectory(current.ID, seg)
			if err != nil {
				return nil, err
			}
			if created {
				r.logger.LogIndex("dir", path)
				util.DebugLog("Indexed directory on demand: %s", path)
			}
		}

		chain = append(chain, child)
		current = child
	}

	return chain, nil
}
