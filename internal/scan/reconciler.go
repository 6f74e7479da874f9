package scan

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/franz/tunedex/internal/meta"
	"github.com/franz/tunedex/internal/report"
	"github.com/franz/tunedex/internal/store"
	"github.com/franz/tunedex/internal/util"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/afero"
)

// Reconciler synchronizes the persisted directory tree with the filesystem
type Reconciler struct {
	store      *store.Store
	fs         afero.Fs
	extensions map[string]bool
	extractor  *meta.Extractor
	logger     *report.EventLogger
	progress   bool
}

// Config holds reconciler configuration
type Config struct {
	Store *store.Store
	Fs    afero.Fs
	// Extensions is the indexable allow-list, matched case-insensitively.
	// Leading dots are optional. Defaults to util.DefaultExtensions.
	Extensions []string
	// Extractor, when set, runs metadata extraction on newly indexed files
	Extractor    *meta.Extractor
	Logger       *report.EventLogger
	ShowProgress bool
}

// New creates a new Reconciler
func New(cfg *Config) *Reconciler {
	exts := cfg.Extensions
	if len(exts) == 0 {
		exts = util.DefaultExtensions
	}

	extMap := make(map[string]bool, len(exts))
	for _, ext := range exts {
		extMap[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}

	return &Reconciler{
		store:      cfg.Store,
		fs:         cfg.Fs,
		extensions: extMap,
		extractor:  cfg.Extractor,
		logger:     cfg.Logger,
		progress:   cfg.ShowProgress,
	}
}

// Result counts the rows a reconciliation removed and created
type Result struct {
	FilesDeleted int
	DirsDeleted  int
	FilesIndexed int
	DirsIndexed  int
}

// Add folds o into r
func (r *Result) Add(o *Result) {
	r.FilesDeleted += o.FilesDeleted
	r.DirsDeleted += o.DirsDeleted
	r.FilesIndexed += o.FilesIndexed
	r.DirsIndexed += o.DirsIndexed
}

// Changed reports whether anything was added or removed
func (r *Result) Changed() bool {
	return *r != Result{}
}

func (r *Result) String() string {
	return fmt.Sprintf("%d files deleted, %d dirs deleted, %d files indexed, %d dirs indexed",
		r.FilesDeleted, r.DirsDeleted, r.FilesIndexed, r.DirsIndexed)
}

// IsIndexable reports whether name carries an allow-listed extension
func (r *Reconciler) IsIndexable(name string) bool {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	return ext != "" && r.extensions[strings.ToLower(ext)]
}

// Reconcile diffs dir (and, if recursive, everything below it) against the
// filesystem: stale file and directory rows are deleted, new indexable
// files and subdirectories are inserted. dir's own path must exist.
func (r *Reconciler) Reconcile(ctx context.Context, dir *store.Directory, recursive bool) (*Result, error) {
	start := time.Now()

	path, err := r.store.AbsolutePath(dir.ID)
	if err != nil {
		return nil, err
	}

	info, err := r.fs.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, util.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory: %w", path, util.ErrNotFound)
	}

	w := &walk{Reconciler: r, ctx: ctx, result: &Result{}}
	if r.progress {
		w.bar = progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("Reconciling"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("entries"),
			progressbar.OptionThrottle(200*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
		defer w.bar.Finish()
	}

	if err := w.reconcile(dir, path, recursive, []os.FileInfo{info}); err != nil {
		return w.result, err
	}

	util.DebugLog("Reconciled %s in %v: %s", path, time.Since(start).Round(time.Millisecond), w.result)
	return w.result, nil
}

// walk carries per-invocation state through the depth-first traversal
type walk struct {
	*Reconciler
	ctx    context.Context
	result *Result
	bar    *progressbar.ProgressBar
}

func (w *walk) reconcile(dir *store.Directory, path string, recursive bool, ancestors []os.FileInfo) error {
	if err := w.ctx.Err(); err != nil {
		return err
	}

	if err := w.pruneFiles(dir, path); err != nil {
		return err
	}
	if err := w.pruneDirectories(dir, path); err != nil {
		return err
	}

	entries, err := afero.ReadDir(w.fs, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && len(ancestors) > 1 {
			// Vanished mid-walk; the next reconcile of the parent prunes it
			util.WarnLog("Directory disappeared during reconcile: %s", path)
			return nil
		}
		return fmt.Errorf("failed to list %s: %w", path, err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if name == "." || name == ".." {
			continue
		}
		full := filepath.Join(path, name)
		if w.bar != nil {
			w.bar.Add(1)
		}

		if entry.Mode()&os.ModeSymlink != 0 {
			target, err := w.fs.Stat(full)
			if err != nil {
				util.DebugLog("Skipping broken symlink: %s", full)
				w.logger.LogSkip(full, "broken symlink")
				continue
			}
			entry = target
		}

		switch {
		case entry.Mode().IsRegular():
			if err := w.indexFile(dir, name, full); err != nil {
				return err
			}

		case entry.IsDir():
			if isAncestor(entry, ancestors) {
				util.WarnLog("Skipping directory loop at %s", full)
				w.logger.LogSkip(full, "directory loop")
				continue
			}

			child, created, err := w.store.InsertDirectory(dir.ID, name)
			if err != nil {
				return err
			}
			if created {
				w.result.DirsIndexed++
				w.logger.LogIndex("dir", full)
			}

			if recursive {
				if err := w.reconcile(child, full, true, append(ancestors, entry)); err != nil {
					return err
				}
			}

		default:
			util.DebugLog("Ignoring %s (%v)", full, entry.Mode().Type())
			w.logger.LogSkip(full, fmt.Sprintf("unsupported entry type %v", entry.Mode().Type()))
		}
	}

	return nil
}

func (w *walk) pruneFiles(dir *store.Directory, path string) error {
	files, err := w.store.ListFiles(dir.ID)
	if err != nil {
		return err
	}

	for _, f := range files {
		full := filepath.Join(path, f.Filename)
		// A file replaced by a directory of the same name is stale too
		info, err := w.fs.Stat(full)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to stat %s: %w", full, err)
		}
		if err == nil && info.Mode().IsRegular() {
			continue
		}

		if err := w.store.DeleteFile(f.ID); err != nil {
			return err
		}
		w.result.FilesDeleted++
		w.logger.LogPrune("file", full, 1, 0)
		util.DebugLog("Pruned file %s", full)
	}

	return nil
}

func (w *walk) pruneDirectories(dir *store.Directory, path string) error {
	children, err := w.store.ListChildDirectories(dir.ID)
	if err != nil {
		return err
	}

	for _, child := range children {
		full := filepath.Join(path, child.Path)
		exists, err := afero.DirExists(w.fs, full)
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", full, err)
		}
		if exists {
			continue
		}

		files, dirs, err := w.store.DeleteDirectoryTree(child.ID)
		if err != nil {
			return err
		}
		w.result.FilesDeleted += files
		w.result.DirsDeleted += dirs
		w.logger.LogPrune("dir", full, files, dirs)
		util.DebugLog("Pruned directory %s (%d files, %d dirs)", full, files, dirs)
	}

	return nil
}

func (w *walk) indexFile(dir *store.Directory, name, full string) error {
	if !w.IsIndexable(name) {
		w.logger.LogSkip(full, "not indexable")
		return nil
	}

	f, created, err := w.store.InsertFile(dir.ID, name)
	if err != nil {
		return err
	}
	if !created {
		return nil
	}

	w.result.FilesIndexed++
	w.logger.LogIndex("file", full)

	if w.extractor != nil {
		if _, err := w.extractor.UpdateFile(w.ctx, f, full); err != nil {
			return err
		}
	}

	return nil
}

func isAncestor(fi os.FileInfo, ancestors []os.FileInfo) bool {
	for _, a := range ancestors {
		if os.SameFile(fi, a) {
			return true
		}
	}
	return false
}
