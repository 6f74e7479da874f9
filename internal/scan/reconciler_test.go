package scan

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/franz/tunedex/internal/meta"
	"github.com/franz/tunedex/internal/store"
	"github.com/franz/tunedex/internal/testutil"
	"github.com/franz/tunedex/internal/util"
	"github.com/spf13/afero"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "scan.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// buildLibrary lays out:
//
//	/music/top.ogg
//	/music/notes.txt
//	/music/a/01.flac
//	/music/a/cover.jpg
//	/music/a/b/02.MP3
//	/music/c/
func buildLibrary(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for _, dir := range []string{"/music/a/b", "/music/c"} {
		if err := fs.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	for _, f := range []string{"/music/top.ogg", "/music/notes.txt", "/music/a/01.flac", "/music/a/cover.jpg", "/music/a/b/02.MP3"} {
		if err := afero.WriteFile(fs, f, []byte("x"), 0644); err != nil {
			t.Fatalf("write %s: %v", f, err)
		}
	}
	return fs
}

func newTestReconciler(t *testing.T, fs afero.Fs) (*Reconciler, *store.Store, *store.Directory) {
	t.Helper()
	s := openTestStore(t)
	root, err := s.EnsureRoot("/music")
	if err != nil {
		t.Fatalf("EnsureRoot failed: %v", err)
	}
	r := New(&Config{
		Store:      s,
		Fs:         fs,
		Extensions: []string{"mp3", ".OGG", "flac"},
	})
	return r, s, root
}

func TestIsIndexable(t *testing.T) {
	r := New(&Config{Extensions: []string{"mp3", "ogg", "flac"}})

	tests := []struct {
		name string
		want bool
	}{
		{"track.flac", true},
		{"TRACK.FLAC", true},
		{"song.Mp3", true},
		{"a.b.ogg", true},
		{"cover.jpg", false},
		{"flac", false},
		{".flac", true},
		{"noext", false},
	}

	for _, tt := range tests {
		if got := r.IsIndexable(tt.name); got != tt.want {
			t.Errorf("IsIndexable(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	fs := buildLibrary(t)
	r, s, root := newTestReconciler(t, fs)
	ctx := context.Background()

	res, err := r.Reconcile(ctx, root, true)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	want := Result{FilesIndexed: 3, DirsIndexed: 3}
	if *res != want {
		t.Errorf("first run = %+v, want %+v", *res, want)
	}

	res, err = r.Reconcile(ctx, root, true)
	if err != nil {
		t.Fatalf("second Reconcile failed: %v", err)
	}
	if res.Changed() {
		t.Errorf("second run should be a no-op, got %s", res)
	}

	st, err := s.GetStats()
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if st.Files != 3 || st.Directories != 4 {
		t.Errorf("expected 3 files and 4 directories, got %d and %d", st.Files, st.Directories)
	}
}

func TestReconcileIndexabilityFilter(t *testing.T) {
	fs := buildLibrary(t)
	r, s, root := newTestReconciler(t, fs)

	if _, err := r.Reconcile(context.Background(), root, true); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	a, err := s.GetChildDirectory(root.ID, "a")
	if err != nil || a == nil {
		t.Fatalf("expected directory a, got %v (err %v)", a, err)
	}

	cover, err := s.GetFileByName(a.ID, "cover.jpg")
	if err != nil {
		t.Fatalf("GetFileByName failed: %v", err)
	}
	if cover != nil {
		t.Error("cover.jpg must not be indexed")
	}

	track, err := s.GetFileByName(a.ID, "01.flac")
	if err != nil {
		t.Fatalf("GetFileByName failed: %v", err)
	}
	if track == nil {
		t.Error("01.flac should be indexed")
	}
}

func TestReconcileDeletesVanishedFile(t *testing.T) {
	fs := buildLibrary(t)
	r, s, root := newTestReconciler(t, fs)
	ctx := context.Background()

	if _, err := r.Reconcile(ctx, root, true); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if err := fs.Remove("/music/a/01.flac"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	a, _ := s.GetChildDirectory(root.ID, "a")
	res, err := r.Reconcile(ctx, a, false)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	want := Result{FilesDeleted: 1}
	if *res != want {
		t.Errorf("got %+v, want %+v", *res, want)
	}

	top, err := s.GetFileByName(root.ID, "top.ogg")
	if err != nil || top == nil {
		t.Errorf("sibling top.ogg should be untouched (err %v)", err)
	}
	b, _ := s.GetChildDirectory(a.ID, "b")
	nested, err := s.GetFileByName(b.ID, "02.MP3")
	if err != nil || nested == nil {
		t.Errorf("nested 02.MP3 should be untouched (err %v)", err)
	}
}

func TestReconcileFileReplacedByDirectory(t *testing.T) {
	fs := buildLibrary(t)
	r, s, root := newTestReconciler(t, fs)
	ctx := context.Background()

	if _, err := r.Reconcile(ctx, root, true); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if err := fs.Remove("/music/top.ogg"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if err := fs.Mkdir("/music/top.ogg", 0755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}

	res, err := r.Reconcile(ctx, root, false)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	want := Result{FilesDeleted: 1, DirsIndexed: 1}
	if *res != want {
		t.Errorf("got %+v, want %+v", *res, want)
	}

	if f, err := s.GetFileByName(root.ID, "top.ogg"); err != nil || f != nil {
		t.Errorf("file row top.ogg should be pruned, got %+v (err %v)", f, err)
	}
	if d, err := s.GetChildDirectory(root.ID, "top.ogg"); err != nil || d == nil {
		t.Errorf("directory row top.ogg should exist (err %v)", err)
	}
}

func TestReconcilePrunesStaleSubtree(t *testing.T) {
	fs := buildLibrary(t)
	r, s, root := newTestReconciler(t, fs)
	ctx := context.Background()

	if _, err := r.Reconcile(ctx, root, true); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	// a and a/b disappear together; neither was pruned from within
	if err := fs.RemoveAll("/music/a"); err != nil {
		t.Fatalf("RemoveAll failed: %v", err)
	}

	res, err := r.Reconcile(ctx, root, true)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	want := Result{FilesDeleted: 2, DirsDeleted: 2}
	if *res != want {
		t.Errorf("got %+v, want %+v", *res, want)
	}

	if err := s.CheckIntegrity(); err != nil {
		t.Errorf("integrity check failed: %v", err)
	}
}

func TestReconcileNonRecursive(t *testing.T) {
	fs := buildLibrary(t)
	r, s, root := newTestReconciler(t, fs)

	res, err := r.Reconcile(context.Background(), root, false)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	want := Result{FilesIndexed: 1, DirsIndexed: 2}
	if *res != want {
		t.Errorf("got %+v, want %+v", *res, want)
	}

	a, _ := s.GetChildDirectory(root.ID, "a")
	files, err := s.ListFiles(a.ID)
	if err != nil {
		t.Fatalf("ListFiles failed: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("non-recursive reconcile should not descend, found %d files in a", len(files))
	}
}

func TestReconcileMissingRoot(t *testing.T) {
	fs := afero.NewMemMapFs()
	r, _, root := newTestReconciler(t, fs)

	_, err := r.Reconcile(context.Background(), root, true)
	if !errors.Is(err, util.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestReconcileCancelled(t *testing.T) {
	fs := buildLibrary(t)
	r, _, root := newTestReconciler(t, fs)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := r.Reconcile(ctx, root, true); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestReconcileCascadesMetadata(t *testing.T) {
	fs := afero.NewMemMapFs()
	data := testutil.FLAC(testutil.FLACOptions{
		Comments:   map[string]string{"TITLE": "Reckoner", "ARTIST": "Radiohead", "ALBUM": "In Rainbows"},
		SampleRate: 44100,
		Samples:    44100 * 290,
	})
	afero.WriteFile(fs, "/music/ir/07.flac", data, 0644)
	afero.WriteFile(fs, "/music/ir/08.flac", []byte("not a flac"), 0644)

	s := openTestStore(t)
	root, err := s.EnsureRoot("/music")
	if err != nil {
		t.Fatalf("EnsureRoot failed: %v", err)
	}

	extractor := meta.New(&meta.Config{Store: s, Reader: meta.NewFileTagReader(fs, nil)})
	r := New(&Config{Store: s, Fs: fs, Extensions: []string{"flac"}, Extractor: extractor})

	if _, err := r.Reconcile(context.Background(), root, true); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	st, err := s.GetStats()
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if st.PendingMetadata != 0 {
		t.Errorf("expected every new file to be stamped, %d pending", st.PendingMetadata)
	}
	if st.WithMetadata != 1 {
		t.Errorf("expected 1 file with metadata, got %d", st.WithMetadata)
	}
	if st.Artists != 1 || st.Albums != 1 {
		t.Errorf("expected 1 artist and 1 album, got %d and %d", st.Artists, st.Albums)
	}
}
