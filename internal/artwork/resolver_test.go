package artwork

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/franz/tunedex/internal/meta"
	"github.com/franz/tunedex/internal/testutil"
	"github.com/franz/tunedex/internal/util"
	"github.com/spf13/afero"
)

const cacheDir = "/cache/albumart"

type stubReader map[string]*meta.Tags

func (r stubReader) ReadTags(ctx context.Context, path string) (*meta.Tags, error) {
	t, ok := r[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", util.ErrTagRead, path)
	}
	return t, nil
}

type stubOnline struct {
	data  []byte
	err   error
	calls []string
}

func (s *stubOnline) Fetch(ctx context.Context, keywords string) ([]byte, error) {
	s.calls = append(s.calls, keywords)
	return s.data, s.err
}

func albumFS(t *testing.T, cover []byte) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/lib/Album/track.mp3", []byte("ID3 but not really"), 0644)
	if cover != nil {
		afero.WriteFile(fs, "/lib/Album/cover.jpg", cover, 0644)
	}
	return fs
}

func newTestResolver(fs afero.Fs, reader meta.TagReader, online OnlineSource) *Resolver {
	cfg := &Config{
		Fs:       fs,
		Reader:   reader,
		CacheDir: cacheDir,
		MaxSize:  500,
	}
	if online != nil {
		cfg.Online = online
	}
	return NewResolver(cfg)
}

func TestResolveLocalResizedIsCached(t *testing.T) {
	fs := albumFS(t, testutil.PNG(1000, 800))
	online := &stubOnline{}
	r := newTestResolver(fs, stubReader{"/lib/Album/track.mp3": {Title: "no art"}}, online)

	res, err := r.Resolve(context.Background(), "/lib/Album/track.mp3")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.Source != SourceLocal {
		t.Errorf("expected local source, got %s", res.Source)
	}
	if res.MIME != "image/jpeg" {
		t.Errorf("expected resized image to be JPEG, got %s", res.MIME)
	}

	cached, ok := r.Cache().Get("/lib/Album")
	if !ok {
		t.Fatal("expected resized artwork to be cached")
	}
	if !bytes.Equal(cached, res.Data) {
		t.Error("cached bytes differ from returned bytes")
	}
	if len(online.calls) != 0 {
		t.Errorf("online source should not be consulted, got %v", online.calls)
	}
}

func TestResolveLocalUnresizedIsNotCached(t *testing.T) {
	cover := testutil.PNG(100, 100)
	fs := albumFS(t, cover)
	r := newTestResolver(fs, stubReader{}, nil)

	res, err := r.Resolve(context.Background(), "/lib/Album/track.mp3")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !bytes.Equal(res.Data, cover) {
		t.Error("unresized local artwork should be returned verbatim")
	}
	if res.MIME != "image/png" {
		t.Errorf("expected image/png, got %s", res.MIME)
	}
	if _, ok := r.Cache().Get("/lib/Album"); ok {
		t.Error("unresized local artwork must not be cached")
	}
}

func TestResolveCacheShortCircuits(t *testing.T) {
	fs := albumFS(t, testutil.PNG(1000, 800))
	online := &stubOnline{data: []byte("online")}
	r := newTestResolver(fs, stubReader{}, online)

	b := []byte("arbitrary cached bytes")
	if err := r.Cache().Put("/lib/Album", b); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	res, err := r.Resolve(context.Background(), "/lib/Album/track.mp3")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.Source != SourceCache || !bytes.Equal(res.Data, b) {
		t.Errorf("expected cached bytes, got %q from %s", res.Data, res.Source)
	}
	if len(online.calls) != 0 {
		t.Errorf("online source should not be consulted, got %v", online.calls)
	}
}

func TestResolveEmbeddedWins(t *testing.T) {
	fs := albumFS(t, testutil.PNG(100, 100))
	pic := testutil.PNG(20, 20)
	reader := stubReader{"/lib/Album/track.mp3": {Picture: &meta.Picture{MIMEType: "image/png", Data: pic}}}
	r := newTestResolver(fs, reader, nil)

	if err := r.Cache().Put("/lib/Album", []byte("stale")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	res, err := r.Resolve(context.Background(), "/lib/Album/track.mp3")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.Source != SourceEmbedded || !bytes.Equal(res.Data, pic) {
		t.Errorf("expected embedded picture, got source %s", res.Source)
	}
}

func TestResolveEmbeddedFromFLAC(t *testing.T) {
	fs := afero.NewMemMapFs()
	pic := testutil.PNG(32, 32)
	afero.WriteFile(fs, "/lib/Album/01.flac", testutil.FLAC(testutil.FLACOptions{
		Comments:    map[string]string{"TITLE": "Hunting Bears"},
		Picture:     pic,
		PictureMIME: "image/png",
	}), 0644)

	r := newTestResolver(fs, meta.NewFileTagReader(fs, nil), nil)

	res, err := r.Resolve(context.Background(), "/lib/Album/01.flac")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.Source != SourceEmbedded || !bytes.Equal(res.Data, pic) {
		t.Errorf("expected the FLAC picture block, got source %s (%d bytes)", res.Source, len(res.Data))
	}
}

func TestResolveOnlineIsCached(t *testing.T) {
	fs := albumFS(t, nil)
	img := testutil.PNG(300, 300)
	online := &stubOnline{data: img}
	r := newTestResolver(fs, stubReader{}, online)
	ctx := context.Background()

	res, err := r.Resolve(ctx, "/lib/Album/track.mp3")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.Source != SourceOnline {
		t.Errorf("expected online source, got %s", res.Source)
	}
	if len(online.calls) != 1 || online.calls[0] != "Album" {
		t.Errorf("expected one fetch for 'Album', got %v", online.calls)
	}

	res, err = r.Resolve(ctx, "/lib/Album")
	if err != nil {
		t.Fatalf("second Resolve failed: %v", err)
	}
	if res.Source != SourceCache || !bytes.Equal(res.Data, img) {
		t.Errorf("expected the online bytes from cache, got source %s", res.Source)
	}
	if len(online.calls) != 1 {
		t.Errorf("online source should be consulted once, got %d calls", len(online.calls))
	}
}

func TestResolveOnlineFailureIsNotFound(t *testing.T) {
	fs := albumFS(t, nil)
	online := &stubOnline{err: fmt.Errorf("%w: boom", util.ErrExternalFetch)}
	r := newTestResolver(fs, stubReader{}, online)

	_, err := r.Resolve(context.Background(), "/lib/Album/track.mp3")
	if !errors.Is(err, util.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if errors.Is(err, util.ErrExternalFetch) {
		t.Error("fetch failures must not surface")
	}
}

func TestResolveOnlineDisabled(t *testing.T) {
	fs := albumFS(t, nil)
	r := newTestResolver(fs, stubReader{}, nil)

	if _, err := r.Resolve(context.Background(), "/lib/Album"); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestResolveMissingPath(t *testing.T) {
	fs := albumFS(t, testutil.PNG(10, 10))
	r := newTestResolver(fs, stubReader{}, &stubOnline{data: []byte("x")})

	if _, err := r.Resolve(context.Background(), "/lib/Nope/track.mp3"); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFetchLocalPrefersConventionalNames(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/lib/A/aaa.png", testutil.PNG(10, 10), 0644)
	afero.WriteFile(fs, "/lib/A/Folder.PNG", testutil.PNG(11, 11), 0644)
	afero.WriteFile(fs, "/lib/A/Cover.jpg", []byte("not an image"), 0644)
	afero.WriteFile(fs, "/lib/A/track.mp3", []byte("x"), 0644)

	img, err := FetchLocal(fs, "/lib/A", 500)
	if err != nil {
		t.Fatalf("FetchLocal failed: %v", err)
	}
	if img == nil || img.Path != "/lib/A/Folder.PNG" {
		t.Fatalf("expected Folder.PNG after the undecodable Cover.jpg, got %+v", img)
	}
	if img.Resized {
		t.Error("small image should not be resized")
	}

	empty, err := FetchLocal(fs, "/lib/missing", 500)
	if err != nil || empty != nil {
		t.Errorf("expected (nil, nil) for a missing dir, got %v, %v", empty, err)
	}
}

func TestCachePathIsStable(t *testing.T) {
	a := CachePath(cacheDir, "/lib/Album")
	if a != CachePath(cacheDir, "/lib/Album/") || a != CachePath(cacheDir, "/lib/./Album") {
		t.Error("equivalent paths should share a cache file")
	}
	if a == CachePath(cacheDir, "/lib/Other") {
		t.Error("different paths should not share a cache file")
	}
}

func TestCacheUsageAndClear(t *testing.T) {
	c := NewCache(afero.NewMemMapFs(), cacheDir)

	files, size, err := c.Usage()
	if err != nil || files != 0 || size != 0 {
		t.Fatalf("expected empty usage for a missing dir, got %d, %d, %v", files, size, err)
	}

	c.Put("/lib/a", []byte("1234"))
	c.Put("/lib/b", []byte("56"))

	files, size, err = c.Usage()
	if err != nil {
		t.Fatalf("Usage failed: %v", err)
	}
	if files != 2 || size != 6 {
		t.Errorf("expected 2 files / 6 bytes, got %d / %d", files, size)
	}

	n, err := c.Clear()
	if err != nil || n != 2 {
		t.Errorf("expected 2 removed, got %d (%v)", n, err)
	}
	if _, ok := c.Get("/lib/a"); ok {
		t.Error("cache entry survived Clear")
	}
}
