package artwork

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

const cacheExt = ".jpg"

// CachePath maps a library path to its cache file under cacheDir. Reads and
// writes both go through it.
func CachePath(cacheDir, path string) string {
	sum := sha256.Sum256([]byte(filepath.Clean(path)))
	return filepath.Join(cacheDir, hex.EncodeToString(sum[:])+cacheExt)
}

// Cache stores resized and fetched artwork keyed by library path
type Cache struct {
	fs  afero.Fs
	dir string
}

// NewCache creates a cache rooted at dir
func NewCache(fs afero.Fs, dir string) *Cache {
	return &Cache{fs: fs, dir: dir}
}

// Dir returns the cache directory
func (c *Cache) Dir() string {
	return c.dir
}

// Path returns the cache file for a library path
func (c *Cache) Path(path string) string {
	return CachePath(c.dir, path)
}

// Get returns the cached bytes for path, if any
func (c *Cache) Get(path string) ([]byte, bool) {
	data, err := afero.ReadFile(c.fs, c.Path(path))
	if err != nil || len(data) == 0 {
		return nil, false
	}
	return data, true
}

// Put writes data for path through a temp file and rename, so readers never
// see a partial image.
func (c *Cache) Put(path string, data []byte) error {
	if err := c.fs.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache dir: %w", err)
	}

	tmp, err := afero.TempFile(c.fs, c.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		c.fs.Remove(tmpName)
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		c.fs.Remove(tmpName)
		return fmt.Errorf("failed to close cache file: %w", err)
	}

	if err := c.fs.Rename(tmpName, c.Path(path)); err != nil {
		c.fs.Remove(tmpName)
		return fmt.Errorf("failed to move cache file into place: %w", err)
	}
	return nil
}

// Usage counts cache files and their total size
func (c *Cache) Usage() (files int, bytes int64, err error) {
	if ok, _ := afero.DirExists(c.fs, c.dir); !ok {
		return 0, 0, nil
	}

	err = afero.Walk(c.fs, c.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() && strings.HasSuffix(info.Name(), cacheExt) {
			files++
			bytes += info.Size()
		}
		return nil
	})
	return files, bytes, err
}

// Clear removes every cache file and returns how many were removed
func (c *Cache) Clear() (int, error) {
	entries, err := afero.ReadDir(c.fs, c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to list cache dir: %w", err)
	}

	removed := 0
	for _, e := range entries {
		if !e.Mode().IsRegular() || !strings.HasSuffix(e.Name(), cacheExt) {
			continue
		}
		if err := c.fs.Remove(filepath.Join(c.dir, e.Name())); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", e.Name(), err)
		}
		removed++
	}
	return removed, nil
}
