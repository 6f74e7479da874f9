package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/franz/tunedex/internal/store"
)

func TestCheckFFprobe(t *testing.T) {
	result := checkFFprobe()

	// ffprobe is optional: found or a warning, never an error
	if result.error {
		t.Errorf("ffprobe check should not error, got: %s", result.message)
	}
	if result.message == "" {
		t.Error("expected a message")
	}
}

func TestCheckSQLite(t *testing.T) {
	result := checkSQLite()

	if result.error {
		t.Errorf("SQLite check failed: %s", result.message)
	}
	if !strings.HasPrefix(result.message, "version 3.") {
		t.Errorf("expected version information, got %q", result.message)
	}
}

func TestCheckDatabase_NonExistent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nonexistent.db")

	result := checkDatabase(dbPath)

	if result.error {
		t.Errorf("non-existent database check should not error: %s", result.message)
	}
	if !strings.Contains(result.message, "will be created") {
		t.Errorf("expected message about database creation, got %q", result.message)
	}
}

func TestCheckDatabase_Existing(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	root, err := db.EnsureRoot("/music")
	if err != nil {
		t.Fatalf("EnsureRoot failed: %v", err)
	}
	if _, _, err := db.InsertFile(root.ID, "track.flac"); err != nil {
		t.Fatalf("failed to insert test file: %v", err)
	}
	db.Close()

	result := checkDatabase(dbPath)

	if result.error {
		t.Errorf("existing database check failed: %s", result.message)
	}
	if !strings.Contains(result.message, "1 directories, 1 files") {
		t.Errorf("expected row counts in message, got %q", result.message)
	}
}

func TestCheckDatabase_NotAFile(t *testing.T) {
	result := checkDatabase(t.TempDir())

	if !result.error {
		t.Error("a directory should not pass as a database")
	}
}

func TestCheckDatabase_EmptyPath(t *testing.T) {
	result := checkDatabase("")

	if !result.warning {
		t.Error("expected a warning for an empty database path")
	}
}

func TestCheckLibrary(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "a.flac"), []byte("x"), 0644)
	os.Mkdir(filepath.Join(dir, "Album"), 0755)

	result := checkLibrary(dir)
	if result.error {
		t.Errorf("library check failed: %s", result.message)
	}
	if !strings.Contains(result.message, "(2 entries)") {
		t.Errorf("expected entry count, got %q", result.message)
	}

	if r := checkLibrary(filepath.Join(dir, "missing")); !r.error {
		t.Error("expected an error for a missing library")
	}
	if r := checkLibrary(filepath.Join(dir, "a.flac")); !r.error {
		t.Error("expected an error when the library is a file")
	}
}

func TestCheckCacheDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache", "albumart")

	result := checkCacheDir(dir)
	if result.error {
		t.Fatalf("cache dir check failed: %s", result.message)
	}
	if !strings.Contains(result.message, "created") {
		t.Errorf("expected the cache dir to be created, got %q", result.message)
	}

	result = checkCacheDir(dir)
	if result.error || !strings.Contains(result.message, "writable") {
		t.Errorf("expected writable cache dir, got %+v", result)
	}

	if _, err := os.Stat(filepath.Join(dir, ".tdx_write_test")); !os.IsNotExist(err) {
		t.Error("write test file was left behind")
	}
}

func TestCheckDiskSpace(t *testing.T) {
	result := checkDiskSpace(t.TempDir(), "temp")

	if result.error {
		t.Errorf("disk space check should never error: %s", result.message)
	}
	if result.message == "" {
		t.Error("expected a message")
	}
}
