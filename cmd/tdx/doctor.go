package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/franz/tunedex/internal/store"
	"github.com/franz/tunedex/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks on the environment and configuration",
	Long: `Run diagnostic checks to ensure tdx can operate correctly.

This command checks:
- Configuration validity
- Optional tools (ffprobe, for durations of non-FLAC files)
- SQLite version and database integrity
- Library base path readability and network storage
- Artwork cache directory writability and free space`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

type checkResult struct {
	name    string
	message string
	error   bool
	warning bool
}

func runDoctor(cmd *cobra.Command, args []string) error {
	util.InfoLog("=== tdx doctor ===")

	results := []checkResult{checkConfig()}
	results = append(results, checkFFprobe())
	results = append(results, checkSQLite())
	results = append(results, checkDatabase(viper.GetString("db")))

	if base := viper.GetString("library.base_path"); base != "" {
		results = append(results, checkLibrary(base))
	}

	cacheDir := viper.GetString("artwork.cache_dir")
	results = append(results, checkCacheDir(cacheDir))
	results = append(results, checkDiskSpace(cacheDir, "artwork cache"))

	hasErrors := false
	hasWarnings := false

	for _, r := range results {
		symbol := "✓"
		if r.error {
			symbol = "✗"
			hasErrors = true
		} else if r.warning {
			symbol = "⚠"
			hasWarnings = true
		}

		line := fmt.Sprintf("[%s] %s", symbol, r.name)
		if r.message != "" {
			line += fmt.Sprintf(": %s", r.message)
		}

		if r.error {
			util.ErrorLog("%s", line)
		} else if r.warning {
			util.WarnLog("%s", line)
		} else {
			util.SuccessLog("%s", line)
		}
	}

	if hasErrors {
		return fmt.Errorf("system diagnostics failed")
	} else if hasWarnings {
		util.WarnLog("Some checks produced warnings")
	} else {
		util.SuccessLog("All checks passed")
	}

	return nil
}

// checkConfig validates the merged configuration
func checkConfig() checkResult {
	if _, err := util.LoadConfig(viper.GetViper()); err != nil {
		return checkResult{name: "Configuration", error: true, message: err.Error()}
	}
	msg := "valid"
	if f := viper.ConfigFileUsed(); f != "" {
		msg = fmt.Sprintf("valid (%s)", f)
	}
	return checkResult{name: "Configuration", message: msg}
}

// checkFFprobe reports the ffprobe version; it is optional
func checkFFprobe() checkResult {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, "ffprobe", "-version").CombinedOutput()
	if err != nil {
		return checkResult{
			name:    "ffprobe (optional)",
			warning: true,
			message: "not found (durations are only read for FLAC files)",
		}
	}

	version := "unknown"
	if lines := strings.Split(string(output), "\n"); len(lines) > 0 {
		if parts := strings.Fields(lines[0]); len(parts) >= 3 {
			version = parts[2]
		}
	}

	return checkResult{name: "ffprobe (optional)", message: fmt.Sprintf("version %s", version)}
}

// checkSQLite verifies the embedded SQLite version
func checkSQLite() checkResult {
	version := store.SQLiteVersion()
	if version == "" {
		return checkResult{name: "SQLite", error: true, message: "unable to determine version"}
	}
	return checkResult{name: "SQLite", message: fmt.Sprintf("version %s (built-in)", version)}
}

// checkDatabase verifies the index database opens and passes integrity checks
func checkDatabase(dbPath string) checkResult {
	if dbPath == "" {
		return checkResult{
			name:    "Database",
			warning: true,
			message: "no database path specified (use --db flag or config)",
		}
	}

	info, err := os.Stat(dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return checkResult{name: "Database", message: fmt.Sprintf("%s (will be created on first run)", dbPath)}
		}
		return checkResult{name: "Database", error: true, message: fmt.Sprintf("cannot access %s: %v", dbPath, err)}
	}
	if !info.Mode().IsRegular() {
		return checkResult{name: "Database", error: true, message: fmt.Sprintf("%s is not a regular file", dbPath)}
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return checkResult{name: "Database", error: true, message: fmt.Sprintf("cannot open %s: %v", dbPath, err)}
	}
	defer db.Close()

	if err := db.CheckIntegrity(); err != nil {
		return checkResult{name: "Database", error: true, message: fmt.Sprintf("integrity check failed: %v", err)}
	}

	st, err := db.GetStats()
	if err != nil {
		return checkResult{name: "Database", error: true, message: err.Error()}
	}

	return checkResult{
		name:    "Database",
		message: fmt.Sprintf("%s (%s, %d directories, %d files)", dbPath, humanize.Bytes(uint64(info.Size())), st.Directories, st.Files),
	}
}

// checkLibrary verifies the library base path is a readable directory
func checkLibrary(path string) checkResult {
	info, err := os.Stat(path)
	if err != nil {
		return checkResult{name: "Library", error: true, message: fmt.Sprintf("cannot access %s: %v", path, err)}
	}
	if !info.IsDir() {
		return checkResult{name: "Library", error: true, message: fmt.Sprintf("%s is not a directory", path)}
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return checkResult{name: "Library", error: true, message: fmt.Sprintf("cannot read %s: %v", path, err)}
	}

	msg := fmt.Sprintf("%s (%d entries)", path, len(entries))
	if net, err := util.DetectNetworkFilesystem(path); err == nil && net.IsNetwork {
		msg += fmt.Sprintf(", on network storage (%s at %s)", net.Protocol, net.MountPath)
	}
	return checkResult{name: "Library", message: msg}
}

// checkCacheDir verifies the artwork cache directory is writable
func checkCacheDir(path string) checkResult {
	if path == "" {
		return checkResult{name: "Artwork cache", error: true, message: "artwork.cache_dir is empty"}
	}

	created := false
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0755); err != nil {
			return checkResult{name: "Artwork cache", error: true, message: fmt.Sprintf("cannot create %s: %v", path, err)}
		}
		created = true
	} else if err != nil {
		return checkResult{name: "Artwork cache", error: true, message: fmt.Sprintf("cannot access %s: %v", path, err)}
	} else if !info.IsDir() {
		return checkResult{name: "Artwork cache", error: true, message: fmt.Sprintf("%s is not a directory", path)}
	}

	testFile := filepath.Join(path, ".tdx_write_test")
	f, err := os.Create(testFile)
	if err != nil {
		return checkResult{name: "Artwork cache", error: true, message: fmt.Sprintf("cannot write to %s: %v", path, err)}
	}
	f.Close()
	os.Remove(testFile)

	if created {
		return checkResult{name: "Artwork cache", message: fmt.Sprintf("%s (created)", path)}
	}
	return checkResult{name: "Artwork cache", message: fmt.Sprintf("%s (writable)", path)}
}

// checkDiskSpace warns when the filesystem holding path is nearly full
func checkDiskSpace(path string, label string) checkResult {
	name := fmt.Sprintf("Disk space (%s)", label)

	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return checkResult{name: name, warning: true, message: fmt.Sprintf("cannot determine disk space: %v", err)}
	}

	availBytes := stat.Bavail * uint64(stat.Bsize)
	totalBytes := stat.Blocks * uint64(stat.Bsize)
	usedBytes := totalBytes - (stat.Bfree * uint64(stat.Bsize))

	usedPercent := 0.0
	if totalBytes > 0 {
		usedPercent = float64(usedBytes) / float64(totalBytes) * 100
	}

	// Cached covers are small; only a nearly full disk matters
	warning := false
	warningMsg := ""
	if availBytes < 100*humanize.MByte {
		warning = true
		warningMsg = " (low space!)"
	} else if usedPercent > 95 {
		warning = true
		warningMsg = " (>95% used)"
	}

	return checkResult{
		name:    name,
		warning: warning,
		message: fmt.Sprintf("%s available%s", humanize.Bytes(availBytes), warningMsg),
	}
}
