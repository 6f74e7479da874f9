package util

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// NetworkInfo describes the filesystem a path lives on
type NetworkInfo struct {
	IsNetwork bool   // Whether the filesystem is network-mounted
	Protocol  string // Filesystem type (nfs, cifs, ...) or empty if local
	MountPath string // Mount point of the filesystem, when known
}

// networkFSTypes are substrings of filesystem type names served over the network
var networkFSTypes = []string{
	"nfs", "cifs", "smb", "ncpfs", "afpfs", "webdav", "9p",
	"fuse.sshfs", "fuse.rclone", "osxfuse",
}

// DetectNetworkFilesystem reports whether path is on a network mount.
// The path must exist.
func DetectNetworkFilesystem(path string) (*NetworkInfo, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	if _, err := os.Stat(absPath); err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", absPath, err)
	}
	return detectPlatformNetwork(absPath)
}

// IsNetworkPath is DetectNetworkFilesystem without the details; errors
// count as local
func IsNetworkPath(path string) bool {
	info, err := DetectNetworkFilesystem(path)
	if err != nil {
		return false
	}
	return info.IsNetwork
}

func isNetworkFSType(fsType string) bool {
	fsType = strings.ToLower(fsType)
	for _, t := range networkFSTypes {
		if strings.Contains(fsType, t) {
			return true
		}
	}
	return false
}

// mountEntry is one line of a mount table
type mountEntry struct {
	MountPoint string
	FSType     string
}

// parseMounts reads a /proc/mounts style table
func parseMounts(r io.Reader) ([]mountEntry, error) {
	var mounts []mountEntry
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		// device mountpoint fstype options dump pass
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 {
			continue
		}
		mounts = append(mounts, mountEntry{
			MountPoint: unescapeMount(fields[1]),
			FSType:     fields[2],
		})
	}
	return mounts, scanner.Err()
}

// unescapeMount decodes the octal escapes the kernel uses for blanks
func unescapeMount(s string) string {
	return strings.NewReplacer(`\040`, " ", `\011`, "\t", `\012`, "\n", `\134`, `\`).Replace(s)
}

// mountFor returns the longest mount point containing path
func mountFor(path string, mounts []mountEntry) (mountEntry, bool) {
	var best mountEntry
	found := false
	for _, m := range mounts {
		if !pathHasPrefix(path, m.MountPoint) {
			continue
		}
		if !found || len(m.MountPoint) > len(best.MountPoint) {
			best, found = m, true
		}
	}
	return best, found
}

func pathHasPrefix(path, prefix string) bool {
	if prefix == "/" || path == prefix {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(prefix, "/")+"/")
}
