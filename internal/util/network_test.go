package util

import (
	"path/filepath"
	"strings"
	"testing"
)

const procMounts = `sysfs /sys sysfs rw,nosuid,nodev,noexec,relatime 0 0
/dev/sda1 / ext4 rw,relatime 0 0
nas:/export/music /mnt/nas nfs4 rw,relatime,vers=4.2 0 0
//server/share /mnt/nas/smb\040share cifs rw,relatime 0 0
/dev/sdb1 /mnt/nasty ext4 rw,relatime 0 0
broken line
`

func TestParseMounts(t *testing.T) {
	mounts, err := parseMounts(strings.NewReader(procMounts))
	if err != nil {
		t.Fatalf("parseMounts failed: %v", err)
	}
	if len(mounts) != 5 {
		t.Fatalf("expected 5 mounts, got %d", len(mounts))
	}
	if mounts[3].MountPoint != "/mnt/nas/smb share" {
		t.Errorf("expected escaped blank to be decoded, got %q", mounts[3].MountPoint)
	}
}

func TestMountFor(t *testing.T) {
	mounts, _ := parseMounts(strings.NewReader(procMounts))

	tests := []struct {
		path      string
		wantMount string
		network   bool
	}{
		{"/home/franz/music", "/", false},
		{"/mnt/nas", "/mnt/nas", true},
		{"/mnt/nas/Radiohead", "/mnt/nas", true},
		{"/mnt/nas/smb share/x", "/mnt/nas/smb share", true},
		{"/mnt/nasty/music", "/mnt/nasty", false},
	}

	for _, tt := range tests {
		m, ok := mountFor(tt.path, mounts)
		if !ok {
			t.Errorf("mountFor(%q) found nothing", tt.path)
			continue
		}
		if m.MountPoint != tt.wantMount {
			t.Errorf("mountFor(%q) = %q, want %q", tt.path, m.MountPoint, tt.wantMount)
		}
		if got := isNetworkFSType(m.FSType); got != tt.network {
			t.Errorf("isNetworkFSType(%q) = %v, want %v", m.FSType, got, tt.network)
		}
	}
}

func TestDetectNetworkFilesystem(t *testing.T) {
	dir := t.TempDir()

	info, err := DetectNetworkFilesystem(dir)
	if err != nil {
		t.Fatalf("DetectNetworkFilesystem failed: %v", err)
	}
	if info.IsNetwork {
		t.Logf("temp dir is on network storage (%s)", info.Protocol)
	}

	if _, err := DetectNetworkFilesystem(filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error for non-existent path")
	}
	if IsNetworkPath(filepath.Join(dir, "missing")) {
		t.Error("a missing path should count as local")
	}
}
