//go:build linux

package util

import "os"

func detectPlatformNetwork(path string) (*NetworkInfo, error) {
	f, err := os.Open("/proc/mounts")
	if err != nil {
		return &NetworkInfo{}, nil
	}
	defer f.Close()

	mounts, err := parseMounts(f)
	if err != nil {
		return &NetworkInfo{}, nil
	}

	m, ok := mountFor(path, mounts)
	if !ok {
		return &NetworkInfo{}, nil
	}

	info := &NetworkInfo{MountPath: m.MountPoint}
	if isNetworkFSType(m.FSType) {
		info.IsNetwork = true
		info.Protocol = m.FSType
	}
	return info, nil
}
