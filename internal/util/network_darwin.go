//go:build darwin

package util

import "syscall"

func detectPlatformNetwork(path string) (*NetworkInfo, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return nil, err
	}

	fsType := int8ArrayToString(stat.Fstypename[:])
	info := &NetworkInfo{MountPath: int8ArrayToString(stat.Mntonname[:])}
	if isNetworkFSType(fsType) {
		info.IsNetwork = true
		info.Protocol = fsType
	}
	return info, nil
}

// int8ArrayToString converts a NUL-terminated int8 array to a string
func int8ArrayToString(arr []int8) string {
	b := make([]byte, 0, len(arr))
	for _, c := range arr {
		if c == 0 {
			break
		}
		b = append(b, byte(c))
	}
	return string(b)
}
