//go:build !linux && !darwin

package util

// detectPlatformNetwork assumes local storage on unsupported platforms
func detectPlatformNetwork(path string) (*NetworkInfo, error) {
	return &NetworkInfo{}, nil
}
