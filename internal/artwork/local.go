package artwork

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/franz/tunedex/internal/util"
	"github.com/spf13/afero"
	_ "golang.org/x/image/webp"
)

// coverNames are conventional artwork basenames in preference order
var coverNames = []string{"cover", "folder", "front", "album", "albumart", "albumartsmall", "thumb"}

var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
}

// Image is artwork found on disk
type Image struct {
	Path    string
	Data    []byte
	Resized bool // Data was re-encoded to fit the size envelope
}

// FetchLocal looks for artwork inside dir. Files with conventional names
// win; otherwise the first image by name is used. Images larger than
// maxSize on either side are scaled down to fit and re-encoded as JPEG.
// It returns (nil, nil) when dir holds no decodable image.
func FetchLocal(fs afero.Fs, dir string, maxSize int) (*Image, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	for _, name := range candidates(entries) {
		path := filepath.Join(dir, name)
		img, err := loadImage(fs, path, maxSize)
		if err != nil {
			util.DebugLog("Skipping unusable artwork %s: %v", path, err)
			continue
		}
		return img, nil
	}

	return nil, nil
}

// candidates orders the image files in entries: conventional names first,
// then the rest alphabetically
func candidates(entries []os.FileInfo) []string {
	rank := make(map[string]int, len(coverNames))
	for i, n := range coverNames {
		rank[n] = i
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			names = append(names, e.Name())
		}
	}

	score := func(name string) int {
		base := strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))
		if r, ok := rank[base]; ok {
			return r
		}
		return len(coverNames)
	}

	sort.SliceStable(names, func(i, j int) bool {
		si, sj := score(names[i]), score(names[j])
		if si != sj {
			return si < sj
		}
		return names[i] < names[j]
	})

	return names
}

func loadImage(fs afero.Fs, path string, maxSize int) (*Image, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode: %w", err)
	}

	b := img.Bounds()
	if maxSize <= 0 || (b.Dx() <= maxSize && b.Dy() <= maxSize) {
		return &Image{Path: path, Data: data}, nil
	}

	fitted := imaging.Fit(img, maxSize, maxSize, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, fitted, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		return nil, fmt.Errorf("failed to encode resized image: %w", err)
	}

	util.DebugLog("Resized %s from %dx%d to fit %dpx", path, b.Dx(), b.Dy(), maxSize)
	return &Image{Path: path, Data: buf.Bytes(), Resized: true}, nil
}
