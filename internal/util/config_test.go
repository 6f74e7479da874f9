package util

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
)

func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()

	v := viper.New()
	SetConfigDefaults(v)
	v.Set("library.base_path", dir)

	cfg, err := LoadConfig(v)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Library.BasePath != dir {
		t.Errorf("BasePath = %q, expected %q", cfg.Library.BasePath, dir)
	}
	if len(cfg.Library.Extensions) != len(DefaultExtensions) {
		t.Errorf("got %d extensions, expected %d", len(cfg.Library.Extensions), len(DefaultExtensions))
	}
	if cfg.Media.FetchAlbumArt {
		t.Error("media.fetch_album_art should default to false")
	}
	if cfg.Artwork.MaxSize != 500 {
		t.Errorf("artwork.max_size = %d, expected 500", cfg.Artwork.MaxSize)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		set  map[string]interface{}
	}{
		{"missing base path", map[string]interface{}{}},
		{"base path not a directory", map[string]interface{}{"library.base_path": filepath.Join(dir, "nope")}},
		{"max size too small", map[string]interface{}{"library.base_path": dir, "artwork.max_size": 4}},
		{"empty extensions", map[string]interface{}{"library.base_path": dir, "library.extensions": []string{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			SetConfigDefaults(v)
			for k, val := range tt.set {
				v.Set(k, val)
			}

			_, err := LoadConfig(v)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("LoadConfig() error = %v, expected ErrInvalidConfig", err)
			}
		})
	}
}
