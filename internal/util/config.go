package util

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// DefaultExtensions is the default allow-list of indexable audio extensions
var DefaultExtensions = []string{
	"mp3", "ogg", "oga", "flac", "m4a", "aac", "opus",
	"wav", "wma", "ape", "wv", "mpc",
}

// Config is the decoded runtime configuration
type Config struct {
	Library  LibraryConfig `mapstructure:"library"`
	Media    MediaConfig   `mapstructure:"media"`
	Artwork  ArtworkConfig `mapstructure:"artwork"`
	DB       string        `mapstructure:"db" validate:"required"`
	Network  bool          `mapstructure:"db_network_optimized"`
	Verbose  bool          `mapstructure:"verbose"`
	Quiet    bool          `mapstructure:"quiet"`
	EventDir string        `mapstructure:"event_dir"`
}

// LibraryConfig describes the music library on disk
type LibraryConfig struct {
	BasePath   string   `mapstructure:"base_path" validate:"required,dir"`
	Extensions []string `mapstructure:"extensions" validate:"min=1,dive,required"`
}

// MediaConfig holds media handling switches
type MediaConfig struct {
	FetchAlbumArt bool `mapstructure:"fetch_album_art"`
}

// ArtworkConfig controls the artwork cache and online lookups
type ArtworkConfig struct {
	CacheDir  string `mapstructure:"cache_dir" validate:"required"`
	MaxSize   int    `mapstructure:"max_size" validate:"gte=16,lte=4096"`
	UserAgent string `mapstructure:"user_agent" validate:"required"`
}

// SetConfigDefaults registers defaults for every key read by LoadConfig
func SetConfigDefaults(v *viper.Viper) {
	cacheRoot, err := os.UserCacheDir()
	if err != nil {
		cacheRoot = os.TempDir()
	}

	v.SetDefault("library.extensions", DefaultExtensions)
	v.SetDefault("db", "tdx.db")
	v.SetDefault("media.fetch_album_art", false)
	v.SetDefault("artwork.cache_dir", filepath.Join(cacheRoot, "tdx", "albumart"))
	v.SetDefault("artwork.max_size", 500)
	v.SetDefault("artwork.user_agent", "tunedex/0.3 (https://github.com/franz/tunedex)")
	v.SetDefault("event_dir", "artifacts")
}

// LoadConfig decodes and validates configuration from v
func LoadConfig(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if cfg.Library.BasePath != "" {
		abs, err := filepath.Abs(cfg.Library.BasePath)
		if err != nil {
			return nil, fmt.Errorf("%w: library.base_path: %v", ErrInvalidConfig, err)
		}
		cfg.Library.BasePath = abs
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return &cfg, nil
}
