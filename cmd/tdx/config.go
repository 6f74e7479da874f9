package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/franz/tunedex/internal/artwork"
	"github.com/franz/tunedex/internal/library"
	"github.com/franz/tunedex/internal/meta"
	"github.com/franz/tunedex/internal/report"
	"github.com/franz/tunedex/internal/scan"
	"github.com/franz/tunedex/internal/store"
	"github.com/franz/tunedex/internal/util"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// loadConfig decodes and validates the merged flag/env/file configuration
// and applies the log level it selects
func loadConfig() (*util.Config, error) {
	cfg, err := util.LoadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}
	util.SetVerbose(cfg.Verbose)
	util.SetQuiet(cfg.Quiet)
	return cfg, nil
}

// appOptions selects optional behavior when wiring the app
type appOptions struct {
	Progress    bool // progress bar during reconcile, on a terminal only
	CascadeMeta bool // extract metadata for files as they are indexed
}

// app bundles everything a command needs
type app struct {
	cfg     *util.Config
	store   *store.Store
	logger  *report.EventLogger
	online  *artwork.MusicBrainzSource
	artwork *artwork.Resolver
	library *library.Service
}

func openApp(cfg *util.Config, opts appOptions) (*app, error) {
	networkOptimized := cfg.Network
	if !networkOptimized {
		if abs, err := filepath.Abs(cfg.DB); err == nil {
			if info, err := util.DetectNetworkFilesystem(filepath.Dir(abs)); err == nil && info.IsNetwork {
				util.InfoLog("Database is on network storage (%s), enabling network pragmas", info.Protocol)
				networkOptimized = true
			}
		}
	}

	util.DebugLog("Opening database: %s", cfg.DB)
	db, err := store.OpenWithOptions(cfg.DB, &store.OpenOptions{NetworkOptimized: networkOptimized})
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, store: db, logger: newEventLogger(cfg)}

	fs := afero.NewOsFs()

	var probe meta.ProbeFunc
	if meta.CheckFFprobeAvailable() {
		probe = meta.RunFFprobe
	} else {
		util.DebugLog("ffprobe not found in PATH - durations only for FLAC")
	}
	reader := meta.NewFileTagReader(fs, probe)

	extractor := meta.New(&meta.Config{
		Store:  db,
		Reader: reader,
		Logger: a.logger,
	})

	scanCfg := &scan.Config{
		Store:        db,
		Fs:           fs,
		Extensions:   cfg.Library.Extensions,
		Logger:       a.logger,
		ShowProgress: opts.Progress && !cfg.Quiet && util.IsTerminal(os.Stderr),
	}
	if opts.CascadeMeta {
		scanCfg.Extractor = extractor
	}

	artCfg := &artwork.Config{
		Fs:       fs,
		Reader:   reader,
		CacheDir: cfg.Artwork.CacheDir,
		MaxSize:  cfg.Artwork.MaxSize,
		Logger:   a.logger,
	}
	if cfg.Media.FetchAlbumArt {
		a.online = artwork.NewMusicBrainzSource(&artwork.MusicBrainzConfig{
			UserAgent: cfg.Artwork.UserAgent,
			Store:     db,
		})
		artCfg.Online = a.online
	}
	a.artwork = artwork.NewResolver(artCfg)

	a.library, err = library.New(&library.Config{
		Store:      db,
		BasePath:   cfg.Library.BasePath,
		Reconciler: scan.New(scanCfg),
		Extractor:  extractor,
		Artwork:    a.artwork,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	return a, nil
}

func newEventLogger(cfg *util.Config) *report.EventLogger {
	if cfg.EventDir == "" {
		return report.NullLogger()
	}

	level := report.LevelInfo
	if cfg.Quiet {
		level = report.LevelWarning
	} else if cfg.Verbose {
		level = report.LevelDebug
	}

	logger, err := report.NewEventLogger(cfg.EventDir, level)
	if err != nil {
		util.WarnLog("Failed to create event logger: %v", err)
		return report.NullLogger()
	}
	util.DebugLog("Event log: %s", logger.Path())
	return logger
}

// Close releases the database, the event log and the online client
func (a *app) Close() {
	if a.online != nil {
		a.online.Close()
	}
	a.logger.Close()
	a.store.Close()
}

// commandContext is cancelled on SIGINT/SIGTERM
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
