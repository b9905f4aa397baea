package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"chatd/internal/assets"
	"chatd/internal/cache"
	"chatd/internal/common/fsutil"
	"chatd/internal/config"
	"chatd/internal/engine"
	"chatd/internal/executor"
	"chatd/internal/registry"
)

// loadConfig layers defaults, the config file and command-line overrides.
func loadConfig(g *globalFlags, over config.Config) (config.Config, error) {
	cfg := config.Defaults()
	if g.configPath != "" {
		fileCfg, err := config.Load(g.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		cfg = cfg.Merge(fileCfg)
	}
	over.LogLevel = g.logLevel
	over.CatalogPath = g.catalog
	over.ModelsDir = g.modelsDir
	return cfg.Merge(over), nil
}

// newLogger writes human-readable lines to w.
func newLogger(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: w != os.Stderr}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

// openLogFile opens the chat log for appending, creating its directory.
func openLogFile(path string) (*os.File, error) {
	p, err := fsutil.ExpandHome(path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir log dir: %w", err)
	}
	return os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

// buildCatalog merges the built-in models with the catalog file and the
// scanned models directory. Built-in entries win on conflicts.
func buildCatalog(cfg config.Config, log zerolog.Logger) (*registry.Catalog, error) {
	cat := registry.Builtin()
	if cfg.CatalogPath != "" {
		extra, err := registry.LoadFile(cfg.CatalogPath)
		if err != nil {
			return nil, err
		}
		cat = cat.Merge(extra...)
	}
	if cfg.ModelsDir != "" {
		scanned, err := registry.LoadDir(cfg.ModelsDir)
		if err != nil {
			return nil, fmt.Errorf("scan models dir: %w", err)
		}
		log.Debug().Str("dir", cfg.ModelsDir).Int("models", len(scanned)).Msg("scanned models directory")
		cat = cat.Merge(scanned...)
	}
	return cat, nil
}

// buildExecutor wires the asset fetcher, engine and model cache.
func buildExecutor(cfg config.Config, cat *registry.Catalog, log zerolog.Logger) (*executor.Executor, error) {
	fetcher, err := assets.NewFetcher(cfg.CacheDir, log.With().Str("component", "assets").Logger())
	if err != nil {
		return nil, err
	}
	eng := engine.New(engine.Config{
		Threads:     cfg.Threads,
		GPULayers:   cfg.GPULayers,
		ContextSize: cfg.ContextSize,
		Fetcher:     fetcher,
		Logger:      log.With().Str("component", "engine").Logger(),
	})
	mc := cache.New(eng, cat.ExecConfigs(), log.With().Str("component", "cache").Logger())
	return executor.New(executor.Config{
		Catalog:      cat,
		Cache:        mc,
		Engine:       eng,
		Logger:       log,
		MaxNewTokens: cfg.MaxNewTokens,
		Temperature:  cfg.Temperature,
		TopP:         cfg.TopP,
		TopK:         cfg.TopK,
		Seed:         cfg.Seed,
	}), nil
}

// splitCSV splits a comma-separated flag value, dropping empty items.
func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
