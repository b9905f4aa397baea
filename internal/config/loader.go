package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for chatd.
// Zero values mean "unspecified" and are replaced by Defaults or flags.
type Config struct {
	Addr        string   `json:"addr" yaml:"addr" toml:"addr"`
	ModelsDir   string   `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	CatalogPath string   `json:"catalog" yaml:"catalog" toml:"catalog"`
	CacheDir    string   `json:"cache_dir" yaml:"cache_dir" toml:"cache_dir"`
	PrefsPath   string   `json:"prefs" yaml:"prefs" toml:"prefs"`
	LogLevel    string   `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFile     string   `json:"log_file" yaml:"log_file" toml:"log_file"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`

	// Engine
	Threads     int `json:"threads" yaml:"threads" toml:"threads"`
	GPULayers   int `json:"gpu_layers" yaml:"gpu_layers" toml:"gpu_layers"`
	ContextSize int `json:"context_size" yaml:"context_size" toml:"context_size"`

	// Sampling
	MaxNewTokens int     `json:"max_new_tokens" yaml:"max_new_tokens" toml:"max_new_tokens"`
	Temperature  float32 `json:"temperature" yaml:"temperature" toml:"temperature"`
	TopP         float32 `json:"top_p" yaml:"top_p" toml:"top_p"`
	TopK         int     `json:"top_k" yaml:"top_k" toml:"top_k"`
	Seed         int     `json:"seed" yaml:"seed" toml:"seed"`
}

// Defaults returns the configuration used when neither file nor flags set
// a value.
func Defaults() Config {
	return Config{
		Addr:         "127.0.0.1:8080",
		CacheDir:     "~/.cache/chatd/models",
		PrefsPath:    "~/.config/chatd/prefs.db",
		LogLevel:     "info",
		LogFile:      "~/.cache/chatd/chat.log",
		ContextSize:  4096,
		MaxNewTokens: 1024,
	}
}

// Merge overlays the non-zero fields of over onto c.
func (c Config) Merge(over Config) Config {
	setS := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setI := func(dst *int, v int) {
		if v != 0 {
			*dst = v
		}
	}
	setF := func(dst *float32, v float32) {
		if v != 0 {
			*dst = v
		}
	}
	setS(&c.Addr, over.Addr)
	setS(&c.ModelsDir, over.ModelsDir)
	setS(&c.CatalogPath, over.CatalogPath)
	setS(&c.CacheDir, over.CacheDir)
	setS(&c.PrefsPath, over.PrefsPath)
	setS(&c.LogLevel, over.LogLevel)
	setS(&c.LogFile, over.LogFile)
	if len(over.CORSOrigins) > 0 {
		c.CORSOrigins = append([]string(nil), over.CORSOrigins...)
	}
	setI(&c.Threads, over.Threads)
	setI(&c.GPULayers, over.GPULayers)
	setI(&c.ContextSize, over.ContextSize)
	setI(&c.MaxNewTokens, over.MaxNewTokens)
	setF(&c.Temperature, over.Temperature)
	setF(&c.TopP, over.TopP)
	setI(&c.TopK, over.TopK)
	setI(&c.Seed, over.Seed)
	return c
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	case ".json":
		err = json.Unmarshal(b, &cfg)
	case ".toml":
		err = toml.Unmarshal(b, &cfg)
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	if err != nil {
		return cfg, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return cfg, nil
}
