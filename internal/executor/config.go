package executor

import (
	"github.com/rs/zerolog"

	"chatd/internal/cache"
	"chatd/internal/engine"
	"chatd/internal/registry"
)

const (
	defaultMaxNewTokens  = 1024
	defaultTemperature   = 0.7
	defaultTopP          = 0.9
	defaultTopK          = 40
	defaultRepeatPenalty = 1.1
)

// Config wires an Executor. Catalog, Cache and Engine are required.
type Config struct {
	Catalog *registry.Catalog
	Cache   *cache.Cache
	Engine  engine.Engine
	Logger  zerolog.Logger

	// Sampling. Zero values take package defaults; the generation budget is
	// further capped by the model's remaining context.
	MaxNewTokens  int
	Temperature   float32
	TopP          float32
	TopK          int
	Seed          int
	RepeatPenalty float32
}

func (c Config) withDefaults() Config {
	if c.MaxNewTokens <= 0 {
		c.MaxNewTokens = defaultMaxNewTokens
	}
	if c.Temperature <= 0 {
		c.Temperature = defaultTemperature
	}
	if c.TopP <= 0 {
		c.TopP = defaultTopP
	}
	if c.TopK <= 0 {
		c.TopK = defaultTopK
	}
	if c.RepeatPenalty <= 0 {
		c.RepeatPenalty = defaultRepeatPenalty
	}
	return c
}
