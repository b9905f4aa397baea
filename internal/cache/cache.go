// Package cache holds the single resident tokenizer/model pair and
// replaces it when a different model is requested.
package cache

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"chatd/internal/engine"
	"chatd/pkg/types"
)

// WarmupMessage is emitted as a loading event before the warm-up pass.
const WarmupMessage = "Compiling shaders and warming up model..."

// Entry is the cached pair for one model id.
type Entry struct {
	Desc      types.ModelDescriptor
	Config    engine.ExecConfig
	Tokenizer engine.Tokenizer
	Model     engine.Model
}

// Cache holds at most one loaded model. It is not a pool: loading a
// different id disposes the previous entry first.
type Cache struct {
	eng     engine.Engine
	configs map[string]engine.ExecConfig
	log     zerolog.Logger

	// mu serialises loads and disposal; readers use current directly.
	mu      sync.Mutex
	current atomic.Pointer[Entry]
}

// New returns an empty cache. configs maps model ids to their execution
// configuration; ids absent from it are unsupported.
func New(eng engine.Engine, configs map[string]engine.ExecConfig, logger zerolog.Logger) *Cache {
	cp := make(map[string]engine.ExecConfig, len(configs))
	for k, v := range configs {
		cp[k] = v
	}
	return &Cache{eng: eng, configs: cp, log: logger}
}

// Supported reports whether id has an execution configuration.
func (c *Cache) Supported(id string) bool {
	_, ok := c.configs[id]
	return ok
}

// GetOrLoad returns the tokenizer and model for desc, loading them if the
// cache holds a different model or none. Loading emits per-asset progress
// and the warm-up loading event through onProgress.
func (c *Cache) GetOrLoad(ctx context.Context, desc types.ModelDescriptor, onProgress engine.ProgressFunc) (engine.Tokenizer, engine.Model, error) {
	cfg, ok := c.configs[desc.ID]
	if !ok {
		return nil, nil, engine.ErrUnsupportedModel(desc.ID)
	}
	if cfg.ContextSize == 0 {
		cfg.ContextSize = desc.ContextSize
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if cur := c.current.Load(); cur != nil {
		if cur.Desc.ID == desc.ID {
			return cur.Tokenizer, cur.Model, nil
		}
		c.current.Store(nil)
		c.log.Info().Str("model", cur.Desc.ID).Msg("disposing cached model")
		if err := cur.Model.Close(); err != nil {
			c.log.Warn().Err(err).Str("model", cur.Desc.ID).Msg("close model")
		}
	}

	notify := func(e types.Event) {
		if onProgress != nil {
			onProgress(e)
		}
	}

	var (
		tok engine.Tokenizer
		mdl engine.Model
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := c.eng.LoadTokenizer(gctx, desc, cfg, onProgress)
		if err != nil {
			return engine.ErrLoadFailure("load tokenizer", err)
		}
		tok = t
		return nil
	})
	g.Go(func() error {
		m, err := c.eng.LoadModel(gctx, desc, cfg, onProgress)
		if err != nil {
			return engine.ErrLoadFailure("load model", err)
		}
		mdl = m
		return nil
	})
	if err := g.Wait(); err != nil {
		if mdl != nil {
			_ = mdl.Close()
		}
		return nil, nil, err
	}

	notify(types.LoadingEvent{Data: WarmupMessage})
	warm := engine.GenerateOptions{MaxNewTokens: 1}
	if err := mdl.Generate(ctx, "a", warm, func(string) bool { return true }); err != nil {
		_ = mdl.Close()
		return nil, nil, engine.ErrLoadFailure("warm up", err)
	}

	c.current.Store(&Entry{Desc: desc, Config: cfg, Tokenizer: tok, Model: mdl})
	c.log.Info().Str("model", desc.ID).Msg("model cached")
	return tok, mdl, nil
}

// Current returns the cached descriptor, if any.
// It does not wait for an in-flight load.
func (c *Cache) Current() (types.ModelDescriptor, bool) {
	cur := c.current.Load()
	if cur == nil {
		return types.ModelDescriptor{}, false
	}
	return cur.Desc, true
}

// Close disposes the cached model.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur := c.current.Swap(nil)
	if cur == nil {
		return nil
	}
	return cur.Model.Close()
}
