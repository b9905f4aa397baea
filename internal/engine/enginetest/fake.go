// Package enginetest provides an in-memory engine for tests.
package enginetest

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"chatd/internal/engine"
	"chatd/pkg/types"
)

// Asset is a fake file reported while loading a model.
type Asset struct {
	File  string
	Total int64
}

// Engine is a scripted engine.Engine. Zero value loads instantly and
// generates nothing.
type Engine struct {
	CheckErr     error
	TokenizerErr error
	ModelErr     error
	WarmupErr    error
	GenerateErr  error

	// Tokens are emitted in order by every non warm-up generation.
	Tokens []string
	// Delay sleeps between tokens.
	Delay time.Duration
	// Hold, when non-nil, blocks each non warm-up generation before its
	// first token until closed, the signal trips, or ctx ends.
	Hold chan struct{}
	// Assets are reported as initiate/progress/done during LoadModel.
	Assets []Asset

	TokenizerLoads atomic.Int32
	ModelLoads     atomic.Int32
	Closes         atomic.Int32
	Generations    atomic.Int32

	mu      sync.Mutex
	prompts []string
}

var _ engine.Engine = (*Engine)(nil)

func (e *Engine) Check(ctx context.Context) error {
	if e.CheckErr != nil {
		return e.CheckErr
	}
	return ctx.Err()
}

func (e *Engine) LoadTokenizer(ctx context.Context, desc types.ModelDescriptor, cfg engine.ExecConfig, onProgress engine.ProgressFunc) (engine.Tokenizer, error) {
	e.TokenizerLoads.Add(1)
	if e.TokenizerErr != nil {
		return nil, e.TokenizerErr
	}
	return Tokenizer{}, nil
}

func (e *Engine) LoadModel(ctx context.Context, desc types.ModelDescriptor, cfg engine.ExecConfig, onProgress engine.ProgressFunc) (engine.Model, error) {
	e.ModelLoads.Add(1)
	for _, a := range e.Assets {
		if onProgress == nil {
			break
		}
		onProgress(types.InitiateEvent{File: a.File, Total: a.Total})
		onProgress(types.ProgressEvent{File: a.File, Progress: 50, Loaded: a.Total / 2, Total: a.Total})
		onProgress(types.ProgressEvent{File: a.File, Progress: 100, Loaded: a.Total, Total: a.Total})
		onProgress(types.DoneEvent{File: a.File})
	}
	if e.ModelErr != nil {
		return nil, e.ModelErr
	}
	return &Model{eng: e, id: desc.ID}, nil
}

// Prompts returns the prompts of all non warm-up generations.
func (e *Engine) Prompts() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.prompts...)
}

// Tokenizer renders ChatML and counts whitespace-separated words.
type Tokenizer struct{}

func (Tokenizer) ApplyChatTemplate(messages []types.Message) (string, error) {
	return engine.FormatChatML(messages), nil
}

func (Tokenizer) CountTokens(text string) (int, error) {
	return len(strings.Fields(text)), nil
}

// Model replays the engine's scripted tokens.
type Model struct {
	eng    *Engine
	id     string
	closed atomic.Bool
}

// ID returns the descriptor id this model was loaded for.
func (m *Model) ID() string { return m.id }

// Closed reports whether Close was called.
func (m *Model) Closed() bool { return m.closed.Load() }

func (m *Model) Close() error {
	if m.closed.CompareAndSwap(false, true) {
		m.eng.Closes.Add(1)
	}
	return nil
}

func (m *Model) Generate(ctx context.Context, prompt string, opts engine.GenerateOptions, onToken engine.TokenFunc) error {
	e := m.eng
	if len(prompt) <= 1 {
		return e.WarmupErr
	}
	e.Generations.Add(1)
	e.mu.Lock()
	e.prompts = append(e.prompts, prompt)
	e.mu.Unlock()

	if e.Hold != nil {
		tick := time.NewTicker(time.Millisecond)
		defer tick.Stop()
	wait:
		for {
			select {
			case <-e.Hold:
				break wait
			case <-ctx.Done():
				return ctx.Err()
			case <-tick.C:
				if opts.Stop.Interrupted() {
					return nil
				}
			}
		}
	}
	for i, tok := range e.Tokens {
		if opts.MaxNewTokens > 0 && i >= opts.MaxNewTokens {
			break
		}
		if opts.Stop.Interrupted() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !onToken(tok) {
			return nil
		}
		if e.Delay > 0 {
			time.Sleep(e.Delay)
		}
	}
	return e.GenerateErr
}
