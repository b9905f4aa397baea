//go:build llama

package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	llama "github.com/go-skynet/go-llama.cpp"

	"chatd/pkg/types"
)

// llamaBuilt indicates this binary was compiled with real llama support.
var llamaBuilt = true

// llamaEngine loads GGUF models in-process. Tokenizer and model of one
// descriptor share a single llama.cpp handle; whichever loader arrives
// first fetches the asset and opens it, the other waits for the result.
type llamaEngine struct {
	cfg Config

	mu      sync.Mutex
	handles map[string]*llamaHandle // key: descriptor id
}

type llamaHandle struct {
	once  sync.Once
	done  chan struct{}
	model *llama.LLama
	err   error
}

func New(cfg Config) Engine {
	return &llamaEngine{cfg: cfg, handles: make(map[string]*llamaHandle)}
}

func (e *llamaEngine) Check(ctx context.Context) error {
	if !llamaBuilt {
		return ErrCapabilityUnavailable("llama support not built")
	}
	return ctx.Err()
}

func (e *llamaEngine) handle(ctx context.Context, desc types.ModelDescriptor, cfg ExecConfig, onProgress ProgressFunc) (*llamaHandle, error) {
	e.mu.Lock()
	h, ok := e.handles[desc.ID]
	if !ok {
		h = &llamaHandle{done: make(chan struct{})}
		e.handles[desc.ID] = h
	}
	e.mu.Unlock()

	h.once.Do(func() {
		defer close(h.done)
		if e.cfg.Fetcher == nil {
			h.err = errors.New("no asset fetcher configured")
			return
		}
		path, err := e.cfg.Fetcher.Fetch(ctx, desc.URL, onProgress)
		if err != nil {
			h.err = fmt.Errorf("fetch %s: %w", desc.URL, err)
			return
		}
		ctxSize := cfg.ContextSize
		if ctxSize <= 0 {
			ctxSize = e.cfg.ContextSize
		}
		mo := []llama.ModelOption{
			llama.SetContext(ctxSize),
			llama.SetMMap(true),
		}
		if cfg.Device != "cpu" && e.cfg.GPULayers > 0 {
			mo = append(mo, llama.SetGPULayers(e.cfg.GPULayers))
		}
		m, err := llama.New(path, mo...)
		if err != nil {
			h.err = err
			return
		}
		h.model = m
	})

	select {
	case <-h.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if h.err != nil {
		e.forget(desc.ID, h)
		return nil, h.err
	}
	return h, nil
}

func (e *llamaEngine) forget(id string, h *llamaHandle) {
	e.mu.Lock()
	if e.handles[id] == h {
		delete(e.handles, id)
	}
	e.mu.Unlock()
}

func (e *llamaEngine) LoadTokenizer(ctx context.Context, desc types.ModelDescriptor, cfg ExecConfig, onProgress ProgressFunc) (Tokenizer, error) {
	h, err := e.handle(ctx, desc, cfg, onProgress)
	if err != nil {
		return nil, err
	}
	return &llamaTokenizer{h: h}, nil
}

func (e *llamaEngine) LoadModel(ctx context.Context, desc types.ModelDescriptor, cfg ExecConfig, onProgress ProgressFunc) (Model, error) {
	h, err := e.handle(ctx, desc, cfg, onProgress)
	if err != nil {
		return nil, err
	}
	return &llamaModel{h: h, threads: e.cfg.Threads, release: func() { e.forget(desc.ID, h) }}, nil
}

// llamaTokenizer borrows the model handle; the model owns and frees it.
type llamaTokenizer struct{ h *llamaHandle }

func (t *llamaTokenizer) ApplyChatTemplate(messages []types.Message) (string, error) {
	return FormatChatML(messages), nil
}

func (t *llamaTokenizer) CountTokens(text string) (int, error) {
	if t.h.model == nil {
		return 0, errors.New("llama model not initialized")
	}
	n, _, err := t.h.model.TokenizeString(text)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

type llamaModel struct {
	h       *llamaHandle
	threads int
	release func()
}

func (m *llamaModel) Generate(ctx context.Context, prompt string, opts GenerateOptions, onToken TokenFunc) error {
	if m.h.model == nil {
		return errors.New("llama model not initialized")
	}
	// The token callback is the decode step boundary: poll the stopping
	// signal and the context there.
	m.h.model.SetTokenCallback(func(tok string) bool {
		if opts.Stop.Interrupted() {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		default:
		}
		return onToken(tok)
	})
	_, err := m.h.model.Predict(prompt, predictOptions(opts, m.threads)...)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if opts.Stop.Interrupted() {
			return nil
		}
		return err
	}
	return nil
}

func (m *llamaModel) Close() error {
	if m.h.model != nil {
		m.h.model.Free()
		m.h.model = nil
	}
	if m.release != nil {
		m.release()
	}
	return nil
}

// helpers
func zn(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
func zf(v, def float32) float32 {
	if v > 0 {
		return v
	}
	return def
}

// predictOptions converts GenerateOptions into go-llama.cpp options.
func predictOptions(opts GenerateOptions, threads int) []llama.PredictOption {
	po := []llama.PredictOption{
		llama.SetTokens(max(1, opts.MaxNewTokens)),
		llama.SetThreads(max(1, threads)),
		llama.SetTopP(zf(opts.TopP, llama.DefaultOptions.TopP)),
		llama.SetTopK(zn(opts.TopK, llama.DefaultOptions.TopK)),
		llama.SetTemperature(zf(opts.Temperature, llama.DefaultOptions.Temperature)),
		llama.SetPenalty(zf(opts.RepeatPenalty, llama.DefaultOptions.Penalty)),
	}
	if opts.Seed != 0 {
		po = append(po, llama.SetSeed(opts.Seed))
	}
	stop := opts.StopWords
	if len(stop) == 0 {
		stop = ChatMLStopWords
	}
	po = append(po, llama.SetStopWords(stop...))
	return po
}
