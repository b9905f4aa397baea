package engine

import (
	"context"

	"github.com/rs/zerolog"

	"chatd/internal/assets"
	"chatd/pkg/types"
)

// ProgressFunc observes per-asset loading events (initiate, progress,
// done, loading). It must not block.
type ProgressFunc func(types.Event)

// ExecConfig is the execution configuration of one model id.
type ExecConfig struct {
	Dtype       string
	Device      string
	ContextSize int
}

// Engine loads tokenizers and models. Implementations must be safe for
// concurrent LoadTokenizer/LoadModel calls on the same descriptor.
type Engine interface {
	// Check reports whether the execution capability is available.
	Check(ctx context.Context) error
	LoadTokenizer(ctx context.Context, desc types.ModelDescriptor, cfg ExecConfig, onProgress ProgressFunc) (Tokenizer, error)
	LoadModel(ctx context.Context, desc types.ModelDescriptor, cfg ExecConfig, onProgress ProgressFunc) (Model, error)
}

// Tokenizer turns a conversation into a prompt and counts its tokens.
type Tokenizer interface {
	ApplyChatTemplate(messages []types.Message) (string, error)
	CountTokens(text string) (int, error)
}

// TokenFunc receives each decoded token piece. Returning false stops
// generation after the current step.
type TokenFunc func(piece string) bool

// Model generates text. Generate must poll opts.Stop before each decode
// step and return nil (not an error) when it has been interrupted.
type Model interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions, onToken TokenFunc) error
	Close() error
}

// GenerateOptions are the sampling parameters of one generation.
type GenerateOptions struct {
	MaxNewTokens  int
	Temperature   float32
	TopP          float32
	TopK          int
	Seed          int
	RepeatPenalty float32
	StopWords     []string
	// Stop is the cancellation token for this generation; nil never stops.
	Stop *StoppingSignal
}

// Config holds engine-wide runtime parameters.
type Config struct {
	Threads   int
	GPULayers int
	// ContextSize is used when a model does not declare its own.
	ContextSize int
	Fetcher     *assets.Fetcher
	Logger      zerolog.Logger
}
