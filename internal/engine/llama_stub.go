//go:build !llama

package engine

// This file provides a no-CGO stub for the llama engine. It is compiled when
// the 'llama' build tag is NOT set, keeping default builds and CI CGO-free.
// The real engine lives in llama.go (tagged 'llama').

import (
	"context"

	"chatd/pkg/types"
)

// llamaBuilt indicates this binary was compiled without llama support.
var llamaBuilt = false

const stubMessage = "llama support not built (missing 'llama' build tag)"

// llamaEngine refuses to run inference without the 'llama' build tag.
type llamaEngine struct {
	cfg Config
}

func New(cfg Config) Engine {
	return &llamaEngine{cfg: cfg}
}

func (e *llamaEngine) Check(ctx context.Context) error {
	return ErrCapabilityUnavailable(stubMessage)
}

func (e *llamaEngine) LoadTokenizer(ctx context.Context, desc types.ModelDescriptor, cfg ExecConfig, onProgress ProgressFunc) (Tokenizer, error) {
	return nil, ErrCapabilityUnavailable(stubMessage)
}

func (e *llamaEngine) LoadModel(ctx context.Context, desc types.ModelDescriptor, cfg ExecConfig, onProgress ProgressFunc) (Model, error) {
	return nil, ErrCapabilityUnavailable(stubMessage)
}
