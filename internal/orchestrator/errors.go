package orchestrator

import "errors"

// Rejections returned by user actions. None of them change session state.
var (
	ErrBusy          = errors.New("a response is being generated")
	ErrQueued        = errors.New("a message is already waiting for the model to load")
	ErrNoModel       = errors.New("no model selected")
	ErrUnavailable   = errors.New("local execution is unavailable")
	ErrIndex         = errors.New("message index out of range")
	ErrUnknownModel  = errors.New("unknown model")
	ErrNothingToCopy = errors.New("no assistant message to copy")
)
