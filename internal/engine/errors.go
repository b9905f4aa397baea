package engine

import "errors"

// unsupportedModelError signals a model id without execution configuration.
// It is recoverable: the caller clears its selection and asks again.
type unsupportedModelError struct{ id string }

func (e unsupportedModelError) Error() string { return "unsupported model: " + e.id }

// ErrUnsupportedModel constructs an unsupportedModelError.
func ErrUnsupportedModel(id string) error { return unsupportedModelError{id: id} }

// IsUnsupportedModel reports whether err indicates an unsupported model.
func IsUnsupportedModel(err error) bool {
	var e unsupportedModelError
	return errors.As(err, &e)
}

// capabilityUnavailableError signals a missing execution capability (no
// llama support built in, no usable device).
type capabilityUnavailableError struct{ msg string }

func (e capabilityUnavailableError) Error() string { return e.msg }

// ErrCapabilityUnavailable constructs a capabilityUnavailableError.
func ErrCapabilityUnavailable(msg string) error { return capabilityUnavailableError{msg: msg} }

// IsCapabilityUnavailable reports whether err indicates a missing capability.
func IsCapabilityUnavailable(err error) bool {
	var e capabilityUnavailableError
	return errors.As(err, &e)
}

// loadFailureError wraps a failure while acquiring tokenizer, model or assets.
type loadFailureError struct {
	op  string
	err error
}

func (e loadFailureError) Error() string { return e.op + ": " + e.err.Error() }
func (e loadFailureError) Unwrap() error { return e.err }

// ErrLoadFailure wraps err as a load failure of operation op.
func ErrLoadFailure(op string, err error) error { return loadFailureError{op: op, err: err} }

// IsLoadFailure reports whether err is a load failure.
func IsLoadFailure(err error) bool {
	var e loadFailureError
	return errors.As(err, &e)
}

// generationFailureError wraps a failure during decode.
type generationFailureError struct{ err error }

func (e generationFailureError) Error() string { return "generation failed: " + e.err.Error() }
func (e generationFailureError) Unwrap() error { return e.err }

// ErrGenerationFailure wraps err as a generation failure.
func ErrGenerationFailure(err error) error { return generationFailureError{err: err} }

// IsGenerationFailure reports whether err is a generation failure.
func IsGenerationFailure(err error) bool {
	var e generationFailureError
	return errors.As(err, &e)
}
