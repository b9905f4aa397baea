// Package engine is the narrow boundary to the external ML runtime.
//
//   - engine.go: Engine, Tokenizer and Model interfaces, options.
//   - stopping.go: StoppingSignal, the cooperative cancellation token.
//   - errors.go: error kinds (IsUnsupportedModel, IsCapabilityUnavailable, ...).
//   - template.go: ChatML prompt formatting.
//
// Build tags and runtimes:
//
//   - In-process llama (standard):
//     Uses the go-llama.cpp bindings. Enabled with `-tags=llama`.
//     Files: llama.go, llama_cgo.go (linker rpath hints).
//     A no-CGO stub is compiled when the tag is not set: llama_stub.go.
//     The stub fails Check with a capability error, so the executor
//     reports it on the `check` command instead of mocking inference.
package engine
