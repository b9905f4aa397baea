package orchestrator

import "chatd/pkg/types"

// Status is the model lifecycle state seen by the user.
type Status string

const (
	StatusIdle    Status = ""
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	// StatusError means the execution capability is missing. It is terminal.
	StatusError Status = "error"
)

func (s Status) String() string {
	if s == StatusIdle {
		return "idle"
	}
	return string(s)
}

// Metrics are the measurements of the latest generation.
type Metrics struct {
	TPS           float64
	NumTokens     int
	ContextTokens int
}

// Snapshot is an immutable copy of the session.
type Snapshot struct {
	Status    Status
	IsRunning bool
	Messages  []types.Message
	// QueuedMessage is non-nil while a message waits for a model load.
	QueuedMessage  *string
	Metrics        Metrics
	Error          string
	LoadingMessage string
	Progress       []types.ProgressItem
	// Model is the selected model url; LoadedModel the one last reported ready.
	Model       string
	LoadedModel string
	ContextSize int
}
