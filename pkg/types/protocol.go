package types

import (
	"encoding/json"
	"fmt"
)

// Command is a message from the controller to the executor. The set of
// implementations is closed; switch on the concrete type.
type Command interface {
	CommandType() string
	isCommand()
}

// CheckCommand asks the executor to check the execution capability.
type CheckCommand struct{}

// LoadCommand loads (and caches) the model identified by ModelID (its url).
type LoadCommand struct {
	ModelID string
}

// GenerateCommand generates an assistant reply to the full conversation.
type GenerateCommand struct {
	Data    []Message
	ModelID string
}

// InterruptCommand stops the in-flight generation at the next token boundary.
type InterruptCommand struct{}

// ResetCommand clears the stopping state before a fresh conversation.
type ResetCommand struct{}

func (CheckCommand) CommandType() string     { return "check" }
func (LoadCommand) CommandType() string      { return "load" }
func (GenerateCommand) CommandType() string  { return "generate" }
func (InterruptCommand) CommandType() string { return "interrupt" }
func (ResetCommand) CommandType() string     { return "reset" }

func (CheckCommand) isCommand()     {}
func (LoadCommand) isCommand()      {}
func (GenerateCommand) isCommand()  {}
func (InterruptCommand) isCommand() {}
func (ResetCommand) isCommand()     {}

type commandFrame struct {
	Type    string    `json:"type"`
	ModelID string    `json:"model_id,omitempty"`
	Data    []Message `json:"data,omitempty"`
}

// MarshalCommand encodes a command as {"type": ...}.
func MarshalCommand(c Command) ([]byte, error) {
	f := commandFrame{Type: c.CommandType()}
	switch c := c.(type) {
	case LoadCommand:
		f.ModelID = c.ModelID
	case GenerateCommand:
		f.ModelID = c.ModelID
		f.Data = c.Data
	}
	return json.Marshal(f)
}

// UnmarshalCommand decodes a command frame. Unknown tags are an error.
func UnmarshalCommand(b []byte) (Command, error) {
	var f commandFrame
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, err
	}
	switch f.Type {
	case "check":
		return CheckCommand{}, nil
	case "load":
		return LoadCommand{ModelID: f.ModelID}, nil
	case "generate":
		return GenerateCommand{Data: f.Data, ModelID: f.ModelID}, nil
	case "interrupt":
		return InterruptCommand{}, nil
	case "reset":
		return ResetCommand{}, nil
	default:
		return nil, fmt.Errorf("unknown command type %q", f.Type)
	}
}

// Event is a message from the executor to the controller. The set of
// implementations is closed; switch on the concrete type.
type Event interface {
	EventStatus() string
	isEvent()
}

// LoadingEvent carries a human-readable loading phase.
type LoadingEvent struct {
	Data string
}

// InitiateEvent starts tracking a model asset.
type InitiateEvent struct {
	File  string
	Total int64
}

// ProgressEvent reports download progress of a model asset.
type ProgressEvent struct {
	File     string
	Progress float64
	Loaded   int64
	Total    int64
}

// DoneEvent marks a model asset as complete.
type DoneEvent struct {
	File string
}

// ReadyEvent terminates a successful load.
type ReadyEvent struct{}

// UnsupportedModelEvent terminates a load of a model with no execution
// configuration. ModelID is the requested identifier.
type UnsupportedModelEvent struct {
	Data    string
	ModelID string
}

// RejectedEvent reports a command refused by the executor, e.g. a load
// received while a generation is pending.
type RejectedEvent struct {
	Data    string
	ModelID string
}

// StartEvent opens a generation; the controller appends an empty
// assistant message.
type StartEvent struct{}

// UpdateEvent carries an output delta and the running metrics.
type UpdateEvent struct {
	Output        string
	TPS           float64
	NumTokens     int
	ContextTokens int
}

// CompleteEvent terminates a generation with the full decoded text.
type CompleteEvent struct {
	Output string
}

// ErrorEvent reports a failure.
type ErrorEvent struct {
	Data string
}

func (LoadingEvent) EventStatus() string          { return "loading" }
func (InitiateEvent) EventStatus() string         { return "initiate" }
func (ProgressEvent) EventStatus() string         { return "progress" }
func (DoneEvent) EventStatus() string             { return "done" }
func (ReadyEvent) EventStatus() string            { return "ready" }
func (UnsupportedModelEvent) EventStatus() string { return "unsupported_model" }
func (RejectedEvent) EventStatus() string         { return "rejected" }
func (StartEvent) EventStatus() string            { return "start" }
func (UpdateEvent) EventStatus() string           { return "update" }
func (CompleteEvent) EventStatus() string         { return "complete" }
func (ErrorEvent) EventStatus() string            { return "error" }

func (LoadingEvent) isEvent()          {}
func (InitiateEvent) isEvent()         {}
func (ProgressEvent) isEvent()         {}
func (DoneEvent) isEvent()             {}
func (ReadyEvent) isEvent()            {}
func (UnsupportedModelEvent) isEvent() {}
func (RejectedEvent) isEvent()         {}
func (StartEvent) isEvent()            {}
func (UpdateEvent) isEvent()           {}
func (CompleteEvent) isEvent()         {}
func (ErrorEvent) isEvent()            {}

type eventFrame struct {
	Status        string  `json:"status"`
	Data          string  `json:"data,omitempty"`
	ModelID       string  `json:"model_id,omitempty"`
	File          string  `json:"file,omitempty"`
	Progress      float64 `json:"progress,omitempty"`
	Loaded        int64   `json:"loaded,omitempty"`
	Total         int64   `json:"total,omitempty"`
	Output        *string `json:"output,omitempty"`
	TPS           float64 `json:"tps,omitempty"`
	NumTokens     int     `json:"numTokens,omitempty"`
	ContextTokens int     `json:"contextTokens,omitempty"`
}

// MarshalEvent encodes an event as {"status": ...}.
func MarshalEvent(e Event) ([]byte, error) {
	f := eventFrame{Status: e.EventStatus()}
	switch e := e.(type) {
	case LoadingEvent:
		f.Data = e.Data
	case InitiateEvent:
		f.File, f.Total = e.File, e.Total
	case ProgressEvent:
		f.File, f.Progress, f.Loaded, f.Total = e.File, e.Progress, e.Loaded, e.Total
	case DoneEvent:
		f.File = e.File
	case UnsupportedModelEvent:
		f.Data, f.ModelID = e.Data, e.ModelID
	case RejectedEvent:
		f.Data, f.ModelID = e.Data, e.ModelID
	case UpdateEvent:
		out := e.Output
		f.Output = &out
		f.TPS, f.NumTokens, f.ContextTokens = e.TPS, e.NumTokens, e.ContextTokens
	case CompleteEvent:
		out := e.Output
		f.Output = &out
	case ErrorEvent:
		f.Data = e.Data
	}
	return json.Marshal(f)
}

// UnmarshalEvent decodes an event frame. Unknown tags are an error.
func UnmarshalEvent(b []byte) (Event, error) {
	var f eventFrame
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, err
	}
	output := ""
	if f.Output != nil {
		output = *f.Output
	}
	switch f.Status {
	case "loading":
		return LoadingEvent{Data: f.Data}, nil
	case "initiate":
		return InitiateEvent{File: f.File, Total: f.Total}, nil
	case "progress":
		return ProgressEvent{File: f.File, Progress: f.Progress, Loaded: f.Loaded, Total: f.Total}, nil
	case "done":
		return DoneEvent{File: f.File}, nil
	case "ready":
		return ReadyEvent{}, nil
	case "unsupported_model":
		return UnsupportedModelEvent{Data: f.Data, ModelID: f.ModelID}, nil
	case "rejected":
		return RejectedEvent{Data: f.Data, ModelID: f.ModelID}, nil
	case "start":
		return StartEvent{}, nil
	case "update":
		return UpdateEvent{Output: output, TPS: f.TPS, NumTokens: f.NumTokens, ContextTokens: f.ContextTokens}, nil
	case "complete":
		return CompleteEvent{Output: output}, nil
	case "error":
		return ErrorEvent{Data: f.Data}, nil
	default:
		return nil, fmt.Errorf("unknown event status %q", f.Status)
	}
}
