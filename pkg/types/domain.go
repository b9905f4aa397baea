package types

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ModelDescriptor is a selectable model in the static catalog.
type ModelDescriptor struct {
	// Stable identifier, also the key of the model's execution configuration.
	// example: qwen2.5-0.5b-instruct
	ID string `json:"id" yaml:"id" toml:"id" example:"qwen2.5-0.5b-instruct"`
	// Human-friendly name.
	// example: Qwen2.5 0.5B Instruct
	Name string `json:"name" yaml:"name" toml:"name" example:"Qwen2.5 0.5B Instruct"`
	// Short description shown next to the name.
	Description string `json:"description,omitempty" yaml:"description" toml:"description"`
	// Location of the model weights: a local path or an http(s) URL.
	// Commands refer to models by this value.
	URL string `json:"url" yaml:"url" toml:"url"`
	// Quantization / data type hint. Descriptors without one have no
	// execution configuration.
	// example: q4_k_m
	Dtype string `json:"dtype,omitempty" yaml:"dtype" toml:"dtype" example:"q4_k_m"`
	// Execution device hint (cpu, gpu).
	Device string `json:"device,omitempty" yaml:"device" toml:"device"`
	// Token budget of the context window. 0 means the engine default.
	// example: 8192
	ContextSize int `json:"context_size,omitempty" yaml:"context_size" toml:"context_size" example:"8192"`
	// Whether the model emits reasoning blocks before its answer.
	HasReasoningBlocks bool `json:"has_reasoning_blocks" yaml:"has_reasoning_blocks" toml:"has_reasoning_blocks"`
}

// Message is one entry of the conversation history.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ProgressItem tracks one in-flight model asset download.
type ProgressItem struct {
	File     string  `json:"file"`
	Progress float64 `json:"progress"`
	Loaded   int64   `json:"loaded,omitempty"`
	Total    int64   `json:"total,omitempty"`
}
