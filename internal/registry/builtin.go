package registry

import "chatd/pkg/types"

var builtin = []types.ModelDescriptor{
	{
		ID:          "qwen2.5-0.5b-instruct",
		Name:        "Qwen2.5 0.5B Instruct",
		Description: "Small, fast general assistant",
		URL:         "https://huggingface.co/Qwen/Qwen2.5-0.5B-Instruct-GGUF/resolve/main/qwen2.5-0.5b-instruct-q4_k_m.gguf",
		Dtype:       "q4_k_m",
		ContextSize: 8192,
	},
	{
		ID:          "llama-3.2-1b-instruct",
		Name:        "Llama 3.2 1B Instruct",
		Description: "Meta's compact instruction model",
		URL:         "https://huggingface.co/bartowski/Llama-3.2-1B-Instruct-GGUF/resolve/main/Llama-3.2-1B-Instruct-Q4_K_M.gguf",
		Dtype:       "q4_k_m",
		ContextSize: 8192,
	},
	{
		ID:                 "qwen3-0.6b",
		Name:               "Qwen3 0.6B",
		Description:        "Thinks before answering",
		URL:                "https://huggingface.co/Qwen/Qwen3-0.6B-GGUF/resolve/main/Qwen3-0.6B-Q8_0.gguf",
		Dtype:              "q8_0",
		ContextSize:        8192,
		HasReasoningBlocks: true,
	},
	{
		ID:          "smollm2-360m-instruct",
		Name:        "SmolLM2 360M Instruct",
		Description: "Tiny model for low-memory machines",
		URL:         "https://huggingface.co/HuggingFaceTB/SmolLM2-360M-Instruct-GGUF/resolve/main/smollm2-360m-instruct-q8_0.gguf",
		Dtype:       "q8_0",
		ContextSize: 8192,
	},
}

// Builtin returns the default catalog.
func Builtin() *Catalog {
	c, err := NewCatalog(builtin...)
	if err != nil {
		panic(err)
	}
	return c
}
