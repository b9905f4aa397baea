package engine

import (
	"strings"

	"chatd/pkg/types"
)

// ChatML delimiters.
const (
	imStart = "<|im_start|>"
	imEnd   = "<|im_end|>"
)

// ChatMLStopWords ends generation at the close of the assistant turn.
var ChatMLStopWords = []string{imEnd}

// FormatChatML renders the conversation in ChatML and opens an assistant
// turn for the model to complete.
func FormatChatML(messages []types.Message) string {
	var b strings.Builder
	for _, m := range messages {
		b.WriteString(imStart)
		b.WriteString(string(m.Role))
		b.WriteByte('\n')
		b.WriteString(m.Content)
		b.WriteString(imEnd)
		b.WriteByte('\n')
	}
	b.WriteString(imStart)
	b.WriteString(string(types.RoleAssistant))
	b.WriteByte('\n')
	return b.String()
}
