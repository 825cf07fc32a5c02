package prompt

import (
	"strings"

	"github.com/riverfold/querymind/internal/model"
)

// FormatConversationHistory renders prior turns as a simple role-prefixed
// transcript. Returns "" when history is empty so callers can omit the
// section entirely rather than print an empty header.
func FormatConversationHistory(history []model.ChatTurn) string {
	if len(history) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("## Conversation History\n\n")
	for _, turn := range history {
		sb.WriteString(string(turn.Role))
		sb.WriteString(": ")
		sb.WriteString(turn.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}
