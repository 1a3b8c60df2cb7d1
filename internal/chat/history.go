package chat

import (
	"github.com/aiworld/gateway/internal/model"
	"github.com/aiworld/gateway/internal/store"
)

// flattenHistory converts persisted turns into the alternating user/assistant
// message list the model services expect. Turns arrive in ascending creation
// order; each contributes its user message then its assistant message.
func flattenHistory(turns []store.Turn) []model.Message {
	if len(turns) == 0 {
		return nil
	}

	history := make([]model.Message, 0, len(turns)*2)
	for _, turn := range turns {
		history = append(history,
			model.Message{Role: model.RoleUser, Content: turn.UserMessage},
			model.Message{Role: model.RoleAssistant, Content: turn.AssistantMessage},
		)
	}
	return history
}
