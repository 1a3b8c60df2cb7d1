package store

import (
	"time"

	"github.com/google/uuid"
)

// Provider is one configured binding to an upstream LLM vendor.
// Credentials are not part of the record; they are resolved from the
// environment by family name at request time.
type Provider struct {
	ID        int64          `json:"id"`
	Name      string         `json:"name"`
	Family    string         `json:"family"`
	Config    map[string]any `json:"config,omitempty"`
	ToolIDs   []string       `json:"tool_ids"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// HasTool reports whether the given tool id is enabled for this provider.
func (p *Provider) HasTool(toolID string) bool {
	for _, id := range p.ToolIDs {
		if id == toolID {
			return true
		}
	}
	return false
}

// Turn is one user-message/assistant-response pair, the atomic unit of chat
// history. Turns are append-only.
type Turn struct {
	ID               int64          `json:"id"`
	ProviderID       int64          `json:"provider_id"`
	ConversationID   uuid.UUID      `json:"conversation_id"`
	UserMessage      string         `json:"user_message"`
	AssistantMessage string         `json:"assistant_message"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	ToolRequest      map[string]any `json:"tool_request,omitempty"`
	ToolResponse     map[string]any `json:"tool_response,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

// CreateProviderParams are the fields required to register a provider.
type CreateProviderParams struct {
	Name    string
	Family  string
	Config  map[string]any
	ToolIDs []string
}

// UpdateProviderParams merge-patch a provider record; nil fields are left
// unchanged.
type UpdateProviderParams struct {
	Name    *string
	Family  *string
	Config  map[string]any
	ToolIDs []string
}

// CreateTurnParams are the fields required to persist a turn.
type CreateTurnParams struct {
	ProviderID       int64
	ConversationID   uuid.UUID
	UserMessage      string
	AssistantMessage string
	Metadata         map[string]any
	ToolRequest      map[string]any
	ToolResponse     map[string]any
}
