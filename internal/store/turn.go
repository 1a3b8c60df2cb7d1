package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const turnColumns = `id, provider_id, conversation_id, user_message,
	assistant_message, metadata, tool_request, tool_response, created_at`

func scanTurn(row pgx.Row) (*Turn, error) {
	var t Turn
	err := row.Scan(&t.ID, &t.ProviderID, &t.ConversationID, &t.UserMessage,
		&t.AssistantMessage, &t.Metadata, &t.ToolRequest, &t.ToolResponse, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTurn persists one completed turn. Turns are only written after a
// successful generation and are never mutated afterwards.
func (s *Store) CreateTurn(ctx context.Context, arg CreateTurnParams) (*Turn, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO chat_history
			(provider_id, conversation_id, user_message, assistant_message,
			 metadata, tool_request, tool_response)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+turnColumns,
		arg.ProviderID, arg.ConversationID, arg.UserMessage, arg.AssistantMessage,
		arg.Metadata, arg.ToolRequest, arg.ToolResponse)

	t, err := scanTurn(row)
	if err != nil {
		return nil, fmt.Errorf("creating turn: %w", err)
	}

	s.logger.Debug("turn persisted",
		"id", t.ID, "provider_id", t.ProviderID, "conversation_id", t.ConversationID)
	return t, nil
}

// ListTurnsByConversation returns all turns of one conversation in ascending
// creation order. Unknown conversation ids yield an empty slice, not an
// error.
func (s *Store) ListTurnsByConversation(ctx context.Context, conversationID uuid.UUID) ([]Turn, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+turnColumns+`
		FROM chat_history
		WHERE conversation_id = $1
		ORDER BY created_at, id`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("listing conversation turns: %w", err)
	}
	defer rows.Close()

	return collectTurns(rows)
}

// ListTurnsByProvider returns all turns for one provider in ascending
// creation order, optionally filtered to a single conversation.
func (s *Store) ListTurnsByProvider(ctx context.Context, providerID int64, conversationID *uuid.UUID) ([]Turn, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if conversationID != nil {
		rows, err = s.db.Query(ctx, `
			SELECT `+turnColumns+`
			FROM chat_history
			WHERE provider_id = $1 AND conversation_id = $2
			ORDER BY created_at, id`, providerID, *conversationID)
	} else {
		rows, err = s.db.Query(ctx, `
			SELECT `+turnColumns+`
			FROM chat_history
			WHERE provider_id = $1
			ORDER BY created_at, id`, providerID)
	}
	if err != nil {
		return nil, fmt.Errorf("listing provider turns: %w", err)
	}
	defer rows.Close()

	return collectTurns(rows)
}

func collectTurns(rows pgx.Rows) ([]Turn, error) {
	turns := []Turn{}
	for rows.Next() {
		t, err := scanTurn(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}
		turns = append(turns, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading turns: %w", err)
	}
	return turns, nil
}
