package storage

import (
	"context"
	"database/sql"

	"github.com/riverfold/querymind/internal/model"
)

// ConversationRepository implements both convstate.MessageRepository
// (lazy-load history on a C7 cache miss) and orchestrator.ConversationStore
// (resolve/create/persist conversations, per spec.md §4.8 step 1), backed
// by the conversations/messages tables of migrations/0001_init.up.sql.
// Grounded in pkg/services/chat_service.go's query-then-create pattern,
// retargeted from ent queries to plain SQL since no generated ent client
// is vendored in this module.
type ConversationRepository struct {
	db *sql.DB
}

// NewConversationRepository builds a ConversationRepository over client.
func NewConversationRepository(client *Client) *ConversationRepository {
	return &ConversationRepository{db: client.DB}
}

// LoadHistory implements convstate.MessageRepository.
func (r *ConversationRepository) LoadHistory(ctx context.Context, conversationID int64) ([]model.ChatTurn, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT role, content FROM messages
		WHERE conversation_id = $1 ORDER BY created_at ASC`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []model.ChatTurn
	for rows.Next() {
		var turn model.ChatTurn
		var role string
		if err := rows.Scan(&role, &turn.Content); err != nil {
			return nil, err
		}
		turn.Role = model.ChatRole(role)
		turns = append(turns, turn)
	}
	return turns, rows.Err()
}

// OwnedConversation implements orchestrator.ConversationStore.
func (r *ConversationRepository) OwnedConversation(ctx context.Context, conversationID int64, ownerID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM conversations WHERE id = $1 AND owner_id = $2)`,
		conversationID, ownerID).Scan(&exists)
	return exists, err
}

// CreateConversation implements orchestrator.ConversationStore.
func (r *ConversationRepository) CreateConversation(ctx context.Context, ownerID, titleSeed string) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO conversations (owner_id, title) VALUES ($1, $2) RETURNING id`,
		ownerID, titleSeed).Scan(&id)
	return id, err
}

// SaveMessage implements orchestrator.ConversationStore.
func (r *ConversationRepository) SaveMessage(ctx context.Context, conversationID int64, role model.ChatRole, content string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO messages (conversation_id, role, content) VALUES ($1, $2, $3)`,
		conversationID, string(role), content); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE conversations SET last_updated = now() WHERE id = $1`, conversationID); err != nil {
		return err
	}
	return tx.Commit()
}
