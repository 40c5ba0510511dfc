package chat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"lisanchat/internal/models"
)

// ErrConversationNotFound reports a conversation that is absent or not owned
// by the caller.
var ErrConversationNotFound = errors.New("conversation not found")

// Store persists conversations and their append-only message history.
type Store struct {
	db *sql.DB
}

// NewStore builds a store over the shared database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateConversation inserts a conversation with default title and empty
// summary, owned by userID.
func (s *Store) CreateConversation(ctx context.Context, userID int64) (*models.Conversation, error) {
	if userID <= 0 {
		return nil, errors.New("user_id is required")
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (user_id, title, summary, created_at, updated_at) VALUES (?, ?, '', ?, ?)`,
		userID, models.DefaultTitle, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("conversation id: %w", err)
	}
	return &models.Conversation{
		ID:        id,
		UserID:    userID,
		Title:     models.DefaultTitle,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// GetConversation returns the conversation when it exists and belongs to
// userID, ErrConversationNotFound otherwise.
func (s *Store) GetConversation(ctx context.Context, userID, conversationID int64) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, summary, created_at, updated_at FROM conversations WHERE id = ? AND user_id = ?`,
		conversationID, userID,
	).Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.Summary, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return &conv, nil
}

// ListConversations returns all conversations owned by userID ordered by
// last update descending.
func (s *Store) ListConversations(ctx context.Context, userID int64) ([]*models.Conversation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, title, summary, created_at, updated_at FROM conversations WHERE user_id = ? ORDER BY updated_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var convs []*models.Conversation
	for rows.Next() {
		conv := new(models.Conversation)
		if err := rows.Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.Summary, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		convs = append(convs, conv)
	}
	return convs, rows.Err()
}

// Append inserts a message with a server-assigned timestamp and returns the
// stored row. Storage failures are returned to the caller, which decides
// whether the failed append aborts the request.
func (s *Store) Append(ctx context.Context, conversationID int64, role models.Role, content string) (*models.Message, error) {
	if conversationID <= 0 {
		return nil, errors.New("conversation_id is required")
	}
	if role != models.RoleUser && role != models.RoleAssistant {
		return nil, fmt.Errorf("invalid role: %s", role)
	}
	if strings.TrimSpace(content) == "" {
		return nil, errors.New("content cannot be empty")
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (conversation_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
		conversationID, role, content, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("message id: %w", err)
	}
	return &models.Message{
		ID:             id,
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      now,
	}, nil
}

// LoadOrdered returns all messages of a conversation in ascending creation
// order, ties broken by insertion order. Unknown conversations yield an
// empty slice, not an error.
func (s *Store) LoadOrdered(ctx context.Context, conversationID int64) ([]*models.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, role, content, created_at FROM messages WHERE conversation_id = ? ORDER BY created_at ASC, id ASC`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*models.Message, 0)
	for rows.Next() {
		m := new(models.Message)
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// UpdateSummary persists a regenerated summary and bumps updated_at.
func (s *Store) UpdateSummary(ctx context.Context, conversationID int64, summary string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET summary = ?, updated_at = ? WHERE id = ?`,
		summary, time.Now().UTC(), conversationID,
	)
	if err != nil {
		return fmt.Errorf("update summary: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrConversationNotFound
	}
	return nil
}
