package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"session-hub/app/domain"
	"session-hub/app/port"
)

// MessageRepository implements port.MessageStore for PostgreSQL
type MessageRepository struct {
	db     DatabaseIface
	logger *slog.Logger
}

// NewMessageRepository creates a new PostgreSQL message repository
func NewMessageRepository(db DatabaseIface, logger *slog.Logger) port.MessageStore {
	return &MessageRepository{
		db:     db,
		logger: logger.With("component", "message_repository"),
	}
}

// ListByUser returns a user's support messages, newest first.
func (r *MessageRepository) ListByUser(ctx context.Context, userID string) ([]domain.Message, error) {
	query := `
		SELECT id, user_id, conversation_id, body, read, created_at
		FROM messages
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error("failed to list messages", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(
			&m.ID,
			&m.UserID,
			&m.ConversationID,
			&m.Body,
			&m.Read,
			&m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}

	return messages, nil
}

// UnreadCount returns how many of the user's messages are unread.
func (r *MessageRepository) UnreadCount(ctx context.Context, userID string) (int, error) {
	query := `SELECT COUNT(*) FROM messages WHERE user_id = $1 AND read = FALSE`

	var count int
	if err := r.db.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		r.logger.Error("failed to count unread messages", "user_id", userID, "error", err)
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}

	return count, nil
}
