package store

import (
	"context"
	"fmt"
	"time"

	"campus-marketplace/internal/models"

	"github.com/jmoiron/sqlx"
)

// UserExists checks the user directory for id
func (q *queries) UserExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, q.ext, &exists,
		"SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)", id)
	if err != nil {
		return false, fmt.Errorf("failed to check user: %w", err)
	}
	return exists, nil
}

// CreateMessage inserts a message. Inserting an id that already exists is a no-op.
func (q *queries) CreateMessage(ctx context.Context, msg *models.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO messages (id, listing_id, from_user_id, to_user_id, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`

	if _, err := q.ext.ExecContext(ctx, query,
		msg.ID, msg.ListingID, msg.FromUserID, msg.ToUserID, msg.Content, msg.CreatedAt); err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// ListMessagesForRecipient retrieves messages received by userID, newest first
func (q *queries) ListMessagesForRecipient(ctx context.Context, userID string) ([]models.Message, error) {
	msgs := []models.Message{}
	err := sqlx.SelectContext(ctx, q.ext, &msgs, `
		SELECT id, listing_id, from_user_id, to_user_id, content, is_read, created_at
		FROM messages WHERE to_user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return msgs, nil
}
