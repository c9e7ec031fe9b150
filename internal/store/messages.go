package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/lendhub/lendhub/internal/model"
)

// CreateMessage sends a message about an item from senderID to recipientID.
// One of the two parties must be the item's owner. Message IDs are ULIDs,
// so a conversation ordered by ID reads in send order.
func CreateMessage(ctx context.Context, db *sql.DB, itemID, senderID, recipientID int64, body string) (*model.Message, error) {
	if body == "" {
		return nil, fmt.Errorf("message body required: %w", ErrValidation)
	}
	if senderID == recipientID {
		return nil, fmt.Errorf("cannot message yourself: %w", ErrValidation)
	}

	item, err := GetItem(ctx, db, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil || item.DeletedAt != nil {
		return nil, fmt.Errorf("item %d: %w", itemID, ErrNotFound)
	}
	if item.OwnerID != senderID && item.OwnerID != recipientID {
		return nil, fmt.Errorf("conversation must involve the item owner: %w", ErrValidation)
	}

	id := ulid.Make().String()
	_, err = db.ExecContext(ctx,
		`INSERT INTO messages (id, item_id, sender_id, recipient_id, body) VALUES (?, ?, ?, ?, ?)`,
		id, itemID, senderID, recipientID, body,
	)
	if err != nil {
		return nil, fmt.Errorf("creating message: %w", err)
	}

	return GetMessage(ctx, db, id)
}

// GetMessage returns a message by ID.
func GetMessage(ctx context.Context, db *sql.DB, id string) (*model.Message, error) {
	m := &model.Message{}
	err := db.QueryRowContext(ctx,
		`SELECT id, item_id, sender_id, recipient_id, body, read_at, created_at
		 FROM messages WHERE id = ?`, id,
	).Scan(&m.ID, &m.ItemID, &m.SenderID, &m.RecipientID, &m.Body, &m.ReadAt, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting message: %w", err)
	}
	return m, nil
}

// ListConversation returns all messages about an item between two users,
// oldest first, and marks the ones addressed to userID as read.
func ListConversation(ctx context.Context, db *sql.DB, itemID, userID, otherID int64) ([]model.Message, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, item_id, sender_id, recipient_id, body, read_at, created_at
		 FROM messages
		 WHERE item_id = ?
		   AND ((sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?))
		 ORDER BY id`,
		itemID, userID, otherID, otherID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing conversation: %w", err)
	}
	defer rows.Close()

	var messages []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.ItemID, &m.SenderID, &m.RecipientID, &m.Body, &m.ReadAt, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	_, err = db.ExecContext(ctx,
		`UPDATE messages SET read_at = CURRENT_TIMESTAMP
		 WHERE item_id = ? AND recipient_id = ? AND sender_id = ? AND read_at IS NULL`,
		itemID, userID, otherID,
	)
	if err != nil {
		return nil, fmt.Errorf("marking messages read: %w", err)
	}

	return messages, nil
}

// UnreadMessageCount returns the number of unread messages addressed to
// userID.
func UnreadMessageCount(ctx context.Context, db *sql.DB, userID int64) (int, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE recipient_id = ? AND read_at IS NULL`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting unread messages: %w", err)
	}
	return count, nil
}
