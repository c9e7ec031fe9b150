package model

import "time"

// Message is a chat message between two users about an item. IDs are ULIDs,
// so sorting by ID reads a conversation in send order.
type Message struct {
	ID          string     `json:"id"`
	ItemID      int64      `json:"item_id"`
	SenderID    int64      `json:"sender_id"`
	RecipientID int64      `json:"recipient_id"`
	Body        string     `json:"body"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
