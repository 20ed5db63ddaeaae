package models

import "time"

// MaxContentLength is the longest message content the store accepts, in
// bytes, measured after trimming.
const MaxContentLength = 255

// Message represents one chat message. Exactly one of RecipientID and RoomID
// is set: a message belongs to a direct conversation or to a room, never
// both. The store enforces this with a CHECK constraint and assigns strictly
// increasing ids, which double as stream cursors. Messages are immutable
// once created.
type Message struct {
	ID           int64     `json:"id"`
	SenderID     int64     `json:"sender_id"`
	SenderHandle string    `json:"sender_handle"`
	RecipientID  *int64    `json:"recipient_id,omitempty"`
	RoomID       *int64    `json:"room_id,omitempty"`
	Content      string    `json:"content"`
	CreatedAt    time.Time `json:"created_at"`
}
