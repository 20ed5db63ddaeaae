// Package chat implements the message delivery core: conversation
// resolution, message ingest, and the cursor-polling streamer that feeds
// server-sent events.
package chat

import "errors"

var (
	// ErrNotFound means the addressed room or user does not exist.
	ErrNotFound = errors.New("chat: conversation not found")

	// ErrInvalidConversation means the route is malformed, e.g. a direct
	// message addressed to the sender themself.
	ErrInvalidConversation = errors.New("chat: invalid conversation")

	// ErrContentTooLong means the trimmed message content exceeds the
	// store's maximum length.
	ErrContentTooLong = errors.New("chat: content too long")
)
