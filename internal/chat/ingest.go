package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/anugrahsoft/chatstream/internal/metrics"
	"github.com/anugrahsoft/chatstream/internal/models"
	"github.com/anugrahsoft/chatstream/internal/store"
)

// PostResult reports the outcome of an ingest call. A blank submission is
// absorbed without creating a row; NoOp distinguishes that from a persisted
// message.
type PostResult struct {
	ID   int64
	NoOp bool
}

// Ingest validates and persists new messages against resolved conversations.
type Ingest struct {
	store store.DataStore
}

// NewIngest creates an Ingest backed by the given store.
func NewIngest(st store.DataStore) *Ingest {
	return &Ingest{store: st}
}

// Post persists a message from sender to the conversation identified by key.
// Whitespace-only content succeeds without creating a row. Content longer
// than models.MaxContentLength after trimming is rejected with
// ErrContentTooLong. A conversation endpoint that vanished between
// resolution and insert surfaces as ErrNotFound.
func (i *Ingest) Post(ctx context.Context, key models.ConversationKey, sender *models.User, content string) (PostResult, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		metrics.BlankPosts.Inc()
		return PostResult{NoOp: true}, nil
	}
	if len(content) > models.MaxContentLength {
		return PostResult{}, ErrContentTooLong
	}

	msg := &models.Message{
		SenderID:     sender.ID,
		SenderHandle: sender.Handle,
		Content:      content,
	}
	switch key.Kind {
	case models.ConversationRoom:
		msg.RoomID = &key.Room.ID
	case models.ConversationDirect:
		msg.RecipientID = &key.Peer.ID
	default:
		return PostResult{}, ErrInvalidConversation
	}

	id, err := i.store.CreateMessage(ctx, msg)
	if err != nil {
		if errors.Is(err, store.ErrConstraint) {
			return PostResult{}, ErrNotFound
		}
		return PostResult{}, err
	}

	metrics.MessagesPosted.WithLabelValues(key.Type()).Inc()
	return PostResult{ID: id}, nil
}
