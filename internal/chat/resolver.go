package chat

import (
	"context"

	"github.com/anugrahsoft/chatstream/internal/models"
	"github.com/anugrahsoft/chatstream/internal/store"
)

// Resolver maps route parameters to a canonical ConversationKey. Both
// addressing families (room slug, recipient handle) go through here; page,
// stream and post handlers share one resolution path.
type Resolver struct {
	store store.DataStore
}

// NewResolver creates a Resolver backed by the given store.
func NewResolver(st store.DataStore) *Resolver {
	return &Resolver{store: st}
}

// ResolveRoom resolves a room slug. Returns ErrNotFound for an unknown slug.
func (r *Resolver) ResolveRoom(ctx context.Context, slug string) (models.ConversationKey, error) {
	room, err := r.store.GetRoomBySlug(ctx, slug)
	if err != nil {
		return models.ConversationKey{}, err
	}
	if room == nil {
		return models.ConversationKey{}, ErrNotFound
	}
	return models.RoomConversation(room), nil
}

// ResolveDirect resolves the direct conversation between the caller and the
// user with peerHandle. Returns ErrNotFound for an unknown handle and
// ErrInvalidConversation when the caller addresses themself.
func (r *Resolver) ResolveDirect(ctx context.Context, self *models.User, peerHandle string) (models.ConversationKey, error) {
	if peerHandle == self.Handle {
		return models.ConversationKey{}, ErrInvalidConversation
	}
	peer, err := r.store.GetUserByHandle(ctx, peerHandle)
	if err != nil {
		return models.ConversationKey{}, err
	}
	if peer == nil {
		return models.ConversationKey{}, ErrNotFound
	}
	return models.DirectConversation(self, peer), nil
}
