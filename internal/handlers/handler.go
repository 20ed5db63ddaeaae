package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	mw "github.com/anugrahsoft/chatstream/internal/api/middleware"
	"github.com/anugrahsoft/chatstream/internal/auth"
	"github.com/anugrahsoft/chatstream/internal/chat"
	"github.com/anugrahsoft/chatstream/internal/models"
	"github.com/anugrahsoft/chatstream/internal/store"
)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	store    store.DataStore
	redis    *store.RedisStore // optional
	sessions *auth.Manager
	resolver *chat.Resolver
	ingest   *chat.Ingest
	streamer *chat.Streamer
	tracker  chat.Tracker
	logger   zerolog.Logger
}

// NewHandler creates a new Handler. redis may be nil.
func NewHandler(st store.DataStore, redis *store.RedisStore, sessions *auth.Manager, streamer *chat.Streamer, tracker chat.Tracker, logger zerolog.Logger) *Handler {
	return &Handler{
		store:    st,
		redis:    redis,
		sessions: sessions,
		resolver: chat.NewResolver(st),
		ingest:   chat.NewIngest(st),
		streamer: streamer,
		tracker:  tracker,
		logger:   logger,
	}
}

// resolveConversation maps the request's route parameters to a
// ConversationKey. Both addressing families land here: room routes carry a
// slug parameter, direct routes a handle parameter. Page, post and stream
// handlers all share this single resolution path.
func (h *Handler) resolveConversation(r *http.Request) (models.ConversationKey, error) {
	if slug := chi.URLParam(r, "slug"); slug != "" {
		return h.resolver.ResolveRoom(r.Context(), slug)
	}
	self := mw.GetUserFromContext(r.Context())
	return h.resolver.ResolveDirect(r.Context(), self, chi.URLParam(r, "handle"))
}
