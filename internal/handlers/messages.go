package handlers

import (
	"errors"
	"net/http"

	mw "github.com/anugrahsoft/chatstream/internal/api/middleware"
	"github.com/anugrahsoft/chatstream/internal/chat"
)

// PostMessage persists a message posted to a conversation. The body is
// form-encoded with a single message field. Success is an empty 200 whether
// or not a row was created: blank submissions are deliberately absorbed.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	user := mw.GetUserFromContext(r.Context())

	key, err := h.resolveConversation(r)
	if err != nil {
		h.conversationError(w, r, err)
		return
	}

	if _, err := h.ingest.Post(r.Context(), key, user, r.PostFormValue("message")); err != nil {
		switch {
		case errors.Is(err, chat.ErrContentTooLong):
			http.Error(w, "message too long", http.StatusUnprocessableEntity)
		case errors.Is(err, chat.ErrNotFound):
			http.Error(w, "no such conversation", http.StatusNotFound)
		default:
			h.serverError(w, r, err)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
}
