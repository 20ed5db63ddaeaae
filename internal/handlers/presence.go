package handlers

import (
	"net/http"

	mw "github.com/anugrahsoft/chatstream/internal/api/middleware"
)

// UpdateLastSeen is the explicit presence ping posted by the page script.
func (h *Handler) UpdateLastSeen(w http.ResponseWriter, r *http.Request) {
	user := mw.GetUserFromContext(r.Context())
	h.tracker.RecordActivity(r.Context(), user.ID)
	w.WriteHeader(http.StatusNoContent)
}
