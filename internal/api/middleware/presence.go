package middleware

import (
	"net/http"

	"github.com/anugrahsoft/chatstream/internal/chat"
)

// Presence records last-seen activity for the authenticated user after each
// request. The tracker is fire-and-forget; a failed write never affects the
// response. Runs after RequireUser so the user is on the context.
func Presence(tracker chat.Tracker) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)

			if user := GetUserFromContext(r.Context()); user != nil {
				tracker.RecordActivity(r.Context(), user.ID)
			}
		})
	}
}
