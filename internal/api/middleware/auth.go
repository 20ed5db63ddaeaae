package middleware

import (
	"context"
	"net/http"
	"net/url"

	"github.com/anugrahsoft/chatstream/internal/auth"
	"github.com/anugrahsoft/chatstream/internal/models"
)

type contextKey string

const UserContextKey contextKey = "user"

// AuthMiddleware resolves session cookies and gates authenticated routes.
type AuthMiddleware struct {
	sessions *auth.Manager
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(sessions *auth.Manager) *AuthMiddleware {
	return &AuthMiddleware{sessions: sessions}
}

// RequireUser resolves the caller's session and puts the user on the request
// context. Requests without a valid session are redirected to the login page
// with a next parameter, matching browser-facing flows.
func (m *AuthMiddleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := m.sessions.UserFromRequest(r)
		if err != nil {
			http.Error(w, "session lookup failed", http.StatusInternalServerError)
			return
		}
		if user == nil {
			http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.Path), http.StatusFound)
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserFromContext retrieves the authenticated user from the request
// context, or nil.
func GetUserFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(UserContextKey).(*models.User)
	return user
}
