// Package auth implements the session collaborator: password checks and
// cookie-backed session tokens. The delivery core only consumes the
// authenticated user it produces.
package auth

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/anugrahsoft/chatstream/internal/models"
	"github.com/anugrahsoft/chatstream/internal/store"
)

// CookieName is the session cookie.
const CookieName = "chatstream_session"

const sessionMaxAge = 7 * 24 * time.Hour

// ErrBadCredentials is returned by Login for an unknown handle or a wrong
// password.
var ErrBadCredentials = errors.New("auth: invalid handle or password")

// SessionStore persists session tokens. RedisStore satisfies this in
// production; MemorySessions covers development and tests.
type SessionStore interface {
	PutSession(ctx context.Context, token string, userID int64) error
	GetSession(ctx context.Context, token string) (int64, error)
	DeleteSession(ctx context.Context, token string) error
}

// MemorySessions is an in-process SessionStore.
type MemorySessions struct {
	mu     sync.RWMutex
	tokens map[string]int64
}

// NewMemorySessions creates an empty MemorySessions.
func NewMemorySessions() *MemorySessions {
	return &MemorySessions{tokens: make(map[string]int64)}
}

func (m *MemorySessions) PutSession(_ context.Context, token string, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token] = userID
	return nil
}

func (m *MemorySessions) GetSession(_ context.Context, token string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tokens[token], nil
}

func (m *MemorySessions) DeleteSession(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, token)
	return nil
}

// Manager issues and resolves sessions.
type Manager struct {
	sessions SessionStore
	users    store.DataStore
	secure   bool
}

// NewManager creates a Manager. secure controls the cookie's Secure flag.
func NewManager(sessions SessionStore, users store.DataStore, secure bool) *Manager {
	return &Manager{sessions: sessions, users: users, secure: secure}
}

// Login verifies a handle/password pair and returns the user.
func (m *Manager) Login(ctx context.Context, handle, password string) (*models.User, error) {
	user, err := m.users.GetUserByHandle(ctx, handle)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrBadCredentials
	}
	return user, nil
}

// Issue creates a session for the user and sets the cookie on w.
func (m *Manager) Issue(ctx context.Context, w http.ResponseWriter, userID int64) error {
	token := uuid.NewString()
	if err := m.sessions.PutSession(ctx, token, userID); err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(sessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear deletes the request's session, if any, and expires the cookie.
func (m *Manager) Clear(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(CookieName); err == nil {
		_ = m.sessions.DeleteSession(ctx, cookie.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// UserFromRequest resolves the request's session cookie to a user. Returns
// (nil, nil) when the request carries no valid session.
func (m *Manager) UserFromRequest(r *http.Request) (*models.User, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil, nil
	}
	userID, err := m.sessions.GetSession(r.Context(), cookie.Value)
	if err != nil {
		return nil, err
	}
	if userID == 0 {
		return nil, nil
	}
	return m.users.GetUserByID(r.Context(), userID)
}
