package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/anugrahsoft/chatstream/internal/auth"
)

type loginPage struct {
	Next  string
	Error string
}

// LoginPage renders the login form.
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "login.html", loginPage{Next: r.URL.Query().Get("next")})
}

// Login verifies credentials and issues a session cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	handle := strings.TrimSpace(r.PostFormValue("handle"))
	password := r.PostFormValue("password")

	user, err := h.sessions.Login(r.Context(), handle, password)
	if err != nil {
		if errors.Is(err, auth.ErrBadCredentials) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusUnauthorized)
			h.render(w, r, "login.html", loginPage{
				Next:  r.PostFormValue("next"),
				Error: "Invalid handle or password.",
			})
			return
		}
		h.serverError(w, r, err)
		return
	}

	if err := h.sessions.Issue(r.Context(), w, user.ID); err != nil {
		h.serverError(w, r, err)
		return
	}

	next := r.PostFormValue("next")
	// Only same-site relative targets; anything else goes home.
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		next = "/"
	}
	http.Redirect(w, r, next, http.StatusFound)
}

// Logout clears the session and returns to the login page.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(r.Context(), w, r)
	http.Redirect(w, r, "/login", http.StatusFound)
}
