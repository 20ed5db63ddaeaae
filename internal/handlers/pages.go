package handlers

import (
	"errors"
	"html/template"
	"net/http"

	mw "github.com/anugrahsoft/chatstream/internal/api/middleware"
	"github.com/anugrahsoft/chatstream/internal/chat"
	"github.com/anugrahsoft/chatstream/internal/models"
	"github.com/anugrahsoft/chatstream/web"
)

var pageTemplates = web.Templates()

type homePage struct {
	User  *models.User
	Users []models.User
	Rooms []models.Room
}

type conversationPage struct {
	Title      string
	PostPath   string
	StreamPath string
	Since      int64
	Messages   []template.HTML
}

// Home renders the chat home page: everyone else plus all rooms.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	user := mw.GetUserFromContext(r.Context())

	users, err := h.store.ListUsers(r.Context(), user.ID)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	rooms, err := h.store.ListRooms(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	h.render(w, r, "home.html", homePage{User: user, Users: users, Rooms: rooms})
}

// ConversationPage renders a conversation: full history plus the id of the
// newest message, which the page embeds as the stream's initial cursor so
// the stream only carries messages created after render.
func (h *Handler) ConversationPage(w http.ResponseWriter, r *http.Request) {
	key, err := h.resolveConversation(r)
	if err != nil {
		h.conversationError(w, r, err)
		return
	}

	msgs, err := h.store.MessagesAfter(r.Context(), key, 0)
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	// The cursor comes from the fetched history itself, not a second query:
	// a message inserted between two queries would be missing from the page
	// yet already behind the cursor, so the viewer would never see it.
	var since int64
	if len(msgs) > 0 {
		since = msgs[len(msgs)-1].ID
	}

	page := conversationPage{
		Since:    since,
		Messages: make([]template.HTML, 0, len(msgs)),
	}
	for i := range msgs {
		page.Messages = append(page.Messages, template.HTML(chat.RenderMessage(&msgs[i])))
	}

	switch key.Kind {
	case models.ConversationRoom:
		page.Title = key.Room.Name
		page.PostPath = "/room/" + key.Room.Slug + "/post"
		page.StreamPath = "/room/" + key.Room.Slug + "/sse"
	case models.ConversationDirect:
		page.Title = "Chat with " + key.Peer.Handle
		page.PostPath = "/dm/" + key.Peer.Handle + "/post"
		page.StreamPath = "/dm/" + key.Peer.Handle + "/sse"
	}

	h.render(w, r, "conversation.html", page)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplates.ExecuteTemplate(w, name, data); err != nil {
		h.logger.Error().Err(err).Str("template", name).Str("path", r.URL.Path).Msg("template render failed")
	}
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	http.Error(w, "internal error", http.StatusInternalServerError)
}

// conversationError maps resolution failures to HTTP responses.
func (h *Handler) conversationError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, chat.ErrNotFound):
		http.Error(w, "no such conversation", http.StatusNotFound)
	case errors.Is(err, chat.ErrInvalidConversation):
		http.Error(w, "invalid conversation", http.StatusBadRequest)
	default:
		h.serverError(w, r, err)
	}
}
