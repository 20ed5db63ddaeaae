package handlers

import (
	"net/http"
	"strconv"

	"github.com/anugrahsoft/chatstream/internal/chat"
	"github.com/anugrahsoft/chatstream/internal/sse"
)

// StreamConversation opens the long-lived event stream for a conversation.
// The loop runs on this request's goroutine until the client disconnects or
// the server drains; the cursor lives entirely in this call frame.
func (h *Handler) StreamConversation(w http.ResponseWriter, r *http.Request) {
	key, err := h.resolveConversation(r)
	if err != nil {
		h.conversationError(w, r, err)
		return
	}

	writer, err := sse.NewWriter(w)
	if err != nil {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	_ = h.streamer.Run(r.Context(), key, initialCursor(r), func(ev chat.Event) error {
		return writer.WriteEvent(ev.ID, ev.Name, ev.Data)
	})
}

// initialCursor determines where a stream starts. A reconnecting client's
// Last-Event-ID header wins; a fresh open passes the page-render snapshot as
// the since parameter; with neither, the stream replays from the beginning.
func initialCursor(r *http.Request) int64 {
	if v := r.Header.Get("Last-Event-ID"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
			return n
		}
	}
	if v := r.URL.Query().Get("since"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
			return n
		}
	}
	return 0
}
