package chat

import (
	"fmt"
	"html"

	"github.com/anugrahsoft/chatstream/internal/models"
)

// RenderMessage returns the HTML fragment pushed for one message. Pages use
// the same fragment when rendering history, so live and rendered messages
// look identical.
func RenderMessage(m *models.Message) string {
	return fmt.Sprintf("<p><strong>%s:</strong> %s</p>",
		html.EscapeString(m.SenderHandle), html.EscapeString(m.Content))
}
