package terminal

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/dan-divy/spruce-sub000/internal/core/domain"
	"github.com/dan-divy/spruce-sub000/internal/core/port"
	"github.com/dan-divy/spruce-sub000/internal/usecase"
)

// Renderer draws views as plain text. Writes are serialized so output from
// concurrent navigations and realtime events never interleaves mid-line.
type Renderer struct {
	mu  sync.Mutex
	out io.Writer
}

func NewRenderer(out io.Writer) *Renderer {
	return &Renderer{out: out}
}

func (r *Renderer) Shell(route domain.Route, session *domain.SessionContext) {
	var b strings.Builder
	fmt.Fprintf(&b, "== %s", route.View)
	if scope := routeScope(route); scope != "" {
		fmt.Fprintf(&b, " (%s)", scope)
	}
	b.WriteString(" ==")
	if session != nil {
		fmt.Fprintf(&b, " signed in as %s", session.Username)
		if session.Admin {
			b.WriteString(" [admin]")
		}
	}
	r.println(b.String())
}

func (r *Renderer) Populate(route domain.Route, data domain.ViewData) {
	var b strings.Builder
	if data.Title != "" {
		fmt.Fprintf(&b, "-- %s --\n", data.Title)
	}
	if len(data.Items) == 0 {
		fmt.Fprintf(&b, "   (nothing in %s)", route.View)
	}
	for i, item := range data.Items {
		if i > 0 {
			b.WriteByte('\n')
		}
		if item.ID != "" {
			fmt.Fprintf(&b, " * %s  [%s]", item.Label, item.ID)
		} else {
			fmt.Fprintf(&b, " * %s", item.Label)
		}
	}
	r.println(b.String())
}

func (r *Renderer) Alert(level domain.AlertLevel, message string) {
	r.println(fmt.Sprintf("[%s] %s", level, message))
}

// ChatHandlers prints chat traffic for the joined room.
func (r *Renderer) ChatHandlers() usecase.ChatHandlers {
	return usecase.ChatHandlers{
		OnConnected: func(room string) {
			r.println("joined room " + room)
		},
		OnHistory: func(messages []domain.ChatMessage) {
			for _, m := range messages {
				r.println(formatMessage(m))
			}
		},
		OnMessage: func(m domain.ChatMessage) {
			r.println(formatMessage(m))
		},
		OnPresence: func(p domain.PresenceEvent) {
			verb := "left"
			if p.Joined {
				verb = "joined"
			}
			r.println(fmt.Sprintf("%s %s (%d online)", p.Username, verb, p.NumUsers))
		},
		OnTyping: func(t domain.TypingEvent) {
			if t.Typing {
				r.println(t.Username + " is typing...")
			}
		},
	}
}

func (r *Renderer) println(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, line)
}

func formatMessage(m domain.ChatMessage) string {
	if m.SentAt.IsZero() {
		return fmt.Sprintf("<%s> %s", m.Username, m.Message)
	}
	return fmt.Sprintf("%s <%s> %s", m.SentAt.Format("15:04"), m.Username, m.Message)
}

func routeScope(route domain.Route) string {
	var parts []string
	for _, kv := range [][2]string{
		{"community", route.CommunityID},
		{"collection", route.CollectionID},
		{"file", route.FileID},
		{"room", route.ChatroomID},
		{"user", route.Username},
	} {
		if kv[1] != "" {
			parts = append(parts, kv[0]+" "+kv[1])
		}
	}
	return strings.Join(parts, ", ")
}

var _ port.Renderer = (*Renderer)(nil)
