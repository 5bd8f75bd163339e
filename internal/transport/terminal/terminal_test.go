package terminal

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dan-divy/spruce-sub000/internal/core/domain"
	"github.com/dan-divy/spruce-sub000/internal/usecase"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRendererShellAndPopulate(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(&out)

	session := &domain.SessionContext{Username: "ada", Admin: true}
	route := domain.Route{View: domain.ViewCommunity, CommunityID: "7"}
	r.Shell(route, session)
	r.Populate(route, domain.ViewData{Title: "Gardening", Items: []domain.ViewItem{{ID: "p1", Label: "First post"}}})
	r.Alert(domain.AlertError, "Unable to load community")

	got := out.String()
	for _, want := range []string{
		"== community (community 7) == signed in as ada [admin]",
		"-- Gardening --",
		" * First post  [p1]",
		"[error] Unable to load community",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in output:\n%s", want, got)
		}
	}
}

func TestRendererLoginShellHasNoUser(t *testing.T) {
	var out bytes.Buffer
	NewRenderer(&out).Shell(domain.Route{View: domain.ViewLogin}, nil)

	if got := strings.TrimSpace(out.String()); got != "== login ==" {
		t.Fatalf("unexpected login shell %q", got)
	}
}

func TestRendererChatHandlers(t *testing.T) {
	var out bytes.Buffer
	handlers := NewRenderer(&out).ChatHandlers()

	handlers.OnMessage(domain.ChatMessage{Username: "bob", Message: "hi"})
	handlers.OnPresence(domain.PresenceEvent{Username: "eve", NumUsers: 3, Joined: true})
	handlers.OnTyping(domain.TypingEvent{Username: "bob", Typing: false})

	got := out.String()
	if !strings.Contains(got, "<bob> hi") || !strings.Contains(got, "eve joined (3 online)") {
		t.Fatalf("unexpected chat output:\n%s", got)
	}
	if strings.Contains(got, "typing") {
		t.Fatalf("stop typing must not print, got:\n%s", got)
	}
}

func TestPresenterDrivesQueue(t *testing.T) {
	out := &syncBuffer{}
	presenter := NewPresenter(out, 10*time.Millisecond)
	queue := usecase.NewNotificationQueue(presenter)

	done := make(chan struct{})
	var once sync.Once
	presenter.OnComplete(func() {
		queue.OnPresentationComplete()
		if _, showing := queue.Displayed(); !showing {
			once.Do(func() { close(done) })
		}
	})

	queue.Enqueue("A")
	queue.Enqueue("B")

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for queue to drain")
	}

	got := out.String()
	if got != ">> A\n>> B\n" {
		t.Fatalf("expected both notifications in order, got %q", got)
	}
}

func TestPresenterStopCancelsCompletion(t *testing.T) {
	presenter := NewPresenter(&syncBuffer{}, 5*time.Millisecond)
	fired := make(chan struct{}, 1)
	presenter.OnComplete(func() { fired <- struct{}{} })

	presenter.Present("A")
	presenter.Stop()

	select {
	case <-fired:
		t.Fatal("completion fired after Stop")
	case <-time.After(50 * time.Millisecond):
	}
}
