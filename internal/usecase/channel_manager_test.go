package usecase

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/dan-divy/spruce-sub000/internal/core/domain"
)

var testSession = domain.SessionContext{
	SessionID: "s1",
	UserID:    "u1",
	Username:  "ada",
	Token:     "access-1",
}

func TestChatOpenTwiceWithSameScopeOpensOneTransport(t *testing.T) {
	factory := &fakeFactory{}
	chat := NewChatChannel("chat", factory, nil, zaptest.NewLogger(t))

	if err := chat.Join(context.Background(), testSession, "42"); err != nil {
		t.Fatalf("join: %v", err)
	}
	factory.last().connect()
	if err := chat.Join(context.Background(), testSession, "42"); err != nil {
		t.Fatalf("second join: %v", err)
	}

	if factory.count() != 1 {
		t.Fatalf("expected one transport, got %d", factory.count())
	}
	if chat.State() != domain.ChannelOpen {
		t.Fatalf("expected open, got %s", chat.State())
	}
}

func TestChatOpenWhileOpeningSameScopeIsNoop(t *testing.T) {
	factory := &fakeFactory{}
	chat := NewChatChannel("chat", factory, nil, zaptest.NewLogger(t))

	_ = chat.Join(context.Background(), testSession, "42")
	_ = chat.Join(context.Background(), testSession, "42")

	if factory.count() != 1 {
		t.Fatalf("expected one transport, got %d", factory.count())
	}
	if chat.State() != domain.ChannelOpening {
		t.Fatalf("expected opening, got %s", chat.State())
	}
}

func TestChatOpenWithNewScopeClosesThenOpens(t *testing.T) {
	log := &journal{}
	factory := &fakeFactory{journal: log}
	chat := NewChatChannel("chat", factory, nil, zaptest.NewLogger(t))

	_ = chat.Join(context.Background(), testSession, "42")
	first := factory.last()
	first.connect()

	if err := chat.Join(context.Background(), testSession, "43"); err != nil {
		t.Fatalf("join: %v", err)
	}

	if first.closeCount() != 1 {
		t.Fatalf("expected first transport closed once, got %d", first.closeCount())
	}
	want := []string{"open:42", "emit:join:42", "emit:leave:42", "close:42", "open:43"}
	if got := log.snapshot(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected sequence\n got: %v\nwant: %v", got, want)
	}
	if chat.Room() != "43" {
		t.Fatalf("expected room 43, got %q", chat.Room())
	}
}

func TestChatJoinHandshakeCarriesIdentityAndRoom(t *testing.T) {
	factory := &fakeFactory{}
	chat := NewChatChannel("chat", factory, nil, zaptest.NewLogger(t))

	var connectedRoom string
	chat.SetHandlers(ChatHandlers{OnConnected: func(room string) { connectedRoom = room }})

	_ = chat.Join(context.Background(), testSession, "42")
	transport := factory.last()
	transport.connect()

	if len(transport.emits) != 1 || transport.emits[0].event != domain.EventJoin {
		t.Fatalf("expected join emit, got %v", transport.emitted())
	}
	join, ok := transport.emits[0].payload.(domain.JoinRequest)
	if !ok {
		t.Fatalf("unexpected join payload %T", transport.emits[0].payload)
	}
	if join.Room != "42" || join.UserID != "u1" || join.Username != "ada" {
		t.Fatalf("unexpected join %+v", join)
	}
	if connectedRoom != "42" {
		t.Fatalf("expected connected callback for room 42, got %q", connectedRoom)
	}
}

func TestChatCloseIsIdempotent(t *testing.T) {
	factory := &fakeFactory{}
	chat := NewChatChannel("chat", factory, nil, zaptest.NewLogger(t))

	if err := chat.Close(); err != nil {
		t.Fatalf("close on closed manager: %v", err)
	}

	_ = chat.Join(context.Background(), testSession, "42")
	transport := factory.last()
	transport.connect()

	if err := chat.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := chat.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	if transport.closeCount() != 1 {
		t.Fatalf("expected one transport close, got %d", transport.closeCount())
	}
	if got := transport.emitted(); !reflect.DeepEqual(got, []string{domain.EventJoin, domain.EventLeave}) {
		t.Fatalf("unexpected emits %v", got)
	}
	if chat.State() != domain.ChannelClosed || chat.Room() != "" {
		t.Fatalf("expected closed manager, got %s room=%q", chat.State(), chat.Room())
	}
}

func TestChatSendRequiresOpenChannel(t *testing.T) {
	factory := &fakeFactory{}
	chat := NewChatChannel("chat", factory, nil, zaptest.NewLogger(t))

	if err := chat.Send("hi"); !errors.Is(err, domain.ErrChannelClosed) {
		t.Fatalf("expected ErrChannelClosed, got %v", err)
	}

	_ = chat.Join(context.Background(), testSession, "42")
	if err := chat.Typing(); !errors.Is(err, domain.ErrChannelClosed) {
		t.Fatalf("expected ErrChannelClosed while opening, got %v", err)
	}

	transport := factory.last()
	transport.connect()

	if err := chat.Send("hi"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := chat.Typing(); err != nil {
		t.Fatalf("typing: %v", err)
	}
	if err := chat.StopTyping(); err != nil {
		t.Fatalf("stop typing: %v", err)
	}

	want := []string{domain.EventJoin, domain.EventNewMessage, domain.EventTyping, domain.EventStopTyping}
	if got := transport.emitted(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected emits %v", got)
	}
	msg := transport.emits[1].payload.(domain.ChatMessage)
	if msg.Message != "hi" || msg.Username != "ada" {
		t.Fatalf("unexpected message %+v", msg)
	}
}

func TestChatDispatchesEvents(t *testing.T) {
	factory := &fakeFactory{}
	chat := NewChatChannel("chat", factory, nil, zaptest.NewLogger(t))

	var (
		history  []domain.ChatMessage
		messages []domain.ChatMessage
		presence []domain.PresenceEvent
		typing   []domain.TypingEvent
	)
	chat.SetHandlers(ChatHandlers{
		OnHistory:  func(m []domain.ChatMessage) { history = m },
		OnMessage:  func(m domain.ChatMessage) { messages = append(messages, m) },
		OnPresence: func(p domain.PresenceEvent) { presence = append(presence, p) },
		OnTyping:   func(e domain.TypingEvent) { typing = append(typing, e) },
	})

	_ = chat.Join(context.Background(), testSession, "42")
	transport := factory.last()
	transport.connect()

	transport.deliver(domain.EventHistory, []domain.ChatMessage{{Username: "bob", Message: "one"}, {Username: "eve", Message: "two"}})
	transport.deliver(domain.EventNewMessage, domain.ChatMessage{Username: "bob", Message: "three"})
	transport.deliver(domain.EventUserJoined, map[string]any{"username": "eve", "numUsers": 3})
	transport.deliver(domain.EventUserLeft, map[string]any{"username": "bob", "numUsers": 2})
	transport.deliver(domain.EventTyping, map[string]any{"username": "eve"})
	transport.deliver(domain.EventStopTyping, map[string]any{"username": "eve"})

	if len(history) != 2 || history[0].Message != "one" || history[1].Message != "two" {
		t.Fatalf("unexpected history %+v", history)
	}
	if len(messages) != 1 || messages[0].Message != "three" {
		t.Fatalf("unexpected messages %+v", messages)
	}
	if len(presence) != 2 || !presence[0].Joined || presence[0].NumUsers != 3 || presence[1].Joined || presence[1].NumUsers != 2 {
		t.Fatalf("unexpected presence %+v", presence)
	}
	if len(typing) != 2 || !typing[0].Typing || typing[1].Typing {
		t.Fatalf("unexpected typing %+v", typing)
	}
}

func TestChatDropsEventsFromStaleTransport(t *testing.T) {
	factory := &fakeFactory{}
	chat := NewChatChannel("chat", factory, nil, zaptest.NewLogger(t))

	var messages []domain.ChatMessage
	chat.SetHandlers(ChatHandlers{OnMessage: func(m domain.ChatMessage) { messages = append(messages, m) }})

	_ = chat.Join(context.Background(), testSession, "42")
	old := factory.last()
	old.connect()
	_ = chat.Join(context.Background(), testSession, "43")

	old.deliver(domain.EventNewMessage, domain.ChatMessage{Message: "late"})
	old.connect()

	if len(messages) != 0 {
		t.Fatalf("expected stale events dropped, got %+v", messages)
	}
	if chat.State() != domain.ChannelOpening || chat.Room() != "43" {
		t.Fatalf("stale connect must not change state, got %s room=%q", chat.State(), chat.Room())
	}
}

func TestReconnectRereadsCredential(t *testing.T) {
	factory := &fakeFactory{}
	current := "access-2"
	source := func(context.Context) string { return current }
	chat := NewChatChannel("chat", factory, source, zaptest.NewLogger(t))

	_ = chat.Join(context.Background(), testSession, "42")
	credential := factory.last().opts.Credential

	if got := credential(); got != "access-1" {
		t.Fatalf("expected open-time credential on first attempt, got %q", got)
	}
	if got := credential(); got != "access-2" {
		t.Fatalf("expected current credential on reconnect, got %q", got)
	}
	current = "access-3"
	if got := credential(); got != "access-3" {
		t.Fatalf("expected rotated credential on reconnect, got %q", got)
	}
}

func TestDisconnectMovesToOpeningAndReconnectRejoins(t *testing.T) {
	factory := &fakeFactory{}
	chat := NewChatChannel("chat", factory, nil, zaptest.NewLogger(t))

	_ = chat.Join(context.Background(), testSession, "42")
	transport := factory.last()
	transport.connect()

	transport.opts.Handlers.OnDisconnect(errors.New("network reset"))
	if chat.State() != domain.ChannelOpening {
		t.Fatalf("expected opening after disconnect, got %s", chat.State())
	}

	transport.connect()
	if chat.State() != domain.ChannelOpen {
		t.Fatalf("expected open after reconnect, got %s", chat.State())
	}
	if got := transport.emitted(); !reflect.DeepEqual(got, []string{domain.EventJoin, domain.EventJoin}) {
		t.Fatalf("expected join on every connect, got %v", got)
	}
}

func TestOpenFailureLeavesManagerClosed(t *testing.T) {
	factory := &fakeFactory{openErr: errors.New("dial refused")}
	chat := NewChatChannel("chat", factory, nil, zaptest.NewLogger(t))

	if err := chat.Join(context.Background(), testSession, "42"); err == nil {
		t.Fatalf("expected open error")
	}
	if chat.State() != domain.ChannelClosed {
		t.Fatalf("expected closed, got %s", chat.State())
	}
}

func TestNotificationEnsureForAnotherUserReopens(t *testing.T) {
	factory := &fakeFactory{}
	notifications := NewNotificationChannel("notifications", factory, nil, NewNotificationQueue(&recordingPresenter{}), zaptest.NewLogger(t))

	if err := notifications.Ensure(context.Background(), testSession); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	first := factory.last()
	first.connect()

	other := testSession
	other.SessionID = "s2"
	other.UserID = "u2"
	other.Username = "grace"
	other.Token = "access-2"
	if err := notifications.Ensure(context.Background(), other); err != nil {
		t.Fatalf("ensure for other user: %v", err)
	}

	if factory.count() != 2 {
		t.Fatalf("expected a second transport for the new user, got %d", factory.count())
	}
	if first.closeCount() != 1 {
		t.Fatalf("expected previous transport closed once, got %d", first.closeCount())
	}
	if state := notifications.State(); state != domain.ChannelOpening {
		t.Fatalf("expected opening, got %s", state)
	}
}

func TestNotificationChannelQueuesInboundEvents(t *testing.T) {
	factory := &fakeFactory{}
	presenter := &recordingPresenter{}
	queue := NewNotificationQueue(presenter)
	notifications := NewNotificationChannel("notifications", factory, nil, queue, zaptest.NewLogger(t))

	if err := notifications.Ensure(context.Background(), testSession); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := notifications.Ensure(context.Background(), testSession); err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if factory.count() != 1 {
		t.Fatalf("expected a single notification transport, got %d", factory.count())
	}

	transport := factory.last()
	transport.connect()
	transport.deliver(domain.EventNewPost, map[string]any{"author": "bob", "community": "Gophers"})
	transport.deliver(domain.EventNotification, "Welcome back")
	transport.deliver(domain.EventNewMessage, map[string]any{"message": "ignored"})

	displayed, ok := queue.Displayed()
	if !ok || displayed != "bob posted in Gophers" {
		t.Fatalf("unexpected displayed %q", displayed)
	}
	if pending := queue.Pending(); !reflect.DeepEqual(pending, []string{"Welcome back"}) {
		t.Fatalf("unexpected pending %v", pending)
	}

	if err := notifications.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	for _, name := range transport.emitted() {
		if name == domain.EventLeave {
			t.Fatalf("notification channel must not emit leave")
		}
	}
}

func TestConnectedReflectsHandshake(t *testing.T) {
	factory := &fakeFactory{}
	manager := newChannelManager("notifications", factory, nil, zaptest.NewLogger(t))

	if err := manager.Connected(context.Background()); err == nil {
		t.Fatal("expected closed channel to report not connected")
	}
	if err := manager.Open(context.Background(), "access-1", testSession.Identity(), ""); err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if err := manager.Connected(context.Background()); err == nil {
		t.Fatal("expected opening channel to report not connected")
	}
	factory.last().connect()
	if err := manager.Connected(context.Background()); err != nil {
		t.Fatalf("expected connected channel, got %v", err)
	}
}
