package usecase

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dan-divy/spruce-sub000/internal/core/domain"
	"github.com/dan-divy/spruce-sub000/internal/core/port"
)

// ChatHandlers receives chat events. Nil handlers are skipped.
type ChatHandlers struct {
	OnConnected func(room string)
	OnHistory   func(messages []domain.ChatMessage)
	OnMessage   func(message domain.ChatMessage)
	OnPresence  func(event domain.PresenceEvent)
	OnTyping    func(event domain.TypingEvent)
}

// ChatChannel is the chat namespace manager; its scope key is the room id.
type ChatChannel struct {
	*ChannelManager

	mu       sync.RWMutex
	handlers ChatHandlers
	username string
	now      func() time.Time
}

// NewChatChannel constructs the chat channel manager.
func NewChatChannel(namespace string, factory port.TransportFactory, source CredentialSource, logger *zap.Logger) *ChatChannel {
	c := &ChatChannel{
		ChannelManager: newChannelManager(namespace, factory, source, logger),
		now:            func() time.Time { return time.Now().UTC() },
	}
	c.leaveOnClose = true
	c.onConnected = c.connected
	c.onEvent = c.dispatch
	return c
}

// WithMetrics records opens and closes.
func (c *ChatChannel) WithMetrics(metrics port.ClientMetrics) *ChatChannel {
	if metrics != nil {
		c.metrics = metrics
	}
	return c
}

// SetHandlers replaces the chat event subscription set.
func (c *ChatChannel) SetHandlers(handlers ChatHandlers) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = handlers
}

// Join opens the channel for room with the session's credential and identity.
func (c *ChatChannel) Join(ctx context.Context, session domain.SessionContext, room string) error {
	c.mu.Lock()
	c.username = session.Username
	c.mu.Unlock()
	return c.Open(ctx, session.Token, session.Identity(), room)
}

// Room returns the room id of the live channel.
func (c *ChatChannel) Room() string {
	return c.Scope()
}

// Send posts a message to the current room.
func (c *ChatChannel) Send(body string) error {
	return c.Emit(domain.EventNewMessage, domain.ChatMessage{
		Username: c.currentUsername(),
		Message:  body,
		SentAt:   c.now(),
	})
}

// Typing announces that the user started typing.
func (c *ChatChannel) Typing() error {
	return c.Emit(domain.EventTyping, domain.TypingEvent{Username: c.currentUsername(), Typing: true})
}

// StopTyping announces that the user stopped typing.
func (c *ChatChannel) StopTyping() error {
	return c.Emit(domain.EventStopTyping, domain.TypingEvent{Username: c.currentUsername()})
}

func (c *ChatChannel) currentUsername() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.username
}

func (c *ChatChannel) currentHandlers() ChatHandlers {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.handlers
}

func (c *ChatChannel) connected(room string) {
	if h := c.currentHandlers(); h.OnConnected != nil {
		h.OnConnected(room)
	}
}

func (c *ChatChannel) dispatch(event port.RealtimeEvent) {
	h := c.currentHandlers()

	switch event.Name {
	case domain.EventHistory:
		var messages []domain.ChatMessage
		if !c.decode(event, &messages) || h.OnHistory == nil {
			return
		}
		h.OnHistory(messages)
	case domain.EventNewMessage:
		var message domain.ChatMessage
		if !c.decode(event, &message) || h.OnMessage == nil {
			return
		}
		h.OnMessage(message)
	case domain.EventUserJoined, domain.EventUserLeft:
		var presence domain.PresenceEvent
		if !c.decode(event, &presence) || h.OnPresence == nil {
			return
		}
		presence.Joined = event.Name == domain.EventUserJoined
		h.OnPresence(presence)
	case domain.EventTyping, domain.EventStopTyping:
		var typing domain.TypingEvent
		if !c.decode(event, &typing) || h.OnTyping == nil {
			return
		}
		typing.Typing = event.Name == domain.EventTyping
		h.OnTyping(typing)
	default:
		c.logger.Debug("ignoring chat event", zap.String("event", event.Name))
	}
}

func (c *ChatChannel) decode(event port.RealtimeEvent, out any) bool {
	if len(event.Data) == 0 {
		return true
	}
	if err := json.Unmarshal(event.Data, out); err != nil {
		c.logger.Warn("malformed chat event", zap.String("event", event.Name), zap.Error(err))
		return false
	}
	return true
}
