package domain

import "time"

// ChannelState is the lifecycle state of a realtime channel manager.
type ChannelState int

const (
	ChannelClosed ChannelState = iota
	ChannelOpening
	ChannelOpen
)

func (s ChannelState) String() string {
	switch s {
	case ChannelOpening:
		return "opening"
	case ChannelOpen:
		return "open"
	default:
		return "closed"
	}
}

// Realtime event names shared with the realtime server.
const (
	EventJoin         = "join"
	EventLeave        = "leave"
	EventNewMessage   = "new message"
	EventTyping       = "typing"
	EventStopTyping   = "stop typing"
	EventHistory      = "history"
	EventUserJoined   = "user joined"
	EventUserLeft     = "user left"
	EventNewPost      = "new post"
	EventNotification = "notification"
)

// ChatMessage is a single message posted to a chatroom.
type ChatMessage struct {
	ID       string    `json:"_id,omitempty"`
	Username string    `json:"username"`
	Message  string    `json:"message"`
	SentAt   time.Time `json:"timestamp,omitempty"`
}

// PresenceEvent reports a peer joining or leaving a chatroom.
type PresenceEvent struct {
	Username string `json:"username"`
	NumUsers int    `json:"numUsers"`
	Joined   bool   `json:"-"`
}

// TypingEvent reports a peer starting or stopping typing.
type TypingEvent struct {
	Username string `json:"username"`
	Typing   bool   `json:"-"`
}

// JoinRequest is the handshake emitted once a channel is connected.
type JoinRequest struct {
	Identity
	Room string `json:"room,omitempty"`
}

// Notification is an inbound payload from the notifications channel.
type Notification struct {
	Kind      string `json:"-"`
	Author    string `json:"author,omitempty"`
	Community string `json:"community,omitempty"`
	Text      string `json:"text,omitempty"`
}

// Summary renders the notification as a single line for presentation.
func (n Notification) Summary() string {
	switch {
	case n.Kind == EventNewPost && n.Author != "" && n.Community != "":
		return n.Author + " posted in " + n.Community
	case n.Kind == EventNewPost && n.Author != "":
		return n.Author + " published a new post"
	case n.Text != "":
		return n.Text
	default:
		return "You have a new notification"
	}
}
