package domain

import "time"

// SessionEventKind enumerates lifecycle transitions worth publishing.
type SessionEventKind string

const (
	SessionEventLoggedIn    SessionEventKind = "client.session.logged_in"
	SessionEventBuilt       SessionEventKind = "client.session.built"
	SessionEventInvalidated SessionEventKind = "client.session.invalidated"
	SessionEventLoggedOut   SessionEventKind = "client.session.logged_out"
)

// SessionEvent represents the payload for client.session.* messages.
type SessionEvent struct {
	EventID   string
	Kind      SessionEventKind
	SessionID string
	UserID    string
	Reason    string
	At        time.Time
	Metadata  map[string]any
}
