package domain

import "time"

// Community is the summary of a community the signed-in user belongs to.
type Community struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

// Claims carries the decoded identity and capability fields of a credential.
type Claims struct {
	SessionID string
	UserID    string
	Username  string
	Admin     bool
	Community []Community
	ExpiresAt time.Time
}

// IsExpired reports whether the claims are expired at the supplied moment, declaring
// expiry skew earlier than the actual expiration. A zero ExpiresAt is expired.
func (c Claims) IsExpired(at time.Time, skew time.Duration) bool {
	if c.ExpiresAt.IsZero() {
		return true
	}
	return !c.ExpiresAt.Add(-skew).After(at)
}

// SessionContext is the in-memory view of an authenticated session.
// It is rebuilt rather than mutated, except for the navigation-scoped fields.
type SessionContext struct {
	SessionID string
	UserID    string
	Username  string
	Admin     bool
	Community []Community
	Token     string
	Error     string

	CollectionID string
	CommunityID  string
	ChatroomID   string
	FileID       string
}

// FailedSession builds a context describing the step that failed.
func FailedSession(step string, err error) SessionContext {
	msg := step
	if err != nil {
		msg = step + ": " + err.Error()
	}
	return SessionContext{Error: msg}
}

// NewSessionContext attaches an access credential to its decoded claims.
func NewSessionContext(claims Claims, token string) SessionContext {
	communities := make([]Community, len(claims.Community))
	copy(communities, claims.Community)
	return SessionContext{
		SessionID: claims.SessionID,
		UserID:    claims.UserID,
		Username:  claims.Username,
		Admin:     claims.Admin,
		Community: communities,
		Token:     token,
	}
}

// Usable reports whether the context may authorize a view render.
func (s *SessionContext) Usable() bool {
	return s != nil && s.Error == "" && s.Token != ""
}

// ApplyNavigation overwrites the navigation-scoped fields from a route.
// Fields missing from the route are cleared, never carried over.
func (s *SessionContext) ApplyNavigation(route Route) {
	s.CollectionID = route.CollectionID
	s.CommunityID = route.CommunityID
	s.ChatroomID = route.ChatroomID
	s.FileID = route.FileID
}

// Identity returns the identity presented in realtime join handshakes.
func (s SessionContext) Identity() Identity {
	return Identity{UserID: s.UserID, Username: s.Username, SessionID: s.SessionID}
}

// Identity names the user behind a realtime channel.
type Identity struct {
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	SessionID string `json:"sessionId,omitempty"`
}
