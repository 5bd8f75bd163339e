package port

import (
	"context"
	"encoding/json"
)

// RealtimeEvent is a named message received over a realtime transport.
type RealtimeEvent struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data,omitempty"`
}

// TransportHandlers is the subscription set bound once per transport.
type TransportHandlers struct {
	OnConnect    func()
	OnDisconnect func(err error)
	OnEvent      func(event RealtimeEvent)
}

// TransportOptions configures a realtime transport.
type TransportOptions struct {
	Namespace string
	Scope     string
	// Credential is called before every connection attempt, including reconnects.
	Credential func() string
	Handlers   TransportHandlers
}

// Transport is a bidirectional channel owned by a single channel manager.
type Transport interface {
	Emit(event string, payload any) error
	Close() error
}

// TransportFactory opens transports. Open returns once connecting has started;
// OnConnect fires for every established connection.
type TransportFactory interface {
	Open(ctx context.Context, opts TransportOptions) (Transport, error)
}
