package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dan-divy/spruce-sub000/internal/core/domain"
	"github.com/dan-divy/spruce-sub000/internal/core/port"
)

// CredentialSource yields the access credential to present on a (re)connect handshake.
type CredentialSource func(ctx context.Context) string

// ChannelManager owns at most one live transport for a namespace. Open and Close
// are idempotent; events from a transport that is no longer current are dropped.
type ChannelManager struct {
	namespace    string
	factory      port.TransportFactory
	source       CredentialSource
	leaveOnClose bool
	logger       *zap.Logger
	metrics      port.ClientMetrics

	onConnected func(scope string)
	onEvent     func(event port.RealtimeEvent)

	mu        sync.Mutex
	state     domain.ChannelState
	scope     string
	identity  domain.Identity
	transport port.Transport
	connID    string
}

func newChannelManager(namespace string, factory port.TransportFactory, source CredentialSource, logger *zap.Logger) *ChannelManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChannelManager{
		namespace: namespace,
		factory:   factory,
		source:    source,
		logger:    logger.With(zap.String("namespace", namespace)),
		metrics:   nopMetrics{},
		state:     domain.ChannelClosed,
	}
}

// State returns the current lifecycle state.
func (m *ChannelManager) State() domain.ChannelState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Scope returns the scope key of the live channel, "" when closed.
func (m *ChannelManager) Scope() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == domain.ChannelClosed {
		return ""
	}
	return m.scope
}

// Namespace returns the realtime namespace served by this manager.
func (m *ChannelManager) Namespace() string {
	return m.namespace
}

// Connected returns an error unless the channel has completed its handshake.
func (m *ChannelManager) Connected(context.Context) error {
	if state := m.State(); state != domain.ChannelOpen {
		return fmt.Errorf("%s channel %s", m.namespace, state)
	}
	return nil
}

// Open establishes a transport bound to the credential and scope. It is a no-op while
// a channel for the identical scope and user is opening or open; any other live
// channel is closed first.
func (m *ChannelManager) Open(ctx context.Context, credential string, identity domain.Identity, scope string) error {
	for {
		m.mu.Lock()
		if m.state != domain.ChannelClosed && m.scope == scope && m.identity.UserID == identity.UserID {
			m.mu.Unlock()
			return nil
		}
		if m.state == domain.ChannelClosed {
			err := m.openLocked(ctx, credential, identity, scope)
			m.mu.Unlock()
			return err
		}
		stale := m.detachLocked()
		m.mu.Unlock()

		if err := m.closeTransport(stale); err != nil {
			m.logger.Warn("closing previous channel failed", zap.Error(err))
		}
	}
}

func (m *ChannelManager) openLocked(ctx context.Context, credential string, identity domain.Identity, scope string) error {
	connID := uuid.NewString()
	m.state = domain.ChannelOpening
	m.scope = scope
	m.identity = identity
	m.connID = connID

	transport, err := m.factory.Open(ctx, port.TransportOptions{
		Namespace:  m.namespace,
		Scope:      scope,
		Credential: m.credentialFunc(context.WithoutCancel(ctx), credential),
		Handlers: port.TransportHandlers{
			OnConnect:    func() { m.handleConnect(connID) },
			OnDisconnect: func(err error) { m.handleDisconnect(connID, err) },
			OnEvent:      func(event port.RealtimeEvent) { m.handleEvent(connID, event) },
		},
	})
	if err != nil {
		m.state = domain.ChannelClosed
		m.connID = ""
		m.scope = ""
		return fmt.Errorf("open %s channel: %w", m.namespace, err)
	}

	m.transport = transport
	m.metrics.ChannelOpened(m.namespace)
	m.logger.Debug("channel opening", zap.String("scope", scope), zap.String("conn_id", connID))
	return nil
}

// credentialFunc returns the open-time credential for the first handshake and
// re-reads the current access credential on every reconnect.
func (m *ChannelManager) credentialFunc(ctx context.Context, initial string) func() string {
	var attempts atomic.Int64
	return func() string {
		if attempts.Add(1) == 1 || m.source == nil {
			return initial
		}
		if fresh := m.source(ctx); fresh != "" {
			return fresh
		}
		return initial
	}
}

// Close tears down the live channel. Closing a closed manager is a no-op.
func (m *ChannelManager) Close() error {
	m.mu.Lock()
	transport := m.detachLocked()
	m.mu.Unlock()

	return m.closeTransport(transport)
}

// detachLocked emits the leave message, unbinds the live transport and returns it
// for closing outside the lock.
func (m *ChannelManager) detachLocked() port.Transport {
	if m.state == domain.ChannelClosed {
		return nil
	}

	transport := m.transport
	if m.leaveOnClose && transport != nil {
		leave := domain.JoinRequest{Identity: m.identity, Room: m.scope}
		if err := transport.Emit(domain.EventLeave, leave); err != nil {
			m.logger.Debug("leave emit failed", zap.Error(err))
		}
	}

	m.logger.Debug("channel closed", zap.String("scope", m.scope))
	m.connID = ""
	m.scope = ""
	m.transport = nil
	m.state = domain.ChannelClosed
	m.metrics.ChannelClosed(m.namespace)
	return transport
}

func (m *ChannelManager) closeTransport(transport port.Transport) error {
	if transport == nil {
		return nil
	}
	if err := transport.Close(); err != nil {
		return fmt.Errorf("close %s channel: %w", m.namespace, err)
	}
	return nil
}

// Emit sends a named message on the open channel.
func (m *ChannelManager) Emit(event string, payload any) error {
	m.mu.Lock()
	if m.state != domain.ChannelOpen || m.transport == nil {
		m.mu.Unlock()
		return domain.ErrChannelClosed
	}
	transport := m.transport
	m.mu.Unlock()

	if err := transport.Emit(event, payload); err != nil {
		return fmt.Errorf("emit %q: %w", event, err)
	}
	return nil
}

func (m *ChannelManager) handleConnect(connID string) {
	m.mu.Lock()
	if connID != m.connID || m.transport == nil {
		m.mu.Unlock()
		return
	}
	m.state = domain.ChannelOpen
	transport := m.transport
	scope := m.scope
	join := domain.JoinRequest{Identity: m.identity, Room: scope}
	m.mu.Unlock()

	if err := transport.Emit(domain.EventJoin, join); err != nil {
		m.logger.Warn("join emit failed", zap.Error(err))
	}
	m.logger.Debug("channel open", zap.String("scope", scope))

	if m.onConnected != nil {
		m.onConnected(scope)
	}
}

func (m *ChannelManager) handleDisconnect(connID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if connID != m.connID || m.state != domain.ChannelOpen {
		return
	}
	m.state = domain.ChannelOpening
	m.logger.Info("channel disconnected, reconnecting", zap.Error(err))
}

func (m *ChannelManager) isCurrent(connID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return connID != "" && connID == m.connID
}

func (m *ChannelManager) handleEvent(connID string, event port.RealtimeEvent) {
	if !m.isCurrent(connID) {
		m.logger.Debug("dropping event from stale channel", zap.String("event", event.Name))
		return
	}
	if m.onEvent != nil {
		m.onEvent(event)
	}
}
