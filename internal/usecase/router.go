package usecase

import (
	"context"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/dan-divy/spruce-sub000/internal/core/domain"
	"github.com/dan-divy/spruce-sub000/internal/core/port"
)

// Redirect reasons reported on transitions and metrics.
const (
	RedirectUnknownView   = "unknown_view"
	RedirectInvalid       = "session_invalid"
	RedirectBuildFailed   = "session_build_failed"
	RedirectNotAdmin      = "not_admin"
	RedirectAuthenticated = "already_authenticated"
)

// SessionGuard is the part of SessionLifecycle the router depends on.
type SessionGuard interface {
	IsInvalid(ctx context.Context) bool
	Build(ctx context.Context) domain.SessionContext
	IsExpired(token string) bool
	Logout(ctx context.Context, session domain.SessionContext)
}

// Transition describes the outcome of one navigation.
type Transition struct {
	Generation uint64
	Requested  domain.ViewName
	Resolved   domain.ViewName
	Route      domain.Route
	Reason     string
	// Stale is set when a newer navigation superseded this one before it rendered.
	Stale bool
}

// ViewRouter is the navigation state machine. It owns the session context and
// drives the chat and notification channels in lock-step with view transitions.
type ViewRouter struct {
	sessions      SessionGuard
	chat          *ChatChannel
	notifications *NotificationChannel
	content       port.ContentSource
	renderer      port.Renderer
	metrics       port.ClientMetrics
	logger        *zap.Logger

	generation atomic.Uint64

	mu      sync.Mutex
	session *domain.SessionContext
	current domain.Route
}

// NewViewRouter constructs a ViewRouter in the unresolved state.
func NewViewRouter(sessions SessionGuard, chat *ChatChannel, notifications *NotificationChannel, content port.ContentSource, renderer port.Renderer, logger *zap.Logger) *ViewRouter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ViewRouter{
		sessions:      sessions,
		chat:          chat,
		notifications: notifications,
		content:       content,
		renderer:      renderer,
		metrics:       nopMetrics{},
		logger:        logger,
	}
}

// WithMetrics records transitions, redirects and stale navigations.
func (r *ViewRouter) WithMetrics(metrics port.ClientMetrics) *ViewRouter {
	if metrics != nil {
		r.metrics = metrics
	}
	return r
}

// Navigate runs the full transition algorithm for fragment. Every call re-validates
// the session; a transition superseded by a newer one discards its render and
// side effects.
func (r *ViewRouter) Navigate(ctx context.Context, fragment string) Transition {
	gen := r.generation.Add(1)

	ctx, span := tracer.Start(ctx, "ViewRouter.Navigate")
	defer span.End()
	span.SetAttributes(attribute.Int64("router.generation", int64(gen)))

	log := r.logger.With(zap.Uint64("generation", gen), zap.String("fragment", fragment))

	route := ParseFragment(fragment)
	t := Transition{Generation: gen, Requested: route.View}
	if !route.View.IsKnown() {
		route = route.Redirect(domain.ViewMain)
		t.Reason = RedirectUnknownView
		r.metrics.Redirect(RedirectUnknownView)
	}

	if r.sessions.IsInvalid(ctx) {
		return r.enterSignedOut(ctx, gen, t, route, RedirectInvalid, log)
	}

	session, ok := r.ensureSession(ctx)
	if !ok {
		return r.enterSignedOut(ctx, gen, t, route, RedirectBuildFailed, log)
	}

	if r.isStale(gen) {
		return r.discard(t, log)
	}
	session.ApplyNavigation(route)

	r.teardownChat(route, log)

	switch {
	case route.View.IsAdmin() && !session.Admin:
		route = route.Redirect(domain.ViewMain)
		session.ApplyNavigation(route)
		t.Reason = RedirectNotAdmin
		r.metrics.Redirect(RedirectNotAdmin)
	case route.View.IsPublic():
		route = route.Redirect(domain.ViewMain)
		session.ApplyNavigation(route)
		t.Reason = RedirectAuthenticated
		r.metrics.Redirect(RedirectAuthenticated)
	}

	return r.enter(ctx, gen, t, route, session, log)
}

// ensureSession returns a usable session, rebuilding it when absent or expired.
func (r *ViewRouter) ensureSession(ctx context.Context) (domain.SessionContext, bool) {
	r.mu.Lock()
	var existing *domain.SessionContext
	if r.session != nil {
		copied := *r.session
		existing = &copied
	}
	r.mu.Unlock()

	if existing != nil && existing.Usable() && !r.sessions.IsExpired(existing.Token) {
		return *existing, true
	}

	built := r.sessions.Build(ctx)
	if !built.Usable() {
		return built, false
	}

	r.mu.Lock()
	r.session = &built
	r.mu.Unlock()
	return built, true
}

// enterSignedOut tears down every channel, drops the context and renders login
// (or register when it was requested).
func (r *ViewRouter) enterSignedOut(ctx context.Context, gen uint64, t Transition, route domain.Route, reason string, log *zap.Logger) Transition {
	if r.isStale(gen) {
		return r.discard(t, log)
	}

	target := domain.ViewLogin
	if t.Requested == domain.ViewRegister {
		target = domain.ViewRegister
	}
	route = route.Redirect(target)
	if t.Requested == target {
		t.Reason = ""
	} else {
		t.Reason = reason
		r.metrics.Redirect(reason)
	}

	// The context is dropped before the channels close so a superseded transition
	// that opens one afterwards sees it and releases it again.
	r.mu.Lock()
	r.session = nil
	r.current = route
	r.mu.Unlock()
	r.closeChannels(log)

	r.renderer.Shell(route, nil)

	t.Resolved = route.View
	t.Route = route
	r.metrics.Transition(t.Requested, t.Resolved)
	log.Info("navigation resolved", zap.String("view", string(route.View)), zap.String("reason", t.Reason))
	return t
}

// enter renders the resolved view and runs its setup.
func (r *ViewRouter) enter(ctx context.Context, gen uint64, t Transition, route domain.Route, session domain.SessionContext, log *zap.Logger) Transition {
	if r.isStale(gen) {
		return r.discard(t, log)
	}

	r.mu.Lock()
	r.current = route
	if r.session != nil {
		r.session.ApplyNavigation(route)
	}
	r.mu.Unlock()
	// A superseded transition may have joined a room after this one's teardown ran.
	r.teardownChat(route, log)

	r.renderer.Shell(route, &session)
	t.Resolved = route.View
	t.Route = route
	r.metrics.Transition(t.Requested, t.Resolved)
	log.Info("navigation resolved", zap.String("view", string(route.View)), zap.String("reason", t.Reason))

	if r.notifications != nil {
		if r.isStale(gen) {
			return r.discard(t, log)
		}
		if err := r.notifications.Ensure(ctx, session); err != nil {
			log.Warn("notification channel unavailable", zap.Error(err))
		}
		if r.isStale(gen) {
			r.releaseSuperseded(log)
			return r.discard(t, log)
		}
	}

	if route.View == domain.ViewChat && route.ChatroomID != "" && r.chat != nil {
		if r.isStale(gen) {
			return r.discard(t, log)
		}
		if err := r.chat.Join(ctx, session, route.ChatroomID); err != nil {
			log.Warn("chat channel unavailable", zap.Error(err))
			r.renderer.Alert(domain.AlertError, "Unable to join the chatroom")
		}
		if r.isStale(gen) {
			r.releaseSuperseded(log)
			return r.discard(t, log)
		}
	}

	if r.content == nil {
		return t
	}
	data, err := r.content.Load(ctx, route, session)
	if r.isStale(gen) {
		return r.discard(t, log)
	}
	if err != nil {
		log.Warn("view setup failed", zap.String("view", string(route.View)), zap.Error(err))
		r.renderer.Alert(domain.AlertError, "Unable to load "+string(route.View))
		return t
	}
	r.renderer.Populate(route, data)
	return t
}

// teardownChat closes the chat channel unless the route keeps the same room.
func (r *ViewRouter) teardownChat(route domain.Route, log *zap.Logger) {
	if r.chat == nil || r.chat.State() == domain.ChannelClosed {
		return
	}
	if route.View == domain.ViewChat && route.ChatroomID == r.chat.Room() {
		return
	}
	if err := r.chat.Close(); err != nil {
		log.Warn("closing chat channel failed", zap.Error(err))
	}
}

func (r *ViewRouter) closeChannels(log *zap.Logger) {
	if r.chat != nil {
		if err := r.chat.Close(); err != nil {
			log.Warn("closing chat channel failed", zap.Error(err))
		}
	}
	if r.notifications != nil {
		if err := r.notifications.Close(); err != nil {
			log.Warn("closing notification channel failed", zap.Error(err))
		}
	}
}

// releaseSuperseded closes whatever a superseded transition opened that the
// router's newer state does not keep.
func (r *ViewRouter) releaseSuperseded(log *zap.Logger) {
	r.mu.Lock()
	signedOut := r.session == nil
	current := r.current
	r.mu.Unlock()

	if signedOut {
		r.closeChannels(log)
		return
	}
	r.teardownChat(current, log)
}

func (r *ViewRouter) isStale(gen uint64) bool {
	return r.generation.Load() != gen
}

func (r *ViewRouter) discard(t Transition, log *zap.Logger) Transition {
	t.Stale = true
	r.metrics.StaleTransition()
	log.Debug("discarding superseded navigation")
	return t
}

// Logout closes both channels, notifies the authority, clears local credentials
// and navigates to login.
func (r *ViewRouter) Logout(ctx context.Context) Transition {
	r.mu.Lock()
	var session domain.SessionContext
	if r.session != nil {
		session = *r.session
	}
	r.session = nil
	r.mu.Unlock()

	r.closeChannels(r.logger)
	r.sessions.Logout(ctx, session)
	return r.Navigate(ctx, "#"+string(domain.ViewLogin))
}

// Session returns a copy of the current session context.
func (r *ViewRouter) Session() (domain.SessionContext, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return domain.SessionContext{}, false
	}
	return *r.session, true
}

// Current returns the route of the view currently showing.
func (r *ViewRouter) Current() domain.Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Generation returns the number of navigations started so far.
func (r *ViewRouter) Generation() uint64 {
	return r.generation.Load()
}

// Snapshot is a point-in-time summary of the client for status reporting.
type Snapshot struct {
	Generation    uint64          `json:"generation"`
	View          domain.ViewName `json:"view"`
	Fragment      string          `json:"fragment"`
	Authenticated bool            `json:"authenticated"`
	Username      string          `json:"username,omitempty"`
	Admin         bool            `json:"admin"`
	ChatState     string          `json:"chat_state"`
	ChatRoom      string          `json:"chat_room,omitempty"`
	Notifications string          `json:"notification_state"`
	Displayed     string          `json:"displayed_notification,omitempty"`
	Pending       int             `json:"pending_notifications"`
}

// Snapshot reports the current view, session and channel states.
func (r *ViewRouter) Snapshot() Snapshot {
	r.mu.Lock()
	s := Snapshot{
		Generation: r.generation.Load(),
		View:       r.current.View,
		Fragment:   r.current.Fragment,
	}
	if r.session != nil {
		s.Authenticated = true
		s.Username = r.session.Username
		s.Admin = r.session.Admin
	}
	r.mu.Unlock()

	s.ChatState = domain.ChannelClosed.String()
	if r.chat != nil {
		s.ChatState = r.chat.State().String()
		s.ChatRoom = r.chat.Room()
	}
	s.Notifications = domain.ChannelClosed.String()
	if r.notifications != nil {
		s.Notifications = r.notifications.State().String()
		if q := r.notifications.queue; q != nil {
			s.Displayed, _ = q.Displayed()
			s.Pending = q.PendingCount()
		}
	}
	return s
}
