package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/dan-divy/spruce-sub000/internal/core/domain"
	"github.com/dan-divy/spruce-sub000/internal/core/port"
	"github.com/dan-divy/spruce-sub000/internal/infra/logger"
)

// DefaultClockSkew is how early an access credential is declared expired.
const DefaultClockSkew = 60 * time.Second

// Build steps named in SessionContext.Error.
const (
	stepReadRefresh  = "read refresh token"
	stepExchange     = "exchange refresh token"
	stepDecodeAccess = "decode access token"
)

var tracer = otel.Tracer("github.com/dan-divy/spruce-sub000/internal/usecase")

// SessionLifecycle answers whether the session is valid and rebuilds the session
// context from the stored refresh credential. Every network-facing step fails closed.
type SessionLifecycle struct {
	tokens    port.TokenStore
	authority port.SessionAuthority
	decoder   port.TokenDecoder
	events    port.EventPublisher
	validator port.RegistrationValidator
	metrics   port.ClientMetrics
	logger    *zap.Logger
	now       func() time.Time
	skew      time.Duration

	mu     sync.Mutex
	access string
}

// NewSessionLifecycle constructs a SessionLifecycle.
func NewSessionLifecycle(tokens port.TokenStore, authority port.SessionAuthority, decoder port.TokenDecoder, logger *zap.Logger) *SessionLifecycle {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionLifecycle{
		tokens:    tokens,
		authority: authority,
		decoder:   decoder,
		metrics:   nopMetrics{},
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		skew:      DefaultClockSkew,
	}
}

// WithClock overrides the internal clock for deterministic tests.
func (l *SessionLifecycle) WithClock(clock func() time.Time) *SessionLifecycle {
	if clock != nil {
		l.now = clock
	}
	return l
}

// WithClockSkew overrides the expiry safety offset.
func (l *SessionLifecycle) WithClockSkew(skew time.Duration) *SessionLifecycle {
	if skew >= 0 {
		l.skew = skew
	}
	return l
}

// WithEventPublisher enables publishing of session lifecycle events.
func (l *SessionLifecycle) WithEventPublisher(events port.EventPublisher) *SessionLifecycle {
	l.events = events
	return l
}

// WithRegistrationValidator sets the register form policy.
func (l *SessionLifecycle) WithRegistrationValidator(validator port.RegistrationValidator) *SessionLifecycle {
	l.validator = validator
	return l
}

// WithMetrics records build outcomes.
func (l *SessionLifecycle) WithMetrics(metrics port.ClientMetrics) *SessionLifecycle {
	if metrics != nil {
		l.metrics = metrics
	}
	return l
}

// IsInvalid reports whether the stored session must be treated as invalid.
// An absent or expired refresh credential is invalid without any network call;
// otherwise the authority's revocation answer is used, defaulting to invalid on error.
func (l *SessionLifecycle) IsInvalid(ctx context.Context) bool {
	refresh := l.tokens.Read(ctx)
	if refresh == "" {
		return true
	}

	claims, err := l.decoder.Decode(refresh)
	if err != nil {
		l.logger.Warn("stored refresh token is undecodable", zap.Error(err))
		l.publish(ctx, domain.SessionEventInvalidated, domain.Claims{}, "refresh_undecodable")
		return true
	}
	if !claims.ExpiresAt.IsZero() && !claims.ExpiresAt.After(l.now()) {
		l.publish(ctx, domain.SessionEventInvalidated, claims, "refresh_expired")
		return true
	}

	revoked, err := l.authority.Revoked(ctx, refresh)
	if err != nil {
		l.logger.Warn("revocation check failed, treating session as invalid",
			zap.String("refresh_token", logger.MaskToken(refresh)),
			zap.Error(err),
		)
		l.publish(ctx, domain.SessionEventInvalidated, claims, "revocation_check_failed")
		return true
	}
	if revoked {
		l.publish(ctx, domain.SessionEventInvalidated, claims, "revoked")
	}
	return revoked
}

// Build exchanges the stored refresh credential for an access credential and decodes
// it into a SessionContext. The first failing step short-circuits into a context
// whose Error names that step.
func (l *SessionLifecycle) Build(ctx context.Context) domain.SessionContext {
	ctx, span := tracer.Start(ctx, "SessionLifecycle.Build")
	defer span.End()

	refresh := l.tokens.Read(ctx)
	if refresh == "" {
		return l.failBuild(ctx, stepReadRefresh, domain.ErrNoRefreshToken)
	}

	access, err := l.authority.Access(ctx, refresh)
	if err != nil {
		return l.failBuild(ctx, stepExchange, err)
	}
	if strings.TrimSpace(access) == "" {
		return l.failBuild(ctx, stepExchange, domain.ErrMissingAccessToken)
	}

	claims, err := l.decoder.Decode(access)
	if err != nil {
		return l.failBuild(ctx, stepDecodeAccess, err)
	}

	l.setAccess(access)

	session := domain.NewSessionContext(claims, access)
	span.SetAttributes(
		attribute.String("session.id", session.SessionID),
		attribute.Bool("session.admin", session.Admin),
	)
	l.metrics.SessionBuilt("success")
	l.logger.Debug("session context built",
		zap.String("session_id", session.SessionID),
		zap.String("username", session.Username),
		zap.Bool("admin", session.Admin),
	)
	l.publish(ctx, domain.SessionEventBuilt, claims, "")

	return session
}

func (l *SessionLifecycle) failBuild(ctx context.Context, step string, err error) domain.SessionContext {
	session := domain.FailedSession(step, err)

	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, step)

	l.metrics.SessionBuilt("failure")
	l.logger.Warn("session build failed", zap.String("step", step), zap.Error(err))
	return session
}

// IsExpired decodes an access credential and reports whether it expires within the
// clock skew. Undecodable credentials are expired.
func (l *SessionLifecycle) IsExpired(token string) bool {
	if strings.TrimSpace(token) == "" {
		return true
	}
	claims, err := l.decoder.Decode(token)
	if err != nil {
		return true
	}
	return claims.IsExpired(l.now(), l.skew)
}

// Logout notifies the authority on a best-effort basis and always clears local credentials.
func (l *SessionLifecycle) Logout(ctx context.Context, session domain.SessionContext) {
	credential := l.tokens.Read(ctx)
	if credential == "" {
		credential = session.Token
	}

	if credential != "" {
		if err := l.authority.Logout(ctx, credential); err != nil {
			l.logger.Warn("logout notification failed", zap.Error(err))
		}
	}

	l.tokens.Clear(ctx)
	l.setAccess("")

	l.publish(ctx, domain.SessionEventLoggedOut, domain.Claims{
		SessionID: session.SessionID,
		UserID:    session.UserID,
	}, "user_logout")
}

// Login authenticates against the authority and persists the refresh credential
// with its own expiry.
func (l *SessionLifecycle) Login(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return fmt.Errorf("username and password are required")
	}

	creds, err := l.authority.Login(ctx, username, password)
	if err != nil {
		return err
	}

	var expiresAt int64
	if claims, err := l.decoder.Decode(creds.RefreshToken); err == nil && !claims.ExpiresAt.IsZero() {
		expiresAt = claims.ExpiresAt.Unix()
	}
	l.tokens.Save(ctx, creds.RefreshToken, expiresAt)
	l.setAccess(creds.AccessToken)

	claims, err := l.decoder.Decode(creds.AccessToken)
	if err != nil {
		claims = domain.Claims{Username: username}
	}
	l.publish(ctx, domain.SessionEventLoggedIn, claims, "")
	l.logger.Info("logged in", zap.String("username", username))
	return nil
}

// Register validates the register form and submits it to the authority.
func (l *SessionLifecycle) Register(ctx context.Context, form domain.Registration) error {
	if l.validator != nil {
		if err := l.validator.Validate(form); err != nil {
			return err
		}
	}
	if err := l.authority.Register(ctx, form); err != nil {
		return err
	}
	l.logger.Info("registered account", zap.String("email", logger.MaskEmail(form.Email)))
	return nil
}

// CurrentAccessToken returns the access credential for realtime handshakes. An
// expired credential is re-exchanged; on failure the last known value is returned.
func (l *SessionLifecycle) CurrentAccessToken(ctx context.Context) string {
	current := l.currentAccess()
	if current != "" && !l.IsExpired(current) {
		return current
	}

	refresh := l.tokens.Read(ctx)
	if refresh == "" {
		return current
	}

	access, err := l.authority.Access(ctx, refresh)
	if err != nil || strings.TrimSpace(access) == "" {
		if err == nil {
			err = domain.ErrMissingAccessToken
		}
		l.logger.Debug("access token refresh failed", zap.Error(err))
		return current
	}

	l.setAccess(access)
	return access
}

func (l *SessionLifecycle) currentAccess() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.access
}

func (l *SessionLifecycle) setAccess(token string) {
	l.mu.Lock()
	l.access = token
	l.mu.Unlock()
}

func (l *SessionLifecycle) publish(ctx context.Context, kind domain.SessionEventKind, claims domain.Claims, reason string) {
	if l.events == nil {
		return
	}

	event := domain.SessionEvent{
		EventID:   uuid.NewString(),
		Kind:      kind,
		SessionID: claims.SessionID,
		UserID:    claims.UserID,
		Reason:    reason,
		At:        l.now(),
	}
	if claims.Username != "" {
		event.Metadata = map[string]any{"username": claims.Username}
	}

	if err := l.events.PublishSessionEvent(ctx, event); err != nil {
		l.logger.Warn("publish session event failed",
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
	}
}
