package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dan-divy/spruce-sub000/internal/core/domain"
	"github.com/dan-divy/spruce-sub000/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Used when no brokers are configured.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a logging event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StubPublisher{logger: logger}
}

// PublishSessionEvent logs client.session.* events.
func (p *StubPublisher) PublishSessionEvent(_ context.Context, event domain.SessionEvent) error {
	at := event.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Debug("Stub event published",
		zap.String("event_type", string(event.Kind)),
		zap.String("session_id", event.SessionID),
		zap.String("user_id", event.UserID),
		zap.String("reason", event.Reason),
		zap.Time("timestamp", at.UTC()),
		zap.Any("metadata", event.Metadata),
	)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
