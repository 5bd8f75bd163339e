package usecase

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/dan-divy/spruce-sub000/internal/core/domain"
	"github.com/dan-divy/spruce-sub000/internal/core/port"
)

// NotificationChannel is the notifications namespace manager. It has no scope key
// and feeds inbound posts and notifications into the queue.
type NotificationChannel struct {
	*ChannelManager
	queue *NotificationQueue
}

// NewNotificationChannel constructs the notification channel manager.
func NewNotificationChannel(namespace string, factory port.TransportFactory, source CredentialSource, queue *NotificationQueue, logger *zap.Logger) *NotificationChannel {
	n := &NotificationChannel{
		ChannelManager: newChannelManager(namespace, factory, source, logger),
		queue:          queue,
	}
	n.onEvent = n.dispatch
	return n
}

// WithMetrics records opens and closes.
func (n *NotificationChannel) WithMetrics(metrics port.ClientMetrics) *NotificationChannel {
	if metrics != nil {
		n.metrics = metrics
	}
	return n
}

// Ensure opens the channel for the session unless one is already live.
func (n *NotificationChannel) Ensure(ctx context.Context, session domain.SessionContext) error {
	return n.Open(ctx, session.Token, session.Identity(), "")
}

func (n *NotificationChannel) dispatch(event port.RealtimeEvent) {
	switch event.Name {
	case domain.EventNewPost, domain.EventNotification:
	default:
		n.logger.Debug("ignoring notification event", zap.String("event", event.Name))
		return
	}

	notification := domain.Notification{Kind: event.Name}
	if len(event.Data) > 0 {
		if err := json.Unmarshal(event.Data, &notification); err != nil {
			var text string
			if json.Unmarshal(event.Data, &text) != nil {
				n.logger.Warn("malformed notification", zap.String("event", event.Name), zap.Error(err))
				return
			}
			notification.Text = text
		}
		notification.Kind = event.Name
	}

	if n.queue != nil {
		n.queue.Enqueue(notification.Summary())
	}
}
