package usecase

import (
	"sync"

	"github.com/dan-divy/spruce-sub000/internal/core/port"
)

// NotificationQueue is a FIFO of transient messages with at most one displayed at a
// time. Only the presentation-complete signal advances the display.
type NotificationQueue struct {
	mu        sync.Mutex
	pending   []string
	displayed string
	showing   bool

	presenter port.NotificationPresenter
	metrics   port.ClientMetrics
}

// NewNotificationQueue constructs a queue signalling presenter on display changes.
func NewNotificationQueue(presenter port.NotificationPresenter) *NotificationQueue {
	return &NotificationQueue{presenter: presenter, metrics: nopMetrics{}}
}

// WithMetrics reports the pending count as a gauge.
func (q *NotificationQueue) WithMetrics(metrics port.ClientMetrics) *NotificationQueue {
	if metrics != nil {
		q.metrics = metrics
	}
	return q
}

// SetPresenter replaces the presentation layer.
func (q *NotificationQueue) SetPresenter(presenter port.NotificationPresenter) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.presenter = presenter
}

// Enqueue appends message. When nothing is displayed the head is promoted immediately.
func (q *NotificationQueue) Enqueue(message string) {
	q.mu.Lock()
	q.pending = append(q.pending, message)

	var present string
	promoted := false
	if !q.showing {
		present = q.promoteLocked()
		promoted = true
	}
	presenter := q.presenter
	q.metrics.NotificationsPending(len(q.pending))
	q.mu.Unlock()

	if promoted && presenter != nil {
		presenter.Present(present)
	}
}

// OnPresentationComplete retires the displayed message and promotes the next one,
// or clears the displayed slot when nothing is pending.
func (q *NotificationQueue) OnPresentationComplete() {
	q.mu.Lock()
	if !q.showing {
		q.mu.Unlock()
		return
	}

	var (
		present string
		idle    bool
	)
	if len(q.pending) > 0 {
		present = q.promoteLocked()
	} else {
		q.displayed = ""
		q.showing = false
		idle = true
	}
	presenter := q.presenter
	q.metrics.NotificationsPending(len(q.pending))
	q.mu.Unlock()

	if presenter == nil {
		return
	}
	if idle {
		presenter.Idle()
		return
	}
	presenter.Present(present)
}

func (q *NotificationQueue) promoteLocked() string {
	head := q.pending[0]
	q.pending[0] = ""
	q.pending = q.pending[1:]
	q.displayed = head
	q.showing = true
	return head
}

// Displayed returns the message currently shown and whether one is shown.
func (q *NotificationQueue) Displayed() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.displayed, q.showing
}

// Pending returns a copy of the pending messages in order.
func (q *NotificationQueue) Pending() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, len(q.pending))
	copy(out, q.pending)
	return out
}

// PendingCount returns the number of messages waiting to be displayed.
func (q *NotificationQueue) PendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
