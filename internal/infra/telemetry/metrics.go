package telemetry

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dan-divy/spruce-sub000/internal/core/domain"
	"github.com/dan-divy/spruce-sub000/internal/core/port"
)

// MetricsOptions controls construction of client metrics collectors.
type MetricsOptions struct {
	Registerer prometheus.Registerer
	Namespace  string
}

// ClientMetrics wraps the Prometheus collectors for router, session and channel activity.
type ClientMetrics struct {
	transitions *prometheus.CounterVec
	redirects   *prometheus.CounterVec
	stale       prometheus.Counter
	builds      *prometheus.CounterVec
	opens       *prometheus.CounterVec
	closes      *prometheus.CounterVec
	pending     prometheus.Gauge
}

// NewClientMetrics constructs collectors and registers them with the supplied registerer.
func NewClientMetrics(opts MetricsOptions) (*ClientMetrics, error) {
	namespace := opts.Namespace
	if namespace == "" {
		namespace = "spruce"
	}

	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	var err error
	m := &ClientMetrics{}

	if m.transitions, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "router",
		Name:      "transitions_total",
		Help:      "Navigations partitioned by requested and resolved view.",
	}, []string{"requested", "resolved"})); err != nil {
		return nil, err
	}

	if m.redirects, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "router",
		Name:      "redirects_total",
		Help:      "Navigations redirected away from the requested view, by reason.",
	}, []string{"reason"})); err != nil {
		return nil, err
	}

	if m.stale, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "router",
		Name:      "stale_transitions_total",
		Help:      "Navigations discarded because a newer one superseded them.",
	})); err != nil {
		return nil, err
	}

	if m.builds, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "builds_total",
		Help:      "Session context builds partitioned by outcome.",
	}, []string{"outcome"})); err != nil {
		return nil, err
	}

	if m.opens, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "channel",
		Name:      "opens_total",
		Help:      "Realtime channels opened per namespace.",
	}, []string{"namespace"})); err != nil {
		return nil, err
	}

	if m.closes, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "channel",
		Name:      "closes_total",
		Help:      "Realtime channels closed per namespace.",
	}, []string{"namespace"})); err != nil {
		return nil, err
	}

	if m.pending, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "notifications_pending",
		Help:      "Notifications waiting behind the one currently displayed.",
	})); err != nil {
		return nil, err
	}

	return m, nil
}

// register adds c to reg, reusing an identical collector that is already registered.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return c, fmt.Errorf("register collector: %w", err)
		}
		existing, ok := already.ExistingCollector.(T)
		if !ok {
			return c, fmt.Errorf("existing collector has wrong type %T", already.ExistingCollector)
		}
		return existing, nil
	}
	return c, nil
}

func (m *ClientMetrics) SessionBuilt(outcome string) {
	m.builds.WithLabelValues(outcome).Inc()
}

func (m *ClientMetrics) Transition(requested, resolved domain.ViewName) {
	m.transitions.WithLabelValues(string(requested), string(resolved)).Inc()
}

func (m *ClientMetrics) Redirect(reason string) {
	m.redirects.WithLabelValues(reason).Inc()
}

func (m *ClientMetrics) StaleTransition() {
	m.stale.Inc()
}

func (m *ClientMetrics) ChannelOpened(namespace string) {
	m.opens.WithLabelValues(namespace).Inc()
}

func (m *ClientMetrics) ChannelClosed(namespace string) {
	m.closes.WithLabelValues(namespace).Inc()
}

func (m *ClientMetrics) NotificationsPending(count int) {
	m.pending.Set(float64(count))
}

var _ port.ClientMetrics = (*ClientMetrics)(nil)
