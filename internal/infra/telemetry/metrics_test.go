package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/dan-divy/spruce-sub000/internal/core/domain"
)

func TestClientMetricsRecordsActivity(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := NewClientMetrics(MetricsOptions{Registerer: reg})
	if err != nil {
		t.Fatalf("NewClientMetrics returned error: %v", err)
	}

	metrics.Transition(domain.ViewAdmin, domain.ViewMain)
	metrics.Transition(domain.ViewAdmin, domain.ViewMain)
	metrics.Redirect("not_admin")
	metrics.StaleTransition()
	metrics.SessionBuilt("success")
	metrics.ChannelOpened("chat")
	metrics.ChannelClosed("chat")
	metrics.NotificationsPending(3)

	if got := testutil.ToFloat64(metrics.transitions.WithLabelValues("admin", "main")); got != 2 {
		t.Fatalf("expected 2 transitions, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.redirects.WithLabelValues("not_admin")); got != 1 {
		t.Fatalf("expected 1 redirect, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.stale); got != 1 {
		t.Fatalf("expected 1 stale transition, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.builds.WithLabelValues("success")); got != 1 {
		t.Fatalf("expected 1 build, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.opens.WithLabelValues("chat")); got != 1 {
		t.Fatalf("expected 1 open, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.closes.WithLabelValues("chat")); got != 1 {
		t.Fatalf("expected 1 close, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.pending); got != 3 {
		t.Fatalf("expected pending gauge 3, got %v", got)
	}
}

func TestClientMetricsReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewClientMetrics(MetricsOptions{Registerer: reg})
	if err != nil {
		t.Fatalf("first NewClientMetrics returned error: %v", err)
	}
	second, err := NewClientMetrics(MetricsOptions{Registerer: reg})
	if err != nil {
		t.Fatalf("second NewClientMetrics returned error: %v", err)
	}

	first.Redirect("unknown_view")
	second.Redirect("unknown_view")

	if got := testutil.ToFloat64(first.redirects.WithLabelValues("unknown_view")); got != 2 {
		t.Fatalf("expected shared counter at 2, got %v", got)
	}
}
