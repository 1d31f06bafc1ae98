package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/helpdesk", "GET", 200, 15*time.Millisecond)
	m.RecordRequest("/helpdesk", "GET", 200, 5*time.Millisecond)
	m.RecordError("/helpdesk", "POST", "TICKET_ALREADY_OPEN")
	m.NotificationDropped("helpdesk:support")

	if got := testutil.ToFloat64(m.requests.WithLabelValues("/helpdesk", "GET", "200")); got != 2 {
		t.Fatalf("expected 2 requests, got %v", got)
	}
	if got := testutil.ToFloat64(m.errors.WithLabelValues("/helpdesk", "POST", "TICKET_ALREADY_OPEN")); got != 1 {
		t.Fatalf("expected 1 error, got %v", got)
	}
	if got := testutil.ToFloat64(m.droppedNotifies.WithLabelValues("helpdesk:support")); got != 1 {
		t.Fatalf("expected 1 dropped notification, got %v", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.RecordError("/", "GET", "X")
	m.NotificationDropped("t")
}
