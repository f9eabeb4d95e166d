package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestReplicaMetricsNilRegisterer(t *testing.T) {
	m := NewReplicaMetrics(nil)
	// All recorders must be safe no-ops without a registerer.
	m.IncEventApplied("order.opened")
	m.IncEventDropped()
	m.IncSequenceGap()
	m.IncSync("full")
	m.ObserveSyncDuration(time.Second)
	m.IncReconnectAttempt()
	m.IncChecksumMismatch()
}

func TestReplicaMetricsCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewReplicaMetrics(reg)

	m.IncEventApplied("order.opened")
	m.IncEventApplied("order.opened")
	m.IncSync("incremental")
	m.IncChecksumMismatch()

	if got := testutil.ToFloat64(m.eventsApplied.WithLabelValues("order.opened")); got != 2 {
		t.Fatalf("expected 2 applied events, got %v", got)
	}
	if got := testutil.ToFloat64(m.syncs.WithLabelValues("incremental")); got != 1 {
		t.Fatalf("expected 1 incremental sync, got %v", got)
	}
	if got := testutil.ToFloat64(m.checksumMismatch); got != 1 {
		t.Fatalf("expected 1 checksum mismatch, got %v", got)
	}
}

func TestNormalizeLabel(t *testing.T) {
	if got := normalizeLabel(""); got != "unknown" {
		t.Fatalf("empty label should normalize to unknown, got %q", got)
	}
}
