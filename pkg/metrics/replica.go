package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ReplicaMetrics records event intake and synchronization outcomes.
type ReplicaMetrics struct {
	eventsApplied     *prometheus.CounterVec
	eventsDropped     prometheus.Counter
	sequenceGaps      prometheus.Counter
	syncs             *prometheus.CounterVec
	syncDuration      prometheus.Histogram
	reconnectAttempts prometheus.Counter
	checksumMismatch  prometheus.Counter
}

// NewReplicaMetrics registers the replica metrics on the provided registerer.
func NewReplicaMetrics(reg prometheus.Registerer) *ReplicaMetrics {
	if reg == nil {
		return &ReplicaMetrics{}
	}
	eventsApplied := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "replica_events_applied_total",
		Help: "Order events folded into the replica, by event type.",
	}, []string{"event_type"})
	eventsDropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "replica_events_dropped_total",
		Help: "Duplicate events dropped by the sequence check.",
	})
	sequenceGaps := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "replica_sequence_gaps_total",
		Help: "Events applied past a gap in the sequence.",
	})
	syncs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "replica_syncs_total",
		Help: "Completed synchronizations, by mode (full or incremental).",
	}, []string{"mode"})
	syncDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "replica_sync_duration_seconds",
		Help:    "Duration of sync round-trips in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	reconnectAttempts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "replica_reconnect_attempts_total",
		Help: "Reconnection attempts made by the sync protocol.",
	})
	checksumMismatch := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "replica_checksum_mismatch_total",
		Help: "State checksum mismatches detected against the server.",
	})
	reg.MustRegister(eventsApplied, eventsDropped, sequenceGaps, syncs, syncDuration, reconnectAttempts, checksumMismatch)
	return &ReplicaMetrics{
		eventsApplied:     eventsApplied,
		eventsDropped:     eventsDropped,
		sequenceGaps:      sequenceGaps,
		syncs:             syncs,
		syncDuration:      syncDuration,
		reconnectAttempts: reconnectAttempts,
		checksumMismatch:  checksumMismatch,
	}
}

// IncEventApplied increments the applied counter for the event type.
func (m *ReplicaMetrics) IncEventApplied(eventType string) {
	if m == nil || m.eventsApplied == nil {
		return
	}
	m.eventsApplied.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncEventDropped increments the duplicate-drop counter.
func (m *ReplicaMetrics) IncEventDropped() {
	if m == nil || m.eventsDropped == nil {
		return
	}
	m.eventsDropped.Inc()
}

// IncSequenceGap increments the gap counter.
func (m *ReplicaMetrics) IncSequenceGap() {
	if m == nil || m.sequenceGaps == nil {
		return
	}
	m.sequenceGaps.Inc()
}

// IncSync increments the sync counter for the given mode.
func (m *ReplicaMetrics) IncSync(mode string) {
	if m == nil || m.syncs == nil {
		return
	}
	m.syncs.WithLabelValues(normalizeLabel(mode)).Inc()
}

// ObserveSyncDuration records the duration of one sync round-trip.
func (m *ReplicaMetrics) ObserveSyncDuration(duration time.Duration) {
	if m == nil || m.syncDuration == nil {
		return
	}
	m.syncDuration.Observe(duration.Seconds())
}

// IncReconnectAttempt increments the reconnect counter.
func (m *ReplicaMetrics) IncReconnectAttempt() {
	if m == nil || m.reconnectAttempts == nil {
		return
	}
	m.reconnectAttempts.Inc()
}

// IncChecksumMismatch increments the drift counter.
func (m *ReplicaMetrics) IncChecksumMismatch() {
	if m == nil || m.checksumMismatch == nil {
		return
	}
	m.checksumMismatch.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
