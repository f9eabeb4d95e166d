// Package sync keeps the replica consistent with the server: it decides
// between incremental and full resync, detects server restarts via epoch
// comparison, verifies state checksums, and drives reconnection with
// bounded exponential backoff.
package sync

import (
	"context"
	"time"

	"github.com/tablewire/posd/internal/checksum"
	"github.com/tablewire/posd/internal/order"
	"github.com/tablewire/posd/pkg/config"
	"github.com/tablewire/posd/pkg/enums"
	pkgerrors "github.com/tablewire/posd/pkg/errors"
	"github.com/tablewire/posd/pkg/logger"
	"github.com/tablewire/posd/pkg/metrics"
)

// Response is the server's answer to a sync request.
type Response struct {
	Events           []order.Event     `json:"events"`
	ActiveOrders     []*order.Snapshot `json:"active_orders"`
	ServerSequence   int64             `json:"server_sequence"`
	ServerEpoch      string            `json:"server_epoch"`
	RequiresFullSync bool              `json:"requires_full_sync"`
	// Checksums carries the server's per-order state checksums so the
	// client can detect reducer divergence after an incremental apply.
	Checksums map[string]string `json:"checksums,omitempty"`
}

// Client is the request/response half of the transport boundary.
type Client interface {
	RequestSync(ctx context.Context, sinceSequence int64) (*Response, error)
}

// Store is the slice of the replica the syncer drives.
type Store interface {
	ApplyEvents(ctx context.Context, events []order.Event) int
	FullSync(ctx context.Context, orders []*order.Snapshot, serverSequence int64, serverEpoch string)
	SetConnectionState(state enums.ConnectionState)
	SetServerEpoch(epoch string)
	LastSequence() int64
	ServerEpoch() string
	Get(orderID string) *order.Snapshot
}

type Syncer struct {
	client Client
	store  Store
	cfg    config.SyncConfig
	logg   *logger.Logger
	mets   *metrics.ReplicaMetrics
	sleep  func(ctx context.Context, d time.Duration) error
}

func New(client Client, store Store, cfg config.SyncConfig, logg *logger.Logger, mets *metrics.ReplicaMetrics) *Syncer {
	return &Syncer{
		client: client,
		store:  store,
		cfg:    cfg,
		logg:   logg,
		mets:   mets,
		sleep:  sleepContext,
	}
}

// Reconnect performs one synchronization cycle. A server-initiated resync
// request goes through the exact same path.
func (s *Syncer) Reconnect(ctx context.Context) error {
	s.store.SetConnectionState(enums.ConnectionSyncing)
	started := time.Now()

	since := s.store.LastSequence()
	resp, err := s.client.RequestSync(ctx, since)
	if err != nil {
		s.store.SetConnectionState(enums.ConnectionDisconnected)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "request sync")
	}

	localEpoch := s.store.ServerEpoch()
	epochChanged := localEpoch != "" && resp.ServerEpoch != "" && localEpoch != resp.ServerEpoch
	gap := resp.ServerSequence - since

	switch {
	case resp.RequiresFullSync:
		s.logg.Info(ctx, "server requested full sync")
		s.fullSync(ctx, resp)
	case epochChanged:
		// The server restarted; its sequence counter is not durable, so
		// any gap arithmetic against the old epoch is meaningless.
		s.logg.Warn(s.logg.WithField(ctx, "server_epoch", resp.ServerEpoch), "server epoch changed, forcing full sync")
		s.fullSync(ctx, resp)
	case gap > s.cfg.GapThreshold:
		s.logg.Info(s.logg.WithField(ctx, "gap", gap), "gap exceeds threshold, forcing full sync")
		s.fullSync(ctx, resp)
	default:
		s.store.ApplyEvents(ctx, resp.Events)
		s.store.SetServerEpoch(resp.ServerEpoch)
		s.mets.IncSync("incremental")
		if s.driftDetected(ctx, resp.Checksums) {
			return s.resyncAfterDrift(ctx)
		}
	}

	s.store.SetConnectionState(enums.ConnectionConnected)
	s.mets.ObserveSyncDuration(time.Since(started))
	return nil
}

func (s *Syncer) fullSync(ctx context.Context, resp *Response) {
	s.store.FullSync(ctx, resp.ActiveOrders, resp.ServerSequence, resp.ServerEpoch)
	s.mets.IncSync("full")
}

// driftDetected compares the server's checksums against freshly computed
// local ones. A mismatch is evidence of a reducer bug, not staleness, and
// is never silently absorbed.
func (s *Syncer) driftDetected(ctx context.Context, serverChecksums map[string]string) bool {
	drifted := false
	for orderID, want := range serverChecksums {
		snap := s.store.Get(orderID)
		if snap == nil {
			continue
		}
		if got := checksum.Compute(snap); got != want {
			drifted = true
			s.mets.IncChecksumMismatch()
			entry := s.logg.WithOrderID(ctx, orderID)
			entry = s.logg.WithFields(entry, map[string]any{"local": got, "server": want})
			s.logg.Error(entry, "state checksum diverged from server", nil)
		}
	}
	return drifted
}

// resyncAfterDrift replaces the replica wholesale: the sync boundary has
// no per-order fetch, and a diverged reducer cannot be trusted to repair
// state incrementally.
func (s *Syncer) resyncAfterDrift(ctx context.Context) error {
	resp, err := s.client.RequestSync(ctx, 0)
	if err != nil {
		s.store.SetConnectionState(enums.ConnectionDisconnected)
		return pkgerrors.Wrap(pkgerrors.CodeDrift, err, "full resync after drift")
	}
	s.fullSync(ctx, resp)
	s.store.SetConnectionState(enums.ConnectionConnected)
	return nil
}

// ReconnectWithRetry retries Reconnect with exponential backoff until it
// succeeds, the context ends, or attempts run out. Exhaustion surfaces as a
// sync error and a persistent disconnected state.
func (s *Syncer) ReconnectWithRetry(ctx context.Context) error {
	for attempt := 0; attempt < s.cfg.MaxAttempts; attempt++ {
		s.mets.IncReconnectAttempt()
		err := s.Reconnect(ctx)
		if err == nil {
			return nil
		}
		delay := Delay(s.cfg, attempt)
		entry := s.logg.WithFields(ctx, map[string]any{"attempt": attempt, "delay": delay.String()})
		s.logg.Warn(entry, "sync failed, backing off")
		if err := s.sleep(ctx, delay); err != nil {
			return err
		}
	}
	s.store.SetConnectionState(enums.ConnectionDisconnected)
	return pkgerrors.New(pkgerrors.CodeSync, "sync retries exhausted")
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
