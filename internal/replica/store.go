// Package replica holds the client-side projection of server-authoritative
// order state. All mutation funnels through four entry points on the Store;
// everything else is a read-only query returning deep copies. The event and
// sync intake path is the single writer; UI-facing collaborators only read.
package replica

import (
	"context"
	"sort"
	"sync"

	"github.com/tablewire/posd/internal/order"
	"github.com/tablewire/posd/internal/reducer"
	"github.com/tablewire/posd/pkg/enums"
	"github.com/tablewire/posd/pkg/logger"
	"github.com/tablewire/posd/pkg/metrics"
)

// Notifier receives the ids of orders touched by an apply. Side-effecting
// collaborators (printing, screens) subscribe here instead of being invoked
// inline; callbacks run after the store lock is released.
type Notifier func(orderIDs []string)

type Store struct {
	mu           sync.Mutex
	orders       map[string]*order.Snapshot
	lastSequence int64
	serverEpoch  string
	connState    enums.ConnectionState
	initialized  bool

	red   *reducer.Reducer
	logg  *logger.Logger
	mets  *metrics.ReplicaMetrics
	subs  []Notifier
	subMu sync.Mutex
}

func NewStore(red *reducer.Reducer, logg *logger.Logger, mets *metrics.ReplicaMetrics) *Store {
	return &Store{
		orders:    make(map[string]*order.Snapshot),
		connState: enums.ConnectionDisconnected,
		red:       red,
		logg:      logg,
		mets:      mets,
	}
}

// Subscribe registers a post-apply notifier.
func (s *Store) Subscribe(fn Notifier) {
	if fn == nil {
		return
	}
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.subs = append(s.subs, fn)
}

// ApplyEvent folds one pushed event into the replica. Duplicates (sequence
// at or below the watermark) are dropped; a sequence gap is applied anyway
// with a warning, since closing gaps is the sync protocol's job.
func (s *Store) ApplyEvent(ctx context.Context, evt order.Event) bool {
	s.mu.Lock()
	applied := s.applyLocked(ctx, evt)
	s.mu.Unlock()
	if applied {
		s.notify([]string{evt.OrderID})
	}
	return applied
}

// ApplyEvents folds a batch. Delivery order is not guaranteed for batched
// replay, so the batch is sorted by sequence before folding.
func (s *Store) ApplyEvents(ctx context.Context, events []order.Event) int {
	if len(events) == 0 {
		return 0
	}
	batch := append([]order.Event(nil), events...)
	sort.SliceStable(batch, func(i, j int) bool { return batch[i].Sequence < batch[j].Sequence })

	touched := make(map[string]struct{})
	applied := 0
	s.mu.Lock()
	for _, evt := range batch {
		if s.applyLocked(ctx, evt) {
			applied++
			touched[evt.OrderID] = struct{}{}
		}
	}
	s.mu.Unlock()

	if len(touched) > 0 {
		ids := make([]string, 0, len(touched))
		for id := range touched {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		s.notify(ids)
	}
	return applied
}

func (s *Store) applyLocked(ctx context.Context, evt order.Event) bool {
	ctx = s.logg.WithOrderID(ctx, evt.OrderID)
	ctx = s.logg.WithSequence(ctx, evt.Sequence)

	if evt.Sequence <= s.lastSequence {
		s.logg.Debug(ctx, "duplicate event dropped")
		s.mets.IncEventDropped()
		return false
	}
	if evt.Sequence > s.lastSequence+1 && s.lastSequence > 0 {
		// Missing events are recovered by the next sync cycle; the state is
		// still applied so the replica keeps moving.
		s.logg.Warn(ctx, "sequence gap detected")
		s.mets.IncSequenceGap()
	}

	next := s.red.Apply(ctx, s.orders[evt.OrderID], evt)
	s.lastSequence = evt.Sequence
	if next == nil {
		// An unrecognized event for an order the replica has never seen
		// produces no snapshot. The watermark still advances; storing a nil
		// entry would poison every later read.
		s.logg.Debug(ctx, "event produced no snapshot")
		s.mets.IncEventDropped()
		return false
	}
	s.orders[evt.OrderID] = next
	s.mets.IncEventApplied(evt.Type.String())
	return true
}

// FullSync replaces the entire replica with the server's snapshots. Used
// whenever incremental repair is unsafe or unavailable.
func (s *Store) FullSync(ctx context.Context, orders []*order.Snapshot, serverSequence int64, serverEpoch string) {
	replacement := make(map[string]*order.Snapshot, len(orders))
	ids := make([]string, 0, len(orders))
	for _, snap := range orders {
		if snap == nil || snap.OrderID == "" {
			continue
		}
		replacement[snap.OrderID] = snap.Clone()
		ids = append(ids, snap.OrderID)
	}
	sort.Strings(ids)

	s.mu.Lock()
	s.orders = replacement
	s.lastSequence = serverSequence
	s.serverEpoch = serverEpoch
	s.initialized = true
	s.mu.Unlock()

	s.logg.Info(s.logg.WithField(ctx, "orders", len(replacement)), "replica replaced by full sync")
	s.notify(ids)
}

// Reset clears all state. Called on sign-out or tenant switch so the
// replica never leaks state across principal boundaries.
func (s *Store) Reset() {
	s.mu.Lock()
	s.orders = make(map[string]*order.Snapshot)
	s.lastSequence = 0
	s.serverEpoch = ""
	s.connState = enums.ConnectionDisconnected
	s.initialized = false
	s.mu.Unlock()
}

// SetConnectionState records the sync protocol's connectivity transition.
// Part of the sync intake boundary, not the public read surface.
func (s *Store) SetConnectionState(state enums.ConnectionState) {
	s.mu.Lock()
	s.connState = state
	s.mu.Unlock()
}

// SetServerEpoch records the server incarnation after an incremental sync.
func (s *Store) SetServerEpoch(epoch string) {
	s.mu.Lock()
	s.serverEpoch = epoch
	s.initialized = true
	s.mu.Unlock()
}

func (s *Store) notify(orderIDs []string) {
	s.subMu.Lock()
	subs := append([]Notifier(nil), s.subs...)
	s.subMu.Unlock()
	for _, fn := range subs {
		fn(orderIDs)
	}
}
