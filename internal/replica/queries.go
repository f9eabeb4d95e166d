package replica

import (
	"sort"

	"github.com/tablewire/posd/internal/order"
	"github.com/tablewire/posd/pkg/enums"
)

// Get returns a copy of one order's snapshot, or nil.
func (s *Store) Get(orderID string) *order.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders[orderID].Clone()
}

// All returns copies of every snapshot, ordered by order id.
func (s *Store) All() []*order.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*order.Snapshot, 0, len(s.orders))
	for _, snap := range s.orders {
		out = append(out, snap.Clone())
	}
	sortSnapshots(out)
	return out
}

// Active returns copies of the snapshots still in a live state.
func (s *Store) Active() []*order.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*order.Snapshot, 0, len(s.orders))
	for _, snap := range s.orders {
		if snap.Status == enums.OrderStatusActive {
			out = append(out, snap.Clone())
		}
	}
	sortSnapshots(out)
	return out
}

// ByTable returns copies of the snapshots seated at the given table.
func (s *Store) ByTable(tableID string) []*order.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*order.Snapshot, 0, 1)
	for _, snap := range s.orders {
		if snap.TableID == tableID {
			out = append(out, snap.Clone())
		}
	}
	sortSnapshots(out)
	return out
}

// HasActiveOnTable reports whether the table has a live order.
func (s *Store) HasActiveOnTable(tableID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, snap := range s.orders {
		if snap.TableID == tableID && snap.Status == enums.OrderStatusActive {
			return true
		}
	}
	return false
}

// LastSequence returns the global watermark.
func (s *Store) LastSequence() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSequence
}

// ServerEpoch returns the last observed server incarnation, or "".
func (s *Store) ServerEpoch() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.serverEpoch
}

// ConnectionState returns the current connectivity state.
func (s *Store) ConnectionState() enums.ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connState
}

// IsInitialized reports whether the replica has completed at least one sync.
func (s *Store) IsInitialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

func sortSnapshots(snaps []*order.Snapshot) {
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].OrderID < snaps[j].OrderID })
}
