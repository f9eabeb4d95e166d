package replica

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tablewire/posd/internal/checksum"
	"github.com/tablewire/posd/internal/order"
	"github.com/tablewire/posd/pkg/logger"
	redisclient "github.com/tablewire/posd/pkg/redis"
)

// cachedState is the serialized replica persisted for warm restarts.
type cachedState struct {
	Orders       []*order.Snapshot `json:"orders"`
	LastSequence int64             `json:"last_sequence"`
	ServerEpoch  string            `json:"server_epoch"`
	SavedAt      time.Time         `json:"saved_at"`
}

// WarmCache persists the replica to Redis so a restarted client can start
// from its previous watermark instead of an empty state. Purely an
// optimization: any failure here degrades to a full sync.
type WarmCache struct {
	store    *Store
	backend  redisclient.SnapshotStore
	clientID string
	ttl      time.Duration
	logg     *logger.Logger
}

func NewWarmCache(store *Store, backend redisclient.SnapshotStore, clientID string, ttl time.Duration, logg *logger.Logger) (*WarmCache, error) {
	if store == nil {
		return nil, fmt.Errorf("store required")
	}
	if backend == nil {
		return nil, fmt.Errorf("snapshot backend required")
	}
	if clientID == "" {
		return nil, fmt.Errorf("client id required")
	}
	return &WarmCache{store: store, backend: backend, clientID: clientID, ttl: ttl, logg: logg}, nil
}

// Save writes the current replica state to the cache.
func (w *WarmCache) Save(ctx context.Context) error {
	state := cachedState{
		Orders:       w.store.All(),
		LastSequence: w.store.LastSequence(),
		ServerEpoch:  w.store.ServerEpoch(),
		SavedAt:      time.Now().UTC(),
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal cached state: %w", err)
	}
	return w.backend.Set(ctx, w.backend.SnapshotKey(w.clientID), string(raw), w.ttl)
}

// Load restores cached state into the store. Every snapshot is verified
// against its embedded checksum; any mismatch means local corruption, so
// the whole cache is discarded rather than trusted partially.
func (w *WarmCache) Load(ctx context.Context) (bool, error) {
	raw, err := w.backend.Get(ctx, w.backend.SnapshotKey(w.clientID))
	if err == redisclient.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read cached state: %w", err)
	}

	var state cachedState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		w.logg.Warn(ctx, "cached state unreadable, discarding")
		return false, w.discard(ctx)
	}
	for _, snap := range state.Orders {
		if !checksum.Verify(snap) {
			w.logg.Error(w.logg.WithOrderID(ctx, snap.OrderID), "cached snapshot failed checksum, discarding cache", nil)
			return false, w.discard(ctx)
		}
	}

	w.store.FullSync(ctx, state.Orders, state.LastSequence, state.ServerEpoch)
	return true, nil
}

// RunSaver persists the replica on an interval until the context ends.
func (w *WarmCache) RunSaver(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.Save(ctx); err != nil {
				w.logg.Warn(ctx, "replica cache save failed")
			}
		}
	}
}

func (w *WarmCache) discard(ctx context.Context) error {
	return w.backend.Del(ctx, w.backend.SnapshotKey(w.clientID))
}
