package replica

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/tablewire/posd/pkg/logger"
	redisclient "github.com/tablewire/posd/pkg/redis"
)

type fakeSnapshotStore struct {
	data map[string]string
}

func newFakeSnapshotStore() *fakeSnapshotStore {
	return &fakeSnapshotStore{data: make(map[string]string)}
}

func (f *fakeSnapshotStore) Get(_ context.Context, key string) (string, error) {
	v, ok := f.data[key]
	if !ok {
		return "", redisclient.Nil
	}
	return v, nil
}

func (f *fakeSnapshotStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	f.data[key] = value.(string)
	return nil
}

func (f *fakeSnapshotStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func (f *fakeSnapshotStore) SnapshotKey(clientID string) string {
	return "posd:snapshot:" + clientID
}

func newTestCache(t *testing.T, store *Store, backend redisclient.SnapshotStore) *WarmCache {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "cache-test", Output: io.Discard})
	cache, err := NewWarmCache(store, backend, "terminal-7", time.Hour, logg)
	if err != nil {
		t.Fatalf("NewWarmCache: %v", err)
	}
	return cache
}

func TestWarmCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	backend := newFakeSnapshotStore()

	source := newTestStore()
	source.ApplyEvent(ctx, opened("order-1", 1, "t1"))
	source.ApplyEvent(ctx, added("order-1", 2, "line-1", 2))
	source.SetServerEpoch("epoch-a")
	if err := newTestCache(t, source, backend).Save(ctx); err != nil {
		t.Fatalf("save: %v", err)
	}

	restored := newTestStore()
	loaded, err := newTestCache(t, restored, backend).Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !loaded {
		t.Fatalf("expected cache hit")
	}
	if restored.LastSequence() != 2 || restored.ServerEpoch() != "epoch-a" {
		t.Fatalf("watermark/epoch not restored: %d %s", restored.LastSequence(), restored.ServerEpoch())
	}
	snap := restored.Get("order-1")
	if snap == nil || len(snap.Items) != 1 || snap.Items[0].Quantity != 2 {
		t.Fatalf("snapshot not restored: %+v", snap)
	}
}

func TestWarmCacheMissIsNotAnError(t *testing.T) {
	backend := newFakeSnapshotStore()
	loaded, err := newTestCache(t, newTestStore(), backend).Load(context.Background())
	if err != nil {
		t.Fatalf("miss must not error: %v", err)
	}
	if loaded {
		t.Fatalf("expected cache miss")
	}
}

func TestWarmCacheDiscardsCorruptState(t *testing.T) {
	ctx := context.Background()
	backend := newFakeSnapshotStore()

	source := newTestStore()
	source.ApplyEvent(ctx, opened("order-1", 1, "t1"))
	cache := newTestCache(t, source, backend)
	if err := cache.Save(ctx); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Flip a digit in the stored total: checksum verification must fail
	// and the whole cache must be dropped, forcing a full sync.
	key := backend.SnapshotKey("terminal-7")
	backend.data[key] = corruptTotal(backend.data[key])

	restored := newTestStore()
	loaded, err := newTestCache(t, restored, backend).Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded {
		t.Fatalf("corrupt cache must not load")
	}
	if _, stillThere := backend.data[key]; stillThere {
		t.Fatalf("corrupt cache must be deleted")
	}
}

func corruptTotal(raw string) string {
	// Orders carry "last_sequence":1 inside each snapshot; bumping it
	// desynchronizes the embedded checksum.
	out := []byte(raw)
	for i := 0; i+17 < len(out); i++ {
		if string(out[i:i+16]) == `"last_sequence":` {
			out[i+16] = '9'
			return string(out)
		}
	}
	return string(out)
}
