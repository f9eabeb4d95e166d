package sync

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/tablewire/posd/internal/checksum"
	"github.com/tablewire/posd/internal/order"
	"github.com/tablewire/posd/pkg/config"
	"github.com/tablewire/posd/pkg/enums"
	pkgerrors "github.com/tablewire/posd/pkg/errors"
	"github.com/tablewire/posd/pkg/logger"
	"github.com/tablewire/posd/pkg/metrics"
)

func testConfig() config.SyncConfig {
	return config.SyncConfig{
		GapThreshold:      1000,
		BackoffBase:       500 * time.Millisecond,
		BackoffMultiplier: 2.0,
		BackoffMax:        30 * time.Second,
		MaxAttempts:       10,
	}
}

type fakeClient struct {
	responses []*Response
	errs      []error
	requests  []int64
}

func (f *fakeClient) RequestSync(_ context.Context, since int64) (*Response, error) {
	f.requests = append(f.requests, since)
	idx := len(f.requests) - 1
	if idx < len(f.errs) && f.errs[idx] != nil {
		return nil, f.errs[idx]
	}
	if idx < len(f.responses) {
		return f.responses[idx], nil
	}
	return f.responses[len(f.responses)-1], nil
}

type fakeStore struct {
	lastSequence int64
	epoch        string
	connStates   []enums.ConnectionState
	applied      [][]order.Event
	fullSyncs    int
	fullSeq      int64
	fullEpoch    string
	snapshots    map[string]*order.Snapshot
}

func (f *fakeStore) ApplyEvents(_ context.Context, events []order.Event) int {
	f.applied = append(f.applied, events)
	for _, evt := range events {
		if evt.Sequence > f.lastSequence {
			f.lastSequence = evt.Sequence
		}
	}
	return len(events)
}

func (f *fakeStore) FullSync(_ context.Context, orders []*order.Snapshot, serverSequence int64, serverEpoch string) {
	f.fullSyncs++
	f.fullSeq = serverSequence
	f.fullEpoch = serverEpoch
	f.lastSequence = serverSequence
	f.epoch = serverEpoch
}

func (f *fakeStore) SetConnectionState(state enums.ConnectionState) {
	f.connStates = append(f.connStates, state)
}

func (f *fakeStore) SetServerEpoch(epoch string)  { f.epoch = epoch }
func (f *fakeStore) LastSequence() int64          { return f.lastSequence }
func (f *fakeStore) ServerEpoch() string          { return f.epoch }
func (f *fakeStore) Get(id string) *order.Snapshot {
	if f.snapshots == nil {
		return nil
	}
	return f.snapshots[id]
}

func newTestSyncer(client Client, store Store, cfg config.SyncConfig) *Syncer {
	logg := logger.New(logger.Options{ServiceName: "sync-test", Output: io.Discard})
	s := New(client, store, cfg, logg, metrics.NewReplicaMetrics(nil))
	s.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return s
}

func TestSmallGapAppliesIncrementally(t *testing.T) {
	store := &fakeStore{lastSequence: 100, epoch: "epoch-a"}
	client := &fakeClient{responses: []*Response{{
		Events:         []order.Event{{OrderID: "order-1", Sequence: 105}},
		ServerSequence: 105,
		ServerEpoch:    "epoch-a",
	}}}

	if err := newTestSyncer(client, store, testConfig()).Reconnect(context.Background()); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	if store.fullSyncs != 0 {
		t.Fatalf("gap of 5 must not force a full sync")
	}
	if len(store.applied) != 1 {
		t.Fatalf("incremental batch not applied")
	}
	if last := store.connStates[len(store.connStates)-1]; last != enums.ConnectionConnected {
		t.Fatalf("final state = %s, want connected", last)
	}
	if client.requests[0] != 100 {
		t.Fatalf("sync requested since %d, want 100", client.requests[0])
	}
}

func TestLargeGapForcesFullSync(t *testing.T) {
	store := &fakeStore{lastSequence: 100, epoch: "epoch-a"}
	client := &fakeClient{responses: []*Response{{
		ActiveOrders:     []*order.Snapshot{order.NewSnapshot("order-1")},
		ServerSequence:   1600,
		ServerEpoch:      "epoch-a",
		RequiresFullSync: false,
	}}}

	if err := newTestSyncer(client, store, testConfig()).Reconnect(context.Background()); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	if store.fullSyncs != 1 {
		t.Fatalf("gap of 1500 over threshold 1000 must force full sync")
	}
	if len(store.applied) != 0 {
		t.Fatalf("full sync must not also fold the incremental batch")
	}
	if store.fullSeq != 1600 {
		t.Fatalf("full sync sequence = %d, want 1600", store.fullSeq)
	}
}

func TestEpochChangeForcesFullSync(t *testing.T) {
	store := &fakeStore{lastSequence: 100, epoch: "epoch-a"}
	client := &fakeClient{responses: []*Response{{
		ServerSequence: 102,
		ServerEpoch:    "epoch-b",
	}}}

	if err := newTestSyncer(client, store, testConfig()).Reconnect(context.Background()); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	if store.fullSyncs != 1 {
		t.Fatalf("epoch change must force full sync even with a tiny gap")
	}
	if store.fullEpoch != "epoch-b" {
		t.Fatalf("new epoch not stored")
	}
}

func TestFirstConnectWithNoEpochIsIncremental(t *testing.T) {
	store := &fakeStore{}
	client := &fakeClient{responses: []*Response{{
		ServerSequence: 3,
		ServerEpoch:    "epoch-a",
	}}}

	if err := newTestSyncer(client, store, testConfig()).Reconnect(context.Background()); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	if store.fullSyncs != 0 {
		t.Fatalf("a null local epoch is not a mismatch")
	}
	if store.epoch != "epoch-a" {
		t.Fatalf("epoch not recorded after incremental sync")
	}
}

func TestServerRequestedFullSyncWins(t *testing.T) {
	store := &fakeStore{lastSequence: 100, epoch: "epoch-a"}
	client := &fakeClient{responses: []*Response{{
		Events:           []order.Event{{OrderID: "order-1", Sequence: 101}},
		ServerSequence:   101,
		ServerEpoch:      "epoch-a",
		RequiresFullSync: true,
	}}}

	if err := newTestSyncer(client, store, testConfig()).Reconnect(context.Background()); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	if store.fullSyncs != 1 || len(store.applied) != 0 {
		t.Fatalf("explicit server request must force full sync")
	}
}

func TestRequestFailureDisconnects(t *testing.T) {
	store := &fakeStore{}
	client := &fakeClient{errs: []error{errors.New("connection refused")}, responses: []*Response{nil}}

	err := newTestSyncer(client, store, testConfig()).Reconnect(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
	if last := store.connStates[len(store.connStates)-1]; last != enums.ConnectionDisconnected {
		t.Fatalf("failure must leave the store disconnected, got %s", last)
	}
}

func TestChecksumMismatchTriggersFullResync(t *testing.T) {
	drifted := order.NewSnapshot("order-1")
	drifted.LastSequence = 101
	store := &fakeStore{
		lastSequence: 100,
		epoch:        "epoch-a",
		snapshots:    map[string]*order.Snapshot{"order-1": drifted},
	}
	client := &fakeClient{responses: []*Response{
		{
			Events:         []order.Event{{OrderID: "order-1", Sequence: 101}},
			ServerSequence: 101,
			ServerEpoch:    "epoch-a",
			Checksums:      map[string]string{"order-1": "ffffffffffffffff"},
		},
		{
			ActiveOrders:   []*order.Snapshot{order.NewSnapshot("order-1")},
			ServerSequence: 101,
			ServerEpoch:    "epoch-a",
		},
	}}

	if err := newTestSyncer(client, store, testConfig()).Reconnect(context.Background()); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	if store.fullSyncs != 1 {
		t.Fatalf("drift must escalate to a full resync")
	}
	if len(client.requests) != 2 || client.requests[1] != 0 {
		t.Fatalf("drift resync must request the full state, got %v", client.requests)
	}
}

func TestMatchingChecksumsPassQuietly(t *testing.T) {
	snap := order.NewSnapshot("order-1")
	snap.LastSequence = 101
	store := &fakeStore{
		lastSequence: 100,
		epoch:        "epoch-a",
		snapshots:    map[string]*order.Snapshot{"order-1": snap},
	}
	client := &fakeClient{responses: []*Response{{
		ServerSequence: 101,
		ServerEpoch:    "epoch-a",
		Checksums:      map[string]string{"order-1": checksum.Compute(snap)},
	}}}

	if err := newTestSyncer(client, store, testConfig()).Reconnect(context.Background()); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	if store.fullSyncs != 0 {
		t.Fatalf("matching checksums must not resync")
	}
	if len(client.requests) != 1 {
		t.Fatalf("no second request expected, got %v", client.requests)
	}
}

func TestRetryExhaustionSurfacesSyncError(t *testing.T) {
	cfg := testConfig()
	cfg.MaxAttempts = 3
	store := &fakeStore{}
	client := &fakeClient{
		errs:      []error{errors.New("down"), errors.New("down"), errors.New("down")},
		responses: []*Response{nil, nil, nil},
	}

	err := newTestSyncer(client, store, cfg).ReconnectWithRetry(context.Background())
	if err == nil {
		t.Fatalf("expected exhaustion error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeSync {
		t.Fatalf("expected sync error code, got %v", err)
	}
	if len(client.requests) != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", len(client.requests))
	}
	if last := store.connStates[len(store.connStates)-1]; last != enums.ConnectionDisconnected {
		t.Fatalf("exhaustion must leave a persistent disconnected state")
	}
}

func TestRetryStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := &fakeStore{}
	client := &fakeClient{errs: []error{errors.New("down")}, responses: []*Response{nil}}

	err := newTestSyncer(client, store, testConfig()).ReconnectWithRetry(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}
