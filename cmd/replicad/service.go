package main

import (
	"context"
	"errors"

	"github.com/tablewire/posd/internal/order"
	"github.com/tablewire/posd/pkg/enums"
	"github.com/tablewire/posd/pkg/logger"
)

const defaultEventBuffer = 1024

// replicaStore is the slice of the store the intake loop mutates.
type replicaStore interface {
	ApplyEvent(ctx context.Context, evt order.Event) bool
	LastSequence() int64
	SetConnectionState(state enums.ConnectionState)
}

type synchronizer interface {
	ReconnectWithRetry(ctx context.Context) error
}

type ServiceParams struct {
	Logger      *logger.Logger
	Store       replicaStore
	Syncer      synchronizer
	EventBuffer int
}

// Service serializes every replica mutation through a single goroutine.
// NATS callbacks only enqueue; the Run loop is the sole writer, so push
// events never race a sync that is replacing the whole order map.
type Service struct {
	logg   *logger.Logger
	store  replicaStore
	syncer synchronizer

	events  chan order.Event
	signals chan signal
}

type signal int

const (
	signalResync signal = iota
	signalDisconnect
	signalReconnect
)

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Store == nil {
		return nil, errors.New("store is required")
	}
	if params.Syncer == nil {
		return nil, errors.New("syncer is required")
	}
	buffer := params.EventBuffer
	if buffer <= 0 {
		buffer = defaultEventBuffer
	}
	return &Service{
		logg:    params.Logger,
		store:   params.Store,
		syncer:  params.Syncer,
		events:  make(chan order.Event, buffer),
		signals: make(chan signal, 8),
	}, nil
}

// EnqueueEvent hands a push event to the intake loop. Safe to call from
// NATS callback goroutines. Events are dropped when the buffer is full;
// the next sync recovers them by sequence.
func (s *Service) EnqueueEvent(evt order.Event) {
	select {
	case s.events <- evt:
	default:
		s.logg.Warn(context.Background(), "event buffer full, relying on resync")
		s.enqueueSignal(signalResync)
	}
}

// RequestResync asks the loop to run a full reconnect cycle.
func (s *Service) RequestResync() {
	s.enqueueSignal(signalResync)
}

// NotifyDisconnect marks the replica disconnected until the broker returns.
func (s *Service) NotifyDisconnect() {
	s.enqueueSignal(signalDisconnect)
}

// NotifyReconnect triggers a catch-up sync after broker connectivity returns.
func (s *Service) NotifyReconnect() {
	s.enqueueSignal(signalReconnect)
}

func (s *Service) enqueueSignal(sig signal) {
	select {
	case s.signals <- sig:
	default:
	}
}

// Run performs the initial sync and then processes events and signals
// until the context is cancelled. Sync failures leave the replica in the
// disconnected state; a later resync signal retries.
func (s *Service) Run(ctx context.Context) error {
	if err := s.syncer.ReconnectWithRetry(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		s.logg.Error(ctx, "initial sync failed", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt := <-s.events:
			s.handleEvent(ctx, evt)
		case sig := <-s.signals:
			s.handleSignal(ctx, sig)
		}
	}
}

func (s *Service) handleEvent(ctx context.Context, evt order.Event) {
	last := s.store.LastSequence()
	gap := last > 0 && evt.Sequence > last+1

	s.store.ApplyEvent(ctx, evt)

	if gap {
		ctx = s.logg.WithSequence(ctx, evt.Sequence)
		s.logg.Warn(ctx, "sequence gap in event feed, requesting resync")
		s.enqueueSignal(signalResync)
	}
}

func (s *Service) handleSignal(ctx context.Context, sig signal) {
	switch sig {
	case signalDisconnect:
		s.store.SetConnectionState(enums.ConnectionDisconnected)
	case signalResync, signalReconnect:
		if err := s.syncer.ReconnectWithRetry(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logg.Error(ctx, "resync failed", err)
		}
	}
}
