// Package natsfeed is the NATS implementation of the transport boundary:
// the push event feed plus the sync and command request/reply channels.
// The core never sees NATS types; it consumes the sync.Client and
// commands.Transport interfaces this client satisfies.
package natsfeed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/tablewire/posd/internal/commands"
	"github.com/tablewire/posd/internal/order"
	replsync "github.com/tablewire/posd/internal/sync"
	"github.com/tablewire/posd/pkg/config"
	"github.com/tablewire/posd/pkg/logger"
)

// Handlers receive the out-of-band signals of the event feed. They are
// called from NATS callback goroutines; implementations must hand work to
// the intake loop rather than mutate state directly.
type Handlers struct {
	OnEvent         func(evt order.Event)
	OnResyncRequest func()
	OnDisconnect    func()
	OnReconnect     func()
}

type Client struct {
	conn *nats.Conn
	cfg  config.NATSConfig
	logg *logger.Logger
}

type syncRequest struct {
	SinceSequence int64 `json:"since_sequence"`
}

// syncResponseWire carries events in their envelope form; payloads are
// decoded per event type before the response reaches the core.
type syncResponseWire struct {
	Events           []json.RawMessage `json:"events"`
	ActiveOrders     []*order.Snapshot `json:"active_orders"`
	ServerSequence   int64             `json:"server_sequence"`
	ServerEpoch      string            `json:"server_epoch"`
	RequiresFullSync bool              `json:"requires_full_sync"`
	Checksums        map[string]string `json:"checksums,omitempty"`
}

// Dial connects to NATS. Subscriptions are attached by Start once the
// consuming side is wired, so no event can arrive before a handler exists.
func Dial(cfg config.NATSConfig, logg *logger.Logger) (*Client, error) {
	conn, err := nats.Connect(cfg.URL, nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Client{conn: conn, cfg: cfg, logg: logg}, nil
}

// Start wires the push subscriptions and connectivity callbacks.
func (c *Client) Start(handlers Handlers) error {
	c.conn.SetDisconnectErrHandler(func(_ *nats.Conn, err error) {
		if err != nil {
			c.logg.Warn(context.Background(), "nats connection lost")
		}
		if handlers.OnDisconnect != nil {
			handlers.OnDisconnect()
		}
	})
	c.conn.SetReconnectHandler(func(_ *nats.Conn) {
		c.logg.Info(context.Background(), "nats connection restored")
		if handlers.OnReconnect != nil {
			handlers.OnReconnect()
		}
	})

	if handlers.OnEvent != nil {
		if _, err := c.conn.Subscribe(c.cfg.EventSubject, c.eventHandler(handlers.OnEvent)); err != nil {
			return fmt.Errorf("subscribe %s: %w", c.cfg.EventSubject, err)
		}
	}
	if handlers.OnResyncRequest != nil {
		if _, err := c.conn.Subscribe(c.cfg.ResyncSubject, func(*nats.Msg) { handlers.OnResyncRequest() }); err != nil {
			return fmt.Errorf("subscribe %s: %w", c.cfg.ResyncSubject, err)
		}
	}
	return nil
}

func (c *Client) eventHandler(onEvent func(order.Event)) nats.MsgHandler {
	return func(msg *nats.Msg) {
		evt, err := order.Decode(msg.Data)
		if err != nil {
			c.logg.Error(context.Background(), "dropping undecodable event", err)
			return
		}
		onEvent(evt)
	}
}

// RequestSync implements sync.Client over NATS request/reply.
func (c *Client) RequestSync(ctx context.Context, sinceSequence int64) (*replsync.Response, error) {
	payload, err := json.Marshal(syncRequest{SinceSequence: sinceSequence})
	if err != nil {
		return nil, fmt.Errorf("encode sync request: %w", err)
	}
	msg, err := c.conn.RequestWithContext(ctx, c.cfg.SyncSubject, payload)
	if err != nil {
		return nil, fmt.Errorf("sync request: %w", err)
	}
	return decodeSyncResponse(msg.Data)
}

func decodeSyncResponse(data []byte) (*replsync.Response, error) {
	var wire syncResponseWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("decode sync response: %w", err)
	}
	resp := &replsync.Response{
		ActiveOrders:     wire.ActiveOrders,
		ServerSequence:   wire.ServerSequence,
		ServerEpoch:      wire.ServerEpoch,
		RequiresFullSync: wire.RequiresFullSync,
		Checksums:        wire.Checksums,
	}
	resp.Events = make([]order.Event, 0, len(wire.Events))
	for _, raw := range wire.Events {
		evt, err := order.Decode(raw)
		if err != nil {
			return nil, err
		}
		resp.Events = append(resp.Events, evt)
	}
	return resp, nil
}

// Invoke implements commands.Transport over NATS request/reply.
func (c *Client) Invoke(ctx context.Context, cmd commands.Command) (commands.Result, error) {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return commands.Result{}, fmt.Errorf("encode command: %w", err)
	}
	msg, err := c.conn.RequestWithContext(ctx, c.cfg.CommandSubject, payload)
	if err != nil {
		return commands.Result{}, fmt.Errorf("command request: %w", err)
	}
	var result commands.Result
	if err := json.Unmarshal(msg.Data, &result); err != nil {
		return commands.Result{}, fmt.Errorf("decode command result: %w", err)
	}
	return result, nil
}

// Ping reports broker connectivity for readiness checks.
func (c *Client) Ping(_ context.Context) error {
	if c.conn == nil || !c.conn.IsConnected() {
		return fmt.Errorf("nats not connected")
	}
	return nil
}

// Close drains the connection.
func (c *Client) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}
