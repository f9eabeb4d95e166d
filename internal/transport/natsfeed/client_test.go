package natsfeed

import (
	"io"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/tablewire/posd/internal/order"
	"github.com/tablewire/posd/pkg/enums"
	"github.com/tablewire/posd/pkg/logger"
)

func TestDecodeSyncResponse(t *testing.T) {
	data := []byte(`{
		"events": [
			{"event_id":"e1","order_id":"o1","sequence":7,"timestamp":"2026-08-30T10:00:00Z","type":"order.opened","payload":{"table_id":"t1","guest_count":2}},
			{"event_id":"e2","order_id":"o1","sequence":8,"timestamp":"2026-08-30T10:01:00Z","type":"order.future_thing","payload":{"x":1}}
		],
		"active_orders": [{"order_id":"o1","status":"ACTIVE","last_sequence":8}],
		"server_sequence": 8,
		"server_epoch": "epoch-1",
		"requires_full_sync": false,
		"checksums": {"o1":"00000000000000aa"}
	}`)

	resp, err := decodeSyncResponse(data)
	if err != nil {
		t.Fatalf("decodeSyncResponse: %v", err)
	}
	if len(resp.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(resp.Events))
	}
	if resp.Events[0].Type != enums.EventOrderOpened {
		t.Errorf("expected first event type %s, got %s", enums.EventOrderOpened, resp.Events[0].Type)
	}
	if resp.Events[0].Payload == nil {
		t.Error("expected decoded payload for known event type")
	}
	if resp.Events[1].Payload != nil {
		t.Error("expected nil payload for unknown event type")
	}
	if len(resp.ActiveOrders) != 1 || resp.ActiveOrders[0].OrderID != "o1" {
		t.Fatalf("unexpected active orders: %+v", resp.ActiveOrders)
	}
	if resp.ServerSequence != 8 || resp.ServerEpoch != "epoch-1" {
		t.Errorf("unexpected watermark: seq=%d epoch=%s", resp.ServerSequence, resp.ServerEpoch)
	}
	if resp.Checksums["o1"] != "00000000000000aa" {
		t.Errorf("unexpected checksums: %v", resp.Checksums)
	}
}

func TestDecodeSyncResponseRejectsMalformed(t *testing.T) {
	if _, err := decodeSyncResponse([]byte(`{"events": [`)); err == nil {
		t.Fatal("expected error for truncated response")
	}
	if _, err := decodeSyncResponse([]byte(`{"events":[{"sequence":1,"type":"order.opened"}]}`)); err == nil {
		t.Fatal("expected error for event without order id")
	}
}

func TestEventHandlerDeliversDecodedEvents(t *testing.T) {
	client := &Client{logg: logger.New(logger.Options{ServiceName: "natsfeed-test", Output: io.Discard})}

	var got []order.Event
	handler := client.eventHandler(func(evt order.Event) {
		got = append(got, evt)
	})

	handler(&nats.Msg{Data: []byte(`{"event_id":"e1","order_id":"o9","sequence":3,"timestamp":"2026-08-30T12:00:00Z","type":"order.voided","payload":{"reason":"test"}}`)})
	handler(&nats.Msg{Data: []byte(`not json`)})

	if len(got) != 1 {
		t.Fatalf("expected 1 delivered event, got %d", len(got))
	}
	if got[0].OrderID != "o9" || got[0].Sequence != 3 {
		t.Errorf("unexpected event: %+v", got[0])
	}
	if got[0].Type != enums.EventOrderVoided {
		t.Errorf("unexpected type: %s", got[0].Type)
	}
}
