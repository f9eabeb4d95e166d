package order

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tablewire/posd/pkg/enums"
)

// Event is one immutable, server-sequenced order mutation. Sequence is
// strictly increasing per order and gapless in the authoritative log.
type Event struct {
	EventID      uuid.UUID       `json:"event_id"`
	OrderID      string          `json:"order_id"`
	Sequence     int64           `json:"sequence"`
	Timestamp    time.Time       `json:"timestamp"`
	OperatorID   string          `json:"operator_id"`
	OperatorName string          `json:"operator_name"`
	Type         enums.EventType `json:"type"`
	Payload      Payload         `json:"-"`
}

// Payload is the closed union of event payload variants. New variants are
// added here and in payloadFactories; the reducer's type switch covers the
// full set.
type Payload interface {
	isPayload()
}

type envelope struct {
	EventID      uuid.UUID       `json:"event_id"`
	OrderID      string          `json:"order_id"`
	Sequence     int64           `json:"sequence"`
	Timestamp    time.Time       `json:"timestamp"`
	OperatorID   string          `json:"operator_id"`
	OperatorName string          `json:"operator_name"`
	Type         enums.EventType `json:"type"`
	Payload      json.RawMessage `json:"payload,omitempty"`
}

var payloadFactories = map[enums.EventType]func() Payload{
	enums.EventOrderOpened:      func() Payload { return &OrderOpened{} },
	enums.EventOrderCompleted:   func() Payload { return &OrderCompleted{} },
	enums.EventOrderVoided:      func() Payload { return &OrderVoided{} },
	enums.EventOrderRestored:    func() Payload { return &OrderRestored{} },
	enums.EventItemsAdded:       func() Payload { return &ItemsAdded{} },
	enums.EventItemModified:     func() Payload { return &ItemModified{} },
	enums.EventItemRemoved:      func() Payload { return &ItemRemoved{} },
	enums.EventItemRestored:     func() Payload { return &ItemRestored{} },
	enums.EventPaymentAdded:     func() Payload { return &PaymentAdded{} },
	enums.EventPaymentCancelled: func() Payload { return &PaymentCancelled{} },
	enums.EventOrderMovedIn:     func() Payload { return &MovedIn{} },
	enums.EventOrderMovedOut:    func() Payload { return &MovedOut{} },
	enums.EventOrderMergedIn:    func() Payload { return &MergedIn{} },
	enums.EventOrderMergedOut:   func() Payload { return &MergedOut{} },
	enums.EventOrderAdjusted:    func() Payload { return &OrderAdjusted{} },
}

// Decode parses a wire event. An unrecognized type is not an error: the
// event comes back with a nil payload and the reducer treats it as a no-op,
// so a client lagging behind new server event types keeps running.
func Decode(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Event{}, fmt.Errorf("decode event envelope: %w", err)
	}
	if env.OrderID == "" {
		return Event{}, fmt.Errorf("event %s missing order id", env.EventID)
	}
	evt := Event{
		EventID:      env.EventID,
		OrderID:      env.OrderID,
		Sequence:     env.Sequence,
		Timestamp:    env.Timestamp,
		OperatorID:   env.OperatorID,
		OperatorName: env.OperatorName,
		Type:         env.Type,
	}
	factory, ok := payloadFactories[env.Type]
	if !ok {
		return evt, nil
	}
	payload := factory()
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, payload); err != nil {
			return Event{}, fmt.Errorf("decode %s payload: %w", env.Type, err)
		}
	}
	evt.Payload = payload
	return evt, nil
}

// Encode serializes an event to its wire form.
func (e Event) Encode() ([]byte, error) {
	env := envelope{
		EventID:      e.EventID,
		OrderID:      e.OrderID,
		Sequence:     e.Sequence,
		Timestamp:    e.Timestamp,
		OperatorID:   e.OperatorID,
		OperatorName: e.OperatorName,
		Type:         e.Type,
	}
	if e.Payload != nil {
		raw, err := json.Marshal(e.Payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", e.Type, err)
		}
		env.Payload = raw
	}
	return json.Marshal(env)
}
