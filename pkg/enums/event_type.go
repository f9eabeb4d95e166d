package enums

import "fmt"

// EventType identifies the payload variant carried by an order event.
type EventType string

const (
	EventOrderOpened      EventType = "order.opened"
	EventOrderCompleted   EventType = "order.completed"
	EventOrderVoided      EventType = "order.voided"
	EventOrderRestored    EventType = "order.restored"
	EventItemsAdded       EventType = "order.items_added"
	EventItemModified     EventType = "order.item_modified"
	EventItemRemoved      EventType = "order.item_removed"
	EventItemRestored     EventType = "order.item_restored"
	EventPaymentAdded     EventType = "order.payment_added"
	EventPaymentCancelled EventType = "order.payment_cancelled"
	EventOrderMovedIn     EventType = "order.moved_in"
	EventOrderMovedOut    EventType = "order.moved_out"
	EventOrderMergedIn    EventType = "order.merged_in"
	EventOrderMergedOut   EventType = "order.merged_out"
	EventOrderAdjusted    EventType = "order.adjusted"
)

var validEventTypes = []EventType{
	EventOrderOpened,
	EventOrderCompleted,
	EventOrderVoided,
	EventOrderRestored,
	EventItemsAdded,
	EventItemModified,
	EventItemRemoved,
	EventItemRestored,
	EventPaymentAdded,
	EventPaymentCancelled,
	EventOrderMovedIn,
	EventOrderMovedOut,
	EventOrderMergedIn,
	EventOrderMergedOut,
	EventOrderAdjusted,
}

// String implements fmt.Stringer.
func (e EventType) String() string {
	return string(e)
}

// IsValid reports whether the value is a known EventType.
func (e EventType) IsValid() bool {
	for _, candidate := range validEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseEventType converts raw input into an EventType.
func ParseEventType(value string) (EventType, error) {
	for _, candidate := range validEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
