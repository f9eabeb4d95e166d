package enums

import "fmt"

// OrderStatus tracks the lifecycle of an order projection.
type OrderStatus string

const (
	OrderStatusActive    OrderStatus = "active"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusVoid      OrderStatus = "void"
	OrderStatusMoved     OrderStatus = "moved"
	OrderStatusMerged    OrderStatus = "merged"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusActive,
	OrderStatusCompleted,
	OrderStatusVoid,
	OrderStatusMoved,
	OrderStatusMerged,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status admits no further mutation,
// except the void restore back-edge.
func (s OrderStatus) IsTerminal() bool {
	return s != OrderStatusActive && s.IsValid()
}

// Ordinal returns the stable integer discriminant used in state checksums.
// These values are part of the wire contract with the server and must
// never be renumbered.
func (s OrderStatus) Ordinal() int {
	switch s {
	case OrderStatusActive:
		return 0
	case OrderStatusCompleted:
		return 1
	case OrderStatusVoid:
		return 2
	case OrderStatusMoved:
		return 3
	case OrderStatusMerged:
		return 4
	default:
		return -1
	}
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
