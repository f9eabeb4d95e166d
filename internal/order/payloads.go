package order

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/tablewire/posd/pkg/enums"
)

// OrderOpened starts a projection: table assignment, guest count and the
// receipt number, which never changes once set.
type OrderOpened struct {
	TableID       string     `json:"table_id"`
	TableName     string     `json:"table_name"`
	ZoneID        string     `json:"zone_id"`
	ZoneName      string     `json:"zone_name"`
	GuestCount    int        `json:"guest_count"`
	ReceiptNumber string     `json:"receipt_number"`
	StartTime     *time.Time `json:"start_time,omitempty"`
}

// OrderCompleted closes the order and freezes its total.
type OrderCompleted struct {
	Total   decimal.Decimal `json:"total"`
	EndTime *time.Time      `json:"end_time,omitempty"`
}

// OrderVoided cancels the order.
type OrderVoided struct {
	Reason  string     `json:"reason,omitempty"`
	EndTime *time.Time `json:"end_time,omitempty"`
}

// OrderRestored reopens a voided order. This is the only transition out of
// a terminal status.
type OrderRestored struct{}

// ItemsAdded appends or merges lines into the cart.
type ItemsAdded struct {
	Items []CartItem `json:"items"`
}

// ItemModified carries the server's resolution of an item change. Action
// is authoritative: CREATED means a split produced a new line from a
// partial quantity.
type ItemModified struct {
	Action enums.ModifyAction `json:"action"`
	Item   CartItem           `json:"item"`
}

// ItemRemoved takes quantity off a line. Quantity <= 0 or >= the current
// quantity soft-deletes the whole line.
type ItemRemoved struct {
	InstanceID string `json:"instance_id"`
	Quantity   int    `json:"quantity"`
}

// ItemRestored clears the soft-delete flag on a line.
type ItemRestored struct {
	InstanceID string `json:"instance_id"`
}

// PaymentAdded appends a settlement record.
type PaymentAdded struct {
	Payment Payment `json:"payment"`
}

// PaymentCancelled flags a payment as cancelled without removing it.
type PaymentCancelled struct {
	PaymentID string `json:"payment_id"`
	Reason    string `json:"reason,omitempty"`
}

// MovedIn lands the items of another order on this one. The source order
// receives its own MovedOut event; the two are applied independently.
type MovedIn struct {
	FromOrderID string     `json:"from_order_id"`
	TableID     string     `json:"table_id"`
	TableName   string     `json:"table_name"`
	ZoneID      string     `json:"zone_id"`
	ZoneName    string     `json:"zone_name"`
	Items       []CartItem `json:"items"`
}

// MovedOut terminates the source order of a table move.
type MovedOut struct {
	ToOrderID string     `json:"to_order_id"`
	EndTime   *time.Time `json:"end_time,omitempty"`
}

// MergedIn folds another order's items into this one.
type MergedIn struct {
	FromOrderID string     `json:"from_order_id"`
	Items       []CartItem `json:"items"`
}

// MergedOut terminates the source order of a merge.
type MergedOut struct {
	IntoOrderID string     `json:"into_order_id"`
	EndTime     *time.Time `json:"end_time,omitempty"`
}

// OrderAdjusted applies order-level discount/surcharge or rule skips. The
// totals are the server's numbers, taken verbatim so client and server
// rounding never diverge.
type OrderAdjusted struct {
	SkipRules bool            `json:"skip_rules"`
	Reason    string          `json:"reason,omitempty"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Tax       decimal.Decimal `json:"tax"`
	Discount  decimal.Decimal `json:"discount"`
	Total     decimal.Decimal `json:"total"`
}

func (*OrderOpened) isPayload()      {}
func (*OrderCompleted) isPayload()   {}
func (*OrderVoided) isPayload()      {}
func (*OrderRestored) isPayload()    {}
func (*ItemsAdded) isPayload()       {}
func (*ItemModified) isPayload()     {}
func (*ItemRemoved) isPayload()      {}
func (*ItemRestored) isPayload()     {}
func (*PaymentAdded) isPayload()     {}
func (*PaymentCancelled) isPayload() {}
func (*MovedIn) isPayload()          {}
func (*MovedOut) isPayload()         {}
func (*MergedIn) isPayload()         {}
func (*MergedOut) isPayload()        {}
func (*OrderAdjusted) isPayload()    {}
