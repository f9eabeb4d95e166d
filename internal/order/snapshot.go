package order

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/tablewire/posd/pkg/enums"
)

// Snapshot is the projected state of one order at a point in the event log.
// It is a pure function of the ordered event list for that order and must
// only be mutated by the reducer.
type Snapshot struct {
	OrderID       string            `json:"order_id"`
	TableID       string            `json:"table_id"`
	TableName     string            `json:"table_name"`
	ZoneID        string            `json:"zone_id"`
	ZoneName      string            `json:"zone_name"`
	GuestCount    int               `json:"guest_count"`
	Status        enums.OrderStatus `json:"status"`
	Items         []CartItem        `json:"items"`
	Payments      []Payment         `json:"payments"`
	Subtotal      decimal.Decimal   `json:"subtotal"`
	Tax           decimal.Decimal   `json:"tax"`
	Discount      decimal.Decimal   `json:"discount"`
	Total         decimal.Decimal   `json:"total"`
	PaidAmount    decimal.Decimal   `json:"paid_amount"`
	ReceiptNumber string            `json:"receipt_number"`
	StartTime     *time.Time        `json:"start_time,omitempty"`
	EndTime       *time.Time        `json:"end_time,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	LastSequence  int64             `json:"last_sequence"`
	StateChecksum string            `json:"state_checksum,omitempty"`
}

// CartItem is one physical line on the order. InstanceID is stable across
// quantity changes; removed lines keep their slot for the audit timeline.
type CartItem struct {
	InstanceID     string            `json:"instance_id"`
	ProductID      string            `json:"product_id"`
	Name           string            `json:"name"`
	Price          decimal.Decimal   `json:"price"`
	OriginalPrice  decimal.Decimal   `json:"original_price"`
	Quantity       int               `json:"quantity"`
	UnpaidQuantity int               `json:"unpaid_quantity"`
	Discount       *decimal.Decimal  `json:"discount,omitempty"`
	Surcharge      *decimal.Decimal  `json:"surcharge,omitempty"`
	Options        []AttributeOption `json:"options,omitempty"`
	Specification  string            `json:"specification,omitempty"`
	Removed        bool              `json:"_removed"`
}

// AttributeOption is one selected attribute choice on a line item.
type AttributeOption struct {
	AttributeID   string          `json:"attribute_id"`
	AttributeName string          `json:"attribute_name"`
	OptionID      string          `json:"option_id"`
	OptionName    string          `json:"option_name"`
	PriceDelta    decimal.Decimal `json:"price_delta"`
}

// Payment is one settlement attempt. Cancelled payments stay in the list
// and are excluded from the paid amount.
type Payment struct {
	PaymentID    string              `json:"payment_id"`
	Method       enums.PaymentMethod `json:"method"`
	Amount       decimal.Decimal     `json:"amount"`
	Tendered     *decimal.Decimal    `json:"tendered,omitempty"`
	Change       *decimal.Decimal    `json:"change,omitempty"`
	Note         string              `json:"note,omitempty"`
	Timestamp    time.Time           `json:"timestamp"`
	Cancelled    bool                `json:"cancelled"`
	CancelReason string              `json:"cancel_reason,omitempty"`
}

// NewSnapshot returns an empty projection for the given order.
func NewSnapshot(orderID string) *Snapshot {
	return &Snapshot{
		OrderID:    orderID,
		Status:     enums.OrderStatusActive,
		Items:      []CartItem{},
		Payments:   []Payment{},
		Subtotal:   decimal.Zero,
		Tax:        decimal.Zero,
		Discount:   decimal.Zero,
		Total:      decimal.Zero,
		PaidAmount: decimal.Zero,
	}
}

// Clone returns a deep copy. Read queries hand out clones so the
// single-writer invariant cannot be broken by a caller.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	dup := *s
	dup.Items = make([]CartItem, len(s.Items))
	for i, item := range s.Items {
		dup.Items[i] = item.clone()
	}
	dup.Payments = make([]Payment, len(s.Payments))
	for i, payment := range s.Payments {
		dup.Payments[i] = payment.clone()
	}
	dup.StartTime = cloneTime(s.StartTime)
	dup.EndTime = cloneTime(s.EndTime)
	return &dup
}

func (c CartItem) clone() CartItem {
	dup := c
	dup.Discount = cloneDecimal(c.Discount)
	dup.Surcharge = cloneDecimal(c.Surcharge)
	dup.Options = append([]AttributeOption(nil), c.Options...)
	return dup
}

func (p Payment) clone() Payment {
	dup := p
	dup.Tendered = cloneDecimal(p.Tendered)
	dup.Change = cloneDecimal(p.Change)
	return dup
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	dup := *t
	return &dup
}

func cloneDecimal(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	dup := *d
	return &dup
}

// ActiveItem returns the index of the non-removed line with the given
// instance id, or -1.
func (s *Snapshot) ActiveItem(instanceID string) int {
	for i := range s.Items {
		if s.Items[i].InstanceID == instanceID && !s.Items[i].Removed {
			return i
		}
	}
	return -1
}

// ItemIndex returns the index of the line with the given instance id,
// removed or not, or -1.
func (s *Snapshot) ItemIndex(instanceID string) int {
	for i := range s.Items {
		if s.Items[i].InstanceID == instanceID {
			return i
		}
	}
	return -1
}

// ActiveItemCount counts non-removed lines. This is the item count folded
// into the state checksum.
func (s *Snapshot) ActiveItemCount() int {
	count := 0
	for i := range s.Items {
		if !s.Items[i].Removed {
			count++
		}
	}
	return count
}
