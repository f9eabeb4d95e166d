package reducer

import (
	"github.com/tablewire/posd/internal/order"
	"github.com/tablewire/posd/pkg/money"
)

// recomputeTotals rebuilds the monetary aggregates from the item and
// payment lists. Every aggregation step rounds to cents, matching the
// server's cents-based accumulation.
func recomputeTotals(snap *order.Snapshot) {
	subtotal := money.Zero
	for i := range snap.Items {
		item := &snap.Items[i]
		if item.Removed {
			continue
		}
		line := money.Line(item.Price, item.Quantity)
		if item.Discount != nil {
			line = money.RoundCents(line.Sub(*item.Discount))
		}
		if item.Surcharge != nil {
			line = money.RoundCents(line.Add(*item.Surcharge))
		}
		subtotal = money.RoundCents(subtotal.Add(line))
	}
	snap.Subtotal = subtotal
	snap.Total = money.RoundCents(subtotal.Add(snap.Tax).Sub(snap.Discount))
	recomputePaid(snap)
}

// recomputePaid sums the non-cancelled payments.
func recomputePaid(snap *order.Snapshot) {
	paid := money.Zero
	for i := range snap.Payments {
		if snap.Payments[i].Cancelled {
			continue
		}
		paid = money.RoundCents(paid.Add(snap.Payments[i].Amount))
	}
	snap.PaidAmount = paid
}
