// Package reducer folds order events into snapshots. Apply is pure: the
// input snapshot is never mutated, the output depends only on the inputs,
// and malformed or unknown events degrade to logged no-ops rather than
// errors, so one bad event can never take down the replica.
package reducer

import (
	"context"
	"time"

	"github.com/tablewire/posd/internal/checksum"
	"github.com/tablewire/posd/internal/order"
	"github.com/tablewire/posd/pkg/enums"
	"github.com/tablewire/posd/pkg/logger"
)

type Reducer struct {
	logg *logger.Logger
}

func New(logg *logger.Logger) *Reducer {
	return &Reducer{logg: logg}
}

// Apply folds one event into a snapshot and returns the successor state.
// A nil snapshot starts a fresh projection for the event's order.
func (r *Reducer) Apply(ctx context.Context, snap *order.Snapshot, evt order.Event) *order.Snapshot {
	ctx = r.logg.WithOrderID(ctx, evt.OrderID)
	ctx = r.logg.WithSequence(ctx, evt.Sequence)
	ctx = r.logg.WithEventType(ctx, evt.Type.String())

	if evt.Payload == nil {
		// Forward compatibility: the server may introduce event types this
		// client does not understand yet.
		r.logg.Warn(ctx, "unknown event type, skipping")
		return snap
	}

	var next *order.Snapshot
	if snap == nil {
		next = order.NewSnapshot(evt.OrderID)
		next.CreatedAt = evt.Timestamp
	} else {
		next = snap.Clone()
	}

	if next.Status.IsTerminal() && !reopens(evt.Payload) {
		r.logg.Warn(ctx, "event addressed to terminal order, skipping")
		r.finalize(next, evt, false)
		return next
	}

	serverTotals := false
	switch payload := evt.Payload.(type) {
	case *order.OrderOpened:
		r.applyOpened(next, evt, payload)
	case *order.OrderCompleted:
		r.applyCompleted(next, evt, payload)
		serverTotals = true
	case *order.OrderVoided:
		next.Status = enums.OrderStatusVoid
		next.EndTime = endTime(payload.EndTime, evt)
	case *order.OrderRestored:
		if next.Status == enums.OrderStatusVoid {
			next.Status = enums.OrderStatusActive
			next.EndTime = nil
		} else if next.Status != enums.OrderStatusActive {
			r.logg.Warn(ctx, "restore only reopens void orders, skipping")
			serverTotals = true
		}
	case *order.ItemsAdded:
		mergeItems(next, payload.Items)
	case *order.ItemModified:
		r.applyModified(ctx, next, payload)
	case *order.ItemRemoved:
		r.applyRemoved(ctx, next, payload)
	case *order.ItemRestored:
		if idx := next.ItemIndex(payload.InstanceID); idx >= 0 {
			next.Items[idx].Removed = false
		} else {
			r.logg.Warn(ctx, "restore for unknown item, skipping")
		}
	case *order.PaymentAdded:
		r.applyPaymentAdded(ctx, next, payload)
	case *order.PaymentCancelled:
		r.applyPaymentCancelled(ctx, next, payload)
	case *order.MovedIn:
		next.TableID = payload.TableID
		next.TableName = payload.TableName
		next.ZoneID = payload.ZoneID
		next.ZoneName = payload.ZoneName
		mergeItems(next, payload.Items)
	case *order.MovedOut:
		next.Status = enums.OrderStatusMoved
		next.EndTime = endTime(payload.EndTime, evt)
	case *order.MergedIn:
		mergeItems(next, payload.Items)
	case *order.MergedOut:
		next.Status = enums.OrderStatusMerged
		next.EndTime = endTime(payload.EndTime, evt)
	case *order.OrderAdjusted:
		// The server already did the arithmetic; taking its numbers verbatim
		// keeps both sides on identical rounding.
		next.Subtotal = payload.Subtotal
		next.Tax = payload.Tax
		next.Discount = payload.Discount
		next.Total = payload.Total
		serverTotals = true
	default:
		r.logg.Warn(ctx, "unhandled event payload, skipping")
		return snap
	}

	r.finalize(next, evt, !serverTotals)
	return next
}

// finalize advances the bookkeeping every recognized event shares. When
// recompute is false the event carried authoritative server totals and the
// item-derived subtotal/total are left untouched.
func (r *Reducer) finalize(snap *order.Snapshot, evt order.Event, recompute bool) {
	if recompute {
		recomputeTotals(snap)
	} else {
		recomputePaid(snap)
	}
	if evt.Sequence > snap.LastSequence {
		snap.LastSequence = evt.Sequence
	}
	if evt.Timestamp.After(snap.UpdatedAt) {
		snap.UpdatedAt = evt.Timestamp
	}
	snap.StateChecksum = checksum.Compute(snap)
}

func (r *Reducer) applyOpened(snap *order.Snapshot, evt order.Event, payload *order.OrderOpened) {
	snap.TableID = payload.TableID
	snap.TableName = payload.TableName
	snap.ZoneID = payload.ZoneID
	snap.ZoneName = payload.ZoneName
	snap.GuestCount = payload.GuestCount
	snap.Status = enums.OrderStatusActive
	if snap.ReceiptNumber == "" {
		snap.ReceiptNumber = payload.ReceiptNumber
	}
	if payload.StartTime != nil {
		snap.StartTime = payload.StartTime
	} else if snap.StartTime == nil {
		ts := evt.Timestamp
		snap.StartTime = &ts
	}
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = evt.Timestamp
	}
}

func (r *Reducer) applyCompleted(snap *order.Snapshot, evt order.Event, payload *order.OrderCompleted) {
	snap.Status = enums.OrderStatusCompleted
	snap.EndTime = endTime(payload.EndTime, evt)
	if !payload.Total.IsZero() {
		snap.Total = payload.Total
	}
}

func (r *Reducer) applyModified(ctx context.Context, snap *order.Snapshot, payload *order.ItemModified) {
	// The action tag is the server's resolution of the change. CREATED
	// arises from a split that produced a new line from a partial quantity;
	// re-deriving the outcome locally would drift from the server.
	switch payload.Action {
	case enums.ModifyActionUnchanged:
	case enums.ModifyActionUpdated:
		if idx := snap.ActiveItem(payload.Item.InstanceID); idx >= 0 {
			snap.Items[idx] = payload.Item
		} else {
			r.logg.Warn(ctx, "update for unknown item, skipping")
		}
	case enums.ModifyActionCreated:
		if snap.ActiveItem(payload.Item.InstanceID) < 0 {
			snap.Items = append(snap.Items, payload.Item)
		}
	default:
		r.logg.Warn(ctx, "unknown modify action, skipping")
	}
}

func (r *Reducer) applyRemoved(ctx context.Context, snap *order.Snapshot, payload *order.ItemRemoved) {
	idx := snap.ActiveItem(payload.InstanceID)
	if idx < 0 {
		r.logg.Warn(ctx, "removal for unknown item, skipping")
		return
	}
	item := &snap.Items[idx]
	if payload.Quantity <= 0 || payload.Quantity >= item.Quantity {
		item.Removed = true
		return
	}
	item.Quantity -= payload.Quantity
	if item.UnpaidQuantity > item.Quantity {
		item.UnpaidQuantity = item.Quantity
	}
}

func (r *Reducer) applyPaymentAdded(ctx context.Context, snap *order.Snapshot, payload *order.PaymentAdded) {
	for i := range snap.Payments {
		if snap.Payments[i].PaymentID == payload.Payment.PaymentID {
			r.logg.Warn(ctx, "payment already recorded, skipping")
			return
		}
	}
	record := payload.Payment
	record.Cancelled = false
	snap.Payments = append(snap.Payments, record)
}

func (r *Reducer) applyPaymentCancelled(ctx context.Context, snap *order.Snapshot, payload *order.PaymentCancelled) {
	for i := range snap.Payments {
		if snap.Payments[i].PaymentID == payload.PaymentID {
			snap.Payments[i].Cancelled = true
			snap.Payments[i].CancelReason = payload.Reason
			return
		}
	}
	r.logg.Warn(ctx, "cancel for unknown payment, skipping")
}

// mergeItems folds incoming lines into the cart: an active line with the
// same instance id absorbs the quantity, anything else is appended. Both
// add-items and the receiving side of move/merge use this rule.
func mergeItems(snap *order.Snapshot, items []order.CartItem) {
	for _, incoming := range items {
		if idx := snap.ActiveItem(incoming.InstanceID); idx >= 0 {
			snap.Items[idx].Quantity += incoming.Quantity
			snap.Items[idx].UnpaidQuantity += incoming.UnpaidQuantity
			continue
		}
		snap.Items = append(snap.Items, incoming)
	}
}

// reopens reports whether the payload may transition a terminal order.
func reopens(payload order.Payload) bool {
	_, ok := payload.(*order.OrderRestored)
	return ok
}

func endTime(explicit *time.Time, evt order.Event) *time.Time {
	if explicit != nil {
		return explicit
	}
	ts := evt.Timestamp
	return &ts
}
