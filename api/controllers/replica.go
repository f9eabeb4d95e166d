package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tablewire/posd/api/responses"
	"github.com/tablewire/posd/internal/order"
	"github.com/tablewire/posd/pkg/enums"
	pkgerrors "github.com/tablewire/posd/pkg/errors"
	"github.com/tablewire/posd/pkg/logger"
)

// Replica is the read surface the controllers serve from. All snapshot
// methods return copies, so handlers may hand results straight to the
// JSON encoder.
type Replica interface {
	Get(orderID string) *order.Snapshot
	Active() []*order.Snapshot
	ByTable(tableID string) []*order.Snapshot
	HasActiveOnTable(tableID string) bool
	ConnectionState() enums.ConnectionState
	LastSequence() int64
	ServerEpoch() string
	IsInitialized() bool
}

func ActiveOrders(replica Replica, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]any{
			"orders": replica.Active(),
		})
	}
}

func GetOrder(replica Replica, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID := chi.URLParam(r, "orderId")
		snap := replica.Get(orderID)
		if snap == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
			return
		}
		responses.WriteSuccess(w, snap)
	}
}

func OrdersByTable(replica Replica, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tableID := chi.URLParam(r, "tableId")
		responses.WriteSuccess(w, map[string]any{
			"table_id": tableID,
			"occupied": replica.HasActiveOnTable(tableID),
			"orders":   replica.ByTable(tableID),
		})
	}
}

func SyncStatus(replica Replica, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]any{
			"connection_state": replica.ConnectionState(),
			"last_sequence":    replica.LastSequence(),
			"server_epoch":     replica.ServerEpoch(),
			"initialized":      replica.IsInitialized(),
		})
	}
}
