package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tablewire/posd/api/controllers"
	"github.com/tablewire/posd/api/middleware"
	"github.com/tablewire/posd/pkg/config"
	"github.com/tablewire/posd/pkg/logger"
)

// NewRouter builds the read-only HTTP surface over the replica. All order
// mutation flows through the command channel, never through HTTP.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	replica controllers.Replica,
	pingers ...controllers.Pinger,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, replica, pingers...))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/orders/active", controllers.ActiveOrders(replica, logg))
		r.Get("/orders/{orderId}", controllers.GetOrder(replica, logg))
		r.Get("/tables/{tableId}/orders", controllers.OrdersByTable(replica, logg))
		r.Get("/sync/status", controllers.SyncStatus(replica, logg))
	})

	return r
}
