package controllers

import (
	"context"
	"net/http"

	"github.com/tablewire/posd/api/responses"
	"github.com/tablewire/posd/pkg/config"
	pkgerrors "github.com/tablewire/posd/pkg/errors"
	"github.com/tablewire/posd/pkg/logger"
)

// Pinger is satisfied by the redis client and the NATS connection wrapper.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Posd-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only once the replica has completed its first
// sync and every wired dependency answers a ping.
func HealthReady(cfg *config.Config, logg *logger.Logger, replica Replica, pingers ...Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Posd-Env", cfg.App.Env)

		if !replica.IsInitialized() {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeDependency, "replica not yet synchronized"))
			return
		}
		for _, p := range pingers {
			if p == nil {
				continue
			}
			if err := p.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, "dependency ping failed"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
