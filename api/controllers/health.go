package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gavelpoint/auctionhouse-backend/api/responses"
	"github.com/gavelpoint/auctionhouse-backend/pkg/config"
	pkgerrors "github.com/gavelpoint/auctionhouse-backend/pkg/errors"
	"github.com/gavelpoint/auctionhouse-backend/pkg/logger"
)

const readinessTimeout = 5 * time.Second

// Pinger is the health check surface shared by the backing clients.
type Pinger interface {
	Ping(context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-AuctionHouse-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings each backing dependency and reports per-check status.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP, redisP, pubsubP Pinger) http.HandlerFunc {
	deps := map[string]Pinger{
		"database": dbP,
		"redis":    redisP,
		"pubsub":   pubsubP,
	}
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-AuctionHouse-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]string{}
		healthy := true
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				healthy = false
				checks[name] = "unavailable"
				if logg != nil {
					logg.Error(logg.WithField(ctx, "dependency", name), "readiness check failed", err)
				}
				continue
			}
			checks[name] = "ok"
		}

		if !healthy {
			responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeDependency, "dependencies unavailable").WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
