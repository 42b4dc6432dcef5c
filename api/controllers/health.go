package controllers

import (
	"context"
	"net/http"

	"github.com/givefi/givefi-backend/api/responses"
	"github.com/givefi/givefi-backend/pkg/config"
	"github.com/givefi/givefi-backend/pkg/logger"
)

const envHeader = "X-GiveFi-Env"

type pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports not-ready when any wired dependency fails its ping.
// Nil pingers are skipped so workers can reuse the handler with fewer deps.
func HealthReady(cfg *config.Config, logg *logger.Logger, db, redis, ledger pinger) http.HandlerFunc {
	checks := []struct {
		name   string
		pinger pinger
	}{
		{name: "database", pinger: db},
		{name: "redis", pinger: redis},
		{name: "ledger", pinger: ledger},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		for _, check := range checks {
			if check.pinger == nil {
				continue
			}
			if err := check.pinger.Ping(r.Context()); err != nil {
				if logg != nil {
					ctx := logg.WithField(r.Context(), "dependency", check.name)
					logg.Error(ctx, "readiness check failed", err)
				}
				responses.WriteSuccessStatus(w, http.StatusServiceUnavailable, map[string]string{
					"status":     "not_ready",
					"dependency": check.name,
				})
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
