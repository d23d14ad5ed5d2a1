package controllers

import (
	"context"
	"net/http"

	"github.com/railwatch/delay-tracker/api/responses"
	"github.com/railwatch/delay-tracker/pkg/config"
)

// Pinger is satisfied by every dependency the readiness check verifies.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthLive reports the process is up without checking dependencies.
func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Railwatch-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the database, redis, and pubsub dependencies and reports
// ready only when all three respond.
func HealthReady(cfg *config.Config, dbPinger, redisPinger, pubsubPinger Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Railwatch-Env", cfg.App.Env)
		ctx := r.Context()

		checks := map[string]Pinger{
			"database": dbPinger,
			"redis":    redisPinger,
			"pubsub":   pubsubPinger,
		}

		failures := map[string]string{}
		for name, pinger := range checks {
			if pinger == nil {
				continue
			}
			if err := pinger.Ping(ctx); err != nil {
				failures[name] = err.Error()
			}
		}

		if len(failures) > 0 {
			responses.WriteSuccessStatus(w, http.StatusServiceUnavailable, map[string]any{
				"status": "not_ready",
				"errors": failures,
			})
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
