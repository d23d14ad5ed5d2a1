package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/railwatch/delay-tracker/api/controllers"
	"github.com/railwatch/delay-tracker/api/middleware"
	"github.com/railwatch/delay-tracker/pkg/config"
	"github.com/railwatch/delay-tracker/pkg/logger"
)

// NewRouter builds the service's minimal HTTP surface: liveness/readiness
// checks for the orchestrator process and the Prometheus scrape endpoint.
// The detection pipeline itself runs off the Tick Scheduler, not HTTP.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	reg *prometheus.Registry,
	dbPinger, redisPinger, pubsubPinger controllers.Pinger,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, dbPinger, redisPinger, pubsubPinger))
	})

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return r
}
