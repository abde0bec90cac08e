package main

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/CSroseX/blocking-api-server/internal/analytics"
	"github.com/CSroseX/blocking-api-server/internal/api"
	"github.com/CSroseX/blocking-api-server/internal/blocking"
	"github.com/CSroseX/blocking-api-server/internal/config"
	"github.com/CSroseX/blocking-api-server/internal/middleware"
	"github.com/CSroseX/blocking-api-server/internal/observability"
)

// deps are the optional collaborators the handler tree is built from.
type deps struct {
	store    *config.Store
	registry *prometheus.Registry
	redis    redis.Cmdable // nil disables analytics
	logger   *slog.Logger
	simOpts  []blocking.Option
}

// newHandler wires the simulator, the REST and admin routes and the
// middleware chain.
func newHandler(d deps) http.Handler {
	cfg := d.store.Get()

	scratch := blocking.NewScratchStore(cfg.Blocking.ScratchDir, cfg.Blocking.SharedScratchFiles, d.logger)
	d.logger.Info("file I/O scratch store",
		"scratch_dir", scratch.Dir(), "shared", cfg.Blocking.SharedScratchFiles)

	opts := []blocking.Option{
		blocking.WithLogger(d.logger),
		blocking.WithRecorder(observability.NewBlockingMetrics(d.registry)),
		blocking.WithScratchStore(scratch),
		blocking.WithHoldNetworkBudget(cfg.Blocking.HoldNetworkBudget),
	}

	router := api.NewRouter()
	if d.redis != nil {
		a := analytics.NewAnalytics(d.redis, d.logger)
		opts = append(opts, blocking.WithRecorder(a))
		router.Handle("/admin/analytics", analytics.Handler(a))
	}
	sim := blocking.New(d.store, append(opts, d.simOpts...)...)

	api.NewHandlers(sim, func() string { return d.store.Get().Server.LogString }, d.logger).Register(router)

	status := config.StatusHandler(d.store)
	update := config.UpdateHandler(d.store, d.logger)
	router.HandleFunc("/admin/blocking", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			update(w, r)
			return
		}
		status(w, r)
	})
	router.Handle("/admin/blocking/reset", config.ResetHandler(d.store, d.logger))
	router.Handle("/metrics", middleware.MetricsHandler(d.registry))

	httpMetrics := middleware.NewHTTPMetrics(d.registry, router.Paths()...)
	return middleware.Logging(d.logger)(httpMetrics.Metrics(middleware.Tracing(router)))
}
