package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/CSroseX/blocking-api-server/internal/config"
	"github.com/CSroseX/blocking-api-server/internal/middleware"
	"github.com/CSroseX/blocking-api-server/internal/observability"
)

const shutdownTimeout = 10 * time.Second

var (
	configPath string
	listenAddr string
)

var rootCmd = &cobra.Command{
	Use:   "apiserver",
	Short: "HTTP server whose handlers block for a configurable time",
	Long: `Serves /rest/simple and /rest/blocking. The blocking endpoint holds the
request for a random duration using sleep, file I/O, network connects or a
random mix of the three, so thread-pool and event-loop servers can be
compared under load.

Examples:
  apiserver
  apiserver --config apiserver.yaml
  apiserver --addr :9090`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML config file, watched for changes")
	rootCmd.Flags().StringVar(&listenAddr, "addr", "", "listen address (overrides config)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.Server.Addr = listenAddr
	}

	level, _ := config.ParseLevel(cfg.Log.Level)
	logger := slog.New(middleware.NewContextHandler(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
	slog.SetDefault(logger)

	shutdownTracer, err := observability.InitTracer(cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracer(sctx); err != nil {
			logger.Warn("tracer shutdown failed", "error", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	store := config.NewStore(cfg)
	d := deps{store: store, registry: registry, logger: logger}
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, analytics will be dropped until it recovers", "addr", cfg.Redis.Addr, "error", err)
		}
		d.redis = rdb
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           newHandler(d),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("api server listening",
			"addr", cfg.Server.Addr,
			"operation_type", cfg.Blocking.OperationType,
			"min_block_period_ms", cfg.Blocking.MinBlockPeriodMs,
			"max_block_period_ms", cfg.Blocking.MaxBlockPeriodMs)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on %s: %w", cfg.Server.Addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	if configPath != "" {
		g.Go(func() error {
			return store.Watch(gctx, configPath, logger)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("api server stopped", "error", err)
		return err
	}
	return nil
}
