package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fixitall/intake/internal/adapters/http/api"
	"github.com/fixitall/intake/internal/adapters/http/swagger"
	service "github.com/fixitall/intake/internal/app"
	"github.com/fixitall/intake/internal/config"
	"github.com/fixitall/intake/pkg/logger"
	"github.com/fixitall/intake/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	if err := logger.Init(); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to debug", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("debug")
	}

	svc := newService(cfg, log)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(ctx, cfg, svc, log),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(gCtx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("version", version),
			logger.Int64("maxInputBytes", cfg.MaxInputBytes))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		log.Info(gCtx, "shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		startSystemMetricsUpdater(gCtx)
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error(ctx, "server stopped with error", logger.Error(err))
		return err
	}
	log.Info(ctx, "server stopped")
	return nil
}

func newService(cfg *config.Config, log logger.Logger) *service.Service {
	// Load has validated the mode; an unparsed one falls back to the store default.
	mode, _ := cfg.FileMode()
	return service.New(
		service.WithLogger(log.Named("service")),
		service.WithBackend(cfg.InputStoreBackend),
		service.WithInputStorePath(cfg.InputStorePath),
		service.WithInputStoreFileMode(mode),
		service.WithSQLitePath(cfg.SQLitePath),
		service.WithCatalogPath(cfg.ProviderCatalogPath),
	)
}

// newRouter registers the business API first because chi wants middleware
// installed before any route.
func newRouter(ctx context.Context, cfg *config.Config, svc *service.Service, log logger.Logger) http.Handler {
	r := chi.NewRouter()
	api.NewServer(svc, svc,
		api.WithMaxInputBytes(cfg.MaxInputBytes),
		api.WithLogger(log.Named("api")),
	).Register(ctx, r)
	swagger.Register(ctx, r)
	return r
}

// startSystemMetricsUpdater refreshes runtime gauges until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
	if m.NumGC > 0 {
		metrics.RecordSystemGCPauseTime(float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond)
	}
}
