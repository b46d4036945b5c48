package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/okian/simplehttp/internal/adapters/http/api"
	"github.com/okian/simplehttp/internal/adapters/http/swagger"
	"github.com/okian/simplehttp/internal/config"
	"github.com/okian/simplehttp/pkg/logger"
	"github.com/okian/simplehttp/pkg/metrics"
)

const (
	systemMetricsInterval     = 10 * time.Second
	sentryFlushTimeout        = 2 * time.Second
	nanosecondsPerMillisecond = 1e6
)

// errServe wraps failures of the public listener after startup.
var errServe = errors.New("http serve failed")

func main() {
	os.Exit(run())
}

// run wires the process together and returns its exit code.
func run() int {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env -> PORT)
	cfg, err := config.Load(ctx)
	if err != nil {
		// The logger is configured from cfg, so it is not available yet.
		_, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return 1
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		_, _ = os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return 1
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	report, err := setupSentry(cfg)
	if err != nil {
		log.Warn(ctx, "sentry disabled", logger.Error(err))
	}
	if report != nil {
		defer sentry.Flush(sentryFlushTimeout)
	}

	// Bind before serving so that an unusable port aborts startup.
	ln, err := listen(cfg.Addr())
	if err != nil {
		log.Error(ctx, "failed to bind", logger.String("addr", cfg.Addr()), logger.Error(err))
		return 1
	}

	var adminLn net.Listener
	if cfg.MetricsAddr != "" {
		if adminLn, err = listen(cfg.MetricsAddr); err != nil {
			_ = ln.Close()
			log.Error(ctx, "failed to bind admin listener", logger.String("addr", cfg.MetricsAddr), logger.Error(err))
			return 1
		}
	}

	go startSystemMetricsUpdater(ctx)

	handler := api.NewServer(api.WithLogger(log), api.WithErrorReporter(report))
	if err := serve(ctx, cfg, log, handler, ln, adminLn); err != nil {
		log.Error(ctx, "server failed", logger.Error(err))
		return 1
	}
	return 0
}

// setupSentry initializes Sentry when a DSN is configured and returns a
// reporter for handler errors. Without a DSN both results are nil.
func setupSentry(cfg *config.Config) (api.ErrorReporter, error) {
	if cfg.SentryDSN == "" {
		return nil, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		Environment:      cfg.SentryEnvironment,
		TracesSampleRate: 1.0,
	})
	if err != nil {
		return nil, err
	}

	return func(err error) { sentry.CaptureException(err) }, nil
}

// listen binds a TCP listener on addr.
func listen(addr string) (net.Listener, error) {
	var lc net.ListenConfig
	return lc.Listen(context.Background(), "tcp", addr)
}

// newPublicServer builds the public listener's server from cfg.
func newPublicServer(cfg *config.Config, h http.Handler) *http.Server {
	if cfg.H2C {
		h = h2c.NewHandler(h, &http2.Server{})
	}
	return &http.Server{
		Handler:           h,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// newAdminServer serves metrics and API docs.
func newAdminServer(ctx context.Context, cfg *config.Config) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metrics.Handler())
	swagger.Register(ctx, mux)

	return &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// serve runs the public server on ln, and the admin server on adminLn when it
// is not nil, until ctx is cancelled. In-flight requests are then drained for
// at most cfg.ShutdownTimeout.
func serve(ctx context.Context, cfg *config.Config, log logger.Logger, h http.Handler, ln, adminLn net.Listener) error {
	srv := newPublicServer(cfg, h)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	var admin *http.Server
	if adminLn != nil {
		admin = newAdminServer(ctx, cfg)
		go func() {
			if err := admin.Serve(adminLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error(ctx, "admin server failed", logger.Error(fmt.Errorf("%w: %w", metrics.ErrServe, err)))
			}
		}()
		log.Info(ctx, "admin server started", logger.String("addr", adminLn.Addr().String()))
	}

	port := ln.Addr().(*net.TCPAddr).Port
	log.Info(ctx, "server started", logger.Int("port", port), logger.String("url", fmt.Sprintf("http://localhost:%d", port)))

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if admin != nil {
			_ = admin.Close()
		}
		return fmt.Errorf("%w: %w", errServe, err)
	}

	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
	defer cancel()

	if admin != nil {
		if err := admin.Shutdown(shutdownCtx); err != nil {
			log.Warn(ctx, "admin server shutdown failed", logger.Error(err))
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info(ctx, "server closed")
	return nil
}

// startSystemMetricsUpdater updates system metrics until ctx is cancelled.
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

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)

	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		// Average GC pause since start.
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
