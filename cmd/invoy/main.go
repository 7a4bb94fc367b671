// Command invoy serves the invoicing HTTP API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/okian/invoy/internal/adapters/delivery"
	"github.com/okian/invoy/internal/adapters/extract"
	"github.com/okian/invoy/internal/adapters/http/api"
	"github.com/okian/invoy/internal/adapters/http/swagger"
	"github.com/okian/invoy/internal/adapters/render"
	"github.com/okian/invoy/internal/adapters/repository"
	"github.com/okian/invoy/internal/adapters/stt"
	service "github.com/okian/invoy/internal/app"
	"github.com/okian/invoy/internal/config"
	"github.com/okian/invoy/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 30 * time.Second
	writeTimeout      = 120 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := logger.InitWith(os.Stdout, cfg.LogFormat); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "invoy stopped with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	svc, err := buildService(cfg, log)
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(ctx, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

// buildService wires the configured collaborators into a service.
// Collaborators without configuration fall back to their local stand-ins.
func buildService(cfg *config.Config, log logger.Logger) (*service.Service, error) {
	opts := []service.Option{
		service.WithLogger(log),
		service.WithProfile(cfg.Profile()),
		service.WithRules(cfg.BillingRule()),
		service.WithBranding(cfg.BrandingValue()),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
		service.WithMaxAttempts(cfg.Extract.MaxAttempts),
	}

	if cfg.Extract.APIKey != "" {
		xopts := []extract.Option{
			extract.WithAPIKey(cfg.Extract.APIKey),
			extract.WithTimeout(cfg.Extract.Timeout),
		}
		if cfg.Extract.BaseURL != "" {
			xopts = append(xopts, extract.WithBaseURL(cfg.Extract.BaseURL))
		}
		if cfg.Extract.Model != "" {
			xopts = append(xopts, extract.WithModel(cfg.Extract.Model))
		}
		opts = append(opts, service.WithExtractor(extract.New(xopts...)))
	}

	if cfg.STT.URL != "" {
		opts = append(opts, service.WithTranscriber(stt.NewHTTPTranscriber(cfg.STT.URL,
			stt.WithTimeout(cfg.STT.Timeout), stt.WithLogger(log))))
	}

	if p := render.NewCommandProducer(cfg.Render.PDFCommand); p != nil {
		opts = append(opts, service.WithBinaryProducer(p))
	}

	if cfg.Delivery.APIKey != "" {
		dopts := []delivery.Option{delivery.WithLogger(log)}
		if cfg.Delivery.BaseURL != "" {
			dopts = append(dopts, delivery.WithBaseURL(cfg.Delivery.BaseURL))
		}
		if cfg.Delivery.From != "" {
			dopts = append(dopts, delivery.WithFrom(cfg.Delivery.From))
		}
		opts = append(opts, service.WithDispatcher(delivery.NewResendDispatcher(cfg.Delivery.APIKey, dopts...)))
	}

	if cfg.Store.Path != "" {
		st, err := repository.NewSQLiteStore(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		opts = append(opts, service.WithStore(st))
	}

	return service.New(opts...), nil
}

// newRouter mounts the API and its documentation.
func newRouter(ctx context.Context, svc *service.Service) http.Handler {
	r := chi.NewRouter()
	api.NewServer(svc).Register(ctx, r)
	swagger.Register(ctx, r)
	return r
}
