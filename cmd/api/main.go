package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/outflow-ledger/api"
	"github.com/josh-kwaku/outflow-ledger/internal/config"
	"github.com/josh-kwaku/outflow-ledger/internal/domain"
	"github.com/josh-kwaku/outflow-ledger/internal/events"
	"github.com/josh-kwaku/outflow-ledger/internal/events/kafka"
	"github.com/josh-kwaku/outflow-ledger/internal/handler"
	"github.com/josh-kwaku/outflow-ledger/internal/logging"
	"github.com/josh-kwaku/outflow-ledger/internal/middleware"
	"github.com/josh-kwaku/outflow-ledger/internal/repository"
	"github.com/josh-kwaku/outflow-ledger/internal/repository/memory"
	"github.com/josh-kwaku/outflow-ledger/internal/service/ledger"
	"github.com/josh-kwaku/outflow-ledger/internal/worker"
)

type publisher interface {
	Publish(ctx context.Context, event domain.EntryEvent) error
}

type idempotencyStore interface {
	Get(ctx context.Context, key string, companyID uuid.UUID) (*repository.IdempotencyCacheEntry, error)
	Set(ctx context.Context, entry *repository.IdempotencyCacheEntry) error
	CleanExpired(ctx context.Context) (int64, error)
}

type backend struct {
	ledger      *ledger.Service
	idempotency idempotencyStore
	health      *handler.HealthHandler
	close       func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Init("outflow-ledger", cfg.LogLevel, cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var pub publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer func() {
			if err := kp.Close(); err != nil {
				slog.Warn("failed to close event publisher", "error", err)
			}
		}()
		pub = kp
		slog.Info("publishing entry events", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	b, err := newBackend(ctx, cfg, pub)
	if err != nil {
		slog.Error("failed to initialise store", "error", err, "driver", cfg.StoreDriver)
		os.Exit(1)
	}
	defer b.close()

	cleaner := worker.NewIdempotencyCleaner(b.idempotency, logger,
		time.Duration(cfg.IdempotencyCleanupIntervalS)*time.Second)
	go cleaner.Start(ctx)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           routes(cfg, b),
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", addr, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}
	slog.Info("server stopped")
}

func newBackend(ctx context.Context, cfg *config.Config, pub publisher) (*backend, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		slog.Warn("using in-memory store; data is lost on restart")
		return &backend{
			ledger:      ledger.NewService(memory.NewEntryStore(), memory.NewAttachmentStore(), pub, cfg),
			idempotency: memory.NewIdempotencyStore(),
			health:      handler.NewHealthHandler(nil),
			close:       func() {},
		}, nil
	default:
		db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, repository.PoolConfig{
			MaxOpenConns:     cfg.DBMaxOpenConns,
			MaxIdleConns:     cfg.DBMaxIdleConns,
			ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
			ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
			ConnectAttempts:  30,
		})
		if err != nil {
			return nil, fmt.Errorf("newBackend: %w", err)
		}
		return postgresBackend(db, cfg, pub), nil
	}
}

func postgresBackend(db *sql.DB, cfg *config.Config, pub publisher) *backend {
	return &backend{
		ledger: ledger.NewService(
			repository.NewEntryRepository(db),
			repository.NewAttachmentRepository(db),
			pub,
			cfg,
		),
		idempotency: repository.NewIdempotencyRepository(db),
		health:      handler.NewHealthHandler(db),
		close: func() {
			if err := db.Close(); err != nil {
				slog.Warn("failed to close database", "error", err)
			}
		},
	}
}

func routes(cfg *config.Config, b *backend) http.Handler {
	entries := handler.NewEntryHandler(b.ledger)

	authed := func(h http.HandlerFunc) http.Handler {
		return middleware.Auth(cfg.JWTSecret)(middleware.Idempotency(b.idempotency)(h))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health/live", b.health.Liveness)
	mux.HandleFunc("GET /health/ready", b.health.Readiness)
	mux.HandleFunc("GET /docs", handler.ServeDocs())
	mux.HandleFunc("GET /docs/openapi.yaml", handler.ServeSpec(api.Spec))

	mux.Handle("POST /api/v1/entries", authed(entries.Create))
	mux.Handle("POST /api/v1/entries/plans", authed(entries.CreatePlan))
	mux.Handle("GET /api/v1/entries", authed(entries.List))
	mux.Handle("GET /api/v1/entries/{id}", authed(entries.Get))
	mux.Handle("PATCH /api/v1/entries/{id}", authed(entries.Update))
	mux.Handle("DELETE /api/v1/entries/{id}", authed(entries.Delete))
	mux.Handle("GET /api/v1/entries/{id}/installments", authed(entries.ListInstallments))
	mux.Handle("POST /api/v1/entries/{id}/reconcile", authed(entries.Reconcile))
	mux.Handle("POST /api/v1/entries/{id}/complete", authed(entries.Complete))
	mux.Handle("GET /api/v1/entries/{id}/attachments", authed(entries.ListAttachments))
	mux.Handle("POST /api/v1/entries/{id}/attachments", authed(entries.LinkAttachment))
	mux.Handle("PATCH /api/v1/installments/{id}", authed(entries.EditInstallment))

	return middleware.Tracing(middleware.Logging(middleware.Recovery(mux)))
}
