package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpdelivery "github.com/makini/pay-ledger/internal/delivery/http"
	"github.com/makini/pay-ledger/internal/domain/repository"
	"github.com/makini/pay-ledger/internal/infrastructure/config"
	"github.com/makini/pay-ledger/internal/infrastructure/postgres"
	"github.com/makini/pay-ledger/internal/infrastructure/sqlite"
	"github.com/makini/pay-ledger/internal/usecase/ingest"
	"github.com/makini/pay-ledger/internal/usecase/status"
	"github.com/makini/pay-ledger/internal/usecase/student"
)

const (
	readHeaderTimeout     = 5 * time.Second
	gracefulShutdownDelay = 5 * time.Second
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := config.Load()

	uow, closeStore, err := initStore(ctx, cfg)
	if err != nil {
		logger.Error("store init failed", "db_type", cfg.DBType, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	ingestUC := ingest.NewUseCase(uow)
	statusUC := status.NewUseCase(uow)
	studentUC := student.NewUseCase(uow)

	handler := httpdelivery.NewHandler(ingestUC, statusUC, studentUC, logger)
	router := httpdelivery.NewRouter(handler, cfg.WebhookSecret, cfg.Production())

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "db_type", cfg.DBType)
		if serveErr := srv.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Error("http serve failed", "error", serveErr)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), gracefulShutdownDelay)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}

func initStore(ctx context.Context, cfg *config.Config) (repository.UnitOfWork, func(), error) {
	switch cfg.DBType {
	case config.DBTypePostgres:
		pool, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return postgres.NewUnitOfWork(pool), pool.Close, nil

	default:
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if err := sqlite.Migrate(db); err != nil {
			db.Close()
			return nil, nil, err
		}
		return sqlite.NewUnitOfWork(db), func() { _ = db.Close() }, nil
	}
}
