package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caselight/retrieval/internal/config"
	"github.com/caselight/retrieval/internal/core/domain"
	"github.com/caselight/retrieval/internal/core/ports"
	"github.com/caselight/retrieval/internal/infrastructure/queue/nats"
	"github.com/caselight/retrieval/internal/infrastructure/repository/postgres"
	"github.com/caselight/retrieval/internal/observability/logging"
	"github.com/caselight/retrieval/internal/observability/metrics"
)

const serviceName = "retrieval-worker"

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}
	defer db.Close()

	pgRepo := postgres.NewAuditRepository(db)
	if err := pgRepo.EnsureSchema(ctx); err != nil {
		log.Fatalf("ensure schema: %v", err)
	}
	var repo ports.AuditRepository = pgRepo

	trail, err := nats.New(cfg.NATSURL, cfg.NATSSubject)
	if err != nil {
		log.Fatalf("init audit trail: %v", err)
	}
	defer trail.Close()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		logger.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("worker metrics server error: %v", err)
		}
	}()

	logger.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = trail.SubscribeRetrievalAudit(ctx, func(handlerCtx context.Context, record domain.AuditRecord) error {
		persistCtx, cancel := context.WithTimeout(handlerCtx, 30*time.Second)
		defer cancel()

		workerMetrics.StartPersist()
		workerMetrics.ObserveEventLag(serviceName, time.Since(record.CreatedAt))

		start := time.Now()
		insertErr := repo.Insert(persistCtx, record)
		workerMetrics.FinishPersist(serviceName, time.Since(start), insertErr)
		if insertErr != nil {
			logger.Error("audit_persist_failed", "record_id", record.ID, "error", insertErr)
			return insertErr
		}
		if logger.Enabled(persistCtx, slog.LevelDebug) {
			if count, countErr := repo.CountSince(persistCtx, record.Family, 24); countErr == nil {
				logger.Debug("audit_family_volume", "family", record.Family, "last_24h", count)
			}
		}
		return nil
	})
	if err != nil {
		logger.Error("worker_subscribe_error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsServer.Shutdown(shutdownCtx)
}
