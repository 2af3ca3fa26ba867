package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/caselight/retrieval/internal/config"
	"github.com/caselight/retrieval/internal/core/ports"
	"github.com/caselight/retrieval/internal/core/usecase"
	"github.com/caselight/retrieval/internal/infrastructure/descriptors"
	"github.com/caselight/retrieval/internal/infrastructure/embedding/gateway"
	"github.com/caselight/retrieval/internal/infrastructure/queue/nats"
	"github.com/caselight/retrieval/internal/infrastructure/resilience"
	"github.com/caselight/retrieval/internal/infrastructure/vector/qdrant"
	"github.com/caselight/retrieval/internal/observability/metrics"
)

// App wires the API process: descriptor registry, outbound clients, the
// retrieval engine and its observability.
type App struct {
	Config config.Config

	Descriptors ports.DescriptorReader
	Retriever   ports.Retriever
	Audit       ports.AuditTrail
	Metrics     *metrics.HTTPServerMetrics

	closeFn func()
}

func New(cfg config.Config, logger *slog.Logger) (*App, error) {
	registry, err := descriptors.LoadFile(cfg.DescriptorFile)
	if err != nil {
		return nil, fmt.Errorf("load descriptors: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	store := qdrant.NewWithOptions(cfg.QdrantURL, qdrant.Options{
		ResilienceExecutor: executor,
	})
	embedder := gateway.NewWithOptions(cfg.EmbeddingGatewayURL, gateway.Options{
		ResilienceExecutor: executor,
	})

	var audit ports.AuditTrail
	closeFn := func() {}
	if cfg.AuditEnabled {
		trail, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ResilienceExecutor: executor,
		})
		if err != nil {
			return nil, fmt.Errorf("init audit trail: %w", err)
		}
		audit = trail
		closeFn = trail.Close
	}

	serverMetrics := metrics.NewHTTPServerMetrics("retrieval-api")

	retriever := usecase.NewRetrieveUseCase(registry, embedder, store, usecase.Options{
		Audit:                 audit,
		Observer:              serverMetrics,
		Logger:                logger,
		PrefetchLimit:         cfg.PrefetchLimit,
		MaxParallelExpansions: cfg.MaxParallelExpansions,
	})

	return &App{
		Config:      cfg,
		Descriptors: registry,
		Retriever:   retriever,
		Audit:       audit,
		Metrics:     serverMetrics,
		closeFn:     closeFn,
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
