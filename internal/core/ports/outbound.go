package ports

import (
	"context"

	"github.com/caselight/retrieval/internal/core/domain"
)

// EmbeddingGateway builds the two query representations used by hybrid
// search. Both calls are mandatory for vector-mode queries; a failure of
// either aborts the query.
type EmbeddingGateway interface {
	EmbedDense(ctx context.Context, text string) ([]float32, error)
	EmbedSparse(ctx context.Context, texts []string) ([]domain.SparseVector, error)
}

// ChunkMapping tells the store client which payload fields carry document
// identity, sequence position and text for one collection.
type ChunkMapping struct {
	DocumentIDField string
	SequenceField   string
	TextField       string
}

// HybridQueryRequest is one fused two-modality search. Both prefetch
// branches are capped at PrefetchLimit and fused rank-based by the store.
type HybridQueryRequest struct {
	Collection    string
	Mapping       ChunkMapping
	Dense         []float32
	Sparse        domain.SparseVector
	Filter        domain.FilterExpression
	PrefetchLimit int
	Limit         int
}

// ScrollRequest is a pure filter scan, used both for filter-only primary
// search and for expansion-window scans.
type ScrollRequest struct {
	Collection string
	Mapping    ChunkMapping
	Filter     domain.FilterExpression
	Limit      int
}

// VectorStore is the engine's view of the chunk store.
type VectorStore interface {
	CollectionExists(ctx context.Context, collection string) (bool, error)
	HybridQuery(ctx context.Context, req HybridQueryRequest) ([]domain.Chunk, error)
	Scroll(ctx context.Context, req ScrollRequest) ([]domain.Chunk, error)
}

// AuditTrail publishes retrieval audit events for asynchronous persistence.
type AuditTrail interface {
	PublishRetrievalAudit(ctx context.Context, record domain.AuditRecord) error
	SubscribeRetrievalAudit(ctx context.Context, handler func(context.Context, domain.AuditRecord) error) error
}

// RetrievalObserver records retrieval outcomes for monitoring. Implementations
// must be safe for concurrent use.
type RetrievalObserver interface {
	ObserveRetrieval(family string, mode domain.RetrievalMode, status string, seconds float64, candidates, results int)
	ObserveExpansionFailure(family string)
	ObserveBackfill(family string, added int)
}

// AuditRepository persists audit records.
type AuditRepository interface {
	Insert(ctx context.Context, record domain.AuditRecord) error
	CountSince(ctx context.Context, family string, sinceHours int) (int, error)
}
