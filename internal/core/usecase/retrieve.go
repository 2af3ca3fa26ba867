package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/caselight/retrieval/internal/core/domain"
	"github.com/caselight/retrieval/internal/core/ports"
)

const (
	defaultPrefetchLimit         = 50
	defaultMaxParallelExpansions = 4

	filterScanFactor   = 3
	maxFilterScanLimit = 100
)

// RetrieveUseCase is the hybrid retrieval and context-assembly engine. One
// instance serves every configured document family; the per-family
// behavior is fully described by the family's collection descriptor.
type RetrieveUseCase struct {
	descriptors ports.DescriptorReader
	gateway     ports.EmbeddingGateway
	store       ports.VectorStore
	audit       ports.AuditTrail
	observer    ports.RetrievalObserver
	logger      *slog.Logger

	prefetchLimit         int
	maxParallelExpansions int
}

// Options carries the optional collaborators and tuning knobs of the engine.
type Options struct {
	Audit                 ports.AuditTrail
	Observer              ports.RetrievalObserver
	Logger                *slog.Logger
	PrefetchLimit         int
	MaxParallelExpansions int
}

func NewRetrieveUseCase(
	descriptors ports.DescriptorReader,
	gateway ports.EmbeddingGateway,
	store ports.VectorStore,
	options Options,
) *RetrieveUseCase {
	prefetch := options.PrefetchLimit
	if prefetch <= 0 {
		prefetch = defaultPrefetchLimit
	}
	parallel := options.MaxParallelExpansions
	if parallel <= 0 {
		parallel = defaultMaxParallelExpansions
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &RetrieveUseCase{
		descriptors:           descriptors,
		gateway:               gateway,
		store:                 store,
		audit:                 options.Audit,
		observer:              options.Observer,
		logger:                logger,
		prefetchLimit:         prefetch,
		maxParallelExpansions: parallel,
	}
}

// Retrieve runs the full pipeline for one query: encode, search, cluster,
// allocate quotas, expand, backfill and finalize. All entities are
// transient; nothing is persisted by the engine itself.
func (uc *RetrieveUseCase) Retrieve(
	ctx context.Context,
	family string,
	query domain.RetrievalQuery,
) ([]domain.Chunk, error) {
	start := time.Now()

	desc, ok := uc.descriptors.Descriptor(family)
	if !ok {
		uc.observe(family, domain.ModeEmpty, "configuration_error", start, 0, 0)
		return nil, domain.WrapError(domain.ErrConfiguration, "resolve family",
			fmt.Errorf("unknown document family %q", family))
	}
	if query.Limit < 0 || query.ContextWindow < 0 {
		uc.observe(family, domain.ModeEmpty, "invalid_input", start, 0, 0)
		return nil, domain.WrapError(domain.ErrInvalidInput, "validate query",
			fmt.Errorf("limit and context window must be non-negative"))
	}

	exists, err := uc.store.CollectionExists(ctx, desc.Collection)
	if err != nil {
		uc.observe(family, domain.ModeEmpty, "store_error", start, 0, 0)
		return nil, domain.WrapError(domain.ErrVectorStore, "check collection", err)
	}
	if !exists {
		uc.observe(family, domain.ModeEmpty, "configuration_error", start, 0, 0)
		return nil, domain.WrapError(domain.ErrConfiguration, "check collection",
			fmt.Errorf("collection %q does not exist", desc.Collection))
	}

	if query.Limit == 0 {
		uc.finish(ctx, desc, query, domain.ModeEmpty, start, 0, nil)
		return []domain.Chunk{}, nil
	}

	filter, err := translateCriteria(desc, query.Criteria)
	if err != nil {
		uc.observe(family, domain.ModeEmpty, "invalid_input", start, 0, 0)
		return nil, err
	}

	candidates, mode, err := uc.fetchCandidates(ctx, desc, query, filter)
	if err != nil {
		uc.observe(family, mode, errorStatus(err), start, 0, 0)
		return nil, err
	}
	if mode == domain.ModeEmpty || len(candidates) == 0 {
		uc.finish(ctx, desc, query, mode, start, len(candidates), nil)
		return []domain.Chunk{}, nil
	}

	clusters := clusterByDocument(candidates)
	quota := perDocumentCap(query.Limit, len(clusters))
	selected := selectTopPerCluster(clusters, quota)
	assembled := uc.expandSelected(ctx, desc, selected, query.ContextWindow)

	assembled, backfilled := backfillFromPool(assembled, candidates, query.Limit)
	if backfilled > 0 && uc.observer != nil {
		uc.observer.ObserveBackfill(desc.Family, backfilled)
	}

	results := finalize(assembled, query.Limit)
	uc.finish(ctx, desc, query, mode, start, len(candidates), results)
	return results, nil
}

// fetchCandidates picks the search path: fused two-modality retrieval when
// query text is present, a capped filter scan when only filters are
// present, nothing when neither is.
func (uc *RetrieveUseCase) fetchCandidates(
	ctx context.Context,
	desc domain.CollectionDescriptor,
	query domain.RetrievalQuery,
	filter domain.FilterExpression,
) ([]domain.Chunk, domain.RetrievalMode, error) {
	if query.HasText() {
		chunks, err := uc.hybridSearch(ctx, desc, query, filter)
		return chunks, domain.ModeHybrid, err
	}

	if filter.IsEmpty() {
		// No query text and no filters: an ungoverned full-collection scan
		// is never issued.
		return nil, domain.ModeEmpty, nil
	}

	scanLimit := query.Limit * filterScanFactor
	if scanLimit > maxFilterScanLimit {
		scanLimit = maxFilterScanLimit
	}
	chunks, err := uc.store.Scroll(ctx, ports.ScrollRequest{
		Collection: desc.Collection,
		Mapping:    chunkMapping(desc),
		Filter:     filter,
		Limit:      scanLimit,
	})
	if err != nil {
		return nil, domain.ModeFilterScan, domain.WrapError(domain.ErrVectorStore, "filter scan",
			fmt.Errorf("collection=%s must=%d should=%d limit=%d: %w",
				desc.Collection, len(filter.Must), len(filter.Should), scanLimit, err))
	}
	// Scores carry no meaning without a query vector; ranking degrades to
	// filter-scan order behind a uniform synthetic score.
	for i := range chunks {
		chunks[i].Score = 1.0
	}
	return chunks, domain.ModeFilterScan, nil
}

// hybridSearch embeds the query text in both modalities concurrently, then
// issues one fused search. Embedding and primary search failures are fatal
// to the whole query.
func (uc *RetrieveUseCase) hybridSearch(
	ctx context.Context,
	desc domain.CollectionDescriptor,
	query domain.RetrievalQuery,
	filter domain.FilterExpression,
) ([]domain.Chunk, error) {
	var (
		dense  []float32
		sparse domain.SparseVector
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		vector, err := uc.gateway.EmbedDense(gctx, query.Text)
		if err != nil {
			return domain.WrapError(domain.ErrEmbeddingUpstream, "embed dense query", err)
		}
		if len(vector) == 0 {
			return domain.WrapError(domain.ErrEmbeddingUpstream, "embed dense query",
				errors.New("empty dense embedding"))
		}
		dense = vector
		return nil
	})
	g.Go(func() error {
		vectors, err := uc.gateway.EmbedSparse(gctx, []string{query.Text})
		if err != nil {
			return domain.WrapError(domain.ErrEmbeddingUpstream, "embed sparse query", err)
		}
		if len(vectors) == 0 {
			return domain.WrapError(domain.ErrEmbeddingUpstream, "embed sparse query",
				errors.New("empty sparse embedding"))
		}
		sparse = vectors[0]
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	chunks, err := uc.store.HybridQuery(ctx, ports.HybridQueryRequest{
		Collection:    desc.Collection,
		Mapping:       chunkMapping(desc),
		Dense:         dense,
		Sparse:        sparse,
		Filter:        filter,
		PrefetchLimit: uc.prefetchLimit,
		Limit:         uc.prefetchLimit,
	})
	if err != nil {
		return nil, domain.WrapError(domain.ErrVectorStore, "hybrid search",
			fmt.Errorf("collection=%s must=%d should=%d prefetch=%d: %w",
				desc.Collection, len(filter.Must), len(filter.Should), uc.prefetchLimit, err))
	}
	return chunks, nil
}

// finish records metrics and publishes the audit event for a completed
// query. Audit publishing is best-effort; a failure is logged and never
// surfaces to the caller.
func (uc *RetrieveUseCase) finish(
	ctx context.Context,
	desc domain.CollectionDescriptor,
	query domain.RetrievalQuery,
	mode domain.RetrievalMode,
	start time.Time,
	candidates int,
	results []domain.Chunk,
) {
	elapsed := time.Since(start)
	uc.observe(desc.Family, mode, "ok", start, candidates, len(results))

	if uc.audit == nil {
		return
	}
	record := domain.AuditRecord{
		ID:             uuid.NewString(),
		Family:         desc.Family,
		Mode:           mode,
		QueryChars:     len(query.Text),
		CriteriaCount:  len(query.Criteria),
		Limit:          query.Limit,
		ContextWindow:  query.ContextWindow,
		ResultCount:    len(results),
		CandidateCount: candidates,
		DurationMS:     float64(elapsed.Microseconds()) / 1000.0,
		CreatedAt:      time.Now().UTC(),
	}
	if err := uc.audit.PublishRetrievalAudit(ctx, record); err != nil {
		uc.logger.Warn("audit_publish_failed", "family", desc.Family, "error", err)
	}
}

func (uc *RetrieveUseCase) observe(
	family string,
	mode domain.RetrievalMode,
	status string,
	start time.Time,
	candidates, results int,
) {
	if uc.observer == nil {
		return
	}
	uc.observer.ObserveRetrieval(family, mode, status, time.Since(start).Seconds(), candidates, results)
}

func errorStatus(err error) string {
	switch {
	case domain.IsKind(err, domain.ErrEmbeddingUpstream):
		return "embedding_error"
	case domain.IsKind(err, domain.ErrVectorStore):
		return "store_error"
	case domain.IsKind(err, domain.ErrConfiguration):
		return "configuration_error"
	case domain.IsKind(err, domain.ErrInvalidInput):
		return "invalid_input"
	default:
		return "error"
	}
}
