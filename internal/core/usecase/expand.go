package usecase

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/caselight/retrieval/internal/core/domain"
	"github.com/caselight/retrieval/internal/core/ports"
)

// expandSelected widens each selected chunk with its neighbors. Expansion
// scans for distinct chunks are independent, so they run concurrently with
// bounded parallelism; each goroutine writes a distinct output slot and the
// score-based ordering happens afterwards, so concurrency does not change
// observable output. A failed scan degrades that one chunk to its
// unexpanded form and never fails the query.
//
// A chunk whose merged window text and original text are both empty is
// dropped from the output entirely.
func (uc *RetrieveUseCase) expandSelected(
	ctx context.Context,
	desc domain.CollectionDescriptor,
	selected []domain.Chunk,
	window int,
) []domain.Chunk {
	if len(selected) == 0 {
		return nil
	}

	slots := make([]*domain.Chunk, len(selected))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.maxParallelExpansions)
	for i, chunk := range selected {
		g.Go(func() error {
			expanded := uc.expandOne(gctx, desc, chunk, window)
			slots[i] = expanded
			return nil
		})
	}
	// Workers never return errors; degradation is handled per chunk.
	_ = g.Wait()

	out := make([]domain.Chunk, 0, len(selected))
	for _, chunk := range slots {
		if chunk != nil {
			out = append(out, *chunk)
		}
	}
	return out
}

// expandOne returns the chunk with its text replaced by the merged window,
// the unexpanded chunk when windowing does not apply or the scan failed, or
// nil when the chunk ends up with no text at all.
func (uc *RetrieveUseCase) expandOne(
	ctx context.Context,
	desc domain.CollectionDescriptor,
	chunk domain.Chunk,
	window int,
) *domain.Chunk {
	if window <= 0 || chunk.SequenceIndex == nil || chunk.DocumentID == "" || desc.SequenceField == "" {
		return passThrough(chunk)
	}

	anchor := *chunk.SequenceIndex
	low := anchor - window
	if low < 0 {
		low = 0
	}
	high := anchor + window

	gte := float64(low)
	lte := float64(high)
	scan := ports.ScrollRequest{
		Collection: desc.Collection,
		Mapping:    chunkMapping(desc),
		Filter: domain.FilterExpression{
			Must: []domain.FilterCondition{
				{Field: desc.DocumentIDField, Match: chunk.DocumentID},
				{Field: desc.SequenceField, Range: &domain.ScalarRange{GTE: &gte, LTE: &lte}},
			},
		},
		Limit: 2*window + 1,
	}

	neighbors, err := uc.store.Scroll(ctx, scan)
	if err != nil {
		uc.logger.Warn("context_expansion_failed",
			"family", desc.Family,
			"document_id", chunk.DocumentID,
			"anchor_index", anchor,
			"window", window,
			"error", err,
		)
		if uc.observer != nil {
			uc.observer.ObserveExpansionFailure(desc.Family)
		}
		return passThrough(chunk)
	}

	merged := mergeWindowText(neighbors)
	if merged == "" {
		return passThrough(chunk)
	}
	chunk.Text = merged
	return &chunk
}

// mergeWindowText joins non-empty neighbor texts in ascending sequence
// order with single spaces.
func mergeWindowText(neighbors []domain.Chunk) string {
	ordered := make([]domain.Chunk, len(neighbors))
	copy(ordered, neighbors)
	sort.SliceStable(ordered, func(i, j int) bool {
		return sequenceOrZero(ordered[i]) < sequenceOrZero(ordered[j])
	})

	parts := make([]string, 0, len(ordered))
	for _, n := range ordered {
		if n.Text != "" {
			parts = append(parts, n.Text)
		}
	}
	return strings.Join(parts, " ")
}

func sequenceOrZero(c domain.Chunk) int {
	if c.SequenceIndex == nil {
		return 0
	}
	return *c.SequenceIndex
}

func passThrough(chunk domain.Chunk) *domain.Chunk {
	if chunk.Text == "" {
		return nil
	}
	return &chunk
}

func chunkMapping(desc domain.CollectionDescriptor) ports.ChunkMapping {
	return ports.ChunkMapping{
		DocumentIDField: desc.DocumentIDField,
		SequenceField:   desc.SequenceField,
		TextField:       desc.TextField,
	}
}
