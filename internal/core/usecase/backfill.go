package usecase

import (
	"github.com/caselight/retrieval/internal/core/domain"
)

// backfillFromPool tops up an under-filled result set from the globally
// score-ranked candidate pool. Items whose dedup key is already used are
// skipped, as are items without text: the pool is raw search output, and a
// chunk the expander excluded for having no text must not re-enter here.
// Backfilled items are emitted unexpanded.
func backfillFromPool(assembled []domain.Chunk, pool []domain.Chunk, limit int) (out []domain.Chunk, added int) {
	if len(assembled) >= limit {
		return assembled, 0
	}

	used := make(map[string]struct{}, len(assembled))
	for _, chunk := range assembled {
		used[chunk.DedupKey()] = struct{}{}
	}

	ranked := make([]domain.Chunk, len(pool))
	copy(ranked, pool)
	domain.SortChunksByScore(ranked)

	out = assembled
	for _, chunk := range ranked {
		if len(out) >= limit {
			break
		}
		if chunk.Text == "" {
			continue
		}
		key := chunk.DedupKey()
		if _, taken := used[key]; taken {
			continue
		}
		used[key] = struct{}{}
		out = append(out, chunk)
		added++
	}
	return out, added
}

// finalize sorts by score descending, removes dedup-key duplicates and
// truncates to the requested limit.
func finalize(assembled []domain.Chunk, limit int) []domain.Chunk {
	ranked := make([]domain.Chunk, len(assembled))
	copy(ranked, assembled)
	domain.SortChunksByScore(ranked)

	seen := make(map[string]struct{}, len(ranked))
	out := make([]domain.Chunk, 0, len(ranked))
	for _, chunk := range ranked {
		key := chunk.DedupKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, chunk)
		if len(out) >= limit {
			break
		}
	}
	return out
}
