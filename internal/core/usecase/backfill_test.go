package usecase

import (
	"testing"

	"github.com/caselight/retrieval/internal/core/domain"
)

func TestBackfillFromPoolAppendsGloballyRankedUnused(t *testing.T) {
	assembled := []domain.Chunk{
		{ID: "a1", DocumentID: "doc-a", SequenceIndex: seq(0), Text: "a", Score: 0.9},
	}
	pool := []domain.Chunk{
		{ID: "a1", DocumentID: "doc-a", SequenceIndex: seq(0), Text: "a", Score: 0.9},
		{ID: "b1", DocumentID: "doc-b", SequenceIndex: seq(0), Text: "b", Score: 0.8},
		{ID: "c1", DocumentID: "doc-c", SequenceIndex: seq(0), Text: "c", Score: 0.7},
	}

	out, added := backfillFromPool(assembled, pool, 3)
	if added != 2 {
		t.Fatalf("expected 2 backfilled items, got %d", added)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 assembled items, got %d", len(out))
	}
	if out[1].ID != "b1" || out[2].ID != "c1" {
		t.Fatalf("expected score-ranked backfill b1, c1; got %s, %s", out[1].ID, out[2].ID)
	}
}

func TestBackfillFromPoolStopsAtPoolExhaustion(t *testing.T) {
	assembled := []domain.Chunk{
		{ID: "a1", DocumentID: "doc-a", SequenceIndex: seq(0), Text: "a", Score: 0.9},
	}
	pool := []domain.Chunk{
		{ID: "a1", DocumentID: "doc-a", SequenceIndex: seq(0), Text: "a", Score: 0.9},
		{ID: "b1", DocumentID: "doc-b", SequenceIndex: seq(0), Text: "b", Score: 0.8},
	}

	out, added := backfillFromPool(assembled, pool, 10)
	if added != 1 {
		t.Fatalf("expected 1 backfilled item before exhaustion, got %d", added)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 assembled items, got %d", len(out))
	}
}

func TestBackfillFromPoolSkipsEmptyTextChunks(t *testing.T) {
	assembled := []domain.Chunk{
		{ID: "a1", DocumentID: "doc-a", SequenceIndex: seq(0), Text: "a", Score: 0.9},
	}
	pool := []domain.Chunk{
		{ID: "a1", DocumentID: "doc-a", SequenceIndex: seq(0), Text: "a", Score: 0.9},
		{ID: "b1", DocumentID: "doc-a", SequenceIndex: seq(1), Text: "", Score: 0.8},
		{ID: "c1", DocumentID: "doc-a", SequenceIndex: seq(2), Text: "c", Score: 0.7},
	}

	out, added := backfillFromPool(assembled, pool, 10)
	if added != 1 {
		t.Fatalf("expected only the textual chunk backfilled, got %d", added)
	}
	for _, chunk := range out {
		if chunk.Text == "" {
			t.Fatalf("empty-text chunk %s must not be backfilled", chunk.ID)
		}
	}
	if len(out) != 2 || out[1].ID != "c1" {
		t.Fatalf("expected [a1 c1], got %+v", out)
	}
}

func TestBackfillFromPoolNoOpWhenAlreadyFull(t *testing.T) {
	assembled := []domain.Chunk{
		{ID: "a1", DocumentID: "doc-a", Score: 0.9},
		{ID: "b1", DocumentID: "doc-b", Score: 0.8},
	}

	out, added := backfillFromPool(assembled, []domain.Chunk{{ID: "c1", Score: 1.0}}, 2)
	if added != 0 {
		t.Fatalf("expected no backfill, got %d", added)
	}
	if len(out) != 2 {
		t.Fatalf("expected assembled unchanged, got %d items", len(out))
	}
}

func TestFinalizeSortsDedupesAndTruncates(t *testing.T) {
	assembled := []domain.Chunk{
		{ID: "a1", DocumentID: "doc-a", SequenceIndex: seq(0), Text: "a", Score: 0.3},
		{ID: "b1", DocumentID: "doc-b", SequenceIndex: seq(0), Text: "b", Score: 0.9},
		{ID: "b1", DocumentID: "doc-b", SequenceIndex: seq(0), Text: "b again", Score: 0.5},
		{ID: "c1", DocumentID: "doc-c", SequenceIndex: seq(0), Text: "c", Score: 0.7},
	}

	out := finalize(assembled, 2)
	if len(out) != 2 {
		t.Fatalf("expected truncation to 2, got %d", len(out))
	}
	if out[0].ID != "b1" || out[1].ID != "c1" {
		t.Fatalf("expected b1, c1 by descending score; got %s, %s", out[0].ID, out[1].ID)
	}

	seen := map[string]bool{}
	for _, chunk := range out {
		key := chunk.DedupKey()
		if seen[key] {
			t.Fatalf("duplicate dedup key %s in final output", key)
		}
		seen[key] = true
	}
}
