package domain

import "testing"

func TestSortChunksByScoreDescending(t *testing.T) {
	chunks := []Chunk{
		{ID: "low", Score: 0.1},
		{ID: "high", Score: 0.9},
		{ID: "mid", Score: 0.5},
	}
	SortChunksByScore(chunks)
	if chunks[0].ID != "high" || chunks[1].ID != "mid" || chunks[2].ID != "low" {
		t.Fatalf("unexpected order: %+v", chunks)
	}
}

func TestSortChunksByScoreKeepsInputOrderOnTies(t *testing.T) {
	// Uniform synthetic scores, as a filter scan produces: the sort must
	// leave scan order untouched.
	chunks := []Chunk{
		{ID: "z", DocumentID: "doc-z", Score: 1.0},
		{ID: "a", DocumentID: "doc-a", Score: 1.0},
		{ID: "m", DocumentID: "doc-m", Score: 1.0},
	}
	SortChunksByScore(chunks)
	if chunks[0].ID != "z" || chunks[1].ID != "a" || chunks[2].ID != "m" {
		t.Fatalf("tie order must match input order, got %+v", chunks)
	}
}

func TestChunkKeys(t *testing.T) {
	idx := 4
	c := Chunk{ID: "c-1", DocumentID: "doc-1", SequenceIndex: &idx}
	if c.ClusterKey() != "doc-1" {
		t.Fatalf("expected document id as cluster key, got %q", c.ClusterKey())
	}
	if c.DedupKey() != "doc-1|4|c-1" {
		t.Fatalf("unexpected dedup key %q", c.DedupKey())
	}

	orphan := Chunk{ID: "c-2"}
	if orphan.ClusterKey() != "c-2" {
		t.Fatalf("expected chunk id as fallback cluster key, got %q", orphan.ClusterKey())
	}
	if orphan.DedupKey() != "|-|c-2" {
		t.Fatalf("unexpected orphan dedup key %q", orphan.DedupKey())
	}
}
