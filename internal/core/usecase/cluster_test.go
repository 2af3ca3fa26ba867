package usecase

import (
	"testing"

	"github.com/caselight/retrieval/internal/core/domain"
)

func seq(i int) *int { return &i }

func TestClusterByDocumentGroupsInFirstSeenOrder(t *testing.T) {
	candidates := []domain.Chunk{
		{ID: "c1", DocumentID: "doc-b", Score: 0.9},
		{ID: "c2", DocumentID: "doc-a", Score: 0.8},
		{ID: "c3", DocumentID: "doc-b", Score: 0.7},
	}

	clusters := clusterByDocument(candidates)
	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(clusters))
	}
	if clusters[0].key != "doc-b" || clusters[1].key != "doc-a" {
		t.Fatalf("expected first-seen order doc-b, doc-a; got %s, %s", clusters[0].key, clusters[1].key)
	}
	if len(clusters[0].chunks) != 2 {
		t.Fatalf("expected doc-b cluster with 2 chunks, got %d", len(clusters[0].chunks))
	}
}

func TestClusterByDocumentChunkWithoutDocumentIsSingleton(t *testing.T) {
	candidates := []domain.Chunk{
		{ID: "orphan-1", Score: 0.9},
		{ID: "orphan-2", Score: 0.8},
	}

	clusters := clusterByDocument(candidates)
	if len(clusters) != 2 {
		t.Fatalf("expected each orphan chunk in its own cluster, got %d clusters", len(clusters))
	}
}

func TestPerDocumentCapFormula(t *testing.T) {
	cases := []struct {
		limit, clusters, want int
	}{
		{10, 3, 3},
		{10, 1, 10},
		{10, 20, 1},
		{5, 5, 1},
		{1, 1, 1},
		{7, 0, 7},
	}
	for _, tc := range cases {
		if got := perDocumentCap(tc.limit, tc.clusters); got != tc.want {
			t.Fatalf("perDocumentCap(%d, %d) = %d, want %d", tc.limit, tc.clusters, got, tc.want)
		}
	}
}

func TestSelectTopPerClusterTakesHighestScores(t *testing.T) {
	clusters := []documentCluster{
		{key: "doc-a", chunks: []domain.Chunk{
			{ID: "a1", DocumentID: "doc-a", SequenceIndex: seq(1), Score: 0.2},
			{ID: "a2", DocumentID: "doc-a", SequenceIndex: seq(2), Score: 0.9},
			{ID: "a3", DocumentID: "doc-a", SequenceIndex: seq(3), Score: 0.5},
		}},
	}

	selected := selectTopPerCluster(clusters, 2)
	if len(selected) != 2 {
		t.Fatalf("expected 2 selected chunks, got %d", len(selected))
	}
	if selected[0].ID != "a2" || selected[1].ID != "a3" {
		t.Fatalf("expected a2, a3 by descending score; got %s, %s", selected[0].ID, selected[1].ID)
	}
}

func TestSelectTopPerClusterDoesNotMutateClusterOrder(t *testing.T) {
	cluster := documentCluster{key: "doc-a", chunks: []domain.Chunk{
		{ID: "a1", DocumentID: "doc-a", Score: 0.2},
		{ID: "a2", DocumentID: "doc-a", Score: 0.9},
	}}

	_ = selectTopPerCluster([]documentCluster{cluster}, 1)
	if cluster.chunks[0].ID != "a1" {
		t.Fatalf("expected original cluster untouched, first chunk is %s", cluster.chunks[0].ID)
	}
}
