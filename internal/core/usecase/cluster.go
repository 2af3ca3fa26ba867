package usecase

import (
	"github.com/caselight/retrieval/internal/core/domain"
)

// documentCluster is the candidate chunks of one source document, keyed by
// the document id (or the chunk's own id when it has none).
type documentCluster struct {
	key    string
	chunks []domain.Chunk
}

// clusterByDocument groups a flat candidate list by source document in
// first-seen order. The order carries no ranking meaning; it only keeps
// iteration deterministic.
func clusterByDocument(candidates []domain.Chunk) []documentCluster {
	index := make(map[string]int, len(candidates))
	clusters := make([]documentCluster, 0, len(candidates))
	for _, chunk := range candidates {
		key := chunk.ClusterKey()
		pos, ok := index[key]
		if !ok {
			pos = len(clusters)
			index[key] = pos
			clusters = append(clusters, documentCluster{key: key})
		}
		clusters[pos].chunks = append(clusters[pos].chunks, chunk)
	}
	return clusters
}

// perDocumentCap derives the quota each document may contribute before
// backfill: max(1, floor(limit / max(1, clusterCount))). It guarantees
// cross-document diversity proportional to how many distinct documents
// matched, while never starving a document below one slot.
func perDocumentCap(limit, clusterCount int) int {
	if clusterCount < 1 {
		clusterCount = 1
	}
	quota := limit / clusterCount
	if quota < 1 {
		quota = 1
	}
	return quota
}

// selectTopPerCluster sorts each cluster by score descending and takes the
// first quota chunks as candidates for expansion.
func selectTopPerCluster(clusters []documentCluster, quota int) []domain.Chunk {
	selected := make([]domain.Chunk, 0, len(clusters)*quota)
	for _, cluster := range clusters {
		members := make([]domain.Chunk, len(cluster.chunks))
		copy(members, cluster.chunks)
		domain.SortChunksByScore(members)
		if len(members) > quota {
			members = members[:quota]
		}
		selected = append(selected, members...)
	}
	return selected
}
