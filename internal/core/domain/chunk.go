package domain

import (
	"fmt"
	"sort"
)

// Chunk is a single indexed unit of text. It belongs to exactly one source
// document; when DocumentID is empty the chunk itself is the unit of identity
// and its own ID doubles as its cluster key.
type Chunk struct {
	ID            string         `json:"id"`
	DocumentID    string         `json:"document_id,omitempty"`
	SequenceIndex *int           `json:"sequence_index,omitempty"`
	Text          string         `json:"text,omitempty"`
	Score         float64        `json:"score"`
	Payload       map[string]any `json:"payload,omitempty"`
}

// ClusterKey groups chunks of the same source document.
func (c Chunk) ClusterKey() string {
	if c.DocumentID != "" {
		return c.DocumentID
	}
	return c.ID
}

// DedupKey identifies a chunk for result deduplication. Two results never
// share the same (document id, sequence index, id) triple.
func (c Chunk) DedupKey() string {
	seq := "-"
	if c.SequenceIndex != nil {
		seq = fmt.Sprintf("%d", *c.SequenceIndex)
	}
	return fmt.Sprintf("%s|%s|%s", c.DocumentID, seq, c.ID)
}

// SortChunksByScore orders chunks by descending score. The sort is stable
// and ties carry no further ordering: equal-score chunks keep their input
// order, so uniform-score filter scans come out in scan order and fused
// results keep the store's ranking among ties.
func SortChunksByScore(chunks []Chunk) {
	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].Score > chunks[j].Score
	})
}
