package domain

import "time"

// AuditRecord is the operational trail of one retrieval call. Records are
// published to the audit trail after the response is assembled and
// persisted asynchronously by the worker.
type AuditRecord struct {
	ID             string        `json:"id"`
	Family         string        `json:"family"`
	Mode           RetrievalMode `json:"mode"`
	QueryChars     int           `json:"query_chars"`
	CriteriaCount  int           `json:"criteria_count"`
	Limit          int           `json:"limit"`
	ContextWindow  int           `json:"context_window"`
	ResultCount    int           `json:"result_count"`
	CandidateCount int           `json:"candidate_count"`
	DurationMS     float64       `json:"duration_ms"`
	CreatedAt      time.Time     `json:"created_at"`
}
