package domain

import "strings"

// RetrievalQuery is the caller-facing request: free text plus structured
// criteria against one document family. Blank text means filter-only mode.
type RetrievalQuery struct {
	Text          string
	Criteria      []Criterion
	Limit         int
	ContextWindow int
}

// HasText reports whether vector retrieval applies.
func (q RetrievalQuery) HasText() bool {
	return strings.TrimSpace(q.Text) != ""
}

// Criterion is one structured filter clause. Exactly one of Equals, AnyOf
// or a range boundary (GTE/LTE) is expected to be set; Field names a
// logical filter field resolved through the family's descriptor, which may
// map it onto several legacy payload field names.
type Criterion struct {
	Field  string `json:"field"`
	Equals any    `json:"equals,omitempty"`
	AnyOf  []any  `json:"any_of,omitempty"`
	GTE    any    `json:"gte,omitempty"`
	LTE    any    `json:"lte,omitempty"`
}

func (c Criterion) IsEquals() bool { return c.Equals != nil }

func (c Criterion) IsAnyOf() bool { return len(c.AnyOf) > 0 }

func (c Criterion) IsRange() bool { return c.GTE != nil || c.LTE != nil }

// RetrievalMode labels which search path served a query.
type RetrievalMode string

const (
	ModeHybrid     RetrievalMode = "hybrid"
	ModeFilterScan RetrievalMode = "filter_scan"
	ModeEmpty      RetrievalMode = "empty"
)
