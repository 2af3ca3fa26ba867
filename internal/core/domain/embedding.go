package domain

// SparseVector is the weighted-term representation returned by the
// embedding gateway. The encoding is opaque to the engine and passed
// through verbatim to the store.
type SparseVector struct {
	Indices []uint32  `json:"indices"`
	Values  []float32 `json:"values"`
}

func (v SparseVector) IsZero() bool {
	return len(v.Indices) == 0 && len(v.Values) == 0
}
