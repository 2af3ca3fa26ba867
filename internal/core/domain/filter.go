package domain

// FilterExpression is the store-agnostic filter tree produced by criterion
// translation: a conjunctive must group and a disjunctive should group.
// At least one should condition has to match when the group is non-empty.
type FilterExpression struct {
	Must   []FilterCondition
	Should []FilterCondition
}

func (e FilterExpression) IsEmpty() bool {
	return len(e.Must) == 0 && len(e.Should) == 0
}

// FilterCondition is a single clause keyed by a concrete payload field.
// Exactly one of Match, In or Range is set.
type FilterCondition struct {
	Field string
	Match any
	In    []any
	Range *ScalarRange
}

// ScalarRange bounds a numeric payload field. Date criteria are coerced to
// epoch seconds before they end up here.
type ScalarRange struct {
	GTE *float64
	LTE *float64
}
