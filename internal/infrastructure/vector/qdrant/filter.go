package qdrant

import (
	"github.com/caselight/retrieval/internal/core/domain"
)

// filterToWire converts the engine's filter expression into Qdrant's JSON
// filter shape. A non-empty should group carries min_should_match=1: any
// one of the alias conditions satisfies the group.
func filterToWire(expr domain.FilterExpression) map[string]any {
	if expr.IsEmpty() {
		return nil
	}

	wire := map[string]any{}
	if len(expr.Must) > 0 {
		wire["must"] = conditionsToWire(expr.Must)
	}
	if len(expr.Should) > 0 {
		wire["should"] = conditionsToWire(expr.Should)
		wire["min_should_match"] = 1
	}
	return wire
}

func conditionsToWire(conditions []domain.FilterCondition) []map[string]any {
	out := make([]map[string]any, 0, len(conditions))
	for _, cond := range conditions {
		out = append(out, conditionToWire(cond))
	}
	return out
}

func conditionToWire(cond domain.FilterCondition) map[string]any {
	switch {
	case cond.Range != nil:
		rng := map[string]any{}
		if cond.Range.GTE != nil {
			rng["gte"] = *cond.Range.GTE
		}
		if cond.Range.LTE != nil {
			rng["lte"] = *cond.Range.LTE
		}
		return map[string]any{"key": cond.Field, "range": rng}
	case len(cond.In) > 0:
		return map[string]any{"key": cond.Field, "match": map[string]any{"any": cond.In}}
	default:
		return map[string]any{"key": cond.Field, "match": map[string]any{"value": cond.Match}}
	}
}
