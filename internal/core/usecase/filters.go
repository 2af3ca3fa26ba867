package usecase

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/caselight/retrieval/internal/core/domain"
)

// dateLayouts are tried in order when coercing a date criterion value.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
}

// translateCriteria converts the caller's logical criteria into the
// store-agnostic filter expression for one family. Criteria on single
// payload fields land in the must group; criteria on alias fields expand to
// one should condition per legacy field name, any of which may match.
// Malformed date values are dropped, never fatal; a criterion naming an
// unknown logical field is rejected as invalid input.
func translateCriteria(desc domain.CollectionDescriptor, criteria []domain.Criterion) (domain.FilterExpression, error) {
	var expr domain.FilterExpression
	for _, criterion := range criteria {
		spec, ok := desc.FilterFields[criterion.Field]
		if !ok {
			return domain.FilterExpression{}, domain.WrapError(
				domain.ErrInvalidInput,
				"translate filters",
				fmt.Errorf("unknown filter field %q for family %q", criterion.Field, desc.Family),
			)
		}

		kind := desc.FieldKind(criterion.Field)
		condition, ok := buildCondition(criterion, kind)
		if !ok {
			continue
		}

		if len(spec.Fields) > 1 {
			for _, field := range spec.Fields {
				aliased := condition
				aliased.Field = field
				expr.Should = append(expr.Should, aliased)
			}
			continue
		}
		condition.Field = spec.Fields[0]
		expr.Must = append(expr.Must, condition)
	}
	return expr, nil
}

// buildCondition shapes a single condition from a criterion; the boolean is
// false when every usable value was dropped during coercion.
func buildCondition(criterion domain.Criterion, kind domain.FilterFieldKind) (domain.FilterCondition, bool) {
	switch {
	case criterion.IsRange():
		rng := domain.ScalarRange{}
		if criterion.GTE != nil {
			if v, err := coerceNumeric(criterion.GTE, kind); err == nil {
				rng.GTE = &v
			}
		}
		if criterion.LTE != nil {
			if v, err := coerceNumeric(criterion.LTE, kind); err == nil {
				rng.LTE = &v
			}
		}
		if rng.GTE == nil && rng.LTE == nil {
			return domain.FilterCondition{}, false
		}
		return domain.FilterCondition{Range: &rng}, true

	case criterion.IsAnyOf():
		values := make([]any, 0, len(criterion.AnyOf))
		for _, raw := range criterion.AnyOf {
			if v, ok := coerceMatchValue(raw, kind); ok {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			return domain.FilterCondition{}, false
		}
		return domain.FilterCondition{In: values}, true

	case criterion.IsEquals():
		v, ok := coerceMatchValue(criterion.Equals, kind)
		if !ok {
			return domain.FilterCondition{}, false
		}
		return domain.FilterCondition{Match: v}, true
	}
	return domain.FilterCondition{}, false
}

func coerceMatchValue(raw any, kind domain.FilterFieldKind) (any, bool) {
	switch kind {
	case domain.FieldKindNumber, domain.FieldKindDate:
		v, err := coerceNumeric(raw, kind)
		if err != nil {
			return nil, false
		}
		return v, true
	default:
		return raw, true
	}
}

// coerceNumeric turns a criterion value into a float64 boundary. Date kinds
// accept date strings (best-effort parsed to epoch seconds) as well as
// already-numeric epoch values.
func coerceNumeric(raw any, kind domain.FilterFieldKind) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, errors.New("empty value")
		}
		if kind == domain.FieldKindDate {
			return parseEpochSeconds(s)
		}
		return strconv.ParseFloat(s, 64)
	default:
		return 0, fmt.Errorf("unsupported value type %T", raw)
	}
}

func parseEpochSeconds(s string) (float64, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return float64(t.Unix()), nil
		}
	}
	// Numeric strings are treated as epoch seconds already.
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return n, nil
	}
	return 0, fmt.Errorf("unparseable date %q", s)
}
