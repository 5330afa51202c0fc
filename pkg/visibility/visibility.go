// Package visibility decides per-field visibility from the current working
// data. Evaluation is a pure function of (rule, data): callers may evaluate
// on every render without memoization. Multiple dependsOn rules on one field
// are AND-combined; OR grouping is intentionally not supported.
package visibility

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/goliatone/go-formflow/pkg/schema"
)

// Visible reports whether the field should be shown given the working data.
// A field with no dependsOn rules is always visible; otherwise every rule
// must hold.
func Visible(field schema.Field, data map[string]any) bool {
	for _, rule := range field.DependsOn {
		if !EvalRule(rule, data) {
			return false
		}
	}
	return true
}

// EvalRule evaluates one conditional rule against the working data. A
// missing data value never equals a concrete rule value; numeric operators
// return false when either side does not coerce to a number.
func EvalRule(rule schema.Rule, data map[string]any) bool {
	value, present := data[rule.Field]

	switch rule.Operator {
	case schema.OpEquals:
		if !present {
			return false
		}
		return equal(value, rule.Value)
	case schema.OpNotEquals:
		if !present {
			return rule.Value != nil
		}
		return !equal(value, rule.Value)
	case schema.OpContains:
		return strings.Contains(
			strings.ToLower(coerceString(value)),
			strings.ToLower(coerceString(rule.Value)),
		)
	case schema.OpGreaterThan:
		left, lok := coerceNumber(value)
		right, rok := coerceNumber(rule.Value)
		return lok && rok && left > right
	case schema.OpLessThan:
		left, lok := coerceNumber(value)
		right, rok := coerceNumber(rule.Value)
		return lok && rok && left < right
	default:
		return false
	}
}

// VisibleFields returns the subset of fields visible under the working data,
// preserving declaration order.
func VisibleFields(fields []schema.Field, data map[string]any) []schema.Field {
	out := make([]schema.Field, 0, len(fields))
	for _, f := range fields {
		if Visible(f, data) {
			out = append(out, f)
		}
	}
	return out
}

// equal compares a data value with a rule value, tolerating the usual
// YAML/JSON decoding mismatches (string vs number vs bool). Slice and map
// operands, which JSON drafts and YAML list values produce, are not
// comparable with == and go through the coercion paths instead.
func equal(value, want any) bool {
	if isComparable(value) && isComparable(want) && value == want {
		return true
	}
	if lnum, lok := coerceNumber(value); lok {
		if rnum, rok := coerceNumber(want); rok {
			return lnum == rnum
		}
	}
	return coerceString(value) == coerceString(want)
}

func isComparable(value any) bool {
	if value == nil {
		return true
	}
	return reflect.TypeOf(value).Comparable()
}

func coerceNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case nil:
		return 0, false
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func coerceString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(value)
	}
}
