// Package validation performs type-directed constraint checking for form
// fields. Validators are declared as a pure mapping from field type to a
// checker specification rather than a type switch, so the closed FieldType
// enum and the checker table stay visibly in sync. Validation is stateless
// and order-independent across fields; the first violated constraint's
// message is reported.
package validation

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/goliatone/go-formflow/pkg/schema"
)

// Result carries the outcome of validating a single field value.
type Result struct {
	Valid bool
	Error string
}

func ok() Result { return Result{Valid: true} }

func fail(format string, args ...any) Result { return Result{Error: fmt.Sprintf(format, args...)} }

// FieldError ties a validation message to the field that produced it. The
// slice returned by ValidateVisible preserves schema order so the first
// entry is always addressable by the caller (focus, jump-to-step).
type FieldError struct {
	FieldID string `json:"fieldId"`
	Label   string `json:"label,omitempty"`
	Message string `json:"message"`
}

// checker validates a present, non-empty value against one field's
// constraints. Required-ness and empty handling live in Validate itself.
type checker func(field schema.Field, value any) Result

// checkers maps every FieldType to its constraint checker. Types without an
// entry accept any non-empty value.
var checkers = map[schema.FieldType]checker{
	schema.FieldTypeText:        checkText,
	schema.FieldTypeTextarea:    checkText,
	schema.FieldTypeEmail:       patternChecker(emailPattern, "Enter a valid email address"),
	schema.FieldTypePhone:       patternChecker(phonePattern, "Enter a valid phone number"),
	schema.FieldTypeSSN:         patternChecker(ssnPattern, "SSN must match ###-##-####"),
	schema.FieldTypeNumber:      checkNumber,
	schema.FieldTypeCurrency:    checkNumber,
	schema.FieldTypeDate:        checkDate,
	schema.FieldTypeSelect:      checkOption,
	schema.FieldTypeRadio:       checkOption,
	schema.FieldTypeMultiselect: checkMultiselect,
	schema.FieldTypeCheckbox:    checkCheckbox,
	schema.FieldTypeSignature:   checkSignature,
	schema.FieldTypeRating:      integerRangeChecker(1, 5, "Rating must be between 1 and 5"),
	schema.FieldTypeNPS:         integerRangeChecker(0, 10, "Score must be between 0 and 10"),
	schema.FieldTypeAddress:     checkAddress,
	schema.FieldTypeFile:        checkFile,
}

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^[\d\s().+-]{7,20}$`)
	ssnPattern   = regexp.MustCompile(`^\d{3}-\d{2}-\d{4}$`)
	zipPattern   = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
)

// Validate checks one field's value. An absent or empty value fails only
// when the field is required; optional fields pass regardless of their type
// constraints.
func Validate(field schema.Field, value any) Result {
	if isEmpty(value) {
		if field.Required {
			return fail("%s is required", labelOf(field))
		}
		return ok()
	}
	check, found := checkers[field.Type]
	if !found {
		return ok()
	}
	return check(field, value)
}

// ValidateVisible validates every field in schema order, skipping fields
// hidden by the supplied visibility predicate. Hidden fields are excluded
// from required-ness entirely.
func ValidateVisible(fields []schema.Field, data map[string]any, visible func(schema.Field) bool) []FieldError {
	var errs []FieldError
	for _, f := range fields {
		if visible != nil && !visible(f) {
			continue
		}
		res := Validate(f, data[f.ID])
		if !res.Valid {
			errs = append(errs, FieldError{FieldID: f.ID, Label: f.Label, Message: res.Error})
		}
	}
	return errs
}

func checkText(field schema.Field, value any) Result {
	text := coerceString(value)
	c := field.Constraints
	// Length limits count characters, not bytes.
	length := utf8.RuneCountInString(text)
	if c.MinLength > 0 && length < c.MinLength {
		return fail("%s must be at least %d characters", labelOf(field), c.MinLength)
	}
	if c.MaxLength > 0 && length > c.MaxLength {
		return fail("%s must be at most %d characters", labelOf(field), c.MaxLength)
	}
	if c.Pattern != "" {
		re, err := regexp.Compile(c.Pattern)
		if err != nil || !re.MatchString(text) {
			return fail("%s has an invalid format", labelOf(field))
		}
	}
	return ok()
}

func patternChecker(re *regexp.Regexp, message string) checker {
	return func(field schema.Field, value any) Result {
		if !re.MatchString(strings.TrimSpace(coerceString(value))) {
			return Result{Error: message}
		}
		return ok()
	}
}

func checkNumber(field schema.Field, value any) Result {
	num, numeric := coerceNumber(value)
	if !numeric {
		return fail("%s must be a number", labelOf(field))
	}
	c := field.Constraints
	if c.Min != nil && num < *c.Min {
		return fail("%s must be at least %v", labelOf(field), *c.Min)
	}
	if c.Max != nil && num > *c.Max {
		return fail("%s must be at most %v", labelOf(field), *c.Max)
	}
	return ok()
}

func checkDate(field schema.Field, value any) Result {
	if _, okTime := value.(time.Time); okTime {
		return ok()
	}
	text := strings.TrimSpace(coerceString(value))
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if _, err := time.Parse(layout, text); err == nil {
			return ok()
		}
	}
	return fail("%s must be a valid date", labelOf(field))
}

func checkOption(field schema.Field, value any) Result {
	if field.HasOption(coerceString(value)) {
		return ok()
	}
	return fail("%s must be one of the listed options", labelOf(field))
}

func checkMultiselect(field schema.Field, value any) Result {
	for _, element := range toSlice(value) {
		if !field.HasOption(coerceString(element)) {
			return fail("%s contains an unknown option", labelOf(field))
		}
	}
	return ok()
}

func checkCheckbox(field schema.Field, value any) Result {
	if _, isBool := value.(bool); isBool {
		return ok()
	}
	return fail("%s must be checked or unchecked", labelOf(field))
}

func checkSignature(field schema.Field, value any) Result {
	if strings.TrimSpace(coerceString(value)) == "" {
		return fail("%s requires a signature", labelOf(field))
	}
	return ok()
}

func checkFile(_ schema.Field, _ any) Result {
	// Size limits are enforced at staging time; a staged value passes.
	return ok()
}

func integerRangeChecker(lo, hi int, message string) checker {
	return func(_ schema.Field, value any) Result {
		num, numeric := coerceNumber(value)
		if !numeric || num != math.Trunc(num) {
			return Result{Error: message}
		}
		n := int(num)
		if n < lo || n > hi {
			return Result{Error: message}
		}
		return ok()
	}
}

// addressParts are the composite members of an address value, each required
// individually.
var addressParts = []struct {
	key   string
	label string
}{
	{"street", "Street"},
	{"city", "City"},
	{"state", "State"},
	{"zip", "Postal code"},
}

func checkAddress(field schema.Field, value any) Result {
	parts, isMap := toStringMap(value)
	if !isMap {
		return fail("%s must be a complete address", labelOf(field))
	}
	for _, part := range addressParts {
		if strings.TrimSpace(coerceString(parts[part.key])) == "" {
			return fail("%s is required", part.label)
		}
	}
	if !zipPattern.MatchString(strings.TrimSpace(coerceString(parts["zip"]))) {
		return fail("Postal code has an invalid format")
	}
	return ok()
}

func labelOf(field schema.Field) string {
	if field.Label != "" {
		return field.Label
	}
	return field.ID
}

func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	default:
		return false
	}
}

func toSlice(value any) []any {
	switch v := value.(type) {
	case []any:
		return v
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	default:
		return []any{v}
	}
}

func toStringMap(value any) (map[string]any, bool) {
	switch v := value.(type) {
	case map[string]any:
		return v, true
	case map[string]string:
		out := make(map[string]any, len(v))
		for k, s := range v {
			out[k] = s
		}
		return out, true
	default:
		return nil, false
	}
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
