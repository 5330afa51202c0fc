package schema

import (
	"errors"
	"fmt"
	"regexp"
)

var (
	errSchemaIDMissing   = errors.New("schema: id is required")
	errSchemaSlugMissing = errors.New("schema: slug is required")
	errSchemaNoFields    = errors.New("schema: at least one field is required")
)

// optionBacked lists the field types whose values must come from a declared
// option set.
var optionBacked = map[FieldType]bool{
	FieldTypeSelect:      true,
	FieldTypeRadio:       true,
	FieldTypeMultiselect: true,
}

// sensitiveAllowed lists the identifier-shaped types a schema author may mark
// sensitive. Binary payloads (files, signatures) are excluded; they travel
// through their own pipelines.
var sensitiveAllowed = map[FieldType]bool{
	FieldTypeSSN:   true,
	FieldTypeText:  true,
	FieldTypePhone: true,
	FieldTypeEmail: true,
}

// Validate checks the structural invariants of a schema: field ids unique,
// every section and dependsOn reference resolvable, option-backed types carry
// options, patterns compile, and multi-step forms declare sections.
func Validate(s Schema) error {
	if s.ID == "" {
		return errSchemaIDMissing
	}
	if s.Slug == "" {
		return errSchemaSlugMissing
	}
	if len(s.Fields) == 0 {
		return errSchemaNoFields
	}

	known := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if f.ID == "" {
			return fmt.Errorf("schema %s: field with empty id", s.Slug)
		}
		if known[f.ID] {
			return fmt.Errorf("schema %s: duplicate field id %q", s.Slug, f.ID)
		}
		known[f.ID] = true

		if !validFieldType(f.Type) {
			return fmt.Errorf("schema %s: field %q has unknown type %q", s.Slug, f.ID, f.Type)
		}
		if optionBacked[f.Type] && len(f.Options) == 0 {
			return fmt.Errorf("schema %s: field %q of type %s requires options", s.Slug, f.ID, f.Type)
		}
		if f.Sensitive && !sensitiveAllowed[f.Type] {
			return fmt.Errorf("schema %s: field %q of type %s cannot be marked sensitive", s.Slug, f.ID, f.Type)
		}
		if f.Constraints.Pattern != "" {
			if _, err := regexp.Compile(f.Constraints.Pattern); err != nil {
				return fmt.Errorf("schema %s: field %q has invalid pattern: %w", s.Slug, f.ID, err)
			}
		}
	}

	for _, f := range s.Fields {
		for _, rule := range f.DependsOn {
			if !known[rule.Field] {
				return fmt.Errorf("schema %s: field %q depends on unknown field %q", s.Slug, f.ID, rule.Field)
			}
			if !validOperator(rule.Operator) {
				return fmt.Errorf("schema %s: field %q rule has unknown operator %q", s.Slug, f.ID, rule.Operator)
			}
		}
	}

	sectionIDs := make(map[string]bool, len(s.Sections))
	for _, sec := range s.Sections {
		if sec.ID == "" {
			return fmt.Errorf("schema %s: section with empty id", s.Slug)
		}
		if sectionIDs[sec.ID] {
			return fmt.Errorf("schema %s: duplicate section id %q", s.Slug, sec.ID)
		}
		sectionIDs[sec.ID] = true
		for _, id := range sec.FieldIDs {
			if !known[id] {
				return fmt.Errorf("schema %s: section %q references unknown field %q", s.Slug, sec.ID, id)
			}
		}
	}

	if s.MultiStep && len(s.Sections) == 0 {
		return fmt.Errorf("schema %s: multi-step form requires sections", s.Slug)
	}

	for i, esc := range s.Escalations {
		if !known[esc.Rule.Field] {
			return fmt.Errorf("schema %s: escalation %d references unknown field %q", s.Slug, i, esc.Rule.Field)
		}
		switch esc.Action {
		case EscalationNotify, EscalationAssign, EscalationFlag:
		default:
			return fmt.Errorf("schema %s: escalation %d has unknown action %q", s.Slug, i, esc.Action)
		}
	}

	return nil
}

func validFieldType(t FieldType) bool {
	for _, known := range FieldTypes() {
		if t == known {
			return true
		}
	}
	return false
}

func validOperator(op Operator) bool {
	switch op {
	case OpEquals, OpNotEquals, OpContains, OpGreaterThan, OpLessThan:
		return true
	}
	return false
}
