package schema

import (
	"strings"
	"testing"
)

func validSchema() Schema {
	return Schema{
		ID:   "f-1",
		Slug: "intake",
		Name: "Client Intake",
		Fields: []Field{
			{ID: "name", Type: FieldTypeText, Label: "Name", Required: true},
			{ID: "status", Type: FieldTypeSelect, Label: "Status", Options: []Option{{Value: "new"}, {Value: "active"}}},
			{ID: "notes", Type: FieldTypeTextarea, Label: "Notes", DependsOn: []Rule{{Field: "status", Operator: OpEquals, Value: "active"}}},
		},
	}
}

func TestValidateAcceptsWellFormedSchema(t *testing.T) {
	t.Parallel()

	if err := Validate(validSchema()); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
}

func TestValidateRejectsDuplicateFieldIDs(t *testing.T) {
	t.Parallel()

	s := validSchema()
	s.Fields = append(s.Fields, Field{ID: "name", Type: FieldTypeText, Label: "Name again"})
	err := Validate(s)
	if err == nil || !strings.Contains(err.Error(), "duplicate field id") {
		t.Fatalf("expected duplicate id error, got %v", err)
	}
}

func TestValidateRejectsUnknownDependsOnTarget(t *testing.T) {
	t.Parallel()

	s := validSchema()
	s.Fields[2].DependsOn = []Rule{{Field: "missing", Operator: OpEquals, Value: "x"}}
	err := Validate(s)
	if err == nil || !strings.Contains(err.Error(), "depends on unknown field") {
		t.Fatalf("expected unknown dependsOn error, got %v", err)
	}
}

func TestValidateRejectsSectionWithUnknownField(t *testing.T) {
	t.Parallel()

	s := validSchema()
	s.Sections = []Section{{ID: "sec-1", Title: "Basics", FieldIDs: []string{"name", "ghost"}}}
	err := Validate(s)
	if err == nil || !strings.Contains(err.Error(), "unknown field") {
		t.Fatalf("expected section reference error, got %v", err)
	}
}

func TestValidateRejectsOptionTypeWithoutOptions(t *testing.T) {
	t.Parallel()

	s := validSchema()
	s.Fields[1].Options = nil
	err := Validate(s)
	if err == nil || !strings.Contains(err.Error(), "requires options") {
		t.Fatalf("expected options error, got %v", err)
	}
}

func TestValidateRejectsSensitiveOnBinaryTypes(t *testing.T) {
	t.Parallel()

	s := validSchema()
	s.Fields = append(s.Fields, Field{ID: "sig", Type: FieldTypeSignature, Label: "Signature", Sensitive: true})
	err := Validate(s)
	if err == nil || !strings.Contains(err.Error(), "cannot be marked sensitive") {
		t.Fatalf("expected sensitive error, got %v", err)
	}
}

func TestValidateRejectsMultiStepWithoutSections(t *testing.T) {
	t.Parallel()

	s := validSchema()
	s.MultiStep = true
	err := Validate(s)
	if err == nil || !strings.Contains(err.Error(), "requires sections") {
		t.Fatalf("expected multi-step error, got %v", err)
	}
}

func TestValidateRejectsUnknownEscalationAction(t *testing.T) {
	t.Parallel()

	s := validSchema()
	s.Escalations = []Escalation{{Rule: Rule{Field: "status", Operator: OpEquals, Value: "active"}, Action: "page"}}
	err := Validate(s)
	if err == nil || !strings.Contains(err.Error(), "unknown action") {
		t.Fatalf("expected escalation action error, got %v", err)
	}
}

func TestAllowedFor(t *testing.T) {
	t.Parallel()

	s := validSchema()
	if !s.AllowedFor(nil) {
		t.Fatalf("schema without allowedRoles should be open to all")
	}

	s.AllowedRoles = []string{"case_manager", "admin"}
	if s.AllowedFor([]string{"volunteer"}) {
		t.Fatalf("volunteer should not be allowed")
	}
	if !s.AllowedFor([]string{"volunteer", "admin"}) {
		t.Fatalf("admin should be allowed")
	}
}
