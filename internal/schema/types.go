package schema

// FieldType enumerates the closed set of data-collection field kinds the
// engine understands. Renderers and validators branch on these values, so
// new members require a matching validator spec before they are usable.
type FieldType string

const (
	FieldTypeText        FieldType = "text"
	FieldTypeTextarea    FieldType = "textarea"
	FieldTypeNumber      FieldType = "number"
	FieldTypeDate        FieldType = "date"
	FieldTypeSelect      FieldType = "select"
	FieldTypeMultiselect FieldType = "multiselect"
	FieldTypeRadio       FieldType = "radio"
	FieldTypeCheckbox    FieldType = "checkbox"
	FieldTypeFile        FieldType = "file"
	FieldTypeSignature   FieldType = "signature"
	FieldTypeAddress     FieldType = "address"
	FieldTypePhone       FieldType = "phone"
	FieldTypeEmail       FieldType = "email"
	FieldTypeCurrency    FieldType = "currency"
	FieldTypeSSN         FieldType = "ssn"
	FieldTypeRating      FieldType = "rating"
	FieldTypeNPS         FieldType = "nps"
)

// FieldTypes lists every member of the FieldType enum in declaration order.
func FieldTypes() []FieldType {
	return []FieldType{
		FieldTypeText, FieldTypeTextarea, FieldTypeNumber, FieldTypeDate,
		FieldTypeSelect, FieldTypeMultiselect, FieldTypeRadio, FieldTypeCheckbox,
		FieldTypeFile, FieldTypeSignature, FieldTypeAddress, FieldTypePhone,
		FieldTypeEmail, FieldTypeCurrency, FieldTypeSSN, FieldTypeRating,
		FieldTypeNPS,
	}
}

// Operator enumerates the comparison operators available to conditional
// visibility rules.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpContains    Operator = "contains"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
)

// Rule gates a field's visibility on the current value of another field.
// Multiple rules on one field are AND-combined; there is no OR grouping.
type Rule struct {
	Field    string   `json:"field" yaml:"field"`
	Operator Operator `json:"operator" yaml:"operator"`
	Value    any      `json:"value" yaml:"value"`
}

// Option is one member of the closed value set backing select, radio and
// multiselect fields.
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

// Constraints carries the per-type limits a field may declare. Pointer
// members distinguish "unset" from a zero bound.
type Constraints struct {
	MinLength   int      `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	MaxLength   int      `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	Pattern     string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Min         *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max         *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	MaxFileSize int64    `json:"maxFileSize,omitempty" yaml:"maxFileSize,omitempty"`
}

// Field models an individual input inside a form definition. Struct fields
// are annotated so schema documents round-trip through JSON and YAML.
type Field struct {
	ID          string      `json:"id" yaml:"id"`
	Type        FieldType   `json:"type" yaml:"type"`
	Label       string      `json:"label" yaml:"label"`
	Placeholder string      `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	Required    bool        `json:"required,omitempty" yaml:"required,omitempty"`
	Sensitive   bool        `json:"sensitive,omitempty" yaml:"sensitive,omitempty"`
	Constraints Constraints `json:"constraints,omitempty" yaml:"constraints,omitempty"`
	Options     []Option    `json:"options,omitempty" yaml:"options,omitempty"`
	DependsOn   []Rule      `json:"dependsOn,omitempty" yaml:"dependsOn,omitempty"`
	Width       string      `json:"width,omitempty" yaml:"width,omitempty"`
	SectionID   string      `json:"sectionId,omitempty" yaml:"sectionId,omitempty"`
}

// HasOption reports whether value is a member of the field's option set.
func (f Field) HasOption(value string) bool {
	for _, opt := range f.Options {
		if opt.Value == value {
			return true
		}
	}
	return false
}

// Section groups an ordered list of field ids into one wizard step. Sections
// reference fields by id only; the flat field list remains the single owner
// of field identity.
type Section struct {
	ID       string   `json:"id" yaml:"id"`
	Title    string   `json:"title,omitempty" yaml:"title,omitempty"`
	FieldIDs []string `json:"fields" yaml:"fields"`
}

// EscalationAction enumerates the side effects an escalation rule may
// trigger against submitted data.
type EscalationAction string

const (
	EscalationNotify EscalationAction = "notify"
	EscalationAssign EscalationAction = "assign"
	EscalationFlag   EscalationAction = "flag"
)

// Escalation pairs a conditional rule with a post-submission side effect.
type Escalation struct {
	Rule   Rule             `json:"rule" yaml:"rule"`
	Action EscalationAction `json:"action" yaml:"action"`
	Target string           `json:"target,omitempty" yaml:"target,omitempty"`
}

// AuditLevel values accepted by Schema.AuditLevel.
const (
	AuditLevelNone     = "none"
	AuditLevelStandard = "standard"
	AuditLevelDetailed = "detailed"
)

// Schema is the declarative definition of one form: its fields, optional
// wizard sections, and submission policies.
type Schema struct {
	ID                string       `json:"id" yaml:"id"`
	Slug              string       `json:"slug" yaml:"slug"`
	Name              string       `json:"name" yaml:"name"`
	Version           string       `json:"version,omitempty" yaml:"version,omitempty"`
	Category          string       `json:"category,omitempty" yaml:"category,omitempty"`
	Fields            []Field      `json:"fields" yaml:"fields"`
	Sections          []Section    `json:"sections,omitempty" yaml:"sections,omitempty"`
	MultiStep         bool         `json:"multiStep,omitempty" yaml:"multiStep,omitempty"`
	AllowedRoles      []string     `json:"allowedRoles,omitempty" yaml:"allowedRoles,omitempty"`
	RequiresSignature bool         `json:"requiresSignature,omitempty" yaml:"requiresSignature,omitempty"`
	Autosave          bool         `json:"autosave,omitempty" yaml:"autosave,omitempty"`
	AllowDrafts       bool         `json:"allowDrafts,omitempty" yaml:"allowDrafts,omitempty"`
	AuditLevel        string       `json:"auditLevel,omitempty" yaml:"auditLevel,omitempty"`
	Escalations       []Escalation `json:"escalations,omitempty" yaml:"escalations,omitempty"`
}

// FieldByID returns the field with the given id and whether it exists.
func (s Schema) FieldByID(id string) (Field, bool) {
	for _, f := range s.Fields {
		if f.ID == id {
			return f, true
		}
	}
	return Field{}, false
}

// AllowedFor reports whether a user holding any of the given roles may be
// offered this form. An empty AllowedRoles set leaves the form open to all.
func (s Schema) AllowedFor(roles []string) bool {
	if len(s.AllowedRoles) == 0 {
		return true
	}
	for _, have := range roles {
		for _, want := range s.AllowedRoles {
			if have == want {
				return true
			}
		}
	}
	return false
}
