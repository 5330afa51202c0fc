package schema

import internalschema "github.com/goliatone/go-formflow/internal/schema"

// FieldType re-exports the internal FieldType enumeration.
type FieldType = internalschema.FieldType

const (
	FieldTypeText        = internalschema.FieldTypeText
	FieldTypeTextarea    = internalschema.FieldTypeTextarea
	FieldTypeNumber      = internalschema.FieldTypeNumber
	FieldTypeDate        = internalschema.FieldTypeDate
	FieldTypeSelect      = internalschema.FieldTypeSelect
	FieldTypeMultiselect = internalschema.FieldTypeMultiselect
	FieldTypeRadio       = internalschema.FieldTypeRadio
	FieldTypeCheckbox    = internalschema.FieldTypeCheckbox
	FieldTypeFile        = internalschema.FieldTypeFile
	FieldTypeSignature   = internalschema.FieldTypeSignature
	FieldTypeAddress     = internalschema.FieldTypeAddress
	FieldTypePhone       = internalschema.FieldTypePhone
	FieldTypeEmail       = internalschema.FieldTypeEmail
	FieldTypeCurrency    = internalschema.FieldTypeCurrency
	FieldTypeSSN         = internalschema.FieldTypeSSN
	FieldTypeRating      = internalschema.FieldTypeRating
	FieldTypeNPS         = internalschema.FieldTypeNPS
)

// Operator re-exports the conditional rule operators.
type Operator = internalschema.Operator

const (
	OpEquals      = internalschema.OpEquals
	OpNotEquals   = internalschema.OpNotEquals
	OpContains    = internalschema.OpContains
	OpGreaterThan = internalschema.OpGreaterThan
	OpLessThan    = internalschema.OpLessThan
)

type Schema = internalschema.Schema
type Field = internalschema.Field
type Section = internalschema.Section
type Rule = internalschema.Rule
type Option = internalschema.Option
type Constraints = internalschema.Constraints
type Escalation = internalschema.Escalation
type EscalationAction = internalschema.EscalationAction

const (
	EscalationNotify = internalschema.EscalationNotify
	EscalationAssign = internalschema.EscalationAssign
	EscalationFlag   = internalschema.EscalationFlag
)

const (
	AuditLevelNone     = internalschema.AuditLevelNone
	AuditLevelStandard = internalschema.AuditLevelStandard
	AuditLevelDetailed = internalschema.AuditLevelDetailed
)

// FieldTypes lists every member of the FieldType enum.
func FieldTypes() []FieldType { return internalschema.FieldTypes() }

// Validate enforces the schema's structural invariants.
func Validate(s Schema) error { return internalschema.Validate(s) }

// Steps derives the ordered wizard view from the schema's sections.
func Steps(s Schema) [][]Field { return internalschema.Steps(s) }

// StepOf returns the step index holding the given field id.
func StepOf(s Schema, fieldID string) int { return internalschema.StepOf(s, fieldID) }
