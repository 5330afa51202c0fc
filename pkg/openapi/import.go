// Package openapi imports form schemas from OpenAPI documents: an
// operation's JSON request body becomes a flat field list, so forms can be
// authored once in an existing API spec instead of by hand.
package openapi

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formflow/pkg/schema"
)

var (
	errEmptyDocument     = errors.New("openapi: document payload is empty")
	errOperationNotFound = errors.New("openapi: operation not found")
	errNoRequestBody     = errors.New("openapi: operation has no object request body")
)

// Import loads an OpenAPI document and converts the named operation's
// request body into a form schema. The operation id doubles as the schema
// slug.
func Import(ctx context.Context, data []byte, operationID string) (schema.Schema, error) {
	if len(data) == 0 {
		return schema.Schema{}, errEmptyDocument
	}

	loader := &openapi3.Loader{Context: ctx}
	spec, err := loader.LoadFromData(data)
	if err != nil {
		return schema.Schema{}, fmt.Errorf("openapi: load document: %w", err)
	}

	operation := findOperation(spec, operationID)
	if operation == nil {
		return schema.Schema{}, fmt.Errorf("%w: %q", errOperationNotFound, operationID)
	}

	body := requestBodySchema(operation)
	if body == nil || len(body.Properties) == 0 {
		return schema.Schema{}, errNoRequestBody
	}

	required := make(map[string]bool, len(body.Required))
	for _, name := range body.Required {
		required[name] = true
	}

	names := make([]string, 0, len(body.Properties))
	for name := range body.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]schema.Field, 0, len(names))
	for _, name := range names {
		ref := body.Properties[name]
		if ref == nil || ref.Value == nil {
			continue
		}
		fields = append(fields, convertField(name, ref.Value, required[name]))
	}

	out := schema.Schema{
		ID:     operationID,
		Slug:   operationID,
		Name:   firstNonEmpty(operation.Summary, operationID),
		Fields: fields,
	}
	if err := schema.Validate(out); err != nil {
		return schema.Schema{}, err
	}
	return out, nil
}

func findOperation(spec *openapi3.T, operationID string) *openapi3.Operation {
	if spec.Paths == nil {
		return nil
	}
	for _, item := range spec.Paths.Map() {
		if item == nil {
			continue
		}
		for _, op := range item.Operations() {
			if op != nil && op.OperationID == operationID {
				return op
			}
		}
	}
	return nil
}

func requestBodySchema(op *openapi3.Operation) *openapi3.Schema {
	if op.RequestBody == nil || op.RequestBody.Value == nil {
		return nil
	}
	content := op.RequestBody.Value.Content
	for _, mediaType := range []string{"application/json", "application/x-www-form-urlencoded", "multipart/form-data"} {
		if mt, found := content[mediaType]; found && mt.Schema != nil {
			return mt.Schema.Value
		}
	}
	for _, mt := range content {
		if mt.Schema != nil {
			return mt.Schema.Value
		}
	}
	return nil
}

func convertField(name string, src *openapi3.Schema, required bool) schema.Field {
	field := schema.Field{
		ID:          name,
		Type:        fieldTypeFor(src),
		Label:       labelFromName(name),
		Description: src.Description,
		Required:    required,
	}

	if len(src.Enum) > 0 {
		field.Options = optionsFromEnum(src.Enum)
	}
	if field.Type == schema.FieldTypeMultiselect && src.Items != nil && src.Items.Value != nil {
		field.Options = optionsFromEnum(src.Items.Value.Enum)
	}

	if src.MinLength != 0 {
		field.Constraints.MinLength = int(src.MinLength)
	}
	if src.MaxLength != nil {
		field.Constraints.MaxLength = int(*src.MaxLength)
	}
	if src.Pattern != "" {
		field.Constraints.Pattern = src.Pattern
	}
	if src.Min != nil {
		value := *src.Min
		field.Constraints.Min = &value
	}
	if src.Max != nil {
		value := *src.Max
		field.Constraints.Max = &value
	}
	return field
}

// fieldTypeFor maps an OpenAPI property onto the closed FieldType enum,
// honoring formats before generic types.
func fieldTypeFor(src *openapi3.Schema) schema.FieldType {
	kind := firstSchemaType(src.Type)
	switch kind {
	case "string":
		switch src.Format {
		case "email":
			return schema.FieldTypeEmail
		case "date", "date-time":
			return schema.FieldTypeDate
		case "binary":
			return schema.FieldTypeFile
		}
		if len(src.Enum) > 0 {
			return schema.FieldTypeSelect
		}
		if src.MaxLength != nil && *src.MaxLength > 255 {
			return schema.FieldTypeTextarea
		}
		return schema.FieldTypeText
	case "integer", "number":
		return schema.FieldTypeNumber
	case "boolean":
		return schema.FieldTypeCheckbox
	case "array":
		if src.Items != nil && src.Items.Value != nil && len(src.Items.Value.Enum) > 0 {
			return schema.FieldTypeMultiselect
		}
		return schema.FieldTypeText
	default:
		return schema.FieldTypeText
	}
}

func optionsFromEnum(enum []any) []schema.Option {
	options := make([]schema.Option, 0, len(enum))
	for _, value := range enum {
		text := fmt.Sprint(value)
		options = append(options, schema.Option{Value: text, Label: labelFromName(text)})
	}
	return options
}

func firstSchemaType(types *openapi3.Types) string {
	if types == nil {
		return ""
	}
	values := types.Slice()
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// labelFromName turns snake_case / camelCase identifiers into title-case
// labels.
func labelFromName(name string) string {
	replaced := strings.NewReplacer("_", " ", "-", " ").Replace(name)
	var words []string
	for _, word := range strings.Fields(replaced) {
		words = append(words, strings.ToUpper(word[:1])+word[1:])
	}
	if len(words) == 0 {
		return name
	}
	return strings.Join(words, " ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
