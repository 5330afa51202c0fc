package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/AlecAivazis/survey/v2"

	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/session"
	"github.com/goliatone/go-formflow/pkg/validation"
)

// fillSession walks every wizard step, prompting for the fields visible
// under the answers given so far. Each answer is validated before it is
// accepted so step navigation never bounces back.
func fillSession(sess *session.Session, sch schema.Schema) error {
	steps := schema.Steps(sch)
	for stepIdx := range steps {
		if len(steps) > 1 {
			fmt.Printf("\n-- Step %d of %d --\n", stepIdx+1, len(steps))
		}
		for _, field := range sess.CurrentStepFields() {
			value, err := promptField(field)
			if err != nil {
				return err
			}
			if value == nil {
				continue
			}
			if err := sess.SetValue(field.ID, value); err != nil {
				return err
			}
		}
		if stepIdx < len(steps)-1 {
			if err := sess.Next(); err != nil {
				return err
			}
		}
	}
	return nil
}

func promptField(field schema.Field) (any, error) {
	switch field.Type {
	case schema.FieldTypeSelect, schema.FieldTypeRadio:
		return promptSelect(field)
	case schema.FieldTypeMultiselect:
		return promptMultiSelect(field)
	case schema.FieldTypeCheckbox:
		return promptConfirm(field)
	case schema.FieldTypeNumber, schema.FieldTypeCurrency,
		schema.FieldTypeRating, schema.FieldTypeNPS:
		return promptNumber(field)
	case schema.FieldTypeAddress:
		return promptAddress(field)
	case schema.FieldTypeTextarea:
		return promptTextarea(field)
	case schema.FieldTypeFile, schema.FieldTypeSignature:
		// No capture surface in a terminal; these stay unset.
		return nil, nil
	default:
		return promptInput(field)
	}
}

func promptInput(field schema.Field) (any, error) {
	var out string
	prompt := &survey.Input{Message: field.Label, Help: field.Description}
	if err := survey.AskOne(prompt, &out, survey.WithValidator(fieldValidator(field))); err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return out, nil
}

func promptTextarea(field schema.Field) (any, error) {
	var out string
	prompt := &survey.Multiline{Message: field.Label, Help: field.Description}
	if err := survey.AskOne(prompt, &out, survey.WithValidator(fieldValidator(field))); err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return out, nil
}

func promptSelect(field schema.Field) (any, error) {
	options := make([]string, 0, len(field.Options))
	for _, opt := range field.Options {
		options = append(options, opt.Value)
	}
	var out string
	prompt := &survey.Select{Message: field.Label, Options: options, Help: field.Description}
	if err := survey.AskOne(prompt, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func promptMultiSelect(field schema.Field) (any, error) {
	options := make([]string, 0, len(field.Options))
	for _, opt := range field.Options {
		options = append(options, opt.Value)
	}
	var out []string
	prompt := &survey.MultiSelect{Message: field.Label, Options: options, Help: field.Description}
	if err := survey.AskOne(prompt, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func promptConfirm(field schema.Field) (any, error) {
	var out bool
	prompt := &survey.Confirm{Message: field.Label, Help: field.Description}
	if err := survey.AskOne(prompt, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func promptNumber(field schema.Field) (any, error) {
	var raw string
	prompt := &survey.Input{Message: field.Label, Help: field.Description}
	validator := func(ans any) error {
		text, _ := ans.(string)
		if text == "" {
			return fieldValidator(field)(ans)
		}
		num, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return errors.New("enter a number")
		}
		if res := validation.Validate(field, num); !res.Valid {
			return errors.New(res.Error)
		}
		return nil
	}
	if err := survey.AskOne(prompt, &raw, survey.WithValidator(validator)); err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}
	num, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return num, nil
}

func promptAddress(field schema.Field) (any, error) {
	parts := map[string]any{}
	for _, member := range []struct{ key, label string }{
		{"street", "Street"},
		{"city", "City"},
		{"state", "State"},
		{"zip", "Postal code"},
	} {
		var out string
		prompt := &survey.Input{Message: field.Label + ": " + member.label}
		if err := survey.AskOne(prompt, &out); err != nil {
			return nil, err
		}
		parts[member.key] = out
	}
	return parts, nil
}

// fieldValidator adapts the engine's field validation into a survey
// validator so bad answers are re-prompted in place.
func fieldValidator(field schema.Field) survey.Validator {
	return func(ans any) error {
		value := ans
		if text, isText := ans.(string); isText && text == "" {
			value = nil
		}
		if res := validation.Validate(field, value); !res.Valid {
			return errors.New(res.Error)
		}
		return nil
	}
}
