package session

import (
	"context"
	"fmt"

	"github.com/goliatone/go-formflow/pkg/response"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/upload"
	"github.com/goliatone/go-formflow/pkg/validation"
	"github.com/goliatone/go-formflow/pkg/visibility"
)

// Submit validates every visible field across the whole schema, then runs
// the submission pipeline: resolve staged files into reference descriptors,
// encrypt sensitive fields, deliver the payload, clear the autosave
// snapshot, and emit audit/escalation events. A submission already in flight
// is refused; any pipeline failure surfaces one form-level error and
// releases the guard so the user can retry without re-entering data.
func (s *Session) Submit(ctx context.Context) error {
	s.mu.Lock()
	if s.submitting {
		s.mu.Unlock()
		return ErrSubmitInFlight
	}
	if s.state == StateSubmitted {
		s.mu.Unlock()
		return ErrSubmitted
	}

	// Later steps may depend on earlier data, so the whole schema is
	// validated, not just the active step.
	errs := validation.ValidateVisible(s.schema.Fields, s.data, s.visibleLocked)
	if len(errs) > 0 {
		s.fieldErrs = errs
		s.state = StateEditing
		s.step = schema.StepOf(s.schema, errs[0].FieldID)
		s.mu.Unlock()
		return ErrValidation
	}

	s.submitting = true
	s.state = StateSubmitting
	s.fieldErrs = nil
	s.formErr = ""
	data := cloneData(s.data)
	s.mu.Unlock()

	resp, err := s.runPipeline(ctx, data)
	if err != nil {
		s.mu.Lock()
		s.state = StateFailed
		s.formErr = err.Error()
		s.submitting = false
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.state = StateSubmitted
	s.submitting = false
	deb := s.debouncer
	s.debouncer = nil
	s.mu.Unlock()

	// A late autosave write must not resurrect the draft.
	if deb != nil {
		deb.Stop()
	}
	if s.store != nil && s.identity != nil {
		_ = s.store.Delete(ctx, s.draftKey())
	}

	s.emitAudit(ctx, resp, data)
	s.evaluateEscalations(ctx, resp, data)
	return nil
}

func (s *Session) runPipeline(ctx context.Context, data map[string]any) (response.Response, error) {
	payload := s.buildPayload(data)

	if err := s.resolveFiles(ctx, payload); err != nil {
		return response.Response{}, err
	}
	if err := s.encryptSensitive(payload); err != nil {
		return response.Response{}, err
	}

	resp, err := s.persistence.CreateResponse(ctx, s.schema.Slug, payload)
	if err != nil {
		return response.Response{}, fmt.Errorf("session: submit: %w", err)
	}
	return resp, nil
}

// buildPayload reduces the working data to the visible field set. Hidden
// fields never reach the persistence collaborator, regardless of any stale
// values left behind by earlier edits.
func (s *Session) buildPayload(data map[string]any) map[string]any {
	payload := make(map[string]any, len(data))
	for _, f := range s.schema.Fields {
		if !visibility.Visible(f, data) {
			continue
		}
		if v, found := data[f.ID]; found {
			payload[f.ID] = v
		}
	}
	return payload
}

// resolveFiles uploads every staged file and substitutes reference
// descriptors into the payload. A failed upload blocks submission only when
// the field is required; optional fields are dropped from the payload and
// keep a field-scoped error.
func (s *Session) resolveFiles(ctx context.Context, payload map[string]any) error {
	if s.staging.Count() == 0 {
		return nil
	}
	if s.uploader == nil {
		return fmt.Errorf("session: files staged but no uploader configured")
	}

	refs, uploadErrs := s.staging.Resolve(ctx, s.uploader, upload.PlaceholderResponseID)
	for fieldID, ref := range refs {
		if _, found := payload[fieldID]; found {
			payload[fieldID] = ref
		}
	}
	for fieldID, err := range uploadErrs {
		field, found := s.schema.FieldByID(fieldID)
		if !found {
			delete(payload, fieldID)
			continue
		}
		// Fields hidden by their dependsOn rules were stripped by
		// buildPayload; their failures cannot block the submission.
		if _, visible := payload[fieldID]; !visible {
			continue
		}
		if field.Required {
			return fmt.Errorf("session: %w", err)
		}
		delete(payload, fieldID)
		s.mu.Lock()
		s.setFieldErrorLocked(field, "File upload failed")
		s.mu.Unlock()
	}
	return nil
}

// encryptSensitive replaces flagged plaintext values with envelopes. Preview
// sessions and unconfigured ciphers submit plaintext as-is; the silent skip
// is the documented fail-open policy.
func (s *Session) encryptSensitive(payload map[string]any) error {
	if s.preview || !s.cipher.Enabled() {
		return nil
	}
	for _, f := range s.schema.Fields {
		if !f.Sensitive {
			continue
		}
		value, found := payload[f.ID]
		if !found {
			continue
		}
		text, isText := value.(string)
		if !isText || text == "" {
			continue
		}
		env, err := s.cipher.Encrypt(text)
		if err != nil {
			return fmt.Errorf("session: encrypt %s: %w", f.ID, err)
		}
		payload[f.ID] = env
	}
	return nil
}

func (s *Session) emitAudit(ctx context.Context, resp response.Response, data map[string]any) {
	if s.audit == nil || s.schema.AuditLevel == "" || s.schema.AuditLevel == schema.AuditLevelNone {
		return
	}
	event := response.AuditEvent{
		Action:    "form.submitted",
		Target:    response.AuditTarget{Type: "form_response", ID: resp.ID, Label: s.schema.Name},
		Actor:     s.actor(),
		Timestamp: s.now(),
		Metadata: map[string]string{
			"template":   s.schema.Slug,
			"auditLevel": s.schema.AuditLevel,
		},
	}
	if s.schema.AuditLevel == schema.AuditLevelDetailed {
		event.Metadata["fieldCount"] = fmt.Sprint(len(data))
	}
	_ = s.audit.Record(ctx, event)
}

// evaluateEscalations tests each escalation rule against the submitted
// plaintext data and records a matching event per triggered rule.
func (s *Session) evaluateEscalations(ctx context.Context, resp response.Response, data map[string]any) {
	if s.audit == nil || len(s.schema.Escalations) == 0 {
		return
	}
	for _, esc := range s.schema.Escalations {
		if !visibility.EvalRule(esc.Rule, data) {
			continue
		}
		_ = s.audit.Record(ctx, response.AuditEvent{
			Action:    "form.escalated",
			Target:    response.AuditTarget{Type: "form_response", ID: resp.ID, Label: s.schema.Name},
			Actor:     s.actor(),
			Timestamp: s.now(),
			Metadata: map[string]string{
				"template": s.schema.Slug,
				"action":   string(esc.Action),
				"target":   esc.Target,
				"field":    esc.Rule.Field,
			},
		})
	}
}

func (s *Session) actor() response.AuditActor {
	if s.identity == nil {
		return response.AuditActor{Identity: "anonymous"}
	}
	return response.AuditActor{Identity: s.identity.UserID(), Roles: s.identity.Roles()}
}
