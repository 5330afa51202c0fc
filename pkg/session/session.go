// Package session drives one user's journey through a form: a multi-step
// navigation state machine with step-gated validation, debounced autosave,
// staged file attachments, and the submission pipeline. The session
// exclusively owns the working data during editing; the persistence
// collaborator owns the durable response once submitted.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goliatone/go-formflow/pkg/draft"
	"github.com/goliatone/go-formflow/pkg/response"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/sensitive"
	"github.com/goliatone/go-formflow/pkg/signature"
	"github.com/goliatone/go-formflow/pkg/upload"
	"github.com/goliatone/go-formflow/pkg/validation"
	"github.com/goliatone/go-formflow/pkg/visibility"
)

// State is the session lifecycle phase. Editing carries a current step
// index; the other states are terminal or transitional.
type State string

const (
	StateEditing    State = "editing"
	StateSubmitting State = "submitting"
	StateSubmitted  State = "submitted"
	StateFailed     State = "failed"
)

var (
	// ErrValidation signals that edits are required before the attempted
	// transition; details are in Errors().
	ErrValidation = errors.New("session: validation failed")

	// ErrSubmitInFlight is returned when Submit is called while an earlier
	// submission has not settled.
	ErrSubmitInFlight = errors.New("session: submission already in flight")

	// ErrNotAllowed is returned by New when the acting identity's roles do
	// not satisfy the schema's allowedRoles gate.
	ErrNotAllowed = errors.New("session: role not allowed for this form")

	// ErrSubmitted is returned by mutations after a successful submission.
	ErrSubmitted = errors.New("session: already submitted")
)

// Option customises session construction.
type Option func(*Session)

// WithInitialData seeds the working data, bypassing draft recovery.
func WithInitialData(data map[string]any) Option {
	return func(s *Session) {
		s.initial = data
	}
}

// WithDraftStore enables autosave and draft recovery through the given
// snapshot store.
func WithDraftStore(store draft.Store) Option {
	return func(s *Session) {
		s.store = store
	}
}

// WithUploader wires the file upload collaborator.
func WithUploader(uploader upload.Uploader) Option {
	return func(s *Session) {
		s.uploader = uploader
	}
}

// WithCipher wires the sensitive-field cipher. A disabled cipher leaves
// plaintext untouched.
func WithCipher(cipher *sensitive.Cipher) Option {
	return func(s *Session) {
		s.cipher = cipher
	}
}

// WithAudit wires the audit collaborator.
func WithAudit(audit response.Audit) Option {
	return func(s *Session) {
		s.audit = audit
	}
}

// WithIdentity sets the acting user. The identity feeds the draft key, the
// allowedRoles gate, and audit actor attribution.
func WithIdentity(identity response.Identity) Option {
	return func(s *Session) {
		s.identity = identity
	}
}

// WithDebounce overrides the autosave quiet period.
func WithDebounce(quiet time.Duration) Option {
	return func(s *Session) {
		s.quiet = quiet
	}
}

// WithPreviewMode marks the session as a demo/preview run: submission skips
// sensitive-field encryption so reviewers see realistic payloads.
func WithPreviewMode() Option {
	return func(s *Session) {
		s.preview = true
	}
}

// WithReadOnly disables autosave scheduling and draft writes.
func WithReadOnly() Option {
	return func(s *Session) {
		s.readOnly = true
	}
}

// WithClock overrides the time source. Tests use this for determinism.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// Session is the in-progress editing state for one schema and one user.
// Methods are safe for concurrent use so autosave timers and upload
// goroutines cannot corrupt the working data.
type Session struct {
	mu sync.Mutex

	schema schema.Schema
	steps  [][]schema.Field

	state      State
	step       int
	data       map[string]any
	fieldErrs  []validation.FieldError
	formErr    string
	submitting bool
	recovered  bool
	draftSaved bool

	persistence response.Persistence
	store       draft.Store
	debouncer   *draft.Debouncer
	staging     *upload.Staging
	uploader    upload.Uploader
	cipher      *sensitive.Cipher
	audit       response.Audit
	identity    response.Identity

	initial  map[string]any
	preview  bool
	readOnly bool
	quiet    time.Duration
	now      func() time.Time
}

// New validates the schema, applies options, recovers any persisted draft,
// and returns a session in Editing(0).
func New(ctx context.Context, sch schema.Schema, persistence response.Persistence, options ...Option) (*Session, error) {
	if err := schema.Validate(sch); err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	s := &Session{
		schema:      sch,
		steps:       schema.Steps(sch),
		state:       StateEditing,
		data:        make(map[string]any),
		persistence: persistence,
		staging:     upload.NewStaging(),
		quiet:       draft.DefaultQuietPeriod,
		now:         time.Now,
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}

	if s.identity != nil && !sch.AllowedFor(s.identity.Roles()) {
		return nil, ErrNotAllowed
	}

	switch {
	case len(s.initial) > 0:
		for k, v := range s.initial {
			s.data[k] = v
		}
	case s.store != nil && s.identity != nil:
		// One recovery read; any failure is identical to "no draft".
		if snap, err := s.store.Get(ctx, s.draftKey()); err == nil && len(snap) > 0 {
			for k, v := range snap {
				s.data[k] = v
			}
			s.recovered = true
		}
	}

	if s.autosaveEnabled() {
		s.debouncer = draft.NewDebouncer(s.quiet, s.writeSnapshot)
	}

	return s, nil
}

// State returns the current lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Step returns the current zero-based wizard step.
func (s *Session) Step() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// StepCount returns the number of wizard steps (1 for single-step schemas).
func (s *Session) StepCount() int {
	return len(s.steps)
}

// RecoveredFromDraft reports whether construction populated the working data
// from a persisted snapshot.
func (s *Session) RecoveredFromDraft() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recovered
}

// HasDraft reports whether SaveDraft has persisted a draft response.
func (s *Session) HasDraft() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draftSaved
}

// Value returns the working value for a field.
func (s *Session) Value(fieldID string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, found := s.data[fieldID]
	return v, found
}

// Data returns a copy of the working data.
func (s *Session) Data() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneData(s.data)
}

// Errors returns the current field errors in schema order; the first entry
// is the one the UI should focus.
func (s *Session) Errors() []validation.FieldError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]validation.FieldError(nil), s.fieldErrs...)
}

// FormError returns the form-level error from the last failed submission.
func (s *Session) FormError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.formErr
}

// SetValue records an edit, clears any existing error for that field only,
// and schedules a debounced autosave snapshot.
func (s *Session) SetValue(fieldID string, value any) error {
	s.mu.Lock()
	if s.state == StateSubmitted {
		s.mu.Unlock()
		return ErrSubmitted
	}
	s.data[fieldID] = value
	s.clearFieldErrorLocked(fieldID)
	snap := cloneData(s.data)
	deb := s.debouncer
	s.mu.Unlock()

	if deb != nil {
		deb.Schedule(snap)
	}
	return nil
}

// StageFile accepts a local file for a file field, enforcing the field's
// maxFileSize constraint. Rejected files leave the field value unset and
// surface a field-scoped error.
func (s *Session) StageFile(fieldID string, file upload.File) error {
	field, found := s.schema.FieldByID(fieldID)
	if !found || field.Type != schema.FieldTypeFile {
		return fmt.Errorf("session: %q is not a file field", fieldID)
	}
	if err := s.staging.Stage(fieldID, file, field.Constraints.MaxFileSize); err != nil {
		var sizeErr upload.SizeError
		if errors.As(err, &sizeErr) {
			s.mu.Lock()
			s.setFieldErrorLocked(field, sizeErr.Error())
			s.mu.Unlock()
		}
		return err
	}
	// The filename stands in for the pending file so required-ness passes;
	// submission replaces it with the upload reference.
	return s.SetValue(fieldID, file.Name)
}

// CaptureSignature renders a drawn trace to its image form and stores it as
// the field value. An empty trace clears the field instead.
func (s *Session) CaptureSignature(fieldID string, trace *signature.Trace) error {
	field, found := s.schema.FieldByID(fieldID)
	if !found || field.Type != schema.FieldTypeSignature {
		return fmt.Errorf("session: %q is not a signature field", fieldID)
	}
	if trace == nil || trace.Empty() {
		return s.SetValue(fieldID, "")
	}
	encoded, err := trace.Encode()
	if err != nil {
		return fmt.Errorf("session: encode signature: %w", err)
	}
	return s.SetValue(fieldID, encoded)
}

// VisibleFields returns the schema fields visible under the current data.
func (s *Session) VisibleFields() []schema.Field {
	s.mu.Lock()
	defer s.mu.Unlock()
	return visibility.VisibleFields(s.schema.Fields, s.data)
}

// CurrentStepFields returns the visible fields of the active step.
func (s *Session) CurrentStepFields() []schema.Field {
	s.mu.Lock()
	defer s.mu.Unlock()
	return visibility.VisibleFields(s.steps[s.step], s.data)
}

// GoToStep navigates the wizard. Backward and same-step moves are never
// blocked; a forward move validates every visible field of the current step
// and refuses the transition while any is invalid.
func (s *Session) GoToStep(target int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateEditing {
		return fmt.Errorf("session: cannot navigate while %s", s.state)
	}
	if target < 0 || target >= len(s.steps) {
		return fmt.Errorf("session: step %d out of range", target)
	}
	if target <= s.step {
		s.step = target
		return nil
	}

	errs := validation.ValidateVisible(s.steps[s.step], s.data, s.visibleLocked)
	if len(errs) > 0 {
		s.fieldErrs = errs
		return ErrValidation
	}
	s.fieldErrs = nil
	s.step = target
	return nil
}

// Next advances one step.
func (s *Session) Next() error {
	return s.GoToStep(s.Step() + 1)
}

// Back returns to the previous step.
func (s *Session) Back() error {
	step := s.Step()
	if step == 0 {
		return nil
	}
	return s.GoToStep(step - 1)
}

// SaveDraft persists the working data through the persistence collaborator's
// draft channel. Drafts save regardless of validation state.
func (s *Session) SaveDraft(ctx context.Context) error {
	s.mu.Lock()
	if !s.schema.AllowDrafts {
		s.mu.Unlock()
		return fmt.Errorf("session: schema %s does not allow drafts", s.schema.Slug)
	}
	data := cloneData(s.data)
	s.mu.Unlock()

	if _, err := s.persistence.CreateDraft(ctx, s.schema.Slug, data); err != nil {
		return fmt.Errorf("session: save draft: %w", err)
	}

	s.mu.Lock()
	s.draftSaved = true
	s.mu.Unlock()
	return nil
}

// Close stops the autosave debouncer. In-flight snapshot writes or uploads
// are not awaited; abandonment does not guarantee cleanup.
func (s *Session) Close() {
	s.mu.Lock()
	deb := s.debouncer
	s.mu.Unlock()
	if deb != nil {
		deb.Stop()
	}
}

func (s *Session) autosaveEnabled() bool {
	return s.schema.Autosave && !s.readOnly && s.store != nil && s.identity != nil
}

func (s *Session) draftKey() draft.Key {
	userID := ""
	if s.identity != nil {
		userID = s.identity.UserID()
	}
	return draft.Key{Slug: s.schema.Slug, UserID: userID}
}

// writeSnapshot is the debouncer sink. Errors are swallowed: autosave is
// best-effort and never surfaces to the user.
func (s *Session) writeSnapshot(snap draft.Snapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.store.Put(ctx, s.draftKey(), snap)
}

// visibleLocked is the visibility predicate used while holding the mutex.
func (s *Session) visibleLocked(f schema.Field) bool {
	return visibility.Visible(f, s.data)
}

func (s *Session) setFieldErrorLocked(field schema.Field, message string) {
	s.clearFieldErrorLocked(field.ID)
	s.fieldErrs = append(s.fieldErrs, validation.FieldError{
		FieldID: field.ID,
		Label:   field.Label,
		Message: message,
	})
}

func (s *Session) clearFieldErrorLocked(fieldID string) {
	kept := s.fieldErrs[:0]
	for _, e := range s.fieldErrs {
		if e.FieldID != fieldID {
			kept = append(kept, e)
		}
	}
	s.fieldErrs = kept
}

func cloneData(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
