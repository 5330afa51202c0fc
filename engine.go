// Package formflow is a schema-driven form engine: declarative form
// definitions with conditional field visibility, type-directed validation, a
// multi-step wizard state machine, debounced draft autosave, signature
// capture, staged file attachments, and selective encryption of sensitive
// fields at submission time. Rendering, authentication, and the persistence
// backend remain external collaborators.
package formflow

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-formflow/pkg/draft"
	"github.com/goliatone/go-formflow/pkg/response"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/sensitive"
	"github.com/goliatone/go-formflow/pkg/session"
	"github.com/goliatone/go-formflow/pkg/upload"
)

// Commonly used types re-exported for single-import callers.
type (
	Schema     = schema.Schema
	Field      = schema.Field
	FieldType  = schema.FieldType
	Section    = schema.Section
	Rule       = schema.Rule
	Session    = session.Session
	Response   = response.Response
	Reference  = upload.Reference
	Envelope   = sensitive.Envelope
	AuditEvent = response.AuditEvent
)

// Option customises the engine configuration.
type Option func(*Engine)

// WithPersistence wires the durable backend. Required before sessions can be
// opened.
func WithPersistence(p response.Persistence) Option {
	return func(e *Engine) {
		e.persistence = p
	}
}

// WithDraftStore enables autosave and draft recovery.
func WithDraftStore(store draft.Store) Option {
	return func(e *Engine) {
		e.drafts = store
	}
}

// WithUploader wires the file storage collaborator.
func WithUploader(u upload.Uploader) Option {
	return func(e *Engine) {
		e.uploader = u
	}
}

// WithEncryptionKey configures the sensitive-field cipher from a deployment
// secret. An empty key leaves encryption disabled (plaintext submission).
func WithEncryptionKey(key []byte) Option {
	return func(e *Engine) {
		cipher, err := sensitive.New(key)
		if err != nil {
			e.initErr = err
			return
		}
		e.cipher = cipher
	}
}

// WithAudit wires the audit collaborator.
func WithAudit(a response.Audit) Option {
	return func(e *Engine) {
		e.audit = a
	}
}

// WithAutosaveQuietPeriod overrides the autosave debounce window for all
// sessions the engine opens.
func WithAutosaveQuietPeriod(quiet time.Duration) Option {
	return func(e *Engine) {
		e.quiet = quiet
	}
}

// Engine binds the collaborators once so individual sessions can be opened
// with just a slug and an identity.
type Engine struct {
	persistence response.Persistence
	drafts      draft.Store
	uploader    upload.Uploader
	cipher      *sensitive.Cipher
	audit       response.Audit
	quiet       time.Duration
	initErr     error
}

// New constructs an Engine applying any provided options.
func New(options ...Option) (*Engine, error) {
	e := &Engine{quiet: draft.DefaultQuietPeriod}
	for _, opt := range options {
		if opt != nil {
			opt(e)
		}
	}
	if e.initErr != nil {
		return nil, fmt.Errorf("formflow: %w", e.initErr)
	}
	if e.persistence == nil {
		return nil, fmt.Errorf("formflow: persistence collaborator is required")
	}
	if e.cipher == nil {
		e.cipher, _ = sensitive.New(nil)
	}
	return e, nil
}

// OpenSession fetches the template by slug, applies the role gate, recovers
// any draft for the identity, and returns an editing session wired with the
// engine's collaborators.
func (e *Engine) OpenSession(ctx context.Context, slug string, identity response.Identity, options ...session.Option) (*session.Session, error) {
	sch, err := e.persistence.FetchTemplate(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("formflow: fetch template %q: %w", slug, err)
	}

	opts := []session.Option{
		session.WithIdentity(identity),
		session.WithCipher(e.cipher),
		session.WithDebounce(e.quiet),
	}
	if e.drafts != nil {
		opts = append(opts, session.WithDraftStore(e.drafts))
	}
	if e.uploader != nil {
		opts = append(opts, session.WithUploader(e.uploader))
	}
	if e.audit != nil {
		opts = append(opts, session.WithAudit(e.audit))
	}
	opts = append(opts, options...)

	return session.New(ctx, sch, e.persistence, opts...)
}

// ParseSchema decodes and validates a schema document (YAML or JSON).
func ParseSchema(name string, data []byte) (Schema, error) {
	return schema.Parse(name, data)
}
