package response

import (
	"context"
	"time"

	"github.com/goliatone/go-formflow/pkg/schema"
)

// ListFilter narrows ListResponses results. Zero values match everything.
type ListFilter struct {
	TemplateSlug string
	Status       Status
	CreatedBy    string
}

// Persistence is the durable backend the engine submits through. The engine
// never assumes a wire encoding; implementations may sit on HTTP, gRPC, or a
// local database.
type Persistence interface {
	FetchTemplate(ctx context.Context, slug string) (schema.Schema, error)
	CreateResponse(ctx context.Context, templateSlug string, data map[string]any) (Response, error)
	CreateDraft(ctx context.Context, templateSlug string, data map[string]any) (Response, error)
	AppendSignature(ctx context.Context, responseID string, sig Signature) error
	ListResponses(ctx context.Context, filter ListFilter) ([]Response, error)
	GetResponse(ctx context.Context, id string) (Response, error)
}

// AuditTarget names the entity an audit event refers to.
type AuditTarget struct {
	Type  string `json:"type"`
	ID    string `json:"id"`
	Label string `json:"label,omitempty"`
}

// AuditActor identifies who triggered an audit event.
type AuditActor struct {
	Identity string   `json:"identity"`
	Roles    []string `json:"roles,omitempty"`
}

// AuditEvent is the structured record handed to the audit collaborator.
type AuditEvent struct {
	Action    string            `json:"action"`
	Target    AuditTarget       `json:"target"`
	Actor     AuditActor        `json:"actor"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Audit receives structured events. Implementations must tolerate being
// called from submission goroutines.
type Audit interface {
	Record(ctx context.Context, event AuditEvent) error
}

// AuditFunc adapts a function into an Audit collaborator.
type AuditFunc func(ctx context.Context, event AuditEvent) error

// Record delegates to the underlying function.
func (fn AuditFunc) Record(ctx context.Context, event AuditEvent) error { return fn(ctx, event) }

// Identity supplies the acting user. Roles feed the schema's allowedRoles
// gate and the audit actor.
type Identity interface {
	UserID() string
	Roles() []string
}

// StaticIdentity is an Identity with fixed values, convenient for tests and
// CLI use.
type StaticIdentity struct {
	ID        string
	RoleNames []string
}

func (s StaticIdentity) UserID() string { return s.ID }

func (s StaticIdentity) Roles() []string { return s.RoleNames }
