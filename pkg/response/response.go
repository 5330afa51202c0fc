// Package response defines the durable form-response model and the
// collaborator interfaces the engine persists through. The engine owns the
// in-progress draft data; once submitted, the persistence collaborator owns
// the response.
package response

import (
	"errors"
	"time"
)

// Status tracks the response lifecycle. Responses are created on first
// draft-save or submit, may accumulate signatures, and become immutable once
// archived.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusSigned    Status = "signed"
	StatusArchived  Status = "archived"
)

// SignerRole identifies who produced a signature.
type SignerRole string

const (
	SignerUser   SignerRole = "user"
	SignerClient SignerRole = "client"
	SignerBoard  SignerRole = "board"
)

// Signature records one captured signature together with its provenance.
type Signature struct {
	Role      SignerRole `json:"role"`
	SignerID  string     `json:"signerId"`
	SignedAt  time.Time  `json:"signedAt"`
	Origin    string     `json:"origin,omitempty"`
	UserAgent string     `json:"userAgent,omitempty"`
	Image     string     `json:"image"`
}

// Response is one submitted or drafted instance of a form template. Data is
// a flat map of field id to value; file fields hold reference descriptors
// and sensitive fields hold encryption envelopes when encryption is active.
type Response struct {
	ID         string         `json:"id"`
	TemplateID string         `json:"templateId"`
	Status     Status         `json:"status"`
	Data       map[string]any `json:"data"`
	Signatures []Signature    `json:"signatures,omitempty"`
	CreatedBy  string         `json:"createdBy,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

// ErrArchived is returned by mutations against an archived response.
var ErrArchived = errors.New("response: archived responses are immutable")

// AppendSignature adds a signature and moves the response to signed.
func (r *Response) AppendSignature(sig Signature, now time.Time) error {
	if r.Status == StatusArchived {
		return ErrArchived
	}
	r.Signatures = append(r.Signatures, sig)
	r.Status = StatusSigned
	r.UpdatedAt = now
	return nil
}

// Archive freezes the response. Archiving twice is a no-op.
func (r *Response) Archive(now time.Time) {
	if r.Status == StatusArchived {
		return
	}
	r.Status = StatusArchived
	r.UpdatedAt = now
}
