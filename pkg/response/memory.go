package response

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-formflow/pkg/schema"
)

// MemoryPersistence is an in-process Persistence implementation backing
// tests, examples, and the CLI. Templates are registered up front; responses
// receive uuid identifiers.
type MemoryPersistence struct {
	mu        sync.Mutex
	templates map[string]schema.Schema
	responses map[string]Response
	order     []string
	now       func() time.Time
}

// NewMemoryPersistence returns an empty store.
func NewMemoryPersistence() *MemoryPersistence {
	return &MemoryPersistence{
		templates: make(map[string]schema.Schema),
		responses: make(map[string]Response),
		now:       time.Now,
	}
}

// RegisterTemplate makes a schema fetchable by slug.
func (m *MemoryPersistence) RegisterTemplate(s schema.Schema) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates[s.Slug] = s
}

func (m *MemoryPersistence) FetchTemplate(_ context.Context, slug string) (schema.Schema, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, found := m.templates[slug]
	if !found {
		return schema.Schema{}, fmt.Errorf("response: template %q not found", slug)
	}
	return s, nil
}

func (m *MemoryPersistence) CreateResponse(_ context.Context, templateSlug string, data map[string]any) (Response, error) {
	return m.create(templateSlug, data, StatusSubmitted)
}

func (m *MemoryPersistence) CreateDraft(_ context.Context, templateSlug string, data map[string]any) (Response, error) {
	return m.create(templateSlug, data, StatusDraft)
}

func (m *MemoryPersistence) create(templateSlug string, data map[string]any, status Status) (Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	resp := Response{
		ID:         uuid.NewString(),
		TemplateID: templateSlug,
		Status:     status,
		Data:       cloneData(data),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	m.responses[resp.ID] = resp
	m.order = append(m.order, resp.ID)
	return resp, nil
}

func (m *MemoryPersistence) AppendSignature(_ context.Context, responseID string, sig Signature) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	resp, found := m.responses[responseID]
	if !found {
		return fmt.Errorf("response: %q not found", responseID)
	}
	if err := resp.AppendSignature(sig, m.now()); err != nil {
		return err
	}
	m.responses[responseID] = resp
	return nil
}

func (m *MemoryPersistence) ListResponses(_ context.Context, filter ListFilter) ([]Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Response
	for _, id := range m.order {
		resp := m.responses[id]
		if filter.TemplateSlug != "" && resp.TemplateID != filter.TemplateSlug {
			continue
		}
		if filter.Status != "" && resp.Status != filter.Status {
			continue
		}
		if filter.CreatedBy != "" && resp.CreatedBy != filter.CreatedBy {
			continue
		}
		out = append(out, resp)
	}
	return out, nil
}

func (m *MemoryPersistence) GetResponse(_ context.Context, id string) (Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	resp, found := m.responses[id]
	if !found {
		return Response{}, fmt.Errorf("response: %q not found", id)
	}
	return resp, nil
}

func cloneData(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
