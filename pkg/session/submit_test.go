package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/goliatone/go-formflow/pkg/response"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/sensitive"
	"github.com/goliatone/go-formflow/pkg/upload"
)

const megabyte = 1 << 20

func attachmentSchema(required bool) schema.Schema {
	return schema.Schema{
		ID:   "s-docs",
		Slug: "docs",
		Name: "Documents",
		Fields: []schema.Field{
			{ID: "note", Type: schema.FieldTypeText, Label: "Note"},
			{ID: "proof", Type: schema.FieldTypeFile, Label: "Proof of income", Required: required,
				Constraints: schema.Constraints{MaxFileSize: megabyte}},
		},
	}
}

func intakeSchema() schema.Schema {
	return schema.Schema{
		ID:   "s-intake",
		Slug: "intake",
		Name: "Client Intake",
		Fields: []schema.Field{
			{ID: "name", Type: schema.FieldTypeText, Label: "Full name", Required: true},
			{ID: "ssn", Type: schema.FieldTypeSSN, Label: "Social Security Number", Sensitive: true,
				Constraints: schema.Constraints{Pattern: `^\d{3}-\d{2}-\d{4}$`}},
		},
	}
}

func okUploader(host string) upload.UploaderFunc {
	return func(_ context.Context, responseID, fieldID string, file upload.File) (upload.Reference, error) {
		return upload.Reference{
			Filename:    file.Name,
			ContentType: file.ContentType,
			Size:        int64(len(file.Data)),
			URL:         fmt.Sprintf("https://%s/%s/%s/%s", host, responseID, fieldID, file.Name),
		}, nil
	}
}

func TestOversizeFileRejectedAtStaging(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sch := attachmentSchema(false)
	sess, err := New(ctx, sch, newCountingPersistence(sch))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer sess.Close()

	big := upload.File{Name: "scan.pdf", ContentType: "application/pdf", Data: bytes.Repeat([]byte{0xff}, 2*megabyte)}
	err = sess.StageFile("proof", big)
	var sizeErr upload.SizeError
	if !errors.As(err, &sizeErr) {
		t.Fatalf("StageFile = %v, want SizeError", err)
	}

	errs := sess.Errors()
	if len(errs) != 1 || errs[0].FieldID != "proof" {
		t.Fatalf("expected one proof error, got %+v", errs)
	}
	if errs[0].Message != "File size must be less than 1MB" {
		t.Fatalf("message = %q", errs[0].Message)
	}
	if _, found := sess.Value("proof"); found {
		t.Fatalf("rejected file left a field value behind")
	}
}

func TestSubmitSubstitutesUploadReferences(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sch := attachmentSchema(true)
	store := newCountingPersistence(sch)
	sess, err := New(ctx, sch, store, WithUploader(okUploader("files.test")))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer sess.Close()

	file := upload.File{Name: "paystub.pdf", ContentType: "application/pdf", Data: []byte("pdf bytes")}
	if err := sess.StageFile("proof", file); err != nil {
		t.Fatalf("StageFile returned error: %v", err)
	}
	if err := sess.Submit(ctx); err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	responses, _ := store.ListResponses(ctx, response.ListFilter{TemplateSlug: "docs"})
	ref, isRef := responses[0].Data["proof"].(upload.Reference)
	if !isRef {
		t.Fatalf("proof = %T, want upload.Reference", responses[0].Data["proof"])
	}
	if ref.Filename != "paystub.pdf" || !strings.Contains(ref.URL, "files.test") {
		t.Fatalf("unexpected reference: %+v", ref)
	}
}

func TestRequiredUploadFailureBlocksSubmit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sch := attachmentSchema(true)
	store := newCountingPersistence(sch)
	failing := upload.UploaderFunc(func(context.Context, string, string, upload.File) (upload.Reference, error) {
		return upload.Reference{}, errors.New("storage unavailable")
	})
	sess, err := New(ctx, sch, store, WithUploader(failing))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer sess.Close()

	if err := sess.StageFile("proof", upload.File{Name: "doc.pdf", Data: []byte("x")}); err != nil {
		t.Fatalf("StageFile returned error: %v", err)
	}
	if err := sess.Submit(ctx); err == nil {
		t.Fatalf("Submit succeeded despite required upload failure")
	}
	if sess.State() != StateFailed {
		t.Fatalf("state = %s, want failed", sess.State())
	}
	if sess.FormError() == "" {
		t.Fatalf("FormError empty after pipeline failure")
	}
	if got := store.created.Load(); got != 0 {
		t.Fatalf("persistence received %d submissions, want 0", got)
	}
}

func TestHiddenRequiredUploadFailureDoesNotBlockSubmit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sch := schema.Schema{
		ID:   "s-docs-cond",
		Slug: "docs-cond",
		Name: "Conditional Documents",
		Fields: []schema.Field{
			{ID: "employed", Type: schema.FieldTypeRadio, Label: "Employed?", Required: true,
				Options: []schema.Option{{Value: "yes", Label: "Yes"}, {Value: "no", Label: "No"}}},
			{ID: "proof", Type: schema.FieldTypeFile, Label: "Proof of income", Required: true,
				Constraints: schema.Constraints{MaxFileSize: megabyte},
				DependsOn:   []schema.Rule{{Field: "employed", Operator: schema.OpEquals, Value: "yes"}}},
		},
	}
	store := newCountingPersistence(sch)
	failing := upload.UploaderFunc(func(context.Context, string, string, upload.File) (upload.Reference, error) {
		return upload.Reference{}, errors.New("storage unavailable")
	})
	sess, err := New(ctx, sch, store, WithUploader(failing))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer sess.Close()

	// Stage while the field is visible, then flip the answer so it hides.
	sess.SetValue("employed", "yes")
	if err := sess.StageFile("proof", upload.File{Name: "doc.pdf", Data: []byte("x")}); err != nil {
		t.Fatalf("StageFile returned error: %v", err)
	}
	sess.SetValue("employed", "no")

	if err := sess.Submit(ctx); err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	responses, _ := store.ListResponses(ctx, response.ListFilter{TemplateSlug: "docs-cond"})
	if len(responses) != 1 {
		t.Fatalf("got %d responses, want 1", len(responses))
	}
	if _, found := responses[0].Data["proof"]; found {
		t.Fatalf("hidden field leaked into payload: %+v", responses[0].Data)
	}
}

func TestOptionalUploadFailureDropsField(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sch := attachmentSchema(false)
	store := newCountingPersistence(sch)
	failing := upload.UploaderFunc(func(context.Context, string, string, upload.File) (upload.Reference, error) {
		return upload.Reference{}, errors.New("storage unavailable")
	})
	sess, err := New(ctx, sch, store, WithUploader(failing))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer sess.Close()

	sess.SetValue("note", "see attachment")
	if err := sess.StageFile("proof", upload.File{Name: "doc.pdf", Data: []byte("x")}); err != nil {
		t.Fatalf("StageFile returned error: %v", err)
	}
	if err := sess.Submit(ctx); err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	responses, _ := store.ListResponses(ctx, response.ListFilter{TemplateSlug: "docs"})
	if _, found := responses[0].Data["proof"]; found {
		t.Fatalf("failed optional upload kept a payload entry: %+v", responses[0].Data)
	}
	if responses[0].Data["note"] != "see attachment" {
		t.Fatalf("unrelated field lost: %+v", responses[0].Data)
	}
}

func TestSensitiveFieldEncryptedInPayload(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	key := bytes.Repeat([]byte{0x42}, sensitive.KeySize)
	cipher, err := sensitive.New(key)
	if err != nil {
		t.Fatalf("cipher: %v", err)
	}

	store := newCountingPersistence(intakeSchema())
	sess, err := New(ctx, intakeSchema(), store, WithCipher(cipher))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer sess.Close()

	sess.SetValue("name", "Ada Lovelace")
	sess.SetValue("ssn", "123-45-6789")
	if err := sess.Submit(ctx); err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	responses, _ := store.ListResponses(ctx, response.ListFilter{TemplateSlug: "intake"})
	env, isEnv := responses[0].Data["ssn"].(sensitive.Envelope)
	if !isEnv {
		t.Fatalf("ssn = %T, want sensitive.Envelope", responses[0].Data["ssn"])
	}
	if strings.Contains(env.Ciphertext, "123-45-6789") || strings.Contains(env.Nonce, "123-45-6789") {
		t.Fatalf("plaintext visible in envelope: %+v", env)
	}
	plain, err := cipher.Decrypt(env)
	if err != nil {
		t.Fatalf("Decrypt returned error: %v", err)
	}
	if plain != "123-45-6789" {
		t.Fatalf("Decrypt = %q", plain)
	}
	if responses[0].Data["name"] != "Ada Lovelace" {
		t.Fatalf("non-sensitive field was transformed: %+v", responses[0].Data)
	}
}

func TestSensitiveFieldPlaintextWithoutKey(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newCountingPersistence(intakeSchema())
	sess, err := New(ctx, intakeSchema(), store)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer sess.Close()

	sess.SetValue("name", "Ada")
	sess.SetValue("ssn", "123-45-6789")
	if err := sess.Submit(ctx); err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	responses, _ := store.ListResponses(ctx, response.ListFilter{TemplateSlug: "intake"})
	if responses[0].Data["ssn"] != "123-45-6789" {
		t.Fatalf("keyless session altered the value: %+v", responses[0].Data["ssn"])
	}
}

func TestPreviewModeSkipsEncryption(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	key := bytes.Repeat([]byte{0x42}, sensitive.KeySize)
	cipher, _ := sensitive.New(key)
	store := newCountingPersistence(intakeSchema())
	sess, err := New(ctx, intakeSchema(), store, WithCipher(cipher), WithPreviewMode())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer sess.Close()

	sess.SetValue("name", "Demo")
	sess.SetValue("ssn", "123-45-6789")
	if err := sess.Submit(ctx); err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	responses, _ := store.ListResponses(ctx, response.ListFilter{TemplateSlug: "intake"})
	if responses[0].Data["ssn"] != "123-45-6789" {
		t.Fatalf("preview mode encrypted anyway: %+v", responses[0].Data["ssn"])
	}
}

// blockingPersistence holds CreateResponse until released so a second Submit
// can race against the first.
type blockingPersistence struct {
	*response.MemoryPersistence
	entered chan struct{}
	release chan struct{}
}

func (b *blockingPersistence) CreateResponse(ctx context.Context, slug string, data map[string]any) (response.Response, error) {
	close(b.entered)
	<-b.release
	return b.MemoryPersistence.CreateResponse(ctx, slug, data)
}

func TestSubmitGuardRefusesConcurrentSubmit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem := response.NewMemoryPersistence()
	mem.RegisterTemplate(contactSchema())
	store := &blockingPersistence{
		MemoryPersistence: mem,
		entered:           make(chan struct{}),
		release:           make(chan struct{}),
	}
	sess, err := New(ctx, contactSchema(), store)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer sess.Close()

	sess.SetValue("name", "Ada")
	sess.SetValue("email", "ada@example.org")

	var wg sync.WaitGroup
	wg.Add(1)
	var firstErr error
	go func() {
		defer wg.Done()
		firstErr = sess.Submit(ctx)
	}()

	<-store.entered
	if err := sess.Submit(ctx); !errors.Is(err, ErrSubmitInFlight) {
		t.Fatalf("second Submit = %v, want ErrSubmitInFlight", err)
	}
	close(store.release)
	wg.Wait()

	if firstErr != nil {
		t.Fatalf("first Submit returned error: %v", firstErr)
	}
	if sess.State() != StateSubmitted {
		t.Fatalf("state = %s, want submitted", sess.State())
	}
}

// flakyPersistence fails the first N CreateResponse calls.
type flakyPersistence struct {
	*response.MemoryPersistence
	mu       sync.Mutex
	failures int
}

func (f *flakyPersistence) CreateResponse(ctx context.Context, slug string, data map[string]any) (response.Response, error) {
	f.mu.Lock()
	if f.failures > 0 {
		f.failures--
		f.mu.Unlock()
		return response.Response{}, errors.New("backend timeout")
	}
	f.mu.Unlock()
	return f.MemoryPersistence.CreateResponse(ctx, slug, data)
}

func TestRetryAfterFailedSubmitKeepsData(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem := response.NewMemoryPersistence()
	mem.RegisterTemplate(contactSchema())
	store := &flakyPersistence{MemoryPersistence: mem, failures: 1}
	sess, err := New(ctx, contactSchema(), store)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer sess.Close()

	sess.SetValue("name", "Ada")
	sess.SetValue("email", "ada@example.org")

	if err := sess.Submit(ctx); err == nil {
		t.Fatalf("first Submit succeeded, want backend failure")
	}
	if sess.State() != StateFailed {
		t.Fatalf("state = %s, want failed", sess.State())
	}
	if v, _ := sess.Value("name"); v != "Ada" {
		t.Fatalf("working data lost after failure: %v", v)
	}

	if err := sess.Submit(ctx); err != nil {
		t.Fatalf("retry returned error: %v", err)
	}
	if sess.State() != StateSubmitted {
		t.Fatalf("state = %s, want submitted", sess.State())
	}
	if sess.FormError() != "" {
		t.Fatalf("FormError not cleared on retry: %q", sess.FormError())
	}
}

// recordingAudit collects events in call order.
type recordingAudit struct {
	mu     sync.Mutex
	events []response.AuditEvent
}

func (r *recordingAudit) Record(_ context.Context, event response.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingAudit) all() []response.AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]response.AuditEvent(nil), r.events...)
}

func TestAuditAndEscalationEvents(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sch := schema.Schema{
		ID:         "s-safety",
		Slug:       "safety",
		Name:       "Safety Check",
		AuditLevel: schema.AuditLevelDetailed,
		Fields: []schema.Field{
			{ID: "risk_score", Type: schema.FieldTypeNumber, Label: "Risk score", Required: true},
		},
		Escalations: []schema.Escalation{
			{Rule: schema.Rule{Field: "risk_score", Operator: schema.OpGreaterThan, Value: 7}, Action: schema.EscalationNotify, Target: "supervisors"},
		},
	}
	audit := &recordingAudit{}
	sess, err := New(ctx, sch, newCountingPersistence(sch),
		WithAudit(audit),
		WithIdentity(response.StaticIdentity{ID: "u-9", RoleNames: []string{"staff"}}))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer sess.Close()

	sess.SetValue("risk_score", 9)
	if err := sess.Submit(ctx); err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	events := audit.all()
	if len(events) != 2 {
		t.Fatalf("got %d events, want submit + escalation: %+v", len(events), events)
	}
	if events[0].Action != "form.submitted" || events[1].Action != "form.escalated" {
		t.Fatalf("unexpected actions: %s, %s", events[0].Action, events[1].Action)
	}
	if events[0].Actor.Identity != "u-9" {
		t.Fatalf("actor = %+v", events[0].Actor)
	}
	if events[0].Metadata["fieldCount"] == "" {
		t.Fatalf("detailed audit missing fieldCount: %+v", events[0].Metadata)
	}
	if events[1].Metadata["target"] != "supervisors" {
		t.Fatalf("escalation metadata = %+v", events[1].Metadata)
	}
}

func TestAuditSkippedWhenLevelNone(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	audit := &recordingAudit{}
	sess, err := New(ctx, contactSchema(), newCountingPersistence(contactSchema()), WithAudit(audit))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer sess.Close()

	sess.SetValue("name", "Ada")
	sess.SetValue("email", "ada@example.org")
	if err := sess.Submit(ctx); err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if got := audit.all(); len(got) != 0 {
		t.Fatalf("auditLevel none still produced events: %+v", got)
	}
}
