// Package upload stages file attachments during editing and resolves them
// into reference descriptors at submission time. Raw file bytes never reach
// the submitted payload; every file field's value is replaced by the
// descriptor returned from the upload collaborator.
package upload

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// PlaceholderResponseID is passed to the uploader when no durable response
// exists yet (first submission of a new form).
const PlaceholderResponseID = "staged"

// Reference is the metadata descriptor substituted for a raw file in
// submitted data.
type Reference struct {
	Filename    string    `json:"filename"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	URL         string    `json:"url"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

// File is a locally selected attachment pending upload.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Uploader transfers staged bytes to the storage collaborator and returns
// the descriptor callers substitute into the payload.
type Uploader interface {
	Upload(ctx context.Context, responseID, fieldID string, file File) (Reference, error)
}

// UploaderFunc adapts a function into an Uploader.
type UploaderFunc func(ctx context.Context, responseID, fieldID string, file File) (Reference, error)

// Upload delegates to the underlying function.
func (fn UploaderFunc) Upload(ctx context.Context, responseID, fieldID string, file File) (Reference, error) {
	return fn(ctx, responseID, fieldID, file)
}

// Status tracks one staged field through the pipeline.
type Status string

const (
	StatusPending   Status = "pending"
	StatusUploading Status = "uploading"
	StatusDone      Status = "done"
	StatusFailed    Status = "failed"
)

// SizeError reports a file rejected at staging time for exceeding the
// field's limit. The field value stays unset.
type SizeError struct {
	FieldID string
	Limit   int64
}

func (e SizeError) Error() string {
	return fmt.Sprintf("File size must be less than %s", formatSize(e.Limit))
}

type staged struct {
	file   File
	status Status
	ref    Reference
	err    error
}

// Staging holds files selected during editing, keyed by field id. Staging a
// field twice replaces the earlier file. Methods are safe for concurrent
// use; Resolve uploads distinct fields in parallel.
type Staging struct {
	mu    sync.Mutex
	files map[string]*staged
}

// NewStaging returns an empty staging area.
func NewStaging() *Staging {
	return &Staging{files: make(map[string]*staged)}
}

// Stage accepts a file for the given field, rejecting it immediately when it
// exceeds maxSize (0 means unlimited).
func (s *Staging) Stage(fieldID string, file File, maxSize int64) error {
	if maxSize > 0 && int64(len(file.Data)) > maxSize {
		return SizeError{FieldID: fieldID, Limit: maxSize}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[fieldID] = &staged{file: file, status: StatusPending}
	return nil
}

// Unstage drops a previously staged file.
func (s *Staging) Unstage(fieldID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, fieldID)
}

// StatusOf returns the pipeline status for a field, or "" when nothing is
// staged there.
func (s *Staging) StatusOf(fieldID string) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, found := s.files[fieldID]; found {
		return entry.status
	}
	return ""
}

// Count returns the number of staged fields regardless of status.
func (s *Staging) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

// Pending lists field ids with files awaiting upload.
func (s *Staging) Pending() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for id, entry := range s.files {
		if entry.status == StatusPending || entry.status == StatusFailed {
			out = append(out, id)
		}
	}
	return out
}

// Resolve uploads every pending file through the uploader and returns the
// field-to-reference map for all staged fields, including files already
// uploaded on a previous attempt, alongside per-field upload errors.
// Uploads for distinct fields run concurrently; failed fields stay staged so
// a retry re-attempts only what is missing.
func (s *Staging) Resolve(ctx context.Context, uploader Uploader, responseID string) (map[string]Reference, map[string]error) {
	if responseID == "" {
		responseID = PlaceholderResponseID
	}

	s.mu.Lock()
	var wg sync.WaitGroup
	for id, entry := range s.files {
		if entry.status == StatusDone {
			continue
		}
		entry.status = StatusUploading
		wg.Add(1)
		go func(fieldID string, entry *staged) {
			defer wg.Done()
			ref, err := uploader.Upload(ctx, responseID, fieldID, entry.file)
			s.mu.Lock()
			defer s.mu.Unlock()
			if err != nil {
				entry.status = StatusFailed
				entry.err = fmt.Errorf("upload: field %s: %w", fieldID, err)
				return
			}
			entry.status = StatusDone
			entry.ref = ref
			entry.err = nil
		}(id, entry)
	}
	s.mu.Unlock()
	wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	refs := make(map[string]Reference)
	var errs map[string]error
	for id, entry := range s.files {
		switch entry.status {
		case StatusDone:
			refs[id] = entry.ref
		case StatusFailed:
			if errs == nil {
				errs = make(map[string]error)
			}
			errs[id] = entry.err
		}
	}
	return refs, errs
}

func formatSize(bytes int64) string {
	const (
		kb = 1 << 10
		mb = 1 << 20
	)
	switch {
	case bytes >= mb:
		return fmt.Sprintf("%dMB", bytes/mb)
	case bytes >= kb:
		return fmt.Sprintf("%dKB", bytes/kb)
	default:
		return fmt.Sprintf("%d bytes", bytes)
	}
}
