package schema

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Parse decodes a single schema document (YAML or JSON) into a Schema,
// normalizes it, and validates the structural invariants. The name argument
// is used in error messages only.
func Parse(name string, data []byte) (Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Schema{}, fmt.Errorf("schema: parse %s: %w", name, err)
	}
	normalize(&s)
	if err := Validate(s); err != nil {
		return Schema{}, fmt.Errorf("schema: %s: %w", name, err)
	}
	return s, nil
}

// LoadFS walks a filesystem and parses every .yaml/.yml/.json document into
// a store keyed by slug. Duplicate slugs are rejected so lookups stay
// unambiguous.
func LoadFS(fsys fs.FS) (*Store, error) {
	store := &Store{schemas: make(map[string]Schema)}
	if fsys == nil {
		return store, nil
	}

	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isSchemaFile(path) {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("schema: read %s: %w", path, err)
		}
		s, err := Parse(path, data)
		if err != nil {
			return err
		}
		if _, exists := store.schemas[s.Slug]; exists {
			return fmt.Errorf("schema: duplicate slug %q (file %s)", s.Slug, path)
		}
		store.schemas[s.Slug] = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

// Store holds loaded schemas keyed by slug.
type Store struct {
	schemas map[string]Schema
}

// BySlug returns the schema registered under slug.
func (s *Store) BySlug(slug string) (Schema, bool) {
	if s == nil {
		return Schema{}, false
	}
	out, ok := s.schemas[slug]
	return out, ok
}

// Slugs returns the registered slugs in unspecified order.
func (s *Store) Slugs() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.schemas))
	for slug := range s.schemas {
		out = append(out, slug)
	}
	return out
}

func isSchemaFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// normalize trims identifiers, fills defaults, and sanitizes author-supplied
// rich text before validation runs.
func normalize(s *Schema) {
	s.ID = strings.TrimSpace(s.ID)
	s.Slug = strings.TrimSpace(s.Slug)
	s.Name = sanitizePlain(s.Name)
	if s.AuditLevel == "" {
		s.AuditLevel = AuditLevelNone
	}
	for i := range s.Fields {
		f := &s.Fields[i]
		f.ID = strings.TrimSpace(f.ID)
		f.Label = sanitizePlain(f.Label)
		f.Placeholder = sanitizePlain(f.Placeholder)
		f.Description = sanitizeRich(f.Description)
		if f.Width == "" {
			f.Width = "full"
		}
	}
	for i := range s.Sections {
		s.Sections[i].ID = strings.TrimSpace(s.Sections[i].ID)
		s.Sections[i].Title = sanitizePlain(s.Sections[i].Title)
	}
}
