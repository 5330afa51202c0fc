// Package schema exposes the typed form-definition model consumed by the
// visibility evaluator, the field validator, and the session controller.
// Canonical types live in internal/schema and are re-exported here; the
// loader in this package parses YAML or JSON schema documents, sanitizes
// author-supplied rich text, and enforces the structural invariants (unique
// field ids, resolvable section and dependsOn references, option sets on
// option-backed types) before a schema reaches the runtime.
package schema
