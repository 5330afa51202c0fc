package schema

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	policyOnce  sync.Once
	plainPolicy *bluemonday.Policy
	richPolicy  *bluemonday.Policy
)

func policies() (*bluemonday.Policy, *bluemonday.Policy) {
	policyOnce.Do(func() {
		plainPolicy = bluemonday.StrictPolicy()
		richPolicy = bluemonday.UGCPolicy()
	})
	return plainPolicy, richPolicy
}

// sanitizePlain strips all markup from single-line author text (labels,
// placeholders, titles).
func sanitizePlain(raw string) string {
	plain, _ := policies()
	return strings.TrimSpace(plain.Sanitize(raw))
}

// sanitizeRich keeps user-generated-content markup in field descriptions
// while removing anything executable.
func sanitizeRich(raw string) string {
	_, rich := policies()
	return strings.TrimSpace(rich.Sanitize(raw))
}
