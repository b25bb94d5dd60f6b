package result

import (
	"sort"
	"strings"
)

// MaskedSecretValue replaces credential values in user-facing output.
const MaskedSecretValue = "**********"

// minSecretLen keeps trivially short values (flags, "1", "us") from being
// treated as secrets and shredding unrelated text.
const minSecretLen = 6

// Redactor scrubs configured credential values out of failure messages.
type Redactor struct {
	secrets []string
}

// NewRedactor returns a Redactor for the given secret values. Empty and very
// short values are ignored.
func NewRedactor(secrets ...string) *Redactor {
	seen := make(map[string]bool, len(secrets))
	var kept []string
	for _, s := range secrets {
		s = strings.TrimSpace(s)
		if len(s) < minSecretLen || seen[s] {
			continue
		}
		seen[s] = true
		kept = append(kept, s)
	}
	// longest first so a secret containing another is masked whole
	sort.Slice(kept, func(i, j int) bool { return len(kept[i]) > len(kept[j]) })
	return &Redactor{secrets: kept}
}

// Redact replaces every known secret in s.
func (r *Redactor) Redact(s string) string {
	if r == nil {
		return s
	}
	for _, secret := range r.secrets {
		if strings.Contains(s, secret) {
			s = strings.ReplaceAll(s, secret, MaskedSecretValue)
		}
	}
	return s
}

// RedactError returns a copy of e with its message and string context values
// scrubbed.
func (r *Redactor) RedactError(e *Error) *Error {
	if r == nil || e == nil {
		return e
	}
	out := &Error{Kind: e.Kind, Message: r.Redact(e.Message)}
	if len(e.Context) > 0 {
		out.Context = make(map[string]any, len(e.Context))
		for k, v := range e.Context {
			if s, ok := v.(string); ok {
				v = r.Redact(s)
			}
			out.Context[k] = v
		}
	}
	return out
}
