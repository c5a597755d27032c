// Package validurl checks candidate long URLs for structural
// well-formedness before they are accepted into the store.
package validurl

import "net/url"

// Validator accepts a string when it parses as an absolute URL with both
// a scheme and an authority. The scheme allow-list is a policy choice:
// an empty list accepts any scheme the URL grammar allows.
type Validator struct {
	allowedSchemes map[string]bool
}

func New(allowedSchemes []string) *Validator {
	v := &Validator{}
	if len(allowedSchemes) > 0 {
		v.allowedSchemes = make(map[string]bool, len(allowedSchemes))
		for _, scheme := range allowedSchemes {
			v.allowedSchemes[scheme] = true
		}
	}
	return v
}

// IsValid reports whether candidate is a structurally well-formed absolute
// URL permitted by the scheme policy. It performs no network access.
func (v *Validator) IsValid(candidate string) bool {
	if candidate == "" {
		return false
	}
	parsed, err := url.Parse(candidate)
	if err != nil {
		return false
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return false
	}
	if v.allowedSchemes != nil && !v.allowedSchemes[parsed.Scheme] {
		return false
	}
	return true
}
