package rest

import "regexp"

// defaultExclude drops private fields, i.e. names starting with an
// underscore.
var defaultExclude = []string{"^_"}

type excludeRule struct {
	literal string
	pattern *regexp.Regexp
}

// FieldPolicy decides which fields may appear in responses and which may
// be accepted from request bodies. It never raises: unknown fields are
// silently dropped.
type FieldPolicy struct {
	// Declared is the ordered allow-list for output. When non-empty it is
	// the single source of truth and exclude rules are not consulted.
	Declared []string
	// ExcludeInput lists fields never accepted from request bodies.
	ExcludeInput []string
	// KeyField, when set, is additionally never accepted from request
	// bodies regardless of other settings.
	KeyField string

	exclude []excludeRule
}

// NewFieldPolicy compiles exclude patterns once. Each pattern matches as a
// literal field name or as a regular expression. A nil patterns slice gets
// the default private-field exclusion.
func NewFieldPolicy(declared, patterns, excludeInput []string, keyField string) *FieldPolicy {
	if patterns == nil {
		patterns = defaultExclude
	}
	rules := make([]excludeRule, 0, len(patterns))
	for _, p := range patterns {
		rule := excludeRule{literal: p}
		if re, err := regexp.Compile(p); err == nil {
			rule.pattern = re
		}
		rules = append(rules, rule)
	}
	return &FieldPolicy{
		Declared:     declared,
		ExcludeInput: excludeInput,
		KeyField:     keyField,
		exclude:      rules,
	}
}

// AllowedOutput resolves the per-request output field selection. With a
// declared field list, the request selection is intersected with it
// (declared order wins) and an empty selection means the whole declared
// list. Without one, each requested field is kept unless an exclude rule
// matches it.
func (p *FieldPolicy) AllowedOutput(requested []string) []string {
	if len(p.Declared) > 0 {
		if len(requested) == 0 {
			return append([]string(nil), p.Declared...)
		}
		asked := make(map[string]bool, len(requested))
		for _, f := range requested {
			asked[f] = true
		}
		out := make([]string, 0, len(requested))
		for _, f := range p.Declared {
			if asked[f] {
				out = append(out, f)
			}
		}
		return out
	}

	out := make([]string, 0, len(requested))
	for _, f := range requested {
		if p.FieldAllowed(f) {
			out = append(out, f)
		}
	}
	return out
}

// FieldAllowed reports whether a field may appear in output when no
// declared field list exists.
func (p *FieldPolicy) FieldAllowed(field string) bool {
	for _, rule := range p.exclude {
		if rule.literal == field {
			return false
		}
		if rule.pattern != nil && rule.pattern.MatchString(field) {
			return false
		}
	}
	return true
}

// InputAllowed reports whether a body field may be accepted. With a
// declared field list the field must be on it; either way it must not be
// on the input exclude list, and the key field is never client-settable.
func (p *FieldPolicy) InputAllowed(field string) bool {
	if p.KeyField != "" && field == p.KeyField {
		return false
	}
	for _, f := range p.ExcludeInput {
		if f == field {
			return false
		}
	}
	if len(p.Declared) == 0 {
		return true
	}
	for _, f := range p.Declared {
		if f == field {
			return true
		}
	}
	return false
}
