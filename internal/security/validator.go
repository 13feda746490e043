// Package security checks the raw SQL fragments accepted by the builder's
// escape hatches (raw SELECT and raw WHERE expressions) and their arguments.
package security

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrUnsafeFragment is returned when a raw fragment or argument matches an
// injection pattern.
var ErrUnsafeFragment = errors.New("unsafe SQL fragment")

// Validator rejects raw fragments that look like injection attempts.
type Validator struct {
	patterns []*regexp.Regexp
}

// ValidatorOption configures the Validator.
type ValidatorOption func(*Validator)

// WithStrict adds patterns that also reject bare OR/UNION/EXEC keywords.
// Legitimate fragments using OR are rejected too.
func WithStrict() ValidatorOption {
	return func(v *Validator) {
		v.patterns = append(v.patterns, compilePatterns(strictPatterns)...)
	}
}

// WithPatterns adds custom patterns. They are matched against the upper-cased
// fragment.
func WithPatterns(patterns ...string) ValidatorOption {
	return func(v *Validator) {
		v.patterns = append(v.patterns, compilePatterns(patterns)...)
	}
}

// NewValidator returns a validator with the default pattern set.
func NewValidator(opts ...ValidatorOption) *Validator {
	v := &Validator{patterns: compilePatterns(dangerousPatterns)}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

var dangerousPatterns = []string{
	// comments
	`--`,
	`/\*`,
	`#\s`,

	// a fragment is a single clause, never a second statement
	`;`,

	`UNION\s+(ALL\s+)?SELECT`,

	`XP_CMDSHELL`,
	`\bEXEC(UTE)?\s*\(`,
	`\bEXEC\s+(XP|SP)_`,
	`SP_EXECUTESQL`,

	`INFORMATION_SCHEMA`,
	`PG_SLEEP\s*\(`,
	`BENCHMARK\s*\(`,
	`WAITFOR\s+DELAY`,
	`\bSLEEP\s*\(`,

	// tautologies
	`\bOR\s+1\s*=\s*1\b`,
	`\bOR\s+'1'\s*=\s*'1'`,
	`\bAND\s+1\s*=\s*0\b`,
}

var strictPatterns = []string{
	`\bOR\b`,
	`\bUNION\b`,
	`\bEXEC(UTE)?\b`,
}

// ValidateFragment checks a raw SELECT or WHERE fragment.
func (v *Validator) ValidateFragment(fragment string) error {
	normalized := strings.ToUpper(fragment)
	for _, re := range v.patterns {
		if re.MatchString(normalized) {
			return fmt.Errorf("%w: %q matches %s", ErrUnsafeFragment, fragment, re.String())
		}
	}
	return nil
}

// ValidateParams checks string arguments bound to a raw fragment. Arguments
// are sent as placeholders, so only values that are obviously crafted to
// break out of a literal are rejected.
func (v *Validator) ValidateParams(params []interface{}) error {
	for i, p := range params {
		s, ok := p.(string)
		if !ok {
			continue
		}
		if containsInjection(s) {
			return fmt.Errorf("%w: argument %d", ErrUnsafeFragment, i)
		}
	}
	return nil
}

var indicators = []string{"'--", "';", "' OR ", "' AND ", "/*", "*/", "' UNION ", "' DROP ", "XP_"}

func containsInjection(value string) bool {
	upper := strings.ToUpper(value)
	for _, ind := range indicators {
		if strings.Contains(upper, ind) {
			return true
		}
	}
	return false
}

func compilePatterns(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(p))
	}
	return compiled
}
