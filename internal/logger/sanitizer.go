package logger

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultMask replaces sensitive values in logged parameters.
const DefaultMask = "***REDACTED***"

// Sanitizer masks sensitive data in query parameters to prevent accidental logging of secrets.
// When the columns bound by a statement are known (INSERT and UPDATE data), only the
// matching positions are masked. Otherwise every parameter of a statement that mentions
// a sensitive column is masked.
type Sanitizer struct {
	sensitive map[string]struct{}
	patterns  []*regexp.Regexp
	maskValue string
}

// NewSanitizer creates a new sanitizer with the specified sensitive field names.
// If no fields are provided, a default set of common sensitive field names is used.
func NewSanitizer(sensitiveFields []string) *Sanitizer {
	if len(sensitiveFields) == 0 {
		sensitiveFields = []string{
			"password", "passwd", "pwd",
			"token", "api_key", "apikey", "api_token",
			"secret", "auth", "authorization",
			"credit_card", "card_number", "cvv", "cvc",
			"ssn", "social_security",
			"private_key", "priv_key",
		}
	}

	s := &Sanitizer{
		sensitive: make(map[string]struct{}, len(sensitiveFields)),
		patterns:  make([]*regexp.Regexp, 0, len(sensitiveFields)),
		maskValue: DefaultMask,
	}
	for _, field := range sensitiveFields {
		field = strings.ToLower(field)
		s.sensitive[field] = struct{}{}
		s.patterns = append(s.patterns, regexp.MustCompile(`\b`+regexp.QuoteMeta(field)+`\b`))
	}
	return s
}

// IsSensitive reports whether a column name is configured as sensitive.
// Qualified names ("u.password") are matched on their last part.
func (s *Sanitizer) IsSensitive(column string) bool {
	if i := strings.LastIndexByte(column, '.'); i >= 0 {
		column = column[i+1:]
	}
	_, ok := s.sensitive[strings.ToLower(column)]
	return ok
}

// Mask returns a copy of params with sensitive values replaced. columns, when
// non-empty, names the column bound by each leading parameter; the remaining
// parameters (WHERE arguments) fall back to MaskParams.
// Original parameters are not modified.
func (s *Sanitizer) Mask(sql string, columns []string, params []interface{}) []interface{} {
	if len(columns) == 0 {
		return s.MaskParams(sql, params)
	}

	masked := make([]interface{}, len(params))
	copy(masked, params)
	for i, col := range columns {
		if i < len(masked) && s.IsSensitive(col) {
			masked[i] = s.maskValue
		}
	}

	if len(columns) < len(params) {
		tail := s.MaskParams(sql, params[len(columns):])
		copy(masked[len(columns):], tail)
	}
	return masked
}

// MaskParams masks every parameter when the SQL mentions a sensitive field name.
// It returns a new slice when masking happens and the original slice otherwise.
func (s *Sanitizer) MaskParams(sql string, params []interface{}) []interface{} {
	if len(params) == 0 || !s.mentionsSensitive(sql) {
		return params
	}

	masked := make([]interface{}, len(params))
	for i := range params {
		masked[i] = s.maskValue
	}
	return masked
}

// mentionsSensitive checks if SQL contains any sensitive field patterns.
func (s *Sanitizer) mentionsSensitive(sql string) bool {
	lower := strings.ToLower(sql)
	for _, pattern := range s.patterns {
		if pattern.MatchString(lower) {
			return true
		}
	}
	return false
}

// FormatParams converts parameters to a safe string representation for logging.
// Sensitive values should be masked before calling this.
func (s *Sanitizer) FormatParams(params []interface{}) string {
	if len(params) == 0 {
		return "[]"
	}

	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = formatValue(p)
	}

	return "[" + strings.Join(parts, ", ") + "]"
}

// formatValue formats a single parameter value for logging.
// Truncates very long strings to prevent log pollution.
func formatValue(v interface{}) string {
	if v == nil {
		return "NULL"
	}

	str := fmt.Sprintf("%v", v)

	const maxLen = 100
	if len(str) > maxLen {
		return str[:maxLen] + "..."
	}

	return str
}
