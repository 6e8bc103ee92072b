// Package validation collects per-field input errors so handlers can
// report every problem with a request at once.
package validation

import (
	"errors"
	"net/mail"
	"sort"
	"strings"
)

// Errors maps a field name to a human-readable problem.
type Errors map[string]string

// Add records a problem for field, keeping the first one reported.
func (e Errors) Add(field, message string) {
	if _, exists := e[field]; !exists {
		e[field] = message
	}
}

// Required records a problem when value is blank.
func (e Errors) Required(field, value string) {
	if strings.TrimSpace(value) == "" {
		e.Add(field, field+" is required")
	}
}

// Email records a problem when value is not a plain address.
func (e Errors) Email(field, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		e.Add(field, field+" is required")
		return
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value || len(value) > 254 {
		e.Add(field, "invalid email format")
	}
}

// Err returns nil when nothing was recorded.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// As extracts Errors from an error chain.
func As(err error) (Errors, bool) {
	var ve Errors
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// Single builds an error for one field.
func Single(field, message string) error {
	return Errors{field: message}
}
