// Package validation checks project snapshots before they reach the wiring
// resolver, reports structural problems in flow graphs and offers HTTP
// middleware that validates JSON request bodies.
package validation

import (
	"fmt"
	"strings"
)

// Validator is implemented by types with their own invariants.
type Validator interface {
	Validate() error
}

// ValidationError represents a validation error with details
type ValidationError struct {
	Field   string `json:"field"`
	Value   any    `json:"value"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors represents multiple validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

func (e *ValidationErrors) add(field string, value any, format string, args ...any) {
	*e = append(*e, ValidationError{Field: field, Value: value, Message: fmt.Sprintf(format, args...)})
}

// orNil returns nil for an empty list so callers can test err != nil.
func (e ValidationErrors) orNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}
