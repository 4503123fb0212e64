package service

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound means the referenced task or category does not exist for
// the acting owner. Storage backends translate their own missing-row
// errors into this one.
var ErrNotFound = errors.New("not found")

// ErrInvalidOwnership means a referenced resource exists but belongs
// to a different user, or a category id could not be resolved within
// the acting user's scope. Callers map it to an authorization-style
// response rather than plain validation.
var ErrInvalidOwnership = errors.New("resource does not belong to user")

// ValidationError describes one rejected input field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors aggregates field-level problems for one operation.
// The operation is never partially applied when these are returned.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	parts := make([]string, len(e))
	for i, v := range e {
		parts[i] = v.Error()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationErrors) add(field, message string) {
	*e = append(*e, ValidationError{Field: field, Message: message})
}

func (e ValidationErrors) orNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// AsValidationErrors unwraps err into ValidationErrors if possible.
func AsValidationErrors(err error) (ValidationErrors, bool) {
	var verrs ValidationErrors
	if errors.As(err, &verrs) {
		return verrs, true
	}
	return nil, false
}
