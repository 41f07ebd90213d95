package service

import (
	"errors"
	"strings"
)

// ErrInternal marks failures that must reach clients only as a generic server error.
var ErrInternal = errors.New("internal error")

// FieldError describes one rejected request field.
type FieldError struct {
	Field   string `json:"loc"`
	Message string `json:"msg"`
}

// ValidationError collects every rejected field of a request.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "invalid request: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}
