package decorate

import (
	"fmt"
	"strings"
)

// FieldError reports a single flat field that blocked transformation, named
// by its legacy CSV header.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return e.Message
}

// DecoratorError accumulates the field errors one decorator produced.
// Decorators return it instead of failing fast so a row reports every
// problem at once.
type DecoratorError struct {
	Decorator string
	Fields    []FieldError
}

func (e *DecoratorError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return e.Decorator + ": " + strings.Join(msgs, "; ")
}

// RowError aggregates the decorator errors of one row. It marks a
// data-quality failure: the row's values could not be transformed.
type RowError struct {
	Errors []*DecoratorError
}

func (e *RowError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, d := range e.Errors {
		msgs[i] = d.Error()
	}
	return "row could not be transformed: " + strings.Join(msgs, "; ")
}

// FieldErrors flattens every field error in the row.
func (e *RowError) FieldErrors() []FieldError {
	var out []FieldError
	for _, d := range e.Errors {
		out = append(out, d.Fields...)
	}
	return out
}

// UnhandledError marks a decorator that panicked. Decorators must not panic
// on any input, so this is a bug or an unexpected batch layout, never a
// data-quality problem with the row.
type UnhandledError struct {
	Decorator string
	Cause     any
}

func (e *UnhandledError) Error() string {
	return fmt.Sprintf("decorator %s failed unexpectedly: %v", e.Decorator, e.Cause)
}
