package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValueNotAllowed is returned when a value is outside a level's allow-list.
	ErrValueNotAllowed = errors.New("value not allowed")
	// ErrRelevanceOutOfRange is returned when a relevance falls outside the configured range.
	ErrRelevanceOutOfRange = errors.New("relevance out of range")
	// ErrDuplicateTagging signals a tagging insert that hit the uniqueness
	// constraint. It indicates a reconciliation bug and is not recoverable.
	ErrDuplicateTagging = errors.New("duplicate tagging")
)

// ValidationError is a field-level failure for one tag value.
type ValidationError struct {
	Field   string
	Value   string
	Allowed []string
	Err     error
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %q: %v", e.Field, e.Value, e.Err)
	if len(e.Allowed) > 0 {
		fmt.Fprintf(&b, " (allowed: %s)", strings.Join(e.Allowed, ", "))
	}
	return b.String()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ValidationErrors collects every rejected value of a save.
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, v := range e {
		msgs[i] = v.Error()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e ValidationErrors) Unwrap() []error {
	out := make([]error, len(e))
	for i, v := range e {
		out[i] = v
	}
	return out
}
