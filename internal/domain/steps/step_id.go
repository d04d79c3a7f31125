package steps

import (
	"errors"
	"regexp"
	"strings"
)

// ID uniquely identifies a step, e.g. "devenv" or "fonts".
type ID struct {
	value string
}

// Errors for ID validation.
var (
	ErrEmptyID   = errors.New("step ID cannot be empty")
	ErrInvalidID = errors.New("step ID must be lowercase alphanumeric with hyphens")
)

var idPattern = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

// NewID creates an ID from a string.
func NewID(value string) (ID, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ID{}, ErrEmptyID
	}
	if !idPattern.MatchString(trimmed) {
		return ID{}, ErrInvalidID
	}
	return ID{value: trimmed}, nil
}

// MustID creates an ID, panicking on error. Use for compile-time
// known values.
func MustID(value string) ID {
	id, err := NewID(value)
	if err != nil {
		panic("invalid step ID: " + value + ": " + err.Error())
	}
	return id
}

// String returns the string representation.
func (id ID) String() string {
	return id.value
}

// IsZero reports whether this is the zero ID.
func (id ID) IsZero() bool {
	return id.value == ""
}
