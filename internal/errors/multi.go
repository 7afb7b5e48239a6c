package errors

import (
	"errors"
	"strings"
)

type MultiError struct {
	msg    string
	errors []error
}

func NewMultiError(msg string) *MultiError {
	return &MultiError{msg: msg}
}

func (m *MultiError) Append(err error) {
	if err != nil {
		m.errors = append(m.errors, err)
	}
}

// ErrorOrNil collapses an empty MultiError to nil so callers can return it
// directly.
func (m *MultiError) ErrorOrNil() error {
	if m == nil || len(m.errors) == 0 {
		return nil
	}
	return m
}

func IsEmptyError(err error) bool {
	var me *MultiError
	if errors.As(err, &me) {
		return len(me.errors) == 0
	}
	return false
}

func (m *MultiError) Error() string {
	parts := make([]string, 0, len(m.errors))
	for _, err := range m.errors {
		parts = append(parts, err.Error())
	}
	return m.msg + ": " + strings.Join(parts, "; ")
}
