package errors

import (
	"errors"
	"fmt"
	"strings"
)

type ErrorType string

func (s ErrorType) String() string {
	return strings.ToLower(string(s))
}

const (
	ErrInternalError   ErrorType = "Internal Error"
	ErrNotFound        ErrorType = "Not Found"
	ErrAlreadyExists   ErrorType = "Already Exists"
	ErrInvalidArgument ErrorType = "Invalid Argument"
	ErrFailedPrecond   ErrorType = "Failed Precondition"
	ErrPermission      ErrorType = "Permission Denied"
)

// DomainError carries the failed entity along with the failure class so
// callers can branch on the class without string matching.
type DomainError struct {
	ErrorType  ErrorType
	Entity     string
	Message    string
	WrappedErr error
}

func NotFound(entity, msg string) *DomainError {
	return &DomainError{ErrorType: ErrNotFound, Entity: entity, Message: msg}
}

func AlreadyExists(entity, msg string) *DomainError {
	return &DomainError{ErrorType: ErrAlreadyExists, Entity: entity, Message: msg}
}

func InvalidArgument(entity, msg string) *DomainError {
	return &DomainError{ErrorType: ErrInvalidArgument, Entity: entity, Message: msg}
}

func FailedPrecondition(entity, msg string) *DomainError {
	return &DomainError{ErrorType: ErrFailedPrecond, Entity: entity, Message: msg}
}

func PermissionDenied(entity, msg string) *DomainError {
	return &DomainError{ErrorType: ErrPermission, Entity: entity, Message: msg}
}

func InternalError(entity, msg string, err error) *DomainError {
	return &DomainError{ErrorType: ErrInternalError, Entity: entity, Message: msg, WrappedErr: err}
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s for entity %s: %s", e.ErrorType.String(), e.Entity, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.WrappedErr
}

func IsErrorType(err error, errType ErrorType) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.ErrorType == errType
	}
	return false
}

func IsNotFound(err error) bool {
	return IsErrorType(err, ErrNotFound)
}

func IsAlreadyExists(err error) bool {
	return IsErrorType(err, ErrAlreadyExists)
}

// As is re-exported so callers branching on error class do not need a second
// errors import.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func New(msg string) error {
	return errors.New(msg)
}
