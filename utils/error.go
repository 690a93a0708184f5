package utils

import (
	"errors"
	"fmt"
)

var ErrorRecordNotFound = errors.New("record not found")

// ErrorKind classifies workflow failures so the transport layer can map
// them to response codes without parsing messages.
type ErrorKind string

const (
	ErrorKindNotFound   ErrorKind = "NOT_FOUND"
	ErrorKindConflict   ErrorKind = "CONFLICT"
	ErrorKindForbidden  ErrorKind = "FORBIDDEN"
	ErrorKindBadRequest ErrorKind = "BAD_REQUEST"
	ErrorKindInternal   ErrorKind = "INTERNAL"
)

type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFoundError(message string) error {
	return &AppError{Kind: ErrorKindNotFound, Message: message}
}

func ConflictError(message string) error {
	return &AppError{Kind: ErrorKindConflict, Message: message}
}

func ForbiddenError(message string) error {
	return &AppError{Kind: ErrorKindForbidden, Message: message}
}

func BadRequestError(message string) error {
	return &AppError{Kind: ErrorKindBadRequest, Message: message}
}

// InternalError marks an invariant violation. Callers must log it with
// full context before surfacing; it is never expected in correct operation.
func InternalError(message string, err error) error {
	return &AppError{Kind: ErrorKindInternal, Message: message, Err: err}
}

// KindOf resolves the classification of any error. Unclassified errors
// (driver failures, context cancellations) count as internal.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	if errors.Is(err, ErrorRecordNotFound) {
		return ErrorKindNotFound
	}
	return ErrorKindInternal
}
