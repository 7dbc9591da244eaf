package service

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrUnauthenticated means no user email is available.
	ErrUnauthenticated = errors.New("not logged in")

	// ErrInvalidTarget means a mutation was requested without a task.
	ErrInvalidTarget = errors.New("no task selected")

	// ErrInvalidStatus means a status value is empty or unknown.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrBusy means a create is already in flight; the new submit was dropped.
	ErrBusy = errors.New("create already in progress")
)

// ValidationError is a locally detected input problem.
// It never reaches the gateway.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// TransportError is a failed remote call: network, timeout, or non-2xx status.
type TransportError struct {
	Op         string
	StatusCode int    // 0 when no response was received
	Message    string // server-provided message, if any
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// AppError is a business failure reported with success=false.
type AppError struct {
	Op      string
	Message string
}

func (e *AppError) Error() string {
	return e.Message
}

// Fail builds an AppError from an unsuccessful response message,
// using fallback when the server sent none.
func Fail(op, message, fallback string) *AppError {
	if message == "" {
		message = fallback
	}
	return &AppError{Op: op, Message: message}
}

// Kind groups errors for exit codes and user messaging.
type Kind int

const (
	KindUnknown Kind = iota
	KindUnauthenticated
	KindValidation
	KindTransport
	KindApplication
	KindInvalidTarget
	KindBusy
)

// KindOf classifies err. Transport errors with status 401 count as
// unauthenticated.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var verr *ValidationError
	var terr *TransportError
	var aerr *AppError

	switch {
	case errors.Is(err, ErrUnauthenticated):
		return KindUnauthenticated
	case errors.Is(err, ErrInvalidTarget):
		return KindInvalidTarget
	case errors.Is(err, ErrBusy):
		return KindBusy
	case errors.Is(err, ErrInvalidStatus), errors.As(err, &verr):
		return KindValidation
	case errors.As(err, &terr):
		if terr.StatusCode == 401 {
			return KindUnauthenticated
		}
		return KindTransport
	case errors.As(err, &aerr):
		return KindApplication
	}
	return KindUnknown
}
