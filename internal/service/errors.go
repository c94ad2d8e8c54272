package service

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Match them with errors.Is.
var (
	ErrValidation  = errors.New("validation failed")
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrTransaction = errors.New("transaction failed")
)

// Error carries a kind, the failing operation and a message safe to show to
// API callers. Fields holds per-field validation messages.
type Error struct {
	Kind    error
	Op      string
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := strings.TrimSpace(e.Message)
	if msg == "" && e.Kind != nil {
		msg = e.Kind.Error()
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, msg)
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

func validationError(op, format string, args ...interface{}) error {
	return &Error{Kind: ErrValidation, Op: op, Message: fmt.Sprintf(format, args...)}
}

func fieldError(op, field, message string) error {
	return &Error{
		Kind:    ErrValidation,
		Op:      op,
		Message: field + ": " + message,
		Fields:  map[string]string{field: message},
	}
}

func notFoundError(op, what string, id int64) error {
	return &Error{Kind: ErrNotFound, Op: op, Message: fmt.Sprintf("%s %d not found", what, id)}
}

func conflictError(op, message string, err error) error {
	return &Error{Kind: ErrConflict, Op: op, Message: message, Err: err}
}

// transactionError wraps a failure from inside a write transaction. Errors
// that already carry a kind pass through untouched.
func transactionError(op string, err error) error {
	if err == nil {
		return nil
	}
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return err
	}
	return &Error{Kind: ErrTransaction, Op: op, Message: err.Error(), Err: err}
}

// FieldsOf returns the per-field validation messages carried by err, if any
func FieldsOf(err error) map[string]string {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Fields
	}
	return nil
}

// MessageOf returns the caller-facing message of err
func MessageOf(err error) string {
	var svcErr *Error
	if errors.As(err, &svcErr) && svcErr.Message != "" {
		return svcErr.Message
	}
	return err.Error()
}
