package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline failures
type ErrorKind string

const (
	ErrFetch      ErrorKind = "fetch_error"
	ErrEmbedding  ErrorKind = "embedding_error"
	ErrCrawl      ErrorKind = "crawl_error"
	ErrNotFound   ErrorKind = "not_found"
	ErrValidation ErrorKind = "validation_error"
	ErrStore      ErrorKind = "store_error"
)

// Error is a typed pipeline error carrying the operation and the
// identifier it failed on. It is the only error shape that crosses the
// tool dispatcher boundary.
type Error struct {
	Kind    ErrorKind
	Op      string
	Subject string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Subject != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Subject)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E builds a typed error for the given operation and subject.
func E(kind ErrorKind, op, subject string, err error) *Error {
	return &Error{Kind: kind, Op: op, Subject: subject, Err: err}
}

// Errorf builds a typed error from a format string.
func Errorf(kind ErrorKind, op, subject, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Subject: subject, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the error kind, defaulting to StoreError for
// untyped failures so no raw error shape leaks to callers.
func KindOf(err error) ErrorKind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return ErrStore
}

// ErrorPayload is the serializable form of a typed error
type ErrorPayload struct {
	Kind    ErrorKind `json:"kind"`
	Op      string    `json:"op,omitempty"`
	Subject string    `json:"subject,omitempty"`
	Message string    `json:"message"`
}

// PayloadOf converts any error into its serializable form.
func PayloadOf(err error) *ErrorPayload {
	if err == nil {
		return nil
	}
	var te *Error
	if errors.As(err, &te) {
		msg := ""
		if te.Err != nil {
			msg = te.Err.Error()
		}
		return &ErrorPayload{Kind: te.Kind, Op: te.Op, Subject: te.Subject, Message: msg}
	}
	return &ErrorPayload{Kind: ErrStore, Message: err.Error()}
}
