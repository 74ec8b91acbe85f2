/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package backend

import (
	"errors"
	"fmt"
)

// Kind classifies a failed backend operation.
type Kind int

const (
	// KindValidation means required input was missing; nothing was sent.
	KindValidation Kind = iota + 1
	// KindServer means the backend answered with an error status or field.
	KindServer
	// KindTransport means the backend could not be reached or answered
	// with a malformed body.
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindServer:
		return "server"
	case KindTransport:
		return "transport"
	default:
		return "unknown"
	}
}

var (
	errUnreachable      = errors.New("could not reach server")
	errInvalidResponse  = errors.New("invalid response from server")
	errBaseURLRequired  = errors.New("backend base URL is required")
	errMissingPatientID = errors.New("response has no patient_id")
	errMissingEventID   = errors.New("response has no event_id")
	errNotADocument     = errors.New("response is not a document")
)

// Error is the only error type returned by Client methods. Message is
// meant to be shown to the user as is.
type Error struct {
	Op      string
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a backend error, or 0 for other errors.
func KindOf(err error) Kind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return 0
}

func validationError(op, message string) *Error {
	return &Error{Op: op, Kind: KindValidation, Message: message}
}

func serverError(op, fallback string, status int, serverMessage string) *Error {
	msg := serverMessage
	if msg == "" {
		msg = fmt.Sprintf("%s (status %d)", fallback, status)
	}
	return &Error{Op: op, Kind: KindServer, Status: status, Message: msg}
}

func transportError(op, fallback string, cause, err error) *Error {
	return &Error{
		Op:      op,
		Kind:    KindTransport,
		Message: fallback + ": " + cause.Error(),
		Err:     fmt.Errorf("%w: %w", cause, err),
	}
}
