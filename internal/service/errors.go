// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"errors"
)

// Kind classifies a workflow failure. Its value is the machine-readable
// code sent to clients.
type Kind string

// Failure kinds.
const (
	KindMissingFields      Kind = "missing_fields"
	KindDuplicateLogin     Kind = "duplicate_login"
	KindInvalidCredentials Kind = "invalid_credentials"
	KindNotFound           Kind = "not_found"
	KindNotVerified        Kind = "not_verified"
	KindUnauthorized       Kind = "unauthorized"
	KindForbidden          Kind = "forbidden"
	KindInvalidRequest     Kind = "invalid_request"
	KindMissingMainImage   Kind = "missing_main_image"
	KindUploadFailed       Kind = "upload_failed"
	KindInternal           Kind = "internal_error"
)

// DefaultMessage returns the user-facing message used when an Error has none.
func (k Kind) DefaultMessage() string {
	switch k {
	case KindMissingFields:
		return "Missing required fields"
	case KindDuplicateLogin:
		return "Login name is already taken"
	case KindInvalidCredentials:
		return "Invalid credentials."
	case KindNotFound:
		return "Author does not exist."
	case KindNotVerified:
		return "Your account has not been verified by an admin yet."
	case KindUnauthorized:
		return "Unauthorized"
	case KindForbidden:
		return "Forbidden"
	case KindInvalidRequest:
		return "Invalid request body"
	case KindMissingMainImage:
		return "Main image is required for new articles"
	case KindUploadFailed:
		return "File upload failed"
	default:
		return "An unexpected error occurred."
	}
}

// Error is a classified workflow failure. Err, when set, is the cause
// logged for operators and never shown to clients of internal failures.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.DefaultMessage()
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind, so the sentinels below work
// with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// PublicMessage returns the message safe to show to the client.
func (e *Error) PublicMessage() string {
	if e.Message == "" || e.Kind == KindInternal {
		return e.Kind.DefaultMessage()
	}
	return e.Message
}

// Sentinels for errors.Is checks.
var (
	ErrMissingFields      = &Error{Kind: KindMissingFields}
	ErrDuplicateLogin     = &Error{Kind: KindDuplicateLogin}
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrNotVerified        = &Error{Kind: KindNotVerified}
	ErrUnauthorized       = &Error{Kind: KindUnauthorized}
	ErrForbidden          = &Error{Kind: KindForbidden}
	ErrInvalidRequest     = &Error{Kind: KindInvalidRequest}
	ErrMissingMainImage   = &Error{Kind: KindMissingMainImage}
	ErrUploadFailed       = &Error{Kind: KindUploadFailed}
	ErrInternal           = &Error{Kind: KindInternal}
)

func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func wrapError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of err, KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// PublicMessage returns the client-facing message for err.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.PublicMessage()
	}
	return KindInternal.DefaultMessage()
}
