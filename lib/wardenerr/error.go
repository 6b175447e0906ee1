// Copyright 2026 The Logwarden Authors
// SPDX-License-Identifier: Apache-2.0

// Package wardenerr provides the typed error taxonomy shared by every
// collection component. Each error carries an HTTP-shaped status code
// so the (out-of-scope) route layer can surface it directly, and so a
// batch run can record a per-item status without inspecting error
// strings.
package wardenerr

import (
	"errors"
	"fmt"
)

// Status codes for the error taxonomy. These mirror HTTP semantics
// because the service boundary speaks HTTP, but the pipeline itself
// never imports net/http for them.
const (
	StatusValidation      = 400
	StatusForbidden       = 403
	StatusPayloadTooLarge = 413
	StatusInternal        = 500
	StatusUpstream        = 502
	StatusConfig          = 503
	StatusTimeout         = 504
)

// Error is a typed pipeline error with an HTTP-shaped status.
type Error struct {
	// Status is one of the Status* constants.
	Status int

	// Message describes the failure for the caller. It must not leak
	// information the caller is not entitled to (e.g. whether a
	// non-allowlisted path exists).
	Message string

	// Err is the wrapped cause, if any.
	Err error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("[%d] %s", e.Status, e.Message)
	}
	return fmt.Sprintf("[%d] %s: %v", e.Status, e.Message, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error { return e.Err }

// Validation reports a malformed request: bad shape, bad time range,
// an unscoped query without opt-in, or a window exceeding its cap.
func Validation(format string, args ...any) *Error {
	return &Error{Status: StatusValidation, Message: fmt.Sprintf(format, args...)}
}

// Forbidden reports a path or label outside the allowlist.
func Forbidden(format string, args ...any) *Error {
	return &Error{Status: StatusForbidden, Message: fmt.Sprintf(format, args...)}
}

// PayloadTooLarge reports command or file output exceeding its byte cap.
func PayloadTooLarge(format string, args ...any) *Error {
	return &Error{Status: StatusPayloadTooLarge, Message: fmt.Sprintf(format, args...)}
}

// Internal reports a spawn failure or an unexpected condition.
func Internal(message string, err error) *Error {
	return &Error{Status: StatusInternal, Message: message, Err: err}
}

// Upstream reports a non-zero process exit or a non-2xx/malformed
// upstream response.
func Upstream(message string, err error) *Error {
	return &Error{Status: StatusUpstream, Message: message, Err: err}
}

// Config reports a missing or invalid rules/configuration document
// discovered at load time. Distinct from a caller error: the service
// cannot safely serve queries at all.
func Config(message string, err error) *Error {
	return &Error{Status: StatusConfig, Message: message, Err: err}
}

// Timeout reports a process or upstream call exceeding its deadline.
func Timeout(format string, args ...any) *Error {
	return &Error{Status: StatusTimeout, Message: fmt.Sprintf(format, args...)}
}

// StatusOf extracts the status code from an error chain. Unrecognized
// errors map to StatusInternal.
func StatusOf(err error) int {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Status
	}
	return StatusInternal
}
