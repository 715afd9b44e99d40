// Package ferr defines the domain error taxonomy shared by every layer of
// fricon. Every failure that can cross a package boundary is wrapped in an
// *Error carrying one of the Code values below, so the RPC layer can map it
// onto a transport status without losing the underlying cause.
package ferr

import (
	"errors"
	"fmt"
)

// Code identifies one of the domain error kinds enumerated in the core
// specification. Callers should compare with errors.Is / Is(err, CodeX) or
// CodeOf, never by inspecting error strings.
type Code int

const (
	CodeUnknown Code = iota
	CodeInvalidWorkspace
	CodeWorkspaceLocked
	CodeMigrationMismatch
	CodeNotFound
	CodeInvalidToken
	CodeIllegalState
	CodeSchemaMismatch
	CodeNotReadable
	CodeConflict
	CodeStorage
	CodeTransport
)

func (c Code) String() string {
	switch c {
	case CodeInvalidWorkspace:
		return "InvalidWorkspace"
	case CodeWorkspaceLocked:
		return "WorkspaceLocked"
	case CodeMigrationMismatch:
		return "MigrationMismatch"
	case CodeNotFound:
		return "NotFound"
	case CodeInvalidToken:
		return "InvalidToken"
	case CodeIllegalState:
		return "IllegalState"
	case CodeSchemaMismatch:
		return "SchemaMismatch"
	case CodeNotReadable:
		return "NotReadable"
	case CodeConflict:
		return "Conflict"
	case CodeStorage:
		return "Storage"
	case CodeTransport:
		return "Transport"
	default:
		return "Unknown"
	}
}

// Error is the tagged result type used throughout fricon in place of
// exceptions: every function that can fail returns (T, error) where a
// non-nil error is either an *Error or something wrapping one.
type Error struct {
	Code   Code
	Reason string
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Reason, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Reason)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is allows errors.Is(err, ferr.CodeX) style sentinels by comparing codes
// through a zero-cause *Error.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// New builds an *Error with no wrapped cause.
func New(code Code, reason string) *Error {
	return &Error{Code: code, Reason: reason}
}

// Wrap builds an *Error around an existing cause.
func Wrap(code Code, reason string, cause error) *Error {
	return &Error{Code: code, Reason: reason, Cause: cause}
}

// Newf formats Reason like fmt.Sprintf.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Reason: fmt.Sprintf(format, args...)}
}

// Wrapf formats Reason like fmt.Sprintf around an existing cause.
func Wrapf(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Reason: fmt.Sprintf(format, args...), Cause: cause}
}

// CodeOf extracts the Code from err, returning CodeUnknown if err is nil or
// does not wrap a *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// Is reports whether err's chain contains an *Error of the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

// Sentinel instances for errors.Is comparisons against a bare code, e.g.
// errors.Is(err, ferr.ErrNotFound).
var (
	ErrInvalidWorkspace  = &Error{Code: CodeInvalidWorkspace}
	ErrWorkspaceLocked   = &Error{Code: CodeWorkspaceLocked}
	ErrMigrationMismatch = &Error{Code: CodeMigrationMismatch}
	ErrNotFound          = &Error{Code: CodeNotFound}
	ErrInvalidToken      = &Error{Code: CodeInvalidToken}
	ErrIllegalState      = &Error{Code: CodeIllegalState}
	ErrSchemaMismatch    = &Error{Code: CodeSchemaMismatch}
	ErrNotReadable       = &Error{Code: CodeNotReadable}
	ErrConflict          = &Error{Code: CodeConflict}
	ErrStorage           = &Error{Code: CodeStorage}
	ErrTransport         = &Error{Code: CodeTransport}
)
