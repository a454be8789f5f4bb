// Package salterr defines the tagged error kinds the orchestrator and CLI
// layers use to pick exit codes and recovery policy without parsing error
// strings.
package salterr

import (
	"errors"
	"fmt"
)

// Kind identifies the class of failure a command encountered.
type Kind string

const (
	ConfigNotFound          Kind = "ConfigNotFound"
	ConfigParseError        Kind = "ConfigParseError"
	SubmoduleNotFound       Kind = "SubmoduleNotFound"
	SubmoduleAlreadyExists  Kind = "SubmoduleAlreadyExists"
	PathAlreadyExists       Kind = "PathAlreadyExists"
	MissingArgument         Kind = "MissingArgument"
	SourceRepoNotFound      Kind = "SourceRepoNotFound"
	NoState                 Kind = "NoState"
	NoChanges               Kind = "NoChanges"
	UncommittedChanges      Kind = "UncommittedChanges"
	BranchMismatch          Kind = "BranchMismatch"
	MergeConflict           Kind = "MergeConflict"
	CloneFailed             Kind = "CloneFailed"
	CheckoutFailed          Kind = "CheckoutFailed"
	PullFailed              Kind = "PullFailed"
	PushFailed              Kind = "PushFailed"
	GitCommandFailed        Kind = "GitCommandFailed"
	Timeout                 Kind = "Timeout"
	IOError                 Kind = "IOError"
)

// Error is a Kind-tagged error that wraps an underlying cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Msg == "" {
			return fmt.Sprintf("%s: %v", e.Kind, e.Err)
		}
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a *Error with the same Kind, so callers can
// write errors.Is(err, salterr.New(salterr.NoChanges, "")) if they only
// care about the kind.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.Kind == e.Kind
	}
	return false
}

// New builds an *Error with no wrapped cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap tags err with kind, preserving it as the wrapped cause.
func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the Kind from err, defaulting to "" if err is not (or
// does not wrap) a *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err is (or wraps) a *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
