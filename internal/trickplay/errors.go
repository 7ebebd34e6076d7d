package trickplay

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure so the trigger layer can distinguish
// malformed input (client-class) from infrastructure failures (server-class)
// without inspecting stage internals.
type Kind string

const (
	KindStorage      Kind = "storage"
	KindSampler      Kind = "sampler"
	KindManifest     Kind = "manifest"
	KindInvalidation Kind = "invalidation"
	KindConfig       Kind = "config"
	KindValidation   Kind = "validation"
)

// Error is the single error type raised at stage boundaries. Op names the
// failing operation; Err carries the underlying cause for unwrapping.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// E wraps err as a kind-tagged stage error. If err is already an *Error its
// kind is preserved, so inner tags survive boundary re-wrapping.
func E(kind Kind, op string, err error) error {
	var inner *Error
	if errors.As(err, &inner) {
		kind = inner.Kind
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf creates a new kind-tagged error from a format string.
func Errorf(kind Kind, op, format string, args ...interface{}) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of err, or "" when err carries no stage tag.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsClientError reports whether err is a malformed-input failure that should
// be reported as a client-class outcome rather than retried.
func IsClientError(err error) bool {
	return KindOf(err) == KindValidation
}
