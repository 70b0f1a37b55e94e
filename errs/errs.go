// Package errs defines the error kinds shared across the zarr-go core.
//
// Every exported function in this module returns plain (T, error) pairs and
// wraps with fmt.Errorf and %w: a typed Kind is attached via Wrap/New so
// callers can errors.Is/errors.As against it, but the message chain stays
// human-readable.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure. Kinds are not Go types (there is one Error
// type); they are compared with errors.Is against the sentinel Kind values
// below.
type Kind int

const (
	// InvalidMetadata means the array/group JSON metadata failed schema
	// or consistency checks. Unrecoverable; surface to the caller.
	InvalidMetadata Kind = iota + 1
	// UnsupportedDataType means a data type registry lookup failed.
	UnsupportedDataType
	// UnsupportedCodec means a codec registry lookup failed.
	UnsupportedCodec
	// InvalidArraySubset means a subset's dimensionality mismatched the
	// array or the subset was out of bounds.
	InvalidArraySubset
	// InvalidBytesLength means a buffer length disagreed with the
	// expected element_count * element_size.
	InvalidBytesLength
	// InvalidChunkGridIndices means chunk indices were out of the grid.
	InvalidChunkGridIndices
	// CodecError means an encode/decode failure: truncated data,
	// checksum mismatch, or similar.
	CodecError
	// StorageError means a backend-specific I/O failure. Missing keys
	// are not StorageError; they are a nil result with a nil error.
	StorageError
	// Cancelled means an async operation was cancelled; no recovery.
	Cancelled
)

func (k Kind) String() string {
	switch k {
	case InvalidMetadata:
		return "invalid metadata"
	case UnsupportedDataType:
		return "unsupported data type"
	case UnsupportedCodec:
		return "unsupported codec"
	case InvalidArraySubset:
		return "invalid array subset"
	case InvalidBytesLength:
		return "invalid bytes length"
	case InvalidChunkGridIndices:
		return "invalid chunk grid indices"
	case CodecError:
		return "codec error"
	case StorageError:
		return "storage error"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown error"
	}
}

// Error pairs a Kind with an underlying cause so errors.Is(err, SomeKind)
// and errors.Unwrap keep working through fmt.Errorf("%w", ...) chains.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is allows errors.Is(err, errs.Is(SomeKind)), matching when the target is
// the kind-sentinel that errs.Is returns for e's Kind.
func (e *Error) Is(target error) bool {
	var k *kindSentinel
	if errors.As(target, &k) {
		return e.Kind == k.kind
	}
	return false
}

// New builds a *Error with no wrapped cause.
func New(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds a *Error wrapping an underlying error.
func Wrap(kind Kind, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

type kindSentinel struct{ kind Kind }

func (k *kindSentinel) Error() string { return k.kind.String() }

// sentinel returns a comparable target for errors.Is(err, errs.Is(Kind)).
func sentinel(k Kind) error { return &kindSentinel{kind: k} }

// Is returns a sentinel error usable with errors.Is to test an error's Kind:
//
//	if errors.Is(err, errs.Is(errs.StorageError)) { ... }
func Is(k Kind) error { return sentinel(k) }

// KindOf extracts the Kind from err if it (or something it wraps) is a
// *Error produced by this package; ok is false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
