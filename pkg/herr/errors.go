// Package herr defines the error taxonomy shared by every HelixDB component.
//
// All errors the core surfaces carry a Kind so callers can branch on error
// category without string matching, while still composing with the standard
// errors.Is/errors.As machinery via Unwrap.
package herr

import (
	"errors"
	"fmt"
)

// Kind discriminates the category of a core error, per the error taxonomy
// in the on-disk specification (§7).
type Kind int

const (
	// KindStorage covers I/O, map-full, and corruption errors from the KV layer.
	KindStorage Kind = iota
	// KindNotFound covers missing nodes, edges, or vectors.
	KindNotFound
	// KindSchemaMismatch covers a value whose type conflicts with its declared field.
	KindSchemaMismatch
	// KindEndpointMissing covers an edge insert referencing a nonexistent endpoint.
	KindEndpointMissing
	// KindTraversalType covers a compile-time step-kind legality violation.
	KindTraversalType
	// KindParse covers HQL parser errors.
	KindParse
	// KindSemantic covers HQL semantic-analysis errors.
	KindSemantic
	// KindVectorIndex covers HNSW-specific failures (missing entry point, double delete, ...).
	KindVectorIndex
	// KindBM25 covers full-text index deserialization or missing-metadata failures.
	KindBM25
	// KindConflict covers writes against an already-committed or poisoned transaction.
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindStorage:
		return "Storage"
	case KindNotFound:
		return "NotFound"
	case KindSchemaMismatch:
		return "SchemaMismatch"
	case KindEndpointMissing:
		return "EndpointMissing"
	case KindTraversalType:
		return "TraversalTypeError"
	case KindParse:
		return "ParseError"
	case KindSemantic:
		return "SemanticError"
	case KindVectorIndex:
		return "VectorIndex"
	case KindBM25:
		return "BM25"
	case KindConflict:
		return "Conflict"
	default:
		return "Unknown"
	}
}

// Error is the wire error type for every core operation: a Kind plus a
// human-readable message and an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error with the same Kind, so callers can
// write errors.Is(err, herr.New(herr.KindNotFound, "")) sparingly, or more
// idiomatically use herr.KindOf.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.Kind == e.Kind
	}
	return false
}

// New constructs an Error of the given Kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an Error of the given Kind, wrapping cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf returns the Kind of err if it is (or wraps) an *Error, and false
// otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// Sentinel errors for the most common, comparable cases. Components may
// return these directly (wrapped with context via fmt.Errorf("%w: ...")) or
// construct a full *Error when a Kind is needed without an exact sentinel
// match.
var (
	ErrNotFound          = New(KindNotFound, "not found")
	ErrAlreadyExists     = New(KindConflict, "already exists")
	ErrEndpointMissing   = New(KindEndpointMissing, "edge endpoint does not exist")
	ErrEntryPointMissing = New(KindVectorIndex, "vector index has no entry point")
	ErrVectorDeleted     = New(KindVectorIndex, "vector already deleted")
	ErrTxnPoisoned       = New(KindConflict, "transaction already committed or discarded")
)
