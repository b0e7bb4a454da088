// Package kvserr defines the error taxonomy shared across the storage
// engine, wire protocol, and server. Errors are plain values wrapped with
// fmt.Errorf/%w, matched with errors.Is/errors.As — no third-party error
// library is involved here: none of the surveyed repos pulls one in for
// this, and a handful of sentinel values plus wrapping covers the taxonomy
// spec.md §7 asks for.
package kvserr

import (
	"errors"
	"fmt"
)

// Sentinel errors for conditions with no associated data.
var (
	// ErrTimeout is returned when a read deadline elapses.
	ErrTimeout = errors.New("kvsd: timeout")
	// ErrConnectionReset is returned when a peer closes mid-frame.
	ErrConnectionReset = errors.New("kvsd: connection reset by peer")
	// ErrUnauthenticated is returned for a non-Authenticate message from an
	// Anonymous principal.
	ErrUnauthenticated = errors.New("kvsd: unauthenticated")
	// ErrUnauthorized is reserved for future authorization policy.
	ErrUnauthorized = errors.New("kvsd: unauthorized")
	// ErrIncomplete indicates a frame buffer does not yet hold a complete
	// MessageFrames; callers should read more and retry.
	ErrIncomplete = errors.New("kvsd: incomplete frame")
)

// KeyTooLargeError, ValueTooLargeError live in package kv (they are raised
// at construction time, closest to the data they validate).

// UnknownMessageTypeError is returned when the first frame of a
// MessageFrames carries an unrecognized type byte.
type UnknownMessageTypeError struct {
	Code byte
}

func (e *UnknownMessageTypeError) Error() string {
	return fmt.Sprintf("kvsd: unknown message type %d", e.Code)
}

// NetworkFramingError wraps a malformed-frame condition (missing
// delimiter, bad decimal, wrong frame kind for a slot).
type NetworkFramingError struct {
	Reason string
}

func (e *NetworkFramingError) Error() string {
	return fmt.Sprintf("kvsd: network framing: %s", e.Reason)
}

// EntryDecodeError wraps a malformed on-disk record (bad UTF-8 key, CRC
// mismatch, unknown state byte).
type EntryDecodeError struct {
	Reason string
}

func (e *EntryDecodeError) Error() string {
	return fmt.Sprintf("kvsd: entry decode: %s", e.Reason)
}

// TableNotFoundError is returned by the dispatcher when no actor is
// registered for the given namespace/table pair.
type TableNotFoundError struct {
	Namespace string
	Table     string
}

func (e *TableNotFoundError) Error() string {
	return fmt.Sprintf("kvsd: table not found: %s/%s", e.Namespace, e.Table)
}

// InternalError wraps bug-class failures such as a reply channel that
// could not be sent on.
type InternalError struct {
	Reason string
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("kvsd: internal: %s", e.Reason)
}
