// Package kv provides validated Key and Value types shared by the storage
// engine and the wire protocol. Both are immutable once constructed.
package kv

import "fmt"

// MaxKeyBytes is the largest key accepted by NewKey.
const MaxKeyBytes = 1024

// Key is a validated, immutable byte string used to address a Value.
// Equality is byte equality; the zero value is the empty key, the same Key
// NewKey("") returns.
type Key struct {
	s string
}

// NewKey validates s and returns a Key, or a *KeyTooLargeError if s exceeds
// MaxKeyBytes.
func NewKey(s string) (Key, error) {
	if len(s) > MaxKeyBytes {
		return Key{}, &KeyTooLargeError{Key: s, Max: MaxKeyBytes}
	}
	return Key{s: s}, nil
}

// String returns the key's underlying string.
func (k Key) String() string { return k.s }

// Equal reports whether two keys are byte-equal.
func (k Key) Equal(other Key) bool { return k.s == other.s }

// KeyTooLargeError is returned by NewKey when a key exceeds MaxKeyBytes.
type KeyTooLargeError struct {
	Key string
	Max int
}

func (e *KeyTooLargeError) Error() string {
	return fmt.Sprintf("kv: key too large: %d bytes (max %d)", len(e.Key), e.Max)
}
