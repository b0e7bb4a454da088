package kv

import "fmt"

// MaxValueBytes is the largest value accepted by NewValue.
const MaxValueBytes = 10 * 1024 * 1024

// Value is a validated, immutable byte sequence. The zero Value (via
// Value{}) is not meaningful on its own — the "absent or tombstoned"
// sentinel is an OptionalValue built with None, not an empty Value; see
// OptionalValue below.
type Value struct {
	b []byte
}

// NewValue validates b and returns a Value, or a *ValueTooLargeError if b
// exceeds MaxValueBytes. An empty, non-nil b is a valid (zero-length) Value.
func NewValue(b []byte) (Value, error) {
	if len(b) > MaxValueBytes {
		return Value{}, &ValueTooLargeError{Max: MaxValueBytes, Len: len(b)}
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	return Value{b: cp}, nil
}

// Bytes returns the value's underlying bytes. Callers must not mutate the
// returned slice.
func (v Value) Bytes() []byte { return v.b }

// Len returns the length of the value in bytes.
func (v Value) Len() int { return len(v.b) }

// OptionalValue is either a present Value (Some) or None, which represents
// "absent or tombstoned" on the wire and in replies. None is distinct from
// a zero-length Value: a key can map to an empty-but-present Value, and
// separately can be wholly absent (None).
type OptionalValue struct {
	value Value
	some  bool
}

// Some wraps v as a present OptionalValue.
func Some(v Value) OptionalValue { return OptionalValue{value: v, some: true} }

// None is the absent/tombstoned sentinel.
func None() OptionalValue { return OptionalValue{} }

// IsSome reports whether the OptionalValue carries a Value.
func (o OptionalValue) IsSome() bool { return o.some }

// Value returns the wrapped Value and true, or the zero Value and false.
func (o OptionalValue) Value() (Value, bool) { return o.value, o.some }

// ValueTooLargeError is returned by NewValue when a value exceeds
// MaxValueBytes.
type ValueTooLargeError struct {
	Max int
	Len int
}

func (e *ValueTooLargeError) Error() string {
	return fmt.Sprintf("kv: value too large: %d bytes (max %d)", e.Len, e.Max)
}
