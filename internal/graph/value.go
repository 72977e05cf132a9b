package graph

import (
	"slices"
	"unicode/utf16"
)

// Value is a sealed interface over the node kinds a dataset graph may
// contain. Only Null, String, Int, Float, Bool, Array, and Object
// implement it.
type Value interface {
	value() // Sealed - only these types implement it
}

// Null represents a JSON null. An explicit type keeps nil out of the
// graph entirely; a nil Value is always a bug.
type Null struct{}

func (Null) value() {}

// String represents a string scalar.
type String string

func (String) value() {}

// Int represents an integer scalar. Always int64.
type Int int64

func (Int) value() {}

// Float represents a floating-point scalar. JSON numbers with a
// fractional part or exponent decode as Float; everything else is Int.
type Float float64

func (Float) value() {}

// Bool represents a boolean scalar.
type Bool bool

func (Bool) value() {}

// Array represents an ordered sequence of values.
type Array []Value

func (Array) value() {}

// Object represents a string-keyed mapping of values. Whether an Object
// is a record (classified field by field) or a plain mapping is decided
// by the schema at traversal time, not here.
type Object map[string]Value

func (Object) value() {}

// IsScalar reports whether v is a leaf node (Null, String, Int, Float,
// or Bool). Only scalars are ever substituted.
func IsScalar(v Value) bool {
	switch v.(type) {
	case Null, String, Int, Float, Bool:
		return true
	default:
		return false
	}
}

// Kind returns a short name for the node kind, used in error messages.
func Kind(v Value) string {
	switch v.(type) {
	case Null:
		return "null"
	case String:
		return "string"
	case Int:
		return "int"
	case Float:
		return "float"
	case Bool:
		return "bool"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return "invalid"
	}
}

// SortedKeys returns the object's keys in UTF-16 code unit order
// (RFC 8785). Traversal and encoding both iterate in this order so that
// scrubbing the same input twice visits fields identically.
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysUTF16)
	return keys
}

// compareKeysUTF16 compares strings by UTF-16 code units as RFC 8785
// requires. Go's native string comparison is UTF-8 and orders
// differently once surrogate pairs are involved.
func compareKeysUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := min(len(a16), len(b16))
	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	if len(a16) < len(b16) {
		return -1
	}
	if len(a16) > len(b16) {
		return 1
	}
	return 0
}
