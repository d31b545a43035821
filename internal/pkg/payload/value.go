// Package payload models decoded message payloads as a closed set of value
// kinds so that walks over nested data switch on a known variant instead of
// inspecting untyped interfaces.
package payload

import (
	"math"
	"strconv"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is one decoded payload node. The implementations are Null, Bool,
// Number, String, Array and *Object; no other type satisfies the interface.
type Value interface {
	Kind() Kind
	// Truthy reports whether the value counts as non-empty for display:
	// false, null, zero, NaN and "" are empty, everything else is not.
	Truthy() bool
	// Text renders the value for display and substring search. Scalars render
	// bare, arrays and objects render as compact JSON.
	Text() string
	// AppendJSON appends the JSON encoding of the value to dst.
	AppendJSON(dst []byte) []byte

	value() // marker method
}

// Null is the JSON null.
type Null struct{}

func (Null) Kind() Kind                   { return KindNull }
func (Null) Truthy() bool                 { return false }
func (Null) Text() string                 { return "null" }
func (Null) AppendJSON(dst []byte) []byte { return append(dst, "null"...) }
func (Null) MarshalJSON() ([]byte, error) { return []byte("null"), nil }
func (Null) value()                       {}

// Bool is a JSON boolean.
type Bool bool

func (Bool) Kind() Kind     { return KindBool }
func (b Bool) Truthy() bool { return bool(b) }
func (b Bool) Text() string { return strconv.FormatBool(bool(b)) }
func (b Bool) AppendJSON(dst []byte) []byte {
	return strconv.AppendBool(dst, bool(b))
}
func (Bool) value() {}

// Number is a JSON number. The literal is kept so that large integers and
// exact decimal spellings survive a round trip.
type Number struct {
	f   float64
	lit string
}

// NewNumber builds a Number from a float.
func NewNumber(f float64) Number {
	return Number{f: f, lit: strconv.FormatFloat(f, 'f', -1, 64)}
}

// Int builds a Number from an integer.
func Int(i int64) Number {
	return Number{f: float64(i), lit: strconv.FormatInt(i, 10)}
}

func numberFromLiteral(lit string) (Number, error) {
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return Number{}, err
	}
	return Number{f: f, lit: lit}, nil
}

func (Number) Kind() Kind         { return KindNumber }
func (n Number) Float64() float64 { return n.f }
func (n Number) Truthy() bool     { return n.f != 0 && !math.IsNaN(n.f) }
func (n Number) Text() string     { return n.literal() }
func (n Number) MarshalJSON() ([]byte, error) {
	return []byte(n.literal()), nil
}
func (n Number) AppendJSON(dst []byte) []byte { return append(dst, n.literal()...) }
func (Number) value()                         {}

func (n Number) literal() string {
	if n.lit == "" {
		return strconv.FormatFloat(n.f, 'f', -1, 64)
	}
	return n.lit
}

// String is a JSON string.
type String string

func (String) Kind() Kind     { return KindString }
func (s String) Truthy() bool { return s != "" }
func (s String) Text() string { return string(s) }
func (s String) AppendJSON(dst []byte) []byte {
	return appendJSON(dst, s)
}
func (String) value() {}

// Array is a JSON array. Arrays are leaves for column discovery.
type Array []Value

func (Array) Kind() Kind   { return KindArray }
func (Array) Truthy() bool { return true }
func (a Array) Text() string {
	return string(a.AppendJSON(nil))
}
func (a Array) AppendJSON(dst []byte) []byte { return appendJSON(dst, a) }
func (a Array) MarshalJSON() ([]byte, error) { return a.AppendJSON(nil), nil }
func (Array) value()                         {}
