// internal/bridge/value.go
package bridge

import (
	"fmt"
	"math"
	"strconv"
)

// Kind identifies the primitive type carried by a Value.
type Kind int

const (
	KindString Kind = iota
	KindBool
	KindInt
	KindFloat
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Value is a loosely typed argument. Raw always holds the text the value was
// produced from, so a handler declaring a string parameter can recover it
// regardless of how the text was coerced.
type Value struct {
	Kind Kind
	Raw  string

	b bool
	i int
	f float64
}

// StringValue wraps s without coercion.
func StringValue(s string) Value { return Value{Kind: KindString, Raw: s} }

// BoolValue wraps b.
func BoolValue(b bool) Value { return Value{Kind: KindBool, Raw: strconv.FormatBool(b), b: b} }

// IntValue wraps i.
func IntValue(i int) Value { return Value{Kind: KindInt, Raw: strconv.Itoa(i), i: i} }

// FloatValue wraps f.
func FloatValue(f float64) Value {
	return Value{Kind: KindFloat, Raw: strconv.FormatFloat(f, 'g', -1, 64), f: f}
}

// Coerce converts raw text into a Value by trial parsing: the exact literals
// "true" and "false" become booleans, base-10 integers that fit in 32 bits
// become ints, anything else float-parsable becomes a float, and the rest
// stays a string. Float parsing follows strconv, so "inf", "NaN" and hex
// floats are floats while suffixed literals such as "1f" stay strings.
func Coerce(raw string) Value {
	if raw == "true" || raw == "false" {
		return Value{Kind: KindBool, Raw: raw, b: raw == "true"}
	}
	if i, err := strconv.ParseInt(raw, 10, 32); err == nil {
		return Value{Kind: KindInt, Raw: raw, i: int(i)}
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return Value{Kind: KindFloat, Raw: raw, f: f}
	}
	return StringValue(raw)
}

// CoerceAll applies Coerce to every element of raw.
func CoerceAll(raw []string) []Value {
	out := make([]Value, len(raw))
	for i, r := range raw {
		out[i] = Coerce(r)
	}
	return out
}

// Bool returns the boolean payload; false for other kinds.
func (v Value) Bool() bool { return v.Kind == KindBool && v.b }

// Int returns the integer payload. Floats are truncated; other kinds yield 0.
func (v Value) Int() int {
	switch v.Kind {
	case KindInt:
		return v.i
	case KindFloat:
		return int(v.f)
	}
	return 0
}

// Float returns the numeric payload as a float64; 0 for non-numeric kinds.
func (v Value) Float() float64 {
	switch v.Kind {
	case KindInt:
		return float64(v.i)
	case KindFloat:
		return v.f
	}
	return 0
}

// String returns the raw text of the value.
func (v Value) String() string { return v.Raw }

// Interface returns the payload as a native Go value (bool, int, float64 or string).
func (v Value) Interface() any {
	switch v.Kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	default:
		return v.Raw
	}
}

// As decodes v against a declared parameter kind. A string parameter accepts
// any value through its raw text and a float parameter accepts ints; bool and
// int parameters need an exact match.
func (v Value) As(want Kind) (Value, error) {
	if v.Kind == want {
		return v, nil
	}
	switch want {
	case KindString:
		return StringValue(v.Raw), nil
	case KindFloat:
		if v.Kind == KindInt {
			return Value{Kind: KindFloat, Raw: v.Raw, f: float64(v.i)}, nil
		}
	}
	return Value{}, fmt.Errorf("cannot use %s value %q as %s", v.Kind, v.Raw, want)
}

// valueFromJSON maps a decoded JSON scalar onto a Value. Whole numbers that
// fit in 32 bits become ints; strings are coerced like fragment arguments.
func valueFromJSON(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return StringValue(""), nil
	case bool:
		return BoolValue(t), nil
	case float64:
		if t == math.Trunc(t) && t >= math.MinInt32 && t <= math.MaxInt32 {
			return IntValue(int(t)), nil
		}
		return FloatValue(t), nil
	case string:
		return Coerce(t), nil
	default:
		return Value{}, fmt.Errorf("unsupported argument type %T", x)
	}
}

// Args is the decoded argument list handed to a Handler. Accessors return the
// zero value for out-of-range indexes.
type Args []Value

func (a Args) at(i int) Value {
	if i < 0 || i >= len(a) {
		return Value{}
	}
	return a[i]
}

// String returns the raw text of argument i.
func (a Args) String(i int) string { return a.at(i).String() }

// Int returns argument i as an int.
func (a Args) Int(i int) int { return a.at(i).Int() }

// Float returns argument i as a float64.
func (a Args) Float(i int) float64 { return a.at(i).Float() }

// Bool returns argument i as a bool.
func (a Args) Bool(i int) bool { return a.at(i).Bool() }
