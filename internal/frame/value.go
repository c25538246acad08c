package frame

import (
	"strconv"
	"time"
)

// Kind identifies the semantic type carried by a Value.
type Kind int

const (
	KindMissing Kind = iota
	KindString
	KindInt
	KindFloat
	KindDate
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "integer"
	case KindFloat:
		return "float"
	case KindDate:
		return "date"
	case KindBool:
		return "boolean"
	default:
		return "missing"
	}
}

// ParseKind maps a dtype name from the source manifest to a Kind.
// Unknown names fall back to string, which passes values through untouched.
func ParseKind(name string) Kind {
	switch name {
	case "integer", "int":
		return KindInt
	case "float", "number":
		return KindFloat
	case "date":
		return KindDate
	case "boolean", "bool":
		return KindBool
	default:
		return KindString
	}
}

// DateLayout is the single date representation used across cleaned tables.
const DateLayout = "2006-01-02"

// Value is one cell of a table: a tagged union over the supported
// semantic types, with an explicit missing state.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
	t    time.Time
	b    bool
}

// Missing returns the explicit "not available" value.
func Missing() Value { return Value{} }

func String(s string) Value  { return Value{kind: KindString, s: s} }
func Int(i int64) Value      { return Value{kind: KindInt, i: i} }
func Float(f float64) Value  { return Value{kind: KindFloat, f: f} }
func Date(t time.Time) Value { return Value{kind: KindDate, t: t} }
func Bool(b bool) Value      { return Value{kind: KindBool, b: b} }

func (v Value) Kind() Kind      { return v.kind }
func (v Value) IsMissing() bool { return v.kind == KindMissing }

func (v Value) Str() string      { return v.s }
func (v Value) Int() int64       { return v.i }
func (v Value) Float() float64   { return v.f }
func (v Value) Date() time.Time  { return v.t }
func (v Value) Bool() bool       { return v.b }

// AsFloat returns the numeric value for int and float kinds.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	default:
		return 0, false
	}
}

// Render formats the value as a CSV cell. Missing renders as the empty
// string, floats with minimal digits, dates as DateLayout.
func (v Value) Render() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindDate:
		return v.t.Format(DateLayout)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

// Equal reports whether two values have the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.s == o.s
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindDate:
		return v.t.Equal(o.t)
	case KindBool:
		return v.b == o.b
	default:
		return true
	}
}
