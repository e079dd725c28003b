package descriptor

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Kind identifies the dynamic type held by a Value.
type Kind int

const (
	// KindInvalid is the zero Kind.
	KindInvalid Kind = iota

	// KindString holds a string.
	KindString

	// KindInt holds a signed integer.
	KindInt

	// KindBool holds a boolean.
	KindBool

	// KindOpaque holds any JSON-compatible value that is carried through
	// resolution untouched.
	KindOpaque
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	case KindOpaque:
		return "opaque"
	default:
		return "invalid"
	}
}

// Value is a scalar setting value. The zero Value is invalid.
type Value struct {
	kind   Kind
	str    string
	num    int64
	flag   bool
	opaque any
}

// String returns a string Value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Int returns an integer Value.
func Int(n int64) Value { return Value{kind: KindInt, num: n} }

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, flag: b} }

// Opaque wraps an arbitrary JSON-compatible value.
func Opaque(v any) Value { return Value{kind: KindOpaque, opaque: v} }

// FromInterface converts a decoded YAML/JSON value into a Value. Whole
// floating point numbers become integers.
func FromInterface(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Value{}, fmt.Errorf("null value")
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(int64(val)), nil
	case int64:
		return Int(val), nil
	case int32:
		return Int(int64(val)), nil
	case uint64:
		if val > math.MaxInt64 {
			return Value{}, fmt.Errorf("integer %d out of range", val)
		}
		return Int(int64(val)), nil
	case float64:
		if val == math.Trunc(val) && math.Abs(val) < 1<<53 {
			return Int(int64(val)), nil
		}
		return Opaque(val), nil
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return Int(n), nil
		}
		f, err := val.Float64()
		if err != nil {
			return Value{}, err
		}
		return Opaque(f), nil
	default:
		return Opaque(val), nil
	}
}

// Kind returns the dynamic kind.
func (v Value) Kind() Kind { return v.kind }

// IsValid reports whether v holds a value.
func (v Value) IsValid() bool { return v.kind != KindInvalid }

// AsString returns the string held by v.
func (v Value) AsString() (string, bool) {
	return v.str, v.kind == KindString
}

// AsInt returns the integer held by v.
func (v Value) AsInt() (int64, bool) {
	return v.num, v.kind == KindInt
}

// AsBool returns the boolean held by v.
func (v Value) AsBool() (bool, bool) {
	return v.flag, v.kind == KindBool
}

// Interface returns v as a plain Go value.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindInt:
		return v.num
	case KindBool:
		return v.flag
	case KindOpaque:
		return v.opaque
	default:
		return nil
	}
}

// String renders v for messages.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return strconv.Quote(v.str)
	case KindInt:
		return strconv.FormatInt(v.num, 10)
	case KindBool:
		return strconv.FormatBool(v.flag)
	case KindOpaque:
		b, err := json.Marshal(v.opaque)
		if err != nil {
			return fmt.Sprintf("%v", v.opaque)
		}
		return string(b)
	default:
		return "<invalid>"
	}
}
