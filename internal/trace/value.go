package trace

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ValueType identifies which member of a Value is set
type ValueType int

const (
	ValueEmpty ValueType = iota
	ValueString
	ValueBool
	ValueInt
	ValueDouble
	ValueBytes
	ValueArray
)

// String returns the type name
func (t ValueType) String() string {
	switch t {
	case ValueString:
		return "string"
	case ValueBool:
		return "bool"
	case ValueInt:
		return "int"
	case ValueDouble:
		return "double"
	case ValueBytes:
		return "bytes"
	case ValueArray:
		return "array"
	default:
		return "empty"
	}
}

// Value is a typed attribute value. Exactly one member is meaningful,
// selected by Type.
type Value struct {
	typ   ValueType
	str   string
	num   int64
	dbl   float64
	flag  bool
	raw   []byte
	items []Value
}

// StringValue returns a string Value
func StringValue(s string) Value { return Value{typ: ValueString, str: s} }

// BoolValue returns a bool Value
func BoolValue(b bool) Value { return Value{typ: ValueBool, flag: b} }

// IntValue returns an int64 Value
func IntValue(n int64) Value { return Value{typ: ValueInt, num: n} }

// DoubleValue returns a float64 Value
func DoubleValue(f float64) Value { return Value{typ: ValueDouble, dbl: f} }

// BytesValue returns a bytes Value holding a copy of b
func BytesValue(b []byte) Value {
	return Value{typ: ValueBytes, raw: bytes.Clone(b)}
}

// ArrayValue returns an array Value holding a copy of items
func ArrayValue(items ...Value) Value {
	out := make([]Value, len(items))
	for i, it := range items {
		out[i] = it.clone()
	}
	return Value{typ: ValueArray, items: out}
}

// Type returns the tag of the value
func (v Value) Type() ValueType { return v.typ }

// AsString returns the string member
func (v Value) AsString() string { return v.str }

// AsBool returns the bool member
func (v Value) AsBool() bool { return v.flag }

// AsInt returns the int64 member
func (v Value) AsInt() int64 { return v.num }

// AsDouble returns the float64 member
func (v Value) AsDouble() float64 { return v.dbl }

// AsBytes returns a copy of the bytes member
func (v Value) AsBytes() []byte { return bytes.Clone(v.raw) }

// AsArray returns a copy of the array member
func (v Value) AsArray() []Value {
	out := make([]Value, len(v.items))
	copy(out, v.items)
	return out
}

// Equal reports typed equality: both values carry the same tag and the
// same native value. An int never equals a double or a string.
func (v Value) Equal(o Value) bool {
	if v.typ != o.typ {
		return false
	}
	switch v.typ {
	case ValueEmpty:
		return true
	case ValueString:
		return v.str == o.str
	case ValueBool:
		return v.flag == o.flag
	case ValueInt:
		return v.num == o.num
	case ValueDouble:
		return v.dbl == o.dbl
	case ValueBytes:
		return bytes.Equal(v.raw, o.raw)
	case ValueArray:
		if len(v.items) != len(o.items) {
			return false
		}
		for i := range v.items {
			if !v.items[i].Equal(o.items[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// String renders the value for diagnostics
func (v Value) String() string {
	switch v.typ {
	case ValueString:
		return strconv.Quote(v.str)
	case ValueBool:
		return strconv.FormatBool(v.flag)
	case ValueInt:
		return strconv.FormatInt(v.num, 10)
	case ValueDouble:
		return strconv.FormatFloat(v.dbl, 'g', -1, 64)
	case ValueBytes:
		return fmt.Sprintf("0x%x", v.raw)
	case ValueArray:
		parts := make([]string, len(v.items))
		for i, it := range v.items {
			parts[i] = it.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return "<empty>"
	}
}

func (v Value) clone() Value {
	switch v.typ {
	case ValueBytes:
		return BytesValue(v.raw)
	case ValueArray:
		return ArrayValue(v.items...)
	default:
		return v
	}
}

// anyValueJSON mirrors the OTLP/JSON AnyValue object
type anyValueJSON struct {
	StringValue *string         `json:"stringValue,omitempty"`
	BoolValue   *bool           `json:"boolValue,omitempty"`
	IntValue    json.RawMessage `json:"intValue,omitempty"`
	DoubleValue *float64        `json:"doubleValue,omitempty"`
	BytesValue  *string         `json:"bytesValue,omitempty"`
	ArrayValue  *arrayValueJSON `json:"arrayValue,omitempty"`
}

type arrayValueJSON struct {
	Values []Value `json:"values"`
}

// MarshalJSON encodes the value as an OTLP/JSON AnyValue object
func (v Value) MarshalJSON() ([]byte, error) {
	var out anyValueJSON
	switch v.typ {
	case ValueString:
		out.StringValue = &v.str
	case ValueBool:
		out.BoolValue = &v.flag
	case ValueInt:
		// int64 travels as a decimal string, as in OTLP/JSON
		out.IntValue = json.RawMessage(strconv.Quote(strconv.FormatInt(v.num, 10)))
	case ValueDouble:
		out.DoubleValue = &v.dbl
	case ValueBytes:
		s := base64.StdEncoding.EncodeToString(v.raw)
		out.BytesValue = &s
	case ValueArray:
		out.ArrayValue = &arrayValueJSON{Values: v.items}
		if out.ArrayValue.Values == nil {
			out.ArrayValue.Values = []Value{}
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes an OTLP/JSON AnyValue object. intValue is accepted
// both as a JSON number and as a decimal string; null members are absent.
func (v *Value) UnmarshalJSON(data []byte) error {
	var in anyValueJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	switch {
	case in.StringValue != nil:
		*v = StringValue(*in.StringValue)
	case in.BoolValue != nil:
		*v = BoolValue(*in.BoolValue)
	case len(in.IntValue) > 0 && string(in.IntValue) != "null":
		raw := strings.Trim(string(in.IntValue), `"`)
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("intValue %s: %w", in.IntValue, err)
		}
		*v = IntValue(n)
	case in.DoubleValue != nil:
		*v = DoubleValue(*in.DoubleValue)
	case in.BytesValue != nil:
		b, err := base64.StdEncoding.DecodeString(*in.BytesValue)
		if err != nil {
			return fmt.Errorf("bytesValue: %w", err)
		}
		*v = Value{typ: ValueBytes, raw: b}
	case in.ArrayValue != nil:
		*v = Value{typ: ValueArray, items: in.ArrayValue.Values}
	default:
		*v = Value{}
	}
	return nil
}

// Attributes maps attribute keys to typed values
type Attributes map[string]Value

// Get returns the value for key and whether it is present
func (a Attributes) Get(key string) (Value, bool) {
	v, ok := a[key]
	return v, ok
}

// Matches reports whether key is present with a value typed-equal to want
func (a Attributes) Matches(key string, want Value) bool {
	v, ok := a[key]
	return ok && v.Equal(want)
}

// Clone returns a deep copy
func (a Attributes) Clone() Attributes {
	if a == nil {
		return nil
	}
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v.clone()
	}
	return out
}
