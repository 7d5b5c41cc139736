// Package value implements the tagged union used for block attribute values.
package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Kind is the semantic type of a Value.
type Kind uint8

// Value kinds. Null is the zero Kind so the zero Value is null.
const (
	Null Kind = iota
	String
	Number
	Bool
	List
	Object
)

var kindNames = map[Kind]string{
	Null:   "null",
	String: "string",
	Number: "number",
	Bool:   "boolean",
	List:   "list",
	Object: "object",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// ParseKind maps a schema type name to a Kind. Null is not a declarable type.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "string":
		return String, nil
	case "number":
		return Number, nil
	case "boolean", "bool":
		return Bool, nil
	case "list", "array":
		return List, nil
	case "object":
		return Object, nil
	default:
		return Null, fmt.Errorf("unknown attribute type %q", s)
	}
}

// Value is an immutable attribute value.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	list []Value
	obj  map[string]Value
}

// NullValue returns the null value.
func NullValue() Value { return Value{} }

// StringOf wraps a string.
func StringOf(s string) Value { return Value{kind: String, str: s} }

// NumberOf wraps a number.
func NumberOf(n float64) Value { return Value{kind: Number, num: n} }

// BoolOf wraps a boolean.
func BoolOf(b bool) Value { return Value{kind: Bool, b: b} }

// ListOf wraps a list. The slice is copied.
func ListOf(items ...Value) Value {
	l := make([]Value, len(items))
	copy(l, items)
	return Value{kind: List, list: l}
}

// ObjectOf wraps an object. The map is copied.
func ObjectOf(m map[string]Value) Value {
	o := make(map[string]Value, len(m))
	for k, v := range m {
		o[k] = v
	}
	return Value{kind: Object, obj: o}
}

// Kind returns the value's kind.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.kind == Null }

// Str returns the string payload.
func (v Value) Str() (string, bool) { return v.str, v.kind == String }

// Num returns the number payload.
func (v Value) Num() (float64, bool) { return v.num, v.kind == Number }

// Bool returns the boolean payload.
func (v Value) Bool() (bool, bool) { return v.b, v.kind == Bool }

// Items returns a copy of the list payload.
func (v Value) Items() ([]Value, bool) {
	if v.kind != List {
		return nil, false
	}
	l := make([]Value, len(v.list))
	copy(l, v.list)
	return l, true
}

// Fields returns a copy of the object payload.
func (v Value) Fields() (map[string]Value, bool) {
	if v.kind != Object {
		return nil, false
	}
	o := make(map[string]Value, len(v.obj))
	for k, f := range v.obj {
		o[k] = f
	}
	return o, true
}

// Finite reports whether every number in the value is finite.
func (v Value) Finite() bool {
	switch v.kind {
	case Number:
		return !math.IsNaN(v.num) && !math.IsInf(v.num, 0)
	case List:
		for _, e := range v.list {
			if !e.Finite() {
				return false
			}
		}
	case Object:
		for _, e := range v.obj {
			if !e.Finite() {
				return false
			}
		}
	}
	return true
}

// Equal reports deep structural equality.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case Null:
		return true
	case String:
		return v.str == o.str
	case Number:
		return v.num == o.num
	case Bool:
		return v.b == o.b
	case List:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case Object:
		if len(v.obj) != len(o.obj) {
			return false
		}
		for k, a := range v.obj {
			b, ok := o.obj[k]
			if !ok || !a.Equal(b) {
				return false
			}
		}
		return true
	}
	return false
}

// FromAny converts a decoded JSON value (as produced by encoding/json, with or
// without UseNumber) into a Value. Unsupported Go types map to null.
func FromAny(x any) Value {
	switch t := x.(type) {
	case nil:
		return NullValue()
	case string:
		return StringOf(t)
	case bool:
		return BoolOf(t)
	case float64:
		return NumberOf(t)
	case float32:
		return NumberOf(float64(t))
	case int:
		return NumberOf(float64(t))
	case int64:
		return NumberOf(float64(t))
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return StringOf(t.String())
		}
		return NumberOf(f)
	case []any:
		l := make([]Value, len(t))
		for i, e := range t {
			l[i] = FromAny(e)
		}
		return Value{kind: List, list: l}
	case map[string]any:
		o := make(map[string]Value, len(t))
		for k, e := range t {
			o[k] = FromAny(e)
		}
		return Value{kind: Object, obj: o}
	case Value:
		return t
	default:
		return NullValue()
	}
}

// Any converts the value into plain Go types suitable for encoding/json.
func (v Value) Any() any {
	switch v.kind {
	case String:
		return v.str
	case Number:
		return v.num
	case Bool:
		return v.b
	case List:
		l := make([]any, len(v.list))
		for i, e := range v.list {
			l[i] = e.Any()
		}
		return l
	case Object:
		o := make(map[string]any, len(v.obj))
		for k, e := range v.obj {
			o[k] = e.Any()
		}
		return o
	default:
		return nil
	}
}

// MarshalJSON encodes the value as plain JSON. Object keys are sorted.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case Null:
		return []byte("null"), nil
	case Number:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return nil, fmt.Errorf("value: non-finite number %v", v.num)
		}
		return []byte(strconv.FormatFloat(v.num, 'g', -1, 64)), nil
	case List:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, e := range v.list {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := e.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case Object:
		keys := make([]string, 0, len(v.obj))
		for k := range v.obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			b, err := v.obj[k].MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	default:
		return json.Marshal(v.Any())
	}
}

// UnmarshalJSON decodes any JSON document into the value.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var x any
	if err := dec.Decode(&x); err != nil {
		return fmt.Errorf("decode value: %w", err)
	}
	*v = FromAny(x)
	return nil
}

func (v Value) String() string {
	b, err := v.MarshalJSON()
	if err != nil {
		return "<invalid>"
	}
	return string(b)
}
