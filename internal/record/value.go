package record

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Kind identifies the dynamic type held by a Value.
type Kind uint8

const (
	Null Kind = iota
	String
	Number
	Bool
	Object
	Array
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Number:
		return "number"
	case Bool:
		return "bool"
	case Object:
		return "object"
	case Array:
		return "array"
	default:
		return "null"
	}
}

// Value is one JSON value. The zero Value is null.
type Value struct {
	kind Kind
	str  string // string contents or the literal number text
	b    bool
	obj  *Record
	arr  []Value
}

func NullValue() Value { return Value{} }
func StringValue(s string) Value { return Value{kind: String, str: s} }
func NumberValue(n string) Value { return Value{kind: Number, str: n} }
func BoolValue(b bool) Value { return Value{kind: Bool, b: b} }
func ObjectValue(r *Record) Value { return Value{kind: Object, obj: r} }
func ArrayValue(items []Value) Value { return Value{kind: Array, arr: items} }

// Kind reports the dynamic type of v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is JSON null.
func (v Value) IsNull() bool { return v.kind == Null }

func (v Value) AsString() (string, bool) {
	if v.kind != String {
		return "", false
	}
	return v.str, true
}

// AsNumber parses the number literal. The literal text is available through String.
func (v Value) AsNumber() (float64, bool) {
	if v.kind != Number {
		return 0, false
	}
	f, err := strconv.ParseFloat(v.str, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func (v Value) AsBool() (bool, bool) {
	if v.kind != Bool {
		return false, false
	}
	return v.b, true
}

func (v Value) AsObject() (*Record, bool) {
	if v.kind != Object || v.obj == nil {
		return nil, false
	}
	return v.obj, true
}

func (v Value) AsArray() ([]Value, bool) {
	if v.kind != Array {
		return nil, false
	}
	return v.arr, true
}

// String returns the display text of v: strings unquoted, numbers as written in
// the input, booleans and null as JSON literals, containers as compact JSON.
func (v Value) String() string {
	switch v.kind {
	case String:
		return v.str
	case Number:
		return v.str
	case Bool:
		return strconv.FormatBool(v.b)
	case Null:
		return "null"
	default:
		var buf bytes.Buffer
		v.appendJSON(&buf)
		return buf.String()
	}
}

// MarshalJSON encodes v with object keys in input order.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	v.appendJSON(&buf)
	return buf.Bytes(), nil
}

func (v Value) appendJSON(buf *bytes.Buffer) {
	switch v.kind {
	case String:
		appendQuoted(buf, v.str)
	case Number:
		buf.WriteString(v.str)
	case Bool:
		buf.WriteString(strconv.FormatBool(v.b))
	case Object:
		if v.obj == nil {
			buf.WriteString("{}")
			return
		}
		v.obj.appendJSON(buf)
	case Array:
		buf.WriteByte('[')
		for i, item := range v.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			item.appendJSON(buf)
		}
		buf.WriteByte(']')
	default:
		buf.WriteString("null")
	}
}

func appendQuoted(buf *bytes.Buffer, s string) {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	// Encode never fails for a string; it appends a newline we trim.
	_ = enc.Encode(s)
	buf.Truncate(buf.Len() - 1)
}
