package record

import (
	"bytes"
	"strings"
)

// Field is one key/value pair of a Record.
type Field struct {
	Key   string
	Value Value
}

// Record is a JSON object that remembers the order its keys appeared in.
// It is built by the parser and must not be modified afterwards.
type Record struct {
	fields []Field
	index  map[string]int
}

// New builds a Record from fields. A repeated key keeps its first position and
// takes the last value, the same way the parser treats duplicate keys.
func New(fields ...Field) *Record {
	r := &Record{index: make(map[string]int, len(fields))}
	for _, f := range fields {
		r.set(f.Key, f.Value)
	}
	return r
}

func (r *Record) set(key string, v Value) {
	if i, ok := r.index[key]; ok {
		r.fields[i].Value = v
		return
	}
	r.index[key] = len(r.fields)
	r.fields = append(r.fields, Field{Key: key, Value: v})
}

// Len returns the number of distinct keys.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.fields)
}

// Get returns the value stored under key.
func (r *Record) Get(key string) (Value, bool) {
	if r == nil {
		return Value{}, false
	}
	i, ok := r.index[key]
	if !ok {
		return Value{}, false
	}
	return r.fields[i].Value, true
}

// Lookup finds key literally and, failing that, as a dotted path through
// nested objects: "log.level" matches {"log":{"level":"info"}}.
func (r *Record) Lookup(key string) (Value, bool) {
	if v, ok := r.Get(key); ok {
		return v, true
	}
	head, rest, found := strings.Cut(key, ".")
	if !found || head == "" || rest == "" {
		return Value{}, false
	}
	v, ok := r.Get(head)
	if !ok {
		return Value{}, false
	}
	nested, ok := v.AsObject()
	if !ok {
		return Value{}, false
	}
	return nested.Lookup(rest)
}

// Fields returns the fields in input order. The slice is a copy.
func (r *Record) Fields() []Field {
	if r == nil {
		return nil
	}
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// Keys returns the keys in input order.
func (r *Record) Keys() []string {
	if r == nil {
		return nil
	}
	keys := make([]string, len(r.fields))
	for i, f := range r.fields {
		keys[i] = f.Key
	}
	return keys
}

// Compact renders the record as single-line JSON in input key order.
func (r *Record) Compact() string {
	var buf bytes.Buffer
	r.appendJSON(&buf)
	return buf.String()
}

// MarshalJSON implements json.Marshaler preserving key order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	r.appendJSON(&buf)
	return buf.Bytes(), nil
}

func (r *Record) appendJSON(buf *bytes.Buffer) {
	buf.WriteByte('{')
	if r != nil {
		for i, f := range r.fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			appendQuoted(buf, f.Key)
			buf.WriteByte(':')
			f.Value.appendJSON(buf)
		}
	}
	buf.WriteByte('}')
}
