package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Line is the parser's view of one input line. Record is nil for a fallback
// line, which is emitted verbatim.
type Line struct {
	Raw    string
	Prefix string
	Record *Record
}

// Fallback reports whether the line is not a JSON object.
func (l Line) Fallback() bool { return l.Record == nil }

var errTrailingData = errors.New("trailing data after object")

// Parse turns one raw line into a Line. It never fails: anything that is not a
// single JSON object becomes a fallback line carrying the raw text.
//
// With splitPrefix set, a line such as `web-1 | {"msg":"hi"}` is retried from
// its first '{' and the text before it becomes the Prefix.
func Parse(raw string, splitPrefix bool) Line {
	raw = strings.TrimRight(raw, "\r\n")
	line := Line{Raw: raw}

	if rec, err := parseObject(raw); err == nil {
		line.Record = rec
		return line
	}
	if !splitPrefix {
		return line
	}
	pos := strings.IndexByte(raw, '{')
	if pos <= 0 {
		return line
	}
	if rec, err := parseObject(raw[pos:]); err == nil {
		line.Prefix = raw[:pos]
		line.Record = rec
	}
	return line
}

func parseObject(text string) (*Record, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("not an object: %v", tok)
	}
	rec, err := decodeObject(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errTrailingData
	}
	return rec, nil
}

// decodeObject reads the members of an object whose '{' was already consumed.
func decodeObject(dec *json.Decoder) (*Record, error) {
	rec := New()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("object key is %T", tok)
		}
		v, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		rec.set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return rec, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			rec, err := decodeObject(dec)
			if err != nil {
				return Value{}, err
			}
			return ObjectValue(rec), nil
		case '[':
			items := []Value{}
			for dec.More() {
				item, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return ArrayValue(items), nil
		}
		return Value{}, fmt.Errorf("unexpected delimiter %q", t)
	case string:
		return StringValue(t), nil
	case json.Number:
		return NumberValue(t.String()), nil
	case bool:
		return BoolValue(t), nil
	case nil:
		return NullValue(), nil
	default:
		return Value{}, fmt.Errorf("unexpected token %T", tok)
	}
}
