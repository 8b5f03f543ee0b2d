package record

import "strconv"

// Pair is a flattened field: a display key and the display text of a scalar.
type Pair struct {
	Root  string // top-level key the pair came from
	Key   string
	Value string
}

// Flatten walks the record depth-first in key order. Nested object keys are
// joined with " > " and array elements get a 1-based "[n]" suffix, so
// {"a":{"b":[1,2]}} yields "a > b[1]" and "a > b[2]". Empty containers
// produce a single pair holding "{}" or "[]".
func Flatten(r *Record) []Pair {
	var pairs []Pair
	for _, f := range r.Fields() {
		pairs = flattenValue(pairs, f.Key, f.Key, f.Value)
	}
	return pairs
}

func flattenValue(pairs []Pair, root, key string, v Value) []Pair {
	switch v.Kind() {
	case Object:
		obj, _ := v.AsObject()
		if obj.Len() == 0 {
			return append(pairs, Pair{Root: root, Key: key, Value: "{}"})
		}
		for _, f := range obj.Fields() {
			pairs = flattenValue(pairs, root, key+" > "+f.Key, f.Value)
		}
		return pairs
	case Array:
		items, _ := v.AsArray()
		if len(items) == 0 {
			return append(pairs, Pair{Root: root, Key: key, Value: "[]"})
		}
		for i, item := range items {
			pairs = flattenValue(pairs, root, key+"["+strconv.Itoa(i+1)+"]", item)
		}
		return pairs
	default:
		return append(pairs, Pair{Root: root, Key: key, Value: v.String()})
	}
}

// DescendsFrom reports whether a flattened key is name itself or one of its
// flattened children.
func DescendsFrom(key, name string) bool {
	if key == name {
		return true
	}
	if len(key) <= len(name) || key[:len(name)] != name {
		return false
	}
	rest := key[len(name):]
	return rest[0] == '[' || (len(rest) >= 3 && rest[:3] == " > ")
}
