package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_ObjectKeepsKeyOrder(t *testing.T) {
	line := Parse(`{"zeta":1,"alpha":"a","mid":true}`+"\n", false)

	require.False(t, line.Fallback())
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, line.Record.Keys())
	assert.Equal(t, `{"zeta":1,"alpha":"a","mid":true}`, line.Raw)
}

func TestParse_FallbackCases(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "plain text", raw: "not json at all"},
		{name: "empty", raw: ""},
		{name: "string", raw: `"just a string"`},
		{name: "number", raw: "42"},
		{name: "array", raw: `[{"msg":"x"}]`},
		{name: "truncated", raw: `{"msg":"x"`},
		{name: "trailing garbage", raw: `{"msg":"x"} tail`},
		{name: "two objects", raw: `{"a":1}{"b":2}`},
		{name: "stack trace", raw: "\tat com.example.Foo.bar(Foo.java:42)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := Parse(tt.raw, false)
			assert.True(t, line.Fallback())
			assert.Equal(t, tt.raw, line.Raw)
		})
	}
}

func TestParse_StripsTerminator(t *testing.T) {
	line := Parse("plain\r\n", false)
	assert.Equal(t, "plain", line.Raw)
}

func TestParse_TrailingWhitespaceIsAccepted(t *testing.T) {
	line := Parse(`{"msg":"x"}   `, false)
	assert.False(t, line.Fallback())
}

func TestParse_SplitPrefix(t *testing.T) {
	line := Parse(`web-1 | {"msg":"hi"}`, true)
	require.False(t, line.Fallback())
	assert.Equal(t, "web-1 | ", line.Prefix)

	msg, ok := line.Record.Get("msg")
	require.True(t, ok)
	assert.Equal(t, "hi", msg.String())

	line = Parse(`web-1 | {"msg":"hi"}`, false)
	assert.True(t, line.Fallback())

	line = Parse(`web-1 | {broken`, true)
	assert.True(t, line.Fallback())
	assert.Empty(t, line.Prefix)
	assert.Equal(t, `web-1 | {broken`, line.Raw)
}

func TestParse_DuplicateKeysKeepFirstPositionLastValue(t *testing.T) {
	line := Parse(`{"a":1,"b":2,"a":3}`, false)
	require.False(t, line.Fallback())
	assert.Equal(t, []string{"a", "b"}, line.Record.Keys())
	v, _ := line.Record.Get("a")
	assert.Equal(t, "3", v.String())
}

func TestValue_Accessors(t *testing.T) {
	line := Parse(`{"s":"x","n":1.50,"b":false,"z":null,"o":{"k":"v"},"a":[1,"two"]}`, false)
	require.False(t, line.Fallback())
	rec := line.Record

	s, _ := rec.Get("s")
	str, ok := s.AsString()
	assert.True(t, ok)
	assert.Equal(t, "x", str)
	_, ok = s.AsNumber()
	assert.False(t, ok)

	n, _ := rec.Get("n")
	f, ok := n.AsNumber()
	assert.True(t, ok)
	assert.InDelta(t, 1.5, f, 0.0001)
	assert.Equal(t, "1.50", n.String(), "number literal is preserved")

	b, _ := rec.Get("b")
	bv, ok := b.AsBool()
	assert.True(t, ok)
	assert.False(t, bv)

	z, _ := rec.Get("z")
	assert.True(t, z.IsNull())
	assert.Equal(t, "null", z.String())

	o, _ := rec.Get("o")
	_, ok = o.AsArray()
	assert.False(t, ok)
	assert.Equal(t, `{"k":"v"}`, o.String())

	a, _ := rec.Get("a")
	items, ok := a.AsArray()
	require.True(t, ok)
	assert.Len(t, items, 2)
	assert.Equal(t, `[1,"two"]`, a.String())
}

func TestRecord_Lookup(t *testing.T) {
	line := Parse(`{"log":{"level":"warn"},"log.origin":"flat"}`, false)
	require.False(t, line.Fallback())

	v, ok := line.Record.Lookup("log.level")
	require.True(t, ok)
	assert.Equal(t, "warn", v.String())

	v, ok = line.Record.Lookup("log.origin")
	require.True(t, ok)
	assert.Equal(t, "flat", v.String())

	_, ok = line.Record.Lookup("log.missing")
	assert.False(t, ok)
	_, ok = line.Record.Lookup("nope")
	assert.False(t, ok)
}

func TestRecord_CompactDoesNotEscapeHTML(t *testing.T) {
	line := Parse(`{"html":"<b>&</b>","n":7}`, false)
	require.False(t, line.Fallback())
	assert.Equal(t, `{"html":"<b>&</b>","n":7}`, line.Record.Compact())
}

func TestFlatten(t *testing.T) {
	line := Parse(`{"msg":"m","req":{"id":7,"tags":["a",{"x":true}]},"empty":{},"none":[]}`, false)
	require.False(t, line.Fallback())

	got := Flatten(line.Record)
	want := []Pair{
		{Root: "msg", Key: "msg", Value: "m"},
		{Root: "req", Key: "req > id", Value: "7"},
		{Root: "req", Key: "req > tags[1]", Value: "a"},
		{Root: "req", Key: "req > tags[2] > x", Value: "true"},
		{Root: "empty", Key: "empty", Value: "{}"},
		{Root: "none", Key: "none", Value: "[]"},
	}
	assert.Equal(t, want, got)
}

func TestDescendsFrom(t *testing.T) {
	assert.True(t, DescendsFrom("req", "req"))
	assert.True(t, DescendsFrom("req > id", "req"))
	assert.True(t, DescendsFrom("req[2]", "req"))
	assert.False(t, DescendsFrom("request", "req"))
	assert.False(t, DescendsFrom("re", "req"))
}
