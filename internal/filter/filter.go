// Package filter decides whether a record is printed by evaluating a
// user-supplied Lua expression against its fields.
package filter

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"

	"github.com/five82/fblog/internal/record"
)

// Predicate decides whether a record is kept.
type Predicate interface {
	Evaluate(rec *record.Record) (bool, error)
}

// ErrCompile wraps syntax errors in the filter expression.
var ErrCompile = errors.New("compile filter")

const chunkName = "<filter>"

// Options tune how an expression is compiled and traced.
type Options struct {
	// ImplicitReturn wraps the expression as "return <expr>".
	ImplicitReturn bool
	// Trace receives the script, bindings and result of every evaluation.
	Trace io.Writer
}

// New compiles expr. An empty expression keeps every record.
func New(expr string, opts Options) (Predicate, error) {
	if strings.TrimSpace(expr) == "" {
		return KeepAll(), nil
	}
	return NewLua(expr, opts)
}

// KeepAll returns a predicate that keeps every record.
func KeepAll() Predicate { return keepAll{} }

type keepAll struct{}

func (keepAll) Evaluate(*record.Record) (bool, error) { return true, nil }

// Lua evaluates a compiled chunk once per record. Each evaluation gets a fresh
// environment holding the record fields, backed by the shared globals, so
// nothing a script assigns survives to the next record.
type Lua struct {
	source string
	proto  *lua.FunctionProto
	state  *lua.LState
	trace  io.Writer
}

// NewLua compiles expr into a Lua predicate.
func NewLua(expr string, opts Options) (*Lua, error) {
	source := expr
	if opts.ImplicitReturn {
		source = "return " + expr
	}

	chunk, err := parse.Parse(strings.NewReader(source), chunkName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompile, err)
	}
	proto, err := lua.Compile(chunk, chunkName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompile, err)
	}

	return &Lua{
		source: source,
		proto:  proto,
		state:  newState(opts.Trace),
		trace:  opts.Trace,
	}, nil
}

// Base library functions that load code from files or strings.
var loaders = []string{"dofile", "loadfile", "load", "loadstring", "require", "module"}

// newState opens the base, table, string and math libraries. Loaders are
// removed and print writes to trace, or nowhere, so a filter can neither
// read files nor write to the rendered output.
func newState(trace io.Writer) *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
	for _, name := range loaders {
		L.SetGlobal(name, lua.LNil)
	}
	if trace == nil {
		trace = io.Discard
	}
	L.SetGlobal("print", L.NewFunction(printTo(trace)))
	return L
}

// printTo replaces the base print, which writes to os.Stdout.
func printTo(w io.Writer) lua.LGFunction {
	return func(L *lua.LState) int {
		parts := make([]string, 0, L.GetTop())
		for i := 1; i <= L.GetTop(); i++ {
			parts = append(parts, L.ToStringMeta(L.Get(i)).String())
		}
		_, _ = fmt.Fprintln(w, strings.Join(parts, "\t"))
		return 0
	}
}

// Close releases the Lua state.
func (l *Lua) Close() error {
	l.state.Close()
	return nil
}

// Source returns the compiled script text.
func (l *Lua) Source() string { return l.source }

// Evaluate runs the script with the record's fields bound as variables and
// coerces its first return value with Lua truthiness.
func (l *Lua) Evaluate(rec *record.Record) (bool, error) {
	L := l.state
	env := L.NewTable()
	meta := L.NewTable()
	meta.RawSetString("__index", L.G.Global)
	L.SetMetatable(env, meta)
	for _, f := range rec.Fields() {
		env.RawSetString(f.Key, toLua(L, f.Value))
	}

	fn := L.NewFunctionFromProto(l.proto)
	fn.Env = env

	top := L.GetTop()
	L.Push(fn)
	err := L.PCall(0, 1, nil)
	if err != nil {
		L.SetTop(top)
		l.writeTrace(rec, "error: "+err.Error())
		return false, fmt.Errorf("evaluate filter: %w", err)
	}
	result := L.Get(-1)
	L.SetTop(top)

	keep := lua.LVAsBool(result)
	l.writeTrace(rec, fmt.Sprintf("%s (%s)", result.String(), strconv.FormatBool(keep)))
	return keep, nil
}

func (l *Lua) writeTrace(rec *record.Record, result string) {
	if l.trace == nil {
		return
	}
	var b strings.Builder
	b.WriteString("-- bindings\n")
	for _, f := range rec.Fields() {
		fmt.Fprintf(&b, "%s = %s\n", bindingName(f.Key), literal(f.Value))
	}
	b.WriteString("-- script\n")
	b.WriteString(l.source)
	b.WriteString("\n-- result: ")
	b.WriteString(result)
	b.WriteString("\n")
	_, _ = io.WriteString(l.trace, b.String())
}

func toLua(L *lua.LState, v record.Value) lua.LValue {
	switch v.Kind() {
	case record.String:
		s, _ := v.AsString()
		return lua.LString(s)
	case record.Number:
		if n, ok := v.AsNumber(); ok {
			return lua.LNumber(n)
		}
		return lua.LString(v.String())
	case record.Bool:
		b, _ := v.AsBool()
		return lua.LBool(b)
	case record.Object:
		obj, _ := v.AsObject()
		t := L.NewTable()
		for _, f := range obj.Fields() {
			t.RawSetString(f.Key, toLua(L, f.Value))
		}
		return t
	case record.Array:
		items, _ := v.AsArray()
		t := L.CreateTable(len(items), 0)
		for i, item := range items {
			t.RawSetInt(i+1, toLua(L, item))
		}
		return t
	default:
		return lua.LNil
	}
}

// literal renders v as Lua source for traces.
func literal(v record.Value) string {
	switch v.Kind() {
	case record.String:
		s, _ := v.AsString()
		return strconv.Quote(s)
	case record.Number, record.Bool:
		return v.String()
	case record.Object:
		obj, _ := v.AsObject()
		parts := make([]string, 0, obj.Len())
		for _, f := range obj.Fields() {
			parts = append(parts, fmt.Sprintf("[%s] = %s", strconv.Quote(f.Key), literal(f.Value)))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case record.Array:
		items, _ := v.AsArray()
		parts := make([]string, 0, len(items))
		for _, item := range items {
			parts = append(parts, literal(item))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return "nil"
	}
}

// bindingName shows keys that are not Lua identifiers the way a script must
// reach them.
func bindingName(key string) string {
	if isIdentifier(key) {
		return key
	}
	return fmt.Sprintf("getfenv(1)[%s]", strconv.Quote(key))
}

var luaKeywords = func() map[string]bool {
	words := strings.Fields("and break do else elseif end false for function goto if in local nil not or repeat return then true until while")
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}()

func isIdentifier(s string) bool {
	if s == "" || luaKeywords[s] {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
