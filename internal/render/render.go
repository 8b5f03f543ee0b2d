// Package render turns resolved fields into output text using two Go
// templates: one for the main line and one for every additional value.
package render

import (
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/five82/fblog/internal/resolve"
	"github.com/five82/fblog/internal/substitution"
)

// Options configure a Renderer.
type Options struct {
	MainLineFormat        string
	AdditionalValueFormat string

	// WithPrefix prepends a colored "[level]" tag to the main line.
	WithPrefix bool

	// Color enables ANSI escapes; without it every helper returns plain text.
	Color bool

	// Substitution is nil when placeholder substitution is off.
	Substitution *substitution.Engine
}

// Renderer holds the parsed templates. It is built once per run.
type Renderer struct {
	main       *template.Template
	additional *template.Template
	subst      *substitution.Engine
	keys       []string
	withPrefix bool
	styles     styles
}

// MainLine is the data available to the main line format.
type MainLine struct {
	Time    string
	Level   string
	Message string
	Prefix  string

	// Values holds every flattened record field by display key.
	Values map[string]string

	// Context holds the substituted value of every placeholder in the format.
	Context map[string]string
}

// AdditionalValue is the data available to the additional value format.
type AdditionalValue struct {
	Key   string
	Value string
}

// New parses both formats. Placeholders in the literal text of the main line
// format are compiled into lookups of .Context.
func New(opts Options) (*Renderer, error) {
	st := newStyles(opts.Color)

	source := opts.MainLineFormat
	var keys []string
	if opts.Substitution != nil {
		source, keys = compilePlaceholders(opts.Substitution, source)
	}

	main, err := template.New("main_line").Funcs(st.funcs()).Option("missingkey=zero").Parse(source)
	if err != nil {
		return nil, fmt.Errorf("parse main line format: %w", err)
	}
	additional, err := template.New("additional_value").Funcs(st.funcs()).Option("missingkey=zero").Parse(opts.AdditionalValueFormat)
	if err != nil {
		return nil, fmt.Errorf("parse additional value format: %w", err)
	}

	return &Renderer{
		main:       main,
		additional: additional,
		subst:      opts.Substitution,
		keys:       keys,
		withPrefix: opts.WithPrefix,
		styles:     st,
	}, nil
}

// Render produces the main line followed by one line per additional value,
// joined by newlines and without a trailing terminator.
func (r *Renderer) Render(f resolve.Fields) (string, error) {
	data := MainLine{
		Time:    f.Time,
		Level:   f.Level,
		Message: f.Message,
		Prefix:  f.Prefix,
		Values:  f.Values,
		Context: make(map[string]string, len(r.keys)),
	}
	if r.subst != nil {
		data.Message = r.subst.Apply(f.Message, f.Context)
		for _, key := range r.keys {
			data.Context[key] = r.subst.Lookup(key, f.Context)
		}
	}

	var b strings.Builder
	if r.withPrefix {
		if tag := r.styles.tag(f.Level); tag != "" {
			b.WriteString(tag)
			b.WriteByte(' ')
		}
	}
	if err := r.main.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render main line: %w", err)
	}

	for _, p := range f.Additional {
		b.WriteByte('\n')
		if err := r.additional.Execute(&b, AdditionalValue{Key: p.Key, Value: p.Value}); err != nil {
			return "", fmt.Errorf("render additional value %q: %w", p.Key, err)
		}
	}
	return b.String(), nil
}

// compilePlaceholders rewrites every placeholder outside a template action
// into {{index .Context "key"}}. Placeholders are matched before actions so
// "{{user}}" is a placeholder when the format is "{{key}}".
func compilePlaceholders(e *substitution.Engine, source string) (string, []string) {
	var b strings.Builder
	var keys []string
	for pos := 0; pos < len(source); {
		if key, end, ok := e.TokenAt(source, pos); ok {
			fmt.Fprintf(&b, "{{index .Context %s}}", strconv.Quote(key))
			keys = append(keys, key)
			pos = end
			continue
		}
		if strings.HasPrefix(source[pos:], "{{") {
			if n := strings.Index(source[pos+2:], "}}"); n >= 0 {
				end := pos + 2 + n + 2
				b.WriteString(source[pos:end])
				pos = end
				continue
			}
		}
		b.WriteByte(source[pos])
		pos++
	}
	return b.String(), keys
}
