// Package resolve decides which record fields supply the message, time and
// level of a line, which feed placeholder substitution, and which are printed
// as additional values.
package resolve

import (
	"slices"
	"strings"

	"github.com/five82/fblog/internal/record"
	"github.com/five82/fblog/internal/settings"
)

// Fields is everything the renderer needs for one record.
type Fields struct {
	Message string
	Time    string
	Level   string
	Prefix  string

	// Keys the values above came from; empty when nothing matched.
	MessageKey string
	TimeKey    string
	LevelKey   string

	// Context holds the value of every context key present in the record.
	Context map[string]record.Value

	// Additional lists the pairs printed below the main line, in record order.
	Additional []record.Pair

	// Values exposes every flattened field to templates by display key.
	Values map[string]string
}

// Resolver maps records to Fields using one Settings value.
type Resolver struct {
	settings *settings.Settings
}

// New returns a Resolver reading s. s must not change afterwards.
func New(s *settings.Settings) *Resolver {
	return &Resolver{settings: s}
}

// Resolve computes the Fields of a structured line. It does not modify the
// record and returns equal Fields for equal input.
func (r *Resolver) Resolve(line record.Line) Fields {
	rec := line.Record
	s := r.settings

	f := Fields{Prefix: strings.TrimSpace(line.Prefix)}

	var ok bool
	if f.MessageKey, f.Message, ok = first(rec, s.MessageKeys); !ok {
		f.Message = rec.Compact()
	}
	f.TimeKey, f.Time, _ = first(rec, s.TimeKeys)
	f.LevelKey, f.Level, _ = first(rec, s.LevelKeys)
	if mapped, ok := s.LevelMap[f.Level]; ok {
		f.Level = mapped
	}

	f.Context = make(map[string]record.Value, len(s.ContextKeys))
	for _, key := range s.ContextKeys {
		if v, ok := rec.Lookup(key); ok {
			f.Context[key] = v
		}
	}

	pairs := record.Flatten(rec)
	f.Values = make(map[string]string, len(pairs))
	for _, p := range pairs {
		f.Values[p.Key] = p.Value
		if r.additional(p, f) {
			f.Additional = append(f.Additional, p)
		}
	}
	return f
}

// additional applies the inclusion rules for one flattened pair. Consumed and
// excluded keys never show; with dump-all everything else does, otherwise only
// keys named as additional values.
func (r *Resolver) additional(p record.Pair, f Fields) bool {
	for _, consumed := range []string{f.MessageKey, f.TimeKey, f.LevelKey} {
		if consumed != "" && (p.Root == consumed || p.Key == consumed || p.Key == nestedName(consumed)) {
			return false
		}
	}
	if matchesAny(p, r.settings.ExcludedValues) {
		return false
	}
	if r.settings.DumpAll {
		return true
	}
	return matchesAny(p, r.settings.AdditionalValues)
}

func matchesAny(p record.Pair, names []string) bool {
	return slices.ContainsFunc(names, func(name string) bool {
		return p.Root == name || record.DescendsFrom(p.Key, name) || record.DescendsFrom(p.Key, nestedName(name))
	})
}

// nestedName turns a dotted key into its flattened form: "req.id" -> "req > id".
func nestedName(name string) string {
	return strings.ReplaceAll(name, ".", " > ")
}

// first returns the first candidate key holding a non-null value.
func first(rec *record.Record, keys []string) (string, string, bool) {
	for _, key := range keys {
		if v, ok := rec.Lookup(key); ok && !v.IsNull() {
			return key, v.String(), true
		}
	}
	return "", "", false
}
