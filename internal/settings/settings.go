// Package settings holds the per-run configuration and the rules for merging
// profile values, command-line overrides and defaults.
package settings

import (
	"errors"
	"slices"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	DefaultPlaceholderFormat = "{key}"

	DefaultMainLineFormat = `{{bold (fixed 19 .Time)}} {{levelStyle .Level (upper (fixed 5 .Level))}}:{{if .Prefix}} {{bold (cyan .Prefix)}}{{end}} {{.Message}}`

	DefaultAdditionalValueFormat = `{{bold (gray (pad 25 .Key))}}: {{.Value}}`
)

var (
	defaultMessageKeys = []string{"short_message", "msg", "message"}
	defaultTimeKeys    = []string{"timestamp", "time", "@timestamp"}
	defaultLevelKeys   = []string{"level", "severity", "log.level", "loglevel"}
	defaultContextKeys = []string{"context"}

	// bunyan and pino write numeric levels.
	defaultLevelMap = map[string]string{
		"10": "trace",
		"20": "debug",
		"30": "info",
		"40": "warn",
		"50": "error",
		"60": "fatal",
	}
)

// Settings is the resolved per-run configuration. It is built once before the
// stream starts and only read afterwards.
type Settings struct {
	MessageKeys      []string
	TimeKeys         []string
	LevelKeys        []string
	AdditionalValues []string
	ExcludedValues   []string
	ContextKeys      []string

	MainLineFormat        string
	AdditionalValueFormat string
	PlaceholderFormat     string

	// Filter is the source of the filter expression; empty keeps every line.
	Filter string

	// LevelMap translates raw level values before rendering.
	LevelMap map[string]string

	DumpAll             bool
	WithPrefix          bool
	SubstitutionEnabled bool
	PrintLua            bool
	ImplicitReturn      bool
}

// Default returns settings with every default applied.
func Default() Settings {
	s := New()
	s.ApplyDefaults()
	return s
}

// New returns the starting point for a profile: empty key lists, the default
// placeholder format and implicit filter returns.
func New() Settings {
	return Settings{
		PlaceholderFormat: DefaultPlaceholderFormat,
		ImplicitReturn:    true,
	}
}

// Overrides are the command-line values layered on top of a profile. Nil
// pointers and empty slices leave the profile value alone.
type Overrides struct {
	MessageKeys      []string
	TimeKeys         []string
	LevelKeys        []string
	AdditionalValues []string
	ExcludedValues   []string
	ContextKeys      []string

	MainLineFormat        *string
	AdditionalValueFormat *string
	PlaceholderFormat     *string
	Filter                *string

	DumpAll          bool
	WithPrefix       bool
	PrintLua         bool
	NoImplicitReturn bool
}

// Apply merges o into s. All flag interactions live here:
//
//  1. command-line keys are tried before profile keys
//  2. a context key or placeholder format turns substitution on
//  3. an excluded value turns dump-all on
//  4. command-line formats and filter replace the profile's
//  5. implicit return stays on unless explicitly disabled
func (s *Settings) Apply(o Overrides) {
	s.MessageKeys = prepend(o.MessageKeys, s.MessageKeys)
	s.TimeKeys = prepend(o.TimeKeys, s.TimeKeys)
	s.LevelKeys = prepend(o.LevelKeys, s.LevelKeys)
	s.AdditionalValues = appendUnique(s.AdditionalValues, o.AdditionalValues...)
	s.ExcludedValues = appendUnique(s.ExcludedValues, o.ExcludedValues...)

	if len(o.ContextKeys) > 0 {
		s.ContextKeys = appendUnique(s.ContextKeys, o.ContextKeys...)
		s.SubstitutionEnabled = true
	}
	if o.PlaceholderFormat != nil {
		s.PlaceholderFormat = *o.PlaceholderFormat
		s.SubstitutionEnabled = true
	}

	s.DumpAll = s.DumpAll || o.DumpAll
	if len(s.ExcludedValues) > 0 {
		s.DumpAll = true
	}
	s.WithPrefix = s.WithPrefix || o.WithPrefix
	s.PrintLua = s.PrintLua || o.PrintLua

	if o.MainLineFormat != nil {
		s.MainLineFormat = *o.MainLineFormat
	}
	if o.AdditionalValueFormat != nil {
		s.AdditionalValueFormat = *o.AdditionalValueFormat
	}
	if o.Filter != nil {
		s.Filter = *o.Filter
	}
	s.ImplicitReturn = !o.NoImplicitReturn
}

// ApplyDefaults appends the default candidate keys after the configured ones
// and fills in empty formats, so no key list is ever empty. The placeholder
// format is left alone: an explicitly empty one must fail validation.
func (s *Settings) ApplyDefaults() {
	s.MessageKeys = appendUnique(s.MessageKeys, defaultMessageKeys...)
	s.TimeKeys = appendUnique(s.TimeKeys, defaultTimeKeys...)
	s.LevelKeys = appendUnique(s.LevelKeys, defaultLevelKeys...)
	if len(s.ContextKeys) == 0 {
		s.ContextKeys = append([]string(nil), defaultContextKeys...)
	}
	if strings.TrimSpace(s.MainLineFormat) == "" {
		s.MainLineFormat = DefaultMainLineFormat
	}
	if strings.TrimSpace(s.AdditionalValueFormat) == "" {
		s.AdditionalValueFormat = DefaultAdditionalValueFormat
	}
	if len(s.ExcludedValues) > 0 {
		s.DumpAll = true
	}

	levels := make(map[string]string, len(defaultLevelMap)+len(s.LevelMap))
	for k, v := range defaultLevelMap {
		levels[k] = v
	}
	for k, v := range s.LevelMap {
		levels[k] = v
	}
	s.LevelMap = levels
}

// Validate checks the invariants the pipeline relies on.
func (s Settings) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.MessageKeys, validation.Required, validation.Each(validation.Required)),
		validation.Field(&s.TimeKeys, validation.Required, validation.Each(validation.Required)),
		validation.Field(&s.LevelKeys, validation.Required, validation.Each(validation.Required)),
		validation.Field(&s.ContextKeys, validation.Each(validation.Required)),
		validation.Field(&s.AdditionalValues, validation.Each(validation.Required)),
		validation.Field(&s.ExcludedValues, validation.Each(validation.Required)),
		validation.Field(&s.MainLineFormat, validation.Required),
		validation.Field(&s.AdditionalValueFormat, validation.Required),
		validation.Field(&s.PlaceholderFormat, validation.When(s.SubstitutionEnabled, validation.By(nonBlank))),
	)
}

func nonBlank(value interface{}) error {
	if s, _ := value.(string); strings.TrimSpace(s) == "" {
		return errors.New("cannot be blank")
	}
	return nil
}

// prepend returns first followed by the entries of rest that are not in first.
func prepend(first, rest []string) []string {
	if len(first) == 0 {
		return rest
	}
	return appendUnique(appendUnique(nil, first...), rest...)
}

func appendUnique(list []string, values ...string) []string {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || slices.Contains(list, v) {
			continue
		}
		list = append(list, v)
	}
	return list
}
