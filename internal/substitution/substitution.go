// Package substitution replaces placeholder tokens such as "{user}" with values
// taken from a record's context keys.
package substitution

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/five82/fblog/internal/record"
)

// ErrInvalidPlaceholderFormat is returned by New for a format that cannot
// delimit tokens.
var ErrInvalidPlaceholderFormat = errors.New("invalid placeholder format")

const keyMarker = "key"

// Template keywords can never be placeholder keys, so "{{end}}" stays a
// template action even when placeholders are written as "{{key}}".
var reserved = map[string]bool{
	"end": true, "else": true, "if": true, "range": true, "with": true,
	"define": true, "block": true, "template": true, "break": true,
	"continue": true, "nil": true, "true": true, "false": true,
}

// Engine finds and resolves placeholders. It is immutable after New.
type Engine struct {
	prefix, suffix string
	contextKeys    []string
}

// New parses placeholderFormat and returns an Engine looking values up under
// contextKeys. "{key}" means prefix "{" and suffix "}"; a format without the word
// key is split in half, so "{{}}" means "{{" and "}}".
func New(contextKeys []string, placeholderFormat string) (*Engine, error) {
	prefix, suffix, err := ParseFormat(placeholderFormat)
	if err != nil {
		return nil, err
	}
	return &Engine{
		prefix:      prefix,
		suffix:      suffix,
		contextKeys: append([]string(nil), contextKeys...),
	}, nil
}

// ParseFormat splits a placeholder format into its delimiters.
func ParseFormat(format string) (string, string, error) {
	if strings.TrimSpace(format) == "" {
		return "", "", fmt.Errorf("%w: format is empty", ErrInvalidPlaceholderFormat)
	}

	var prefix, suffix string
	if before, after, found := strings.Cut(format, keyMarker); found {
		prefix, suffix = before, after
	} else {
		if len(format)%2 != 0 {
			return "", "", fmt.Errorf("%w: %q must contain %q or split into two equal halves", ErrInvalidPlaceholderFormat, format, keyMarker)
		}
		prefix, suffix = format[:len(format)/2], format[len(format)/2:]
	}

	switch {
	case prefix == "" || strings.TrimSpace(prefix) == "":
		return "", "", fmt.Errorf("%w: %q has no opening delimiter", ErrInvalidPlaceholderFormat, format)
	case suffix == "" || strings.TrimSpace(suffix) == "":
		return "", "", fmt.Errorf("%w: %q has no closing delimiter", ErrInvalidPlaceholderFormat, format)
	}
	return prefix, suffix, nil
}

// Delimiters returns the opening and closing delimiter.
func (e *Engine) Delimiters() (string, string) { return e.prefix, e.suffix }

// TokenAt reports whether a placeholder starts at text[pos:]. It returns the
// key and the offset just past the closing delimiter.
func (e *Engine) TokenAt(text string, pos int) (string, int, bool) {
	if !strings.HasPrefix(text[pos:], e.prefix) {
		return "", 0, false
	}
	start := pos + len(e.prefix)
	n := strings.Index(text[start:], e.suffix)
	if n < 0 {
		return "", 0, false
	}
	key := text[start : start+n]
	if !validKey(key) {
		return "", 0, false
	}
	return key, start + n + len(e.suffix), true
}

// Keys lists the placeholder keys in text, left to right, with repeats.
func (e *Engine) Keys(text string) []string {
	var keys []string
	e.scan(text, func(literal, key string) {
		if key != "" {
			keys = append(keys, key)
		}
	})
	return keys
}

// Apply replaces every placeholder in text. Keys that resolve to nothing are
// replaced with the empty string.
func (e *Engine) Apply(text string, context map[string]record.Value) string {
	var b strings.Builder
	b.Grow(len(text))
	e.scan(text, func(literal, key string) {
		b.WriteString(literal)
		if key != "" {
			b.WriteString(e.Lookup(key, context))
		}
	})
	return b.String()
}

// scan walks text calling emit with each literal run and the key that follows
// it (empty at the end). Tokens never overlap and do not nest.
func (e *Engine) scan(text string, emit func(literal, key string)) {
	litStart := 0
	for pos := 0; pos < len(text); {
		key, end, ok := e.TokenAt(text, pos)
		if !ok {
			pos++
			continue
		}
		emit(text[litStart:pos], key)
		pos, litStart = end, end
	}
	emit(text[litStart:], "")
}

// Lookup resolves key against the context values: first as a context key
// itself, then inside every object or array context value in context-key
// order. Strings render raw and everything else as compact JSON.
func (e *Engine) Lookup(key string, context map[string]record.Value) string {
	if v, ok := context[key]; ok {
		return v.String()
	}
	for _, ck := range e.contextKeys {
		v, ok := context[ck]
		if !ok {
			continue
		}
		if obj, ok := v.AsObject(); ok {
			if found, ok := obj.Lookup(key); ok {
				return found.String()
			}
		}
		if items, ok := v.AsArray(); ok {
			if i, err := strconv.Atoi(key); err == nil && i >= 0 && i < len(items) {
				return items[i].String()
			}
		}
	}
	return ""
}

func validKey(key string) bool {
	if key == "" || key[0] == '.' || reserved[key] {
		return false
	}
	return !strings.ContainsAny(key, " \t\r\n{}()|\"$")
}
