package render

import (
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"
)

// Level colors, one per family of level names.
const (
	colorTrace   = "8" // bright black
	colorDebug   = "4" // blue
	colorInfo    = "2" // green
	colorWarn    = "3" // yellow
	colorError   = "1" // red
	colorFatal   = "5" // magenta
	colorNeutral = ""
)

var levelColors = map[string]string{
	"trace":    colorTrace,
	"debug":    colorDebug,
	"info":     colorInfo,
	"notice":   colorInfo,
	"warn":     colorWarn,
	"warning":  colorWarn,
	"error":    colorError,
	"err":      colorError,
	"fatal":    colorFatal,
	"critical": colorFatal,
	"crit":     colorFatal,
	"panic":    colorFatal,
	"alert":    colorFatal,
	"emerg":    colorFatal,
}

// LevelColor returns the ANSI color for a level name, ignoring case and
// surrounding space. Unknown levels get the neutral (empty) color.
func LevelColor(level string) string {
	if c, ok := levelColors[strings.ToLower(strings.TrimSpace(level))]; ok {
		return c
	}
	return colorNeutral
}

// styles builds lipgloss styles against a renderer whose color profile is
// fixed up front, so output never depends on what stdout happens to be.
type styles struct {
	r *lipgloss.Renderer
}

func newStyles(color bool) styles {
	r := lipgloss.NewRenderer(io.Discard)
	if color {
		r.SetColorProfile(termenv.TrueColor)
	} else {
		r.SetColorProfile(termenv.Ascii)
	}
	r.SetHasDarkBackground(true)
	return styles{r: r}
}

func (s styles) fg(color string) func(string) string {
	if strings.TrimSpace(color) == "" {
		return func(v string) string { return v }
	}
	style := s.r.NewStyle().Foreground(lipgloss.Color(color))
	return func(v string) string { return style.Render(v) }
}

// level styles text with the bold color of level.
func (s styles) level(level, text string) string {
	style := s.r.NewStyle().Bold(true)
	if c := LevelColor(level); c != colorNeutral {
		style = style.Foreground(lipgloss.Color(c))
	}
	return style.Render(text)
}

// tag renders the "[level]" prefix used by with-prefix output.
func (s styles) tag(level string) string {
	level = strings.TrimSpace(level)
	if level == "" {
		return ""
	}
	return s.level(level, "["+level+"]")
}

func (s styles) funcs() template.FuncMap {
	return template.FuncMap{
		"bold":      func(v string) string { return s.r.NewStyle().Bold(true).Render(v) },
		"italic":    func(v string) string { return s.r.NewStyle().Italic(true).Render(v) },
		"underline": func(v string) string { return s.r.NewStyle().Underline(true).Render(v) },
		"faint":     func(v string) string { return s.r.NewStyle().Faint(true).Render(v) },
		"red":       s.fg("1"),
		"green":     s.fg("2"),
		"yellow":    s.fg("3"),
		"blue":      s.fg("4"),
		"magenta":   s.fg("5"),
		"cyan":      s.fg("6"),
		"white":     s.fg("7"),
		"gray":      s.fg("8"),
		"color":     func(color, v string) string { return s.fg(color)(v) },
		"colorRGB": func(r, g, b int, v string) string {
			return s.fg(fmt.Sprintf("#%02x%02x%02x", clamp(r), clamp(g), clamp(b)))(v)
		},
		"levelStyle": s.level,
		"fixed":      fixed,
		"pad":        pad,
		"upper":      strings.ToUpper,
		"lower":      strings.ToLower,
		"trim":       strings.TrimSpace,
	}
}

// fixed pads or truncates v to exactly width display cells.
func fixed(width int, v string) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(v) > width {
		return runewidth.Truncate(v, width, "")
	}
	return runewidth.FillRight(v, width)
}

// pad right-aligns v in width display cells without truncating.
func pad(width int, v string) string {
	return runewidth.FillLeft(v, width)
}

func clamp(c int) int {
	return max(0, min(255, c))
}
