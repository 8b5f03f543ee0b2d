package process

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"syscall"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/fblog/internal/diag"
	"github.com/five82/fblog/internal/emit"
	"github.com/five82/fblog/internal/filter"
	"github.com/five82/fblog/internal/render"
	"github.com/five82/fblog/internal/resolve"
	"github.com/five82/fblog/internal/settings"
	"github.com/five82/fblog/internal/substitution"
)

type harness struct {
	p    *Processor
	out  bytes.Buffer
	diag bytes.Buffer
}

func newHarness(t *testing.T, s settings.Settings) *harness {
	t.Helper()
	h := &harness{}
	h.p = build(t, s, emit.New(&h.out), &h.diag)
	return h
}

func build(t *testing.T, s settings.Settings, out *emit.Emitter, diagOut *bytes.Buffer) *Processor {
	t.Helper()
	require.NoError(t, s.Validate())

	opts := filter.Options{ImplicitReturn: s.ImplicitReturn}
	if s.PrintLua {
		opts.Trace = diagOut
	}
	pred, err := filter.New(s.Filter, opts)
	require.NoError(t, err)

	var subst *substitution.Engine
	if s.SubstitutionEnabled {
		subst, err = substitution.New(s.ContextKeys, s.PlaceholderFormat)
		require.NoError(t, err)
	}
	r, err := render.New(render.Options{
		MainLineFormat:        s.MainLineFormat,
		AdditionalValueFormat: s.AdditionalValueFormat,
		WithPrefix:            s.WithPrefix,
		Substitution:          subst,
	})
	require.NoError(t, err)

	return New(Components{
		SplitPrefix: s.WithPrefix,
		Filter:      pred,
		Resolver:    resolve.New(&s),
		Renderer:    r,
		Emitter:     out,
		Log:         diag.New(diagOut, false),
	})
}

func settingsWith(o settings.Overrides) settings.Settings {
	s := settings.New()
	s.Apply(o)
	s.ApplyDefaults()
	return s
}

func strPtr(v string) *string { return &v }

func (h *harness) run(t *testing.T, input string) {
	t.Helper()
	require.NoError(t, h.p.Run(context.Background(), strings.NewReader(input)))
}

func TestProcessLine_NonJSONPassesThroughUnchanged(t *testing.T) {
	h := newHarness(t, settings.Default())

	h.run(t, "not json at all\n")

	assert.Equal(t, "not json at all\n", h.out.String())
}

func TestProcessLine_ObjectContainsMessage(t *testing.T) {
	h := newHarness(t, settings.Default())

	h.run(t, `{"msg":"service started","level":"info"}`+"\n")

	out := h.out.String()
	assert.NotEmpty(t, strings.TrimSpace(out))
	assert.Contains(t, out, "service started")
	assert.Equal(t, 1, strings.Count(out, "\n"))
}

func TestProcessLine_WithPrefixTagBeforeMessage(t *testing.T) {
	h := newHarness(t, settingsWith(settings.Overrides{WithPrefix: true}))

	h.run(t, `{"msg":"hello","level":"info"}`+"\n")

	out := h.out.String()
	require.Contains(t, out, "info")
	assert.Less(t, strings.Index(out, "info"), strings.Index(out, "hello"))
}

func TestProcessLine_ContextPlaceholder(t *testing.T) {
	h := newHarness(t, settingsWith(settings.Overrides{
		ContextKeys:       []string{"user"},
		PlaceholderFormat: strPtr("{{}}"),
		MainLineFormat:    strPtr("{{.Message}} {{user}}"),
	}))

	h.run(t, `{"msg":"x","user":"bob"}`+"\n")

	assert.Equal(t, "x bob\n", h.out.String())
}

func TestProcessLine_AlwaysFalseFilterDropsEverything(t *testing.T) {
	h := newHarness(t, settingsWith(settings.Overrides{Filter: strPtr("false")}))

	h.run(t, `{"msg":"a"}`+"\n"+`{"msg":"b"}`+"\n")

	assert.Empty(t, h.out.String())
	assert.Empty(t, h.diag.String())
}

func TestProcessLine_FilterSelectsRecords(t *testing.T) {
	h := newHarness(t, settingsWith(settings.Overrides{
		Filter:         strPtr(`level == "error"`),
		MainLineFormat: strPtr("{{.Message}}"),
	}))

	h.run(t, strings.Join([]string{
		`{"msg":"keep","level":"error"}`,
		`{"msg":"drop","level":"info"}`,
		`plain text is never filtered`,
	}, "\n"))

	assert.Equal(t, "keep\nplain text is never filtered\n", h.out.String())
}

func TestProcessLine_FilterErrorDropsLineAndContinues(t *testing.T) {
	h := newHarness(t, settingsWith(settings.Overrides{
		Filter:         strPtr("count > 1"),
		MainLineFormat: strPtr("{{.Message}}"),
	}))

	h.run(t, `{"msg":"broken"}`+"\n"+`{"msg":"fine","count":2}`+"\n")

	assert.Equal(t, "fine\n", h.out.String())
	assert.Contains(t, h.diag.String(), "filter failed")
	assert.Contains(t, h.diag.String(), "line=1")
}

func TestProcessLine_PrintLuaTracesToDiagnostics(t *testing.T) {
	h := newHarness(t, settingsWith(settings.Overrides{
		Filter:   strPtr(`level == "info"`),
		PrintLua: true,
	}))

	h.run(t, `{"msg":"m","level":"debug"}`+"\n")

	assert.Empty(t, h.out.String())
	assert.Contains(t, h.diag.String(), `return level == "info"`)
	assert.Contains(t, h.diag.String(), `level = "debug"`)
}

func TestProcessLine_RenderErrorEmitsRawLine(t *testing.T) {
	h := newHarness(t, settingsWith(settings.Overrides{
		MainLineFormat: strPtr("{{fixed .Message 3}}"),
	}))

	raw := `{"msg":"m"}`
	h.run(t, raw+"\n")

	assert.Equal(t, raw+"\n", h.out.String())
	assert.Contains(t, h.diag.String(), "render failed")
}

func TestRun_PreservesOrderBlankLinesAndUnterminatedLastLine(t *testing.T) {
	h := newHarness(t, settingsWith(settings.Overrides{MainLineFormat: strPtr("{{.Message}}")}))

	h.run(t, "first\r\n\n{\"msg\":\"second\"}\n[1,2]\n{\"msg\":\"last\"}")

	assert.Equal(t, "first\n\nsecond\n[1,2]\nlast\n", h.out.String())
	assert.Equal(t, 5, h.p.Lines())
}

func TestRun_ClosedOutputEndsQuietly(t *testing.T) {
	var diagOut bytes.Buffer
	w := &closingWriter{}
	p := build(t, settings.Default(), emit.New(w), &diagOut)

	err := p.Run(context.Background(), strings.NewReader("a\nb\nc\n"))

	require.NoError(t, err)
	assert.Equal(t, 1, w.calls, "nothing is written after the pipe closes")
	assert.Empty(t, diagOut.String())
}

func TestRun_ReadErrorIsWrapped(t *testing.T) {
	h := newHarness(t, settings.Default())
	boom := errors.New("device gone")

	err := h.p.Run(context.Background(), iotest.ErrReader(boom))

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "read input")
}

func TestRun_CancelledContextStopsBeforeNextLine(t *testing.T) {
	h := newHarness(t, settings.Default())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, h.p.Run(ctx, strings.NewReader("a\n")))
	assert.Empty(t, h.out.String())
}

type closingWriter struct{ calls int }

func (w *closingWriter) Write([]byte) (int, error) {
	w.calls++
	return 0, syscall.EPIPE
}

func TestNew_NilFilterKeepsEveryRecord(t *testing.T) {
	s := settings.Default()
	r, err := render.New(render.Options{MainLineFormat: "{{.Message}}", AdditionalValueFormat: s.AdditionalValueFormat})
	require.NoError(t, err)
	var out bytes.Buffer
	p := New(Components{Resolver: resolve.New(&s), Renderer: r, Emitter: emit.New(&out)})

	require.NoError(t, p.Run(context.Background(), strings.NewReader(`{"msg":"a"}`+"\n"+`{"msg":"b"}`+"\n")))
	assert.Equal(t, "a\nb\n", out.String())
}
