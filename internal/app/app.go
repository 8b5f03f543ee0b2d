package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/five82/fblog/internal/config"
	"github.com/five82/fblog/internal/diag"
	"github.com/five82/fblog/internal/emit"
	"github.com/five82/fblog/internal/filter"
	"github.com/five82/fblog/internal/logtail"
	"github.com/five82/fblog/internal/process"
	"github.com/five82/fblog/internal/render"
	"github.com/five82/fblog/internal/resolve"
	"github.com/five82/fblog/internal/settings"
	"github.com/five82/fblog/internal/substitution"
)

// Options configure one fblog run.
type Options struct {
	ConfigPath string // empty uses ~/.config/fblog/config.toml
	Profile    string // empty uses the config's default profile

	Overrides settings.Overrides

	Input  string // "-" or empty reads stdin
	Lines  int    // start with the last N lines; zero reads everything
	Follow bool

	Color   bool
	Verbose bool

	Stdout io.Writer // nil uses os.Stdout
	Stderr io.Writer // nil uses os.Stderr
}

// Run builds the pipeline and processes the input until it ends, the output
// is closed or ctx is cancelled. Configuration problems are reported before
// the input is opened.
func Run(ctx context.Context, opts Options) error {
	stdout, stderr := opts.Stdout, opts.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	log := diag.New(stderr, opts.Verbose)

	s, err := LoadSettings(opts.ConfigPath, opts.Profile, opts.Overrides)
	if err != nil {
		return err
	}

	var trace io.Writer
	if s.PrintLua {
		trace = stderr
	}
	pred, err := filter.New(s.Filter, filter.Options{ImplicitReturn: s.ImplicitReturn, Trace: trace})
	if err != nil {
		return err
	}
	if c, ok := pred.(io.Closer); ok {
		defer c.Close()
	}

	var subst *substitution.Engine
	if s.SubstitutionEnabled {
		subst, err = substitution.New(s.ContextKeys, s.PlaceholderFormat)
		if err != nil {
			return err
		}
	}

	renderer, err := render.New(render.Options{
		MainLineFormat:        s.MainLineFormat,
		AdditionalValueFormat: s.AdditionalValueFormat,
		WithPrefix:            s.WithPrefix,
		Color:                 opts.Color,
		Substitution:          subst,
	})
	if err != nil {
		return err
	}

	file, err := logtail.Open(opts.Input)
	if err != nil {
		return err
	}
	input, err := logtail.Reader(ctx, file, opts.Lines, opts.Follow)
	if err != nil {
		_ = file.Close()
		return err
	}
	defer func() { _ = input.Close() }()
	// Unblocks a pending read on cancellation.
	stop := context.AfterFunc(ctx, func() { _ = input.Close() })
	defer stop()

	log.WithFields(logrus.Fields{
		"input":        file.Name(),
		"profile":      opts.Profile,
		"filter":       s.Filter != "",
		"substitution": s.SubstitutionEnabled,
		"dump_all":     s.DumpAll,
		"color":        opts.Color,
	}).Debug("starting")

	p := process.New(process.Components{
		SplitPrefix: s.WithPrefix,
		Filter:      pred,
		Resolver:    resolve.New(&s),
		Renderer:    renderer,
		Emitter:     emit.New(stdout),
		Log:         log,
	})
	err = p.Run(ctx, input)
	log.WithField("lines", p.Lines()).Debug("finished")
	return err
}

// LoadSettings resolves the settings for a run: the selected profile, then
// the command-line overrides, then the defaults. The result is validated.
func LoadSettings(configPath, profile string, o settings.Overrides) (settings.Settings, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return settings.Settings{}, fmt.Errorf("load config: %w", err)
	}
	p, err := cfg.Profile(profile)
	if err != nil {
		return settings.Settings{}, fmt.Errorf("select profile: %w", err)
	}

	s := p.Settings()
	s.Apply(o)
	s.ApplyDefaults()
	if err := s.Validate(); err != nil {
		return settings.Settings{}, fmt.Errorf("invalid settings: %w", err)
	}
	return s, nil
}
