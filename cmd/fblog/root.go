package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/five82/fblog/internal/app"
	"github.com/five82/fblog/internal/config"
	"github.com/five82/fblog/internal/settings"
)

type runFunc func(context.Context, app.Options) error

type flags struct {
	additional  []string
	messageKeys []string
	timeKeys    []string
	levelKeys   []string
	contextKeys []string
	excluded    []string
	placeholder string
	dumpAll     bool
	withPrefix  bool
	filter      string
	noImplicit  bool
	printLua    bool
	mainFormat  string
	valueFormat string
	profile     string
	configPath  string
	color       string
	follow      bool
	lines       int
	verbose     bool
}

func newRootCmd(runApp runFunc) *cobra.Command {
	var f flags

	root := &cobra.Command{
		Use:   "fblog [INPUT]",
		Short: "Pretty-print JSON log lines",
		Long: `fblog reads log lines from INPUT (a file, or stdin when INPUT is "-" or
omitted) and prints each JSON object as a readable, optionally colored line.
Lines that are not JSON objects pass through unchanged.

Examples:
  kubectl logs my-pod | fblog
  fblog -a user -a request.id app.log
  fblog -f 'level == "error"' -F /var/log/app.log
  fblog -c context -m message --placeholder-format '{{}}' app.log`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			color, err := colorEnabled(f.color, os.Stdout, os.Getenv("NO_COLOR"))
			if err != nil {
				return err
			}
			opts := app.Options{
				ConfigPath: f.configPath,
				Profile:    f.profile,
				Overrides:  f.overrides(cmd),
				Input:      "-",
				Lines:      f.lines,
				Follow:     f.follow,
				Color:      color,
				Verbose:    f.verbose,
				Stdout:     cmd.OutOrStdout(),
				Stderr:     cmd.ErrOrStderr(),
			}
			if len(args) == 1 {
				opts.Input = args[0]
			}
			return runApp(cmd.Context(), opts)
		},
	}

	fs := root.Flags()
	fs.StringArrayVarP(&f.additional, "additional-value", "a", nil, "add a key to print below the main line (repeatable)")
	fs.StringArrayVarP(&f.messageKeys, "message-key", "m", nil, "add a message key, tried before the defaults (repeatable)")
	fs.StringArrayVarP(&f.timeKeys, "time-key", "t", nil, "add a time key, tried before the defaults (repeatable)")
	fs.StringArrayVarP(&f.levelKeys, "level-key", "l", nil, "add a level key, tried before the defaults (repeatable)")
	fs.StringArrayVarP(&f.contextKeys, "context-key", "c", nil, "add a context key for placeholder substitution (repeatable)")
	fs.StringArrayVarP(&f.excluded, "excluded-value", "x", nil, "never print this key; implies --dump-all (repeatable)")
	fs.StringVar(&f.placeholder, "placeholder-format", settings.DefaultPlaceholderFormat, "placeholder delimiters around the word key, e.g. {{key}}")
	fs.BoolVarP(&f.dumpAll, "dump-all", "d", false, "print every field below the main line")
	fs.BoolVarP(&f.withPrefix, "with-prefix", "p", false, "prefix lines with their level and split text before the JSON")
	fs.StringVarP(&f.filter, "filter", "f", "", "Lua expression; only records for which it is true are printed")
	fs.BoolVar(&f.noImplicit, "no-implicit-filter-return-statement", false, "do not prepend return to the filter")
	fs.BoolVar(&f.printLua, "print-lua", false, "print the filter script, its variables and its result to stderr")
	fs.StringVar(&f.mainFormat, "main-line-format", "", "template for the main line")
	fs.StringVar(&f.valueFormat, "additional-value-format", "", "template for each additional value")
	fs.StringVar(&f.color, "color", "auto", "colorize output: auto, always or never")
	fs.BoolVarP(&f.follow, "follow", "F", false, "keep reading as the input file grows")
	fs.IntVarP(&f.lines, "lines", "n", 0, "start with the last N lines of the input")

	pf := root.PersistentFlags()
	pf.StringVarP(&f.profile, "profile", "P", "", "profile to use from the config file")
	pf.StringVar(&f.configPath, "config", "", "config file (default "+config.DefaultPath()+")")
	pf.BoolVarP(&f.verbose, "verbose", "v", false, "log debug diagnostics to stderr")

	root.AddCommand(newUseProfileCmd(&f))
	return root
}

func newUseProfileCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "use-profile NAME",
		Short: "Make NAME the default profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.SaveDefaultProfile(f.configPath, args[0]); err != nil {
				return fmt.Errorf("use profile: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "default profile is now %q\n", args[0])
			return nil
		},
	}
}

// overrides collects the flags that were set. String flags only override the
// profile when given explicitly.
func (f *flags) overrides(cmd *cobra.Command) settings.Overrides {
	o := settings.Overrides{
		MessageKeys:      f.messageKeys,
		TimeKeys:         f.timeKeys,
		LevelKeys:        f.levelKeys,
		AdditionalValues: f.additional,
		ExcludedValues:   f.excluded,
		ContextKeys:      f.contextKeys,
		DumpAll:          f.dumpAll,
		WithPrefix:       f.withPrefix,
		PrintLua:         f.printLua,
		NoImplicitReturn: f.noImplicit,
	}
	changed := cmd.Flags().Changed
	if changed("placeholder-format") {
		o.PlaceholderFormat = &f.placeholder
	}
	if changed("main-line-format") {
		o.MainLineFormat = &f.mainFormat
	}
	if changed("additional-value-format") {
		o.AdditionalValueFormat = &f.valueFormat
	}
	if changed("filter") {
		o.Filter = &f.filter
	}
	return o
}

// colorEnabled resolves --color. In auto mode color is on when out is a
// terminal and NO_COLOR is unset.
func colorEnabled(mode string, out *os.File, noColor string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "always":
		return true, nil
	case "never":
		return false, nil
	case "", "auto":
		if noColor != "" {
			return false, nil
		}
		fd := out.Fd()
		return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd), nil
	default:
		return false, fmt.Errorf("invalid --color %q: want auto, always or never", mode)
	}
}
