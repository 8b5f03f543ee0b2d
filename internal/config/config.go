package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/fblog/internal/settings"
)

// DefaultProfileName selects the profile made of the file's top-level keys.
const DefaultProfileName = "default"

const defaultConfigPath = "~/.config/fblog/config.toml"

// ErrUnknownProfile is returned for a profile name the file does not define.
var ErrUnknownProfile = errors.New("unknown profile")

// Profile is one named set of settings as written in the config file. Unset
// fields keep their defaults.
type Profile struct {
	MessageKeys      []string `toml:"message_keys"`
	TimeKeys         []string `toml:"time_keys"`
	LevelKeys        []string `toml:"level_keys"`
	AdditionalValues []string `toml:"additional_values"`
	ExcludedValues   []string `toml:"excluded_values"`
	ContextKeys      []string `toml:"context_keys"`

	MainLineFormat        string  `toml:"main_line_format"`
	AdditionalValueFormat string  `toml:"additional_value_format"`
	PlaceholderFormat     *string `toml:"placeholder_format"`
	Filter                string  `toml:"filter"`

	DumpAll    bool `toml:"dump_all"`
	WithPrefix bool `toml:"with_prefix"`
	PrintLua   bool `toml:"print_lua"`

	LevelMap map[string]string `toml:"level_map"`
}

// Config is the parsed config file.
type Config struct {
	// Path is the resolved file location, whether or not it exists.
	Path string

	DefaultProfile string
	Base           Profile
	Profiles       map[string]Profile
}

type document struct {
	DefaultProfile string             `toml:"default_profile"`
	Profiles       map[string]Profile `toml:"profiles"`
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	return defaultConfigPath
}

// Load reads the config file at path, or the default location when path is
// empty. A missing file is an empty config.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Config{Path: resolved}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer func() { _ = file.Close() }()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var doc document
	if err := toml.Unmarshal(bytes, &doc); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := toml.Unmarshal(bytes, &cfg.Base); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.DefaultProfile = strings.TrimSpace(doc.DefaultProfile)
	cfg.Profiles = doc.Profiles

	return cfg, nil
}

// Profile returns the named profile. An empty name means the file's
// default_profile, and failing that the top-level keys.
func (c Config) Profile(name string) (Profile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = c.DefaultProfile
	}
	if name == "" || name == DefaultProfileName {
		return c.Base, nil
	}
	p, ok := c.Profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w %q (known: %s)", ErrUnknownProfile, name, strings.Join(c.Names(), ", "))
	}
	return p, nil
}

// Names lists the selectable profiles, sorted, starting with the default one.
func (c Config) Names() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		if name != DefaultProfileName {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return append([]string{DefaultProfileName}, names...)
}

// Settings converts the profile into settings without applying defaults.
// Context keys or a placeholder format turn substitution on, as they do on the
// command line.
func (p Profile) Settings() settings.Settings {
	s := settings.New()
	s.MessageKeys = clean(p.MessageKeys)
	s.TimeKeys = clean(p.TimeKeys)
	s.LevelKeys = clean(p.LevelKeys)
	s.AdditionalValues = clean(p.AdditionalValues)
	s.ExcludedValues = clean(p.ExcludedValues)
	s.ContextKeys = clean(p.ContextKeys)
	s.MainLineFormat = p.MainLineFormat
	s.AdditionalValueFormat = p.AdditionalValueFormat
	s.Filter = strings.TrimSpace(p.Filter)
	s.DumpAll = p.DumpAll
	s.WithPrefix = p.WithPrefix
	s.PrintLua = p.PrintLua
	s.SubstitutionEnabled = len(s.ContextKeys) > 0
	if p.PlaceholderFormat != nil {
		s.PlaceholderFormat = *p.PlaceholderFormat
		s.SubstitutionEnabled = true
	}
	if len(p.LevelMap) > 0 {
		s.LevelMap = make(map[string]string, len(p.LevelMap))
		for k, v := range p.LevelMap {
			s.LevelMap[k] = v
		}
	}
	return s
}

// SaveDefaultProfile records name as default_profile in the config file at
// path, keeping every other key. The profile must exist.
func SaveDefaultProfile(path, name string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	if _, err := cfg.Profile(name); err != nil {
		return err
	}

	doc := map[string]any{}
	bytes, err := os.ReadFile(cfg.Path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(bytes, &doc); err != nil {
			return fmt.Errorf("parse config: %w", err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("read config: %w", err)
	}
	doc["default_profile"] = strings.TrimSpace(name)

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	bytes, err = toml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(cfg.Path, bytes, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func clean(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
