package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
	_ "time/tzdata" // embedded zoneinfo for timezone names

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/postbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/postbuilder/internal/identity"
	"git.home.luguber.info/inful/postbuilder/internal/layout"
	"git.home.luguber.info/inful/postbuilder/internal/source"
)

// DefaultPath is the configuration file looked up when none is given.
const DefaultPath = "postbuilder.yaml"

// Defaults applied to empty fields.
const (
	DefaultContentDir    = "_posts"
	DefaultLayoutsDir    = "_layouts"
	DefaultDateTolerance = "24h"
	DefaultDebounce      = "300ms"
	DefaultHistoryPath   = ".postbuilder/history.db"
)

// Config represents the postbuilder configuration file.
type Config struct {
	ContentDir       string   `yaml:"content_dir"`
	LayoutsDir       string   `yaml:"layouts_dir"`
	Permalink        string   `yaml:"permalink"`
	Timezone         string   `yaml:"timezone"`
	DefaultLayout    string   `yaml:"default_layout"`
	DateTolerance    string   `yaml:"date_tolerance"`
	Workers          int      `yaml:"workers,omitempty"`
	Extensions       []string `yaml:"extensions,omitempty"`
	Exclude          []string `yaml:"exclude,omitempty"`
	LayoutExtensions []string `yaml:"layout_extensions,omitempty"`
	ExcerptSeparator string   `yaml:"excerpt_separator,omitempty"`

	Logging LoggingConfig `yaml:"logging"`
	History HistoryConfig `yaml:"history"`
	Metrics MetricsConfig `yaml:"metrics"`
	Watch   WatchConfig   `yaml:"watch"`

	location  *time.Location
	permalink identity.Permalink
	tolerance time.Duration
	debounce  time.Duration
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// HistoryConfig controls the build history database. An empty path disables it.
type HistoryConfig struct {
	Path    string `yaml:"path"`
	Disable bool   `yaml:"disable,omitempty"`
}

// MetricsConfig controls Prometheus exposition.
type MetricsConfig struct {
	// Textfile is written after every build when set.
	Textfile string `yaml:"textfile,omitempty"`
	// Listen serves /metrics in watch mode when set.
	Listen string `yaml:"listen,omitempty"`
}

// WatchConfig controls watch mode.
type WatchConfig struct {
	Debounce string `yaml:"debounce"`
}

// Load reads, expands and validates the configuration at path. Relative
// directories in the file resolve against the file's directory. A .env file
// next to the configuration is loaded first; variables already set win.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ferrors.ConfigError("configuration file not found").
				WithContext("path", path).
				WithCause(err).
				Build()
		}
		return nil, ferrors.ConfigError("cannot access configuration file").WithContext("path", path).WithCause(err).Build()
	}

	base := filepath.Dir(path)
	if err := loadEnvFiles(base); err != nil {
		return nil, ferrors.ConfigError("failed to load environment file").WithContext("path", base).WithCause(err).Build()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ferrors.ConfigError("failed to read config file").WithContext("path", path).WithCause(err).Build()
	}

	cfg, err := decode(strings.NewReader(os.ExpandEnv(string(data))))
	if err != nil {
		return nil, ferrors.ConfigError("failed to unmarshal config").WithContext("path", path).WithCause(err).Build()
	}
	if err := cfg.finalize(base); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file exists, with
// directories relative to base.
func Default(base string) (*Config, error) {
	cfg := &Config{}
	if err := cfg.finalize(base); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(r io.Reader) (*Config, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var cfg Config
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) finalize(base string) error {
	c.applyDefaults()
	if err := c.validate(); err != nil {
		return err
	}
	c.ContentDir = resolvePath(base, c.ContentDir)
	c.LayoutsDir = resolvePath(base, c.LayoutsDir)
	c.History.Path = resolvePath(base, c.History.Path)
	c.Metrics.Textfile = resolvePath(base, c.Metrics.Textfile)
	return nil
}

func (c *Config) applyDefaults() {
	if c.ContentDir == "" {
		c.ContentDir = DefaultContentDir
	}
	if c.LayoutsDir == "" {
		c.LayoutsDir = DefaultLayoutsDir
	}
	if c.Permalink == "" {
		c.Permalink = identity.DefaultPermalink
	}
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	if c.DefaultLayout == "" {
		c.DefaultLayout = layout.DefaultFallback
	}
	if c.DateTolerance == "" {
		c.DateTolerance = DefaultDateTolerance
	}
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	if len(c.Extensions) == 0 {
		c.Extensions = append([]string(nil), source.DefaultExtensions...)
	}
	if len(c.LayoutExtensions) == 0 {
		c.LayoutExtensions = append([]string(nil), layout.DefaultExtensions...)
	}
	if c.History.Path == "" && !c.History.Disable {
		c.History.Path = DefaultHistoryPath
	}
	if c.History.Disable {
		c.History.Path = ""
	}
	if c.Watch.Debounce == "" {
		c.Watch.Debounce = DefaultDebounce
	}
	if c.Logging.Level == "" {
		c.Logging.Level = string(LogLevelInfo)
	}
	if c.Logging.Format == "" {
		c.Logging.Format = string(LogFormatText)
	}
}

func (c *Config) validate() error {
	var err error
	if c.location, err = time.LoadLocation(c.Timezone); err != nil {
		return invalid("timezone", c.Timezone, err)
	}
	if c.permalink, err = identity.CompilePermalink(c.Permalink); err != nil {
		return invalid("permalink", c.Permalink, err)
	}
	if c.tolerance, err = time.ParseDuration(c.DateTolerance); err != nil {
		return invalid("date_tolerance", c.DateTolerance, err)
	}
	if c.tolerance <= 0 {
		return invalid("date_tolerance", c.DateTolerance, errors.New("must be positive"))
	}
	if c.debounce, err = time.ParseDuration(c.Watch.Debounce); err != nil {
		return invalid("watch.debounce", c.Watch.Debounce, err)
	}
	if _, err := logLevels.Parse(c.Logging.Level); err != nil {
		return invalid("logging.level", c.Logging.Level, err)
	}
	if _, err := logFormats.Parse(c.Logging.Format); err != nil {
		return invalid("logging.format", c.Logging.Format, err)
	}
	return nil
}

func invalid(field, value string, err error) error {
	return ferrors.ConfigError(fmt.Sprintf("invalid %s", field)).
		WithContext("field", field).
		WithContext("value", value).
		WithCause(err).
		Build()
}

func resolvePath(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// Location returns the parsed site timezone.
func (c *Config) Location() *time.Location { return c.location }

// CompiledPermalink returns the validated permalink pattern.
func (c *Config) CompiledPermalink() identity.Permalink { return c.permalink }

// Tolerance returns the parsed date tolerance.
func (c *Config) Tolerance() time.Duration { return c.tolerance }

// Debounce returns the parsed watch debounce interval.
func (c *Config) Debounce() time.Duration { return c.debounce }

// Init writes an example configuration to path.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return ferrors.ValidationError("configuration file already exists (use --force to overwrite)").
			WithContext("path", path).
			Build()
	}

	example := Config{
		ContentDir:       DefaultContentDir,
		LayoutsDir:       DefaultLayoutsDir,
		Permalink:        "date",
		Timezone:         "UTC",
		DefaultLayout:    layout.DefaultFallback,
		DateTolerance:    DefaultDateTolerance,
		Exclude:          []string{"drafts", "*.draft.md"},
		ExcerptSeparator: "<!--more-->",
		Logging:          LoggingConfig{Level: string(LogLevelInfo), Format: string(LogFormatText)},
		History:          HistoryConfig{Path: DefaultHistoryPath},
		Watch:            WatchConfig{Debounce: DefaultDebounce},
	}

	data, err := yaml.Marshal(&example)
	if err != nil {
		return ferrors.InternalError("failed to marshal example config").WithCause(err).Build()
	}
	header := "# postbuilder configuration\n# Values may reference environment variables as ${VAR}.\n\n"
	if err := os.WriteFile(path, append([]byte(header), data...), 0o600); err != nil {
		return ferrors.ConfigError("failed to write config file").WithContext("path", path).WithCause(err).Build()
	}
	return nil
}
