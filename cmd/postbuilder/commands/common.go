package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/postbuilder/internal/config"
	"git.home.luguber.info/inful/postbuilder/internal/diagnostics"
	ferrors "git.home.luguber.info/inful/postbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/postbuilder/internal/layout"
	"git.home.luguber.info/inful/postbuilder/internal/metrics"
	"git.home.luguber.info/inful/postbuilder/internal/pipeline"
	"git.home.luguber.info/inful/postbuilder/internal/source"
)

// Global carries state shared by every command.
type Global struct {
	Logger *slog.Logger
	Out    io.Writer
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"postbuilder.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build      BuildCmd      `cmd:"" help:"Build the site model from the content directory"`
	Check      CheckCmd      `cmd:"" help:"Report diagnostics without writing outputs"`
	Categories CategoriesCmd `cmd:"" help:"List category or tag buckets"`
	Watch      WatchCmd      `cmd:"" help:"Rebuild whenever content or layouts change"`
	History    HistoryCmd    `cmd:"" help:"Show recorded builds"`
	Init       InitCmd       `cmd:"" help:"Write an example configuration file"`

	cfg    *config.Config
	cfgErr error
}

// AfterApply runs after flag parsing: load configuration once and set up
// logging from it. A configuration error is reported by the command that
// needs it, so init still works next to a broken file.
func (c *CLI) AfterApply(g *Global) error {
	c.cfg, c.cfgErr = c.loadConfig()

	logging := config.LoggingConfig{}
	if c.cfg != nil {
		logging = c.cfg.Logging
	}
	g.Logger = slog.New(logging.NewHandler(os.Stderr, c.Verbose))
	slog.SetDefault(g.Logger)
	if g.Out == nil {
		g.Out = os.Stdout
	}
	return nil
}

func (c *CLI) loadConfig() (*config.Config, error) {
	_, err := os.Stat(c.Config)
	if errors.Is(err, fs.ErrNotExist) && c.Config == config.DefaultPath {
		return config.Default(".")
	}
	return config.Load(c.Config)
}

// LoadedConfig returns the configuration loaded during AfterApply.
func (c *CLI) LoadedConfig() (*config.Config, error) {
	if c.cfg == nil && c.cfgErr == nil {
		c.cfg, c.cfgErr = c.loadConfig()
	}
	return c.cfg, c.cfgErr
}

func newPipeline(cfg *config.Config, logger *slog.Logger, rec metrics.Recorder) *pipeline.Pipeline {
	registry := layout.NewDirRegistry(cfg.LayoutsDir, cfg.LayoutExtensions...)
	return pipeline.New(pipeline.Config{
		Location:         cfg.Location(),
		Permalink:        cfg.CompiledPermalink(),
		DateTolerance:    cfg.Tolerance(),
		DefaultLayout:    cfg.DefaultLayout,
		Workers:          cfg.Workers,
		ExcerptSeparator: cfg.ExcerptSeparator,
	}, registry, pipeline.WithLogger(logger), pipeline.WithRecorder(rec))
}

// collect scans the content directory, or loads paths when any are given.
func collect(ctx context.Context, cfg *config.Config, paths []string) ([]source.File, error) {
	root, err := filepath.Abs(cfg.ContentDir)
	if err != nil {
		return nil, ferrors.SourceError("cannot resolve content directory").WithContext("path", cfg.ContentDir).WithCause(err).Build()
	}
	var files []source.File
	if len(paths) > 0 {
		abs := make([]string, len(paths))
		for i, p := range paths {
			if abs[i], err = filepath.Abs(p); err != nil {
				return nil, ferrors.ValidationError("invalid path").WithContext("path", p).WithCause(err).Build()
			}
		}
		files, err = source.Load(ctx, root, abs)
	} else {
		files, err = source.Scan(ctx, root, source.Options{Extensions: cfg.Extensions, Exclude: cfg.Exclude})
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, ferrors.SourceError("failed to read content").WithContext("path", root).WithCause(err).Build()
	}
	return files, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ferrors.InternalError("failed to encode JSON").WithCause(err).Build()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return ferrors.NewError(ferrors.CategoryRuntime, "failed to create output directory").WithContext("path", dir).WithCause(err).Build()
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return ferrors.NewError(ferrors.CategoryRuntime, "failed to write file").WithContext("path", path).WithCause(err).Build()
	}
	return nil
}

func printSummary(w io.Writer, res *pipeline.Result) {
	m := res.Model
	counts := m.Report().Counts()
	_, _ = fmt.Fprintf(w, "Built %d documents (%d failed, %d warnings) in %s [%s]\n",
		m.Len(), len(m.Failed()), counts[diagnostics.SeverityWarning], res.Duration.Round(time.Millisecond), res.Outcome())
	if res.Cancelled {
		_, _ = fmt.Fprintf(w, "Cancelled after %d of %d files\n", res.Processed, res.Total)
	}
}
