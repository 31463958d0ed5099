package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/postbuilder/internal/config"
	"git.home.luguber.info/inful/postbuilder/internal/diagnostics"
	"git.home.luguber.info/inful/postbuilder/internal/history"
	"git.home.luguber.info/inful/postbuilder/internal/logfields"
	"git.home.luguber.info/inful/postbuilder/internal/metrics"
	"git.home.luguber.info/inful/postbuilder/internal/pipeline"
)

// runner executes builds and handles their side outputs: summary, metrics
// textfile and build history.
type runner struct {
	g        *Global
	cfg      *config.Config
	reg      *prometheus.Registry
	rec      *metrics.PrometheusRecorder
	store    *history.Store
	textfile string
	quiet    bool
}

func newRunner(g *Global, cfg *config.Config, textfile string, useHistory bool) (*runner, error) {
	reg := prometheus.NewRegistry()
	r := &runner{
		g:        g,
		cfg:      cfg,
		reg:      reg,
		rec:      metrics.NewPrometheusRecorder(reg),
		textfile: textfile,
	}
	if r.textfile == "" {
		r.textfile = cfg.Metrics.Textfile
	}
	if useHistory && cfg.History.Path != "" {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			return nil, err
		}
		r.store = store
	}
	return r, nil
}

func (r *runner) Close() error {
	if r.store == nil {
		return nil
	}
	return r.store.Close()
}

// once runs the pipeline over paths, or the whole content directory. A fatal
// error is printed as a diagnostic and returned.
func (r *runner) once(ctx context.Context, paths []string) (*pipeline.Result, error) {
	started := time.Now()
	files, err := collect(ctx, r.cfg, paths)
	if err != nil {
		return nil, err
	}

	res, err := newPipeline(r.cfg, r.g.Logger, r.rec).Run(ctx, files)
	if err != nil {
		fatal := pipeline.FatalDiagnostic(err)
		_, _ = fmt.Fprintln(r.g.Out, fatal.String())
		r.record(ctx, history.Build{
			StartedAt:   started,
			Duration:    time.Since(started),
			Outcome:     string(metrics.RunFatal),
			Errors:      1,
			Diagnostics: diagnostics.Report{fatal},
		})
		r.flushMetrics()
		return nil, err
	}

	if !r.quiet {
		printSummary(r.g.Out, res)
	}
	r.record(ctx, history.FromModel(res.Model, started, res.Duration, string(res.Outcome())))
	r.flushMetrics()
	return res, nil
}

func (r *runner) record(ctx context.Context, b history.Build) {
	if r.store == nil {
		return
	}
	// A cancelled build is still recorded.
	id, err := r.store.Record(context.WithoutCancel(ctx), b)
	if err != nil {
		r.g.Logger.Warn("Failed to record build history", logfields.Error(err))
		return
	}
	r.g.Logger.Debug("Build recorded", logfields.RunID(id), logfields.Outcome(b.Outcome))
}

func (r *runner) flushMetrics() {
	if r.textfile == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(r.textfile), 0o750); err != nil {
		r.g.Logger.Warn("Failed to create metrics directory", logfields.Path(r.textfile), logfields.Error(err))
		return
	}
	if err := metrics.WriteTextfile(r.reg, r.textfile); err != nil {
		r.g.Logger.Warn("Failed to write metrics textfile", logfields.Path(r.textfile), logfields.Error(err))
	}
}
