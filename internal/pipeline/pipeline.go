// Package pipeline orchestrates a publishing run: source files are parsed and
// given an identity by a bounded worker pool, then a single-writer reduce
// excludes failed documents, resolves layouts, builds the taxonomy indexes and
// freezes the site model.
package pipeline

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"git.home.luguber.info/inful/postbuilder/internal/diagnostics"
	"git.home.luguber.info/inful/postbuilder/internal/frontmatter"
	"git.home.luguber.info/inful/postbuilder/internal/identity"
	"git.home.luguber.info/inful/postbuilder/internal/layout"
	"git.home.luguber.info/inful/postbuilder/internal/logfields"
	"git.home.luguber.info/inful/postbuilder/internal/metrics"
	"git.home.luguber.info/inful/postbuilder/internal/site"
	"git.home.luguber.info/inful/postbuilder/internal/source"
)

// Stage names used for timing and logging.
const (
	StageProcess = "process"
	StageReduce  = "reduce"
)

// Config holds the site conventions a run applies.
type Config struct {
	// Location is the site timezone. Defaults to UTC.
	Location *time.Location
	// Permalink defaults to identity.DefaultPermalink.
	Permalink identity.Permalink
	// DateTolerance defaults to identity.DefaultDateTolerance.
	DateTolerance time.Duration
	// DefaultLayout defaults to layout.DefaultFallback.
	DefaultLayout string
	// Workers bounds the worker pool. Defaults to GOMAXPROCS.
	Workers int
	// ExcerptSeparator ends a document's excerpt when present in its body.
	ExcerptSeparator string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.recorder = r
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// Pipeline runs the publishing pipeline. A Pipeline holds no per-run state and
// may run repeatedly; runs must not overlap when a stateful Registry is used.
type Pipeline struct {
	cfg      Config
	registry layout.Registry
	identity *identity.Resolver
	recorder metrics.Recorder
	logger   *slog.Logger

	// afterDocument runs on the worker goroutine after each document. Tests
	// use it to cancel mid-run.
	afterDocument func()
	fingerprint   func(frontmatter.FrontMatter, []byte) (string, error)
}

// New builds a Pipeline. The registry is the read-only template store
// collaborator.
func New(cfg Config, registry layout.Registry, opts ...Option) *Pipeline {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if cfg.DefaultLayout == "" {
		cfg.DefaultLayout = layout.DefaultFallback
	}
	p := &Pipeline{
		cfg:      cfg,
		registry: registry,
		identity: identity.NewResolver(identity.Options{
			Location:  cfg.Location,
			Tolerance: cfg.DateTolerance,
			Permalink: cfg.Permalink,
		}),
		recorder:    metrics.NoopRecorder{},
		logger:      slog.Default(),
		fingerprint: frontmatter.Fingerprint,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Result is the outcome of a run that did not hit a fatal error.
type Result struct {
	Model *site.Model
	// Cancelled is set when the context was cancelled before every document
	// was processed. Model then covers the completed documents only.
	Cancelled bool
	// Processed and Total count source files.
	Processed int
	Total     int
	Duration  time.Duration
}

// Run processes files. The error is non-nil only for run-fatal problems
// (layout cycles, an unreadable registry); per-document problems are
// diagnostics in the model. Cancellation is not an error.
func (p *Pipeline) Run(ctx context.Context, files []source.File) (*Result, error) {
	start := time.Now()
	workers := min(p.cfg.Workers, max(len(files), 1))
	p.recorder.SetWorkers(workers)
	p.logger.Info("Pipeline run started", logfields.Documents(len(files)), logfields.Workers(workers))

	stageStart := time.Now()
	done := p.process(ctx, files, workers)
	p.recorder.ObserveStageDuration(StageProcess, time.Since(stageStart))
	cancelled := len(done) < len(files) || ctx.Err() != nil

	stageStart = time.Now()
	// Reduce always completes: a cancelled run still resolves layouts for the
	// documents it finished.
	model, err := p.reduce(context.WithoutCancel(ctx), done, cancelled)
	p.recorder.ObserveStageDuration(StageReduce, time.Since(stageStart))

	elapsed := time.Since(start)
	p.recorder.ObserveRunDuration(elapsed)
	if err != nil {
		p.recorder.IncRunOutcome(metrics.RunFatal)
		p.logger.Error("Pipeline run aborted", logfields.Error(err), logfields.Duration(elapsed))
		return nil, err
	}

	outcome := runOutcome(model, cancelled)
	p.recorder.IncRunOutcome(outcome)
	p.logger.Info("Pipeline run finished",
		logfields.Outcome(string(outcome)),
		logfields.Documents(model.Len()),
		logfields.Failed(len(model.Failed())),
		logfields.Duration(elapsed))

	return &Result{
		Model:     model,
		Cancelled: cancelled,
		Processed: len(done),
		Total:     len(files),
		Duration:  elapsed,
	}, nil
}

// Outcome classifies the run for metrics and build history.
func (r *Result) Outcome() metrics.RunOutcome { return runOutcome(r.Model, r.Cancelled) }

func runOutcome(m *site.Model, cancelled bool) metrics.RunOutcome {
	switch {
	case cancelled:
		return metrics.RunCancelled
	case len(m.Failed()) > 0:
		return metrics.RunFailed
	case len(m.Report().Filter(diagnostics.SeverityWarning)) > 0:
		return metrics.RunWarning
	default:
		return metrics.RunSuccess
	}
}
