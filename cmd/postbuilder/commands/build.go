package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/postbuilder/internal/diagnostics"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Paths       []string `arg:"" optional:"" help:"Source files to build instead of scanning the content directory"`
	Manifest    string   `short:"m" help:"Write the site manifest as JSON to this file"`
	Report      string   `short:"r" help:"Write the diagnostics report as JSON to this file"`
	MetricsFile string   `name:"metrics-file" help:"Write Prometheus metrics in textfile format (overrides metrics.textfile)"`
	NoHistory   bool     `name:"no-history" help:"Do not record this build in the history database"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadedConfig()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, err := newRunner(g, cfg, b.MetricsFile, !b.NoHistory)
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	res, err := r.once(ctx, b.Paths)
	if err != nil {
		return err
	}

	if b.Manifest != "" {
		if err := writeJSON(b.Manifest, res.Model.Manifest()); err != nil {
			return err
		}
	}
	if b.Report != "" {
		report := res.Model.Report()
		if report == nil {
			report = diagnostics.Report{}
		}
		if err := writeJSON(b.Report, report); err != nil {
			return err
		}
	}
	return nil
}
