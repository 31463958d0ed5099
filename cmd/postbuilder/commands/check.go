package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/postbuilder/internal/diagnostics"
	ferrors "git.home.luguber.info/inful/postbuilder/internal/foundation/errors"
)

// CheckCmd implements the 'check' command.
type CheckCmd struct {
	Paths  []string `arg:"" optional:"" help:"Source files to check instead of scanning the content directory"`
	Strict bool     `help:"Treat warnings as failures"`
}

func (c *CheckCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadedConfig()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, err := newRunner(g, cfg, "", false)
	if err != nil {
		return err
	}
	r.quiet = true

	res, err := r.once(ctx, c.Paths)
	if err != nil {
		return err
	}

	report := res.Model.Report()
	for _, d := range report {
		_, _ = fmt.Fprintln(g.Out, d.String())
	}
	counts := report.Counts()
	errs := counts[diagnostics.SeverityError] + counts[diagnostics.SeverityFatal]
	warnings := counts[diagnostics.SeverityWarning]
	_, _ = fmt.Fprintf(g.Out, "%d documents, %d errors, %d warnings\n", res.Model.Len()+len(res.Model.Failed()), errs, warnings)

	if errs > 0 || (c.Strict && warnings > 0) {
		return ferrors.ValidationError("check failed").
			WithContext("errors", errs).
			WithContext("warnings", warnings).
			Build()
	}
	return nil
}
