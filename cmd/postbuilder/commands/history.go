package commands

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	ferrors "git.home.luguber.info/inful/postbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/postbuilder/internal/history"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int    `short:"n" help:"Number of builds to show" default:"10"`
	ID    string `arg:"" optional:"" help:"Show one build with its diagnostics"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadedConfig()
	if err != nil {
		return err
	}
	if cfg.History.Path == "" {
		return ferrors.ValidationError("build history is disabled").Build()
	}
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	if h.ID != "" {
		b, err := store.Get(ctx, h.ID)
		if err != nil {
			return err
		}
		printBuilds(g, []history.Build{b})
		for _, d := range b.Diagnostics {
			_, _ = fmt.Fprintln(g.Out, d.String())
		}
		return nil
	}

	builds, err := store.List(ctx, h.Limit)
	if err != nil {
		return err
	}
	if len(builds) == 0 {
		_, _ = fmt.Fprintln(g.Out, "No builds recorded")
		return nil
	}
	printBuilds(g, builds)
	return nil
}

func printBuilds(g *Global, builds []history.Build) {
	tw := tabwriter.NewWriter(g.Out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tSTARTED\tOUTCOME\tDOCS\tFAILED\tWARNINGS\tDURATION")
	for _, b := range builds {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			b.ID, b.StartedAt.Local().Format(time.DateTime), b.Outcome,
			b.Documents, b.Failed, b.Warnings, b.Duration)
	}
	_ = tw.Flush()
}
