package commands

import (
	"context"
	"fmt"
)

// CategoriesCmd implements the 'categories' command.
type CategoriesCmd struct {
	Tags bool `help:"List tag buckets instead of categories"`
}

func (c *CategoriesCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadedConfig()
	if err != nil {
		return err
	}
	r, err := newRunner(g, cfg, "", false)
	if err != nil {
		return err
	}
	r.quiet = true

	res, err := r.once(context.Background(), nil)
	if err != nil {
		return err
	}

	m := res.Model
	index, docs := m.Categories(), m.CategoryDocuments
	if c.Tags {
		index, docs = m.Tags(), m.TagDocuments
	}
	for _, name := range index.Names() {
		members := docs(name)
		_, _ = fmt.Fprintf(g.Out, "%s (%d)\n", name, len(members))
		for _, d := range members {
			_, _ = fmt.Fprintf(g.Out, "  %s  %s\n", d.PublishDate.Format("2006-01-02"), d.Permalink)
		}
	}
	return nil
}

