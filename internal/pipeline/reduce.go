package pipeline

import (
	"context"
	"slices"

	"git.home.luguber.info/inful/postbuilder/internal/diagnostics"
	"git.home.luguber.info/inful/postbuilder/internal/frontmatter"
	"git.home.luguber.info/inful/postbuilder/internal/layout"
	"git.home.luguber.info/inful/postbuilder/internal/logfields"
	"git.home.luguber.info/inful/postbuilder/internal/metrics"
	"git.home.luguber.info/inful/postbuilder/internal/site"
	"git.home.luguber.info/inful/postbuilder/internal/taxonomy"
)

// reduce is the single writer of the run. It consumes the parallel phase's
// output and builds the model; nothing it produces depends on worker
// scheduling.
func (p *Pipeline) reduce(ctx context.Context, done []processed, cancelled bool) (*site.Model, error) {
	slices.SortFunc(done, func(a, b processed) int { return a.doc.Seq - b.doc.Seq })

	accepted, failed := p.exclude(done)

	resolver := layout.NewResolver(p.registry, p.cfg.DefaultLayout)
	for i := range accepted {
		d := &accepted[i].doc
		ref, diags, err := resolver.Resolve(ctx, d.SourcePath, d.FrontMatter.String(frontmatter.KeyLayout))
		if err != nil {
			return nil, fatalError(err, d.SourcePath)
		}
		d.Layout = ref
		d.Diagnostics = append(d.Diagnostics, diags...)
	}

	// Final order is a pure function of (date, slug, path).
	order := make([]int, len(accepted))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int { return site.Compare(accepted[a].doc, accepted[b].doc) })
	position := make([]int, len(accepted))
	for pos, i := range order {
		position[i] = pos
	}

	// Index contributions are added in scan order so first-seen casing wins.
	cats, tags := taxonomy.NewBuilder(), taxonomy.NewBuilder()
	for i, a := range accepted {
		cats.Add(position[i], a.categories)
		tags.Add(position[i], a.tags)
	}
	catIndex, tagIndex := cats.Build(), tags.Build()

	docs := make([]site.Document, len(accepted))
	for i, a := range accepted {
		a.doc.Categories = canonicalNames(catIndex, a.categories)
		a.doc.Tags = canonicalNames(tagIndex, a.tags)
		docs[position[i]] = a.doc
	}

	var global diagnostics.Report
	if cancelled {
		global = append(global, diagnostics.New(diagnostics.CodeCancelled, "",
			"run cancelled after %d documents; model is partial", len(done)))
	}

	p.record(docs, failed, global)
	return site.NewModel(docs, failed, catIndex, tagIndex, global), nil
}

// exclude splits documents, in scan order, into the render set and the failed
// list. A permalink already taken by an earlier document fails the later one.
func (p *Pipeline) exclude(done []processed) (accepted []processed, failed []site.Document) {
	owners := make(map[string]string, len(done))
	for _, d := range done {
		if d.unreadable {
			failed = append(failed, d.doc)
			continue
		}
		link := d.doc.Permalink
		if owner, dup := owners[link]; dup {
			d.doc.Diagnostics = append(d.doc.Diagnostics, diagnostics.New(diagnostics.CodeDuplicatePermalink,
				d.doc.SourcePath, "permalink %q is already used by %s", link, owner))
			failed = append(failed, d.doc)
			p.logger.Warn("Duplicate permalink", logfields.Path(d.doc.SourcePath), logfields.Permalink(link))
			continue
		}
		owners[link] = d.doc.SourcePath
		accepted = append(accepted, d)
	}
	return accepted, failed
}

func canonicalNames(ix *taxonomy.Index, terms []taxonomy.Term) []string {
	if len(terms) == 0 {
		return nil
	}
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if name, ok := ix.Canonical(t); ok {
			out = append(out, name)
		}
	}
	return out
}

func (p *Pipeline) record(docs, failed []site.Document, global diagnostics.Report) {
	count := func(d site.Document) {
		for _, diag := range d.Diagnostics {
			p.recorder.IncDiagnostic(string(diag.Code), string(diag.Severity))
			p.logger.Debug("Diagnostic", logfields.Path(diag.Path), logfields.Code(string(diag.Code)),
				logfields.Severity(string(diag.Severity)), "message", diag.Message)
		}
	}
	for _, d := range docs {
		count(d)
		if d.Worst().AtLeast(diagnostics.SeverityWarning) {
			p.recorder.IncDocumentOutcome(metrics.DocumentWarning)
		} else {
			p.recorder.IncDocumentOutcome(metrics.DocumentPublished)
		}
	}
	for _, d := range failed {
		count(d)
		p.recorder.IncDocumentOutcome(metrics.DocumentFailed)
	}
	for _, diag := range global {
		p.recorder.IncDiagnostic(string(diag.Code), string(diag.Severity))
	}
}
