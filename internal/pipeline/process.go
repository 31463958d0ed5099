package pipeline

import (
	"context"
	"fmt"
	"sync"

	"git.home.luguber.info/inful/postbuilder/internal/diagnostics"
	"git.home.luguber.info/inful/postbuilder/internal/frontmatter"
	"git.home.luguber.info/inful/postbuilder/internal/identity"
	"git.home.luguber.info/inful/postbuilder/internal/logfields"
	"git.home.luguber.info/inful/postbuilder/internal/markdown"
	"git.home.luguber.info/inful/postbuilder/internal/site"
	"git.home.luguber.info/inful/postbuilder/internal/source"
	"git.home.luguber.info/inful/postbuilder/internal/taxonomy"
)

// processed is the per-document output of the parallel phase.
type processed struct {
	doc        site.Document
	categories []taxonomy.Term
	tags       []taxonomy.Term
	unreadable bool
}

type task struct {
	seq  int
	file source.File
}

// process runs parse, identity and taxonomy contribution over files with a
// bounded pool. Cancellation is checked between documents; the returned slice
// holds the completed documents in completion order.
func (p *Pipeline) process(ctx context.Context, files []source.File, workers int) []processed {
	tasks := make(chan task)
	results := make(chan processed)

	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			for t := range tasks {
				if ctx.Err() != nil {
					continue
				}
				results <- p.processOne(t.seq, t.file)
				if p.afterDocument != nil {
					p.afterDocument()
				}
			}
		}()
	}

	go func() {
		defer close(tasks)
		for i, f := range files {
			select {
			case <-ctx.Done():
				return
			case tasks <- task{seq: i, file: f}:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make([]processed, 0, len(files))
	for r := range results {
		out = append(out, r)
	}
	return out
}

// processOne is a pure function of the file and the pipeline configuration.
func (p *Pipeline) processOne(seq int, f source.File) processed {
	doc := site.Document{Seq: seq, SourcePath: f.Path}

	if f.Err != nil {
		doc.Diagnostics = append(doc.Diagnostics, diagnostics.New(diagnostics.CodeUnreadableSource, f.Path,
			"cannot read source file: %v", f.Err))
		return processed{doc: doc, unreadable: true}
	}

	parsed, err := frontmatter.Parse(f.Content, frontmatter.Options{Location: p.cfg.Location})
	for _, problem := range frontmatter.Problems(err) {
		doc.Diagnostics = append(doc.Diagnostics, diagnostics.New(diagnostics.CodeMalformedFrontMatter, f.Path,
			"%s", describeProblem(problem)))
	}
	doc.FrontMatter = parsed.FrontMatter
	doc.Body = parsed.Body

	summary := markdown.Analyze(parsed.Body, markdown.Options{ExcerptSeparator: p.cfg.ExcerptSeparator})
	doc.Excerpt = summary.Excerpt
	doc.WordCount = summary.WordCount

	id, diags := p.identity.Resolve(identity.Input{
		Path:        f.Path,
		FrontMatter: parsed.FrontMatter,
		Heading:     summary.FirstHeading,
		ModTime:     f.ModTime,
	})
	doc.Diagnostics = append(doc.Diagnostics, diags...)
	doc.Title = id.Title
	doc.Slug = id.Slug
	doc.Permalink = id.Permalink
	doc.PublishDate = id.PublishDate
	doc.DateSource = id.DateSource
	doc.ID = site.DocumentID(id.Permalink)

	fp, err := p.fingerprint(parsed.FrontMatter, parsed.Body)
	if err != nil {
		p.logger.Debug("Fingerprint skipped", logfields.Path(f.Path), logfields.Error(err))
	}
	doc.Fingerprint = fp

	return processed{
		doc:        doc,
		categories: taxonomy.Terms(parsed.FrontMatter.Sequence(frontmatter.KeyCategories)),
		tags:       taxonomy.Terms(parsed.FrontMatter.Sequence(frontmatter.KeyTags)),
	}
}

func describeProblem(m *frontmatter.MalformedError) string {
	if m.Key == "" {
		return fmt.Sprintf("front matter ignored: %v", m)
	}
	return fmt.Sprintf("front matter key dropped: %v", m)
}
