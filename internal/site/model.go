// Package site holds the immutable output of a pipeline run: the ordered
// documents, the category and tag indexes, the failed documents and the
// run-level diagnostics.
package site

import (
	"slices"

	"git.home.luguber.info/inful/postbuilder/internal/diagnostics"
	"git.home.luguber.info/inful/postbuilder/internal/taxonomy"
)

// Model is read-only once built; every accessor returns copies.
type Model struct {
	docs       []Document
	failed     []Document
	categories *taxonomy.Index
	tags       *taxonomy.Index
	global     diagnostics.Report
	byLink     map[string]int
}

// NewModel takes ownership of its arguments. docs must already be in final
// order; the index buckets refer to positions in docs.
func NewModel(docs, failed []Document, categories, tags *taxonomy.Index, global diagnostics.Report) *Model {
	if categories == nil {
		categories = taxonomy.NewBuilder().Build()
	}
	if tags == nil {
		tags = taxonomy.NewBuilder().Build()
	}
	byLink := make(map[string]int, len(docs))
	for i, d := range docs {
		byLink[d.Permalink] = i
	}
	return &Model{
		docs:       docs,
		failed:     failed,
		categories: categories,
		tags:       tags,
		global:     global,
		byLink:     byLink,
	}
}

// Len returns the number of published documents.
func (m *Model) Len() int { return len(m.docs) }

// Documents returns the published documents in final order.
func (m *Model) Documents() []Document { return cloneAll(m.docs) }

// Document returns the document at position i of the final order.
func (m *Model) Document(i int) Document { return m.docs[i].Clone() }

// ByPermalink finds a published document.
func (m *Model) ByPermalink(permalink string) (Document, bool) {
	i, ok := m.byLink[permalink]
	if !ok {
		return Document{}, false
	}
	return m.docs[i].Clone(), true
}

// Failed returns the documents excluded from the render set, in scan order.
func (m *Model) Failed() []Document { return cloneAll(m.failed) }

// Categories returns the category index.
func (m *Model) Categories() *taxonomy.Index { return m.categories }

// Tags returns the tag index.
func (m *Model) Tags() *taxonomy.Index { return m.tags }

// CategoryDocuments returns the documents of one category bucket, newest first.
func (m *Model) CategoryDocuments(name string) []Document {
	return m.bucketDocuments(m.categories, name)
}

// TagDocuments returns the documents of one tag bucket, newest first.
func (m *Model) TagDocuments(name string) []Document {
	return m.bucketDocuments(m.tags, name)
}

func (m *Model) bucketDocuments(ix *taxonomy.Index, name string) []Document {
	b, ok := ix.Lookup(name)
	if !ok {
		return nil
	}
	out := make([]Document, len(b.Docs))
	for i, pos := range b.Docs {
		out[i] = m.docs[pos].Clone()
	}
	return out
}

// Diagnostics returns the run-level diagnostics.
func (m *Model) Diagnostics() diagnostics.Report { return slices.Clone(m.global) }

// Report flattens every diagnostic of the run: documents in scan order with
// their diagnostics in emission order, then the run-level diagnostics.
func (m *Model) Report() diagnostics.Report {
	all := make([]Document, 0, len(m.docs)+len(m.failed))
	all = append(all, m.docs...)
	all = append(all, m.failed...)
	slices.SortFunc(all, func(a, b Document) int { return a.Seq - b.Seq })

	var out diagnostics.Report
	for _, d := range all {
		out = append(out, d.Diagnostics...)
	}
	return append(out, m.global...)
}

func cloneAll(docs []Document) []Document {
	out := make([]Document, len(docs))
	for i, d := range docs {
		out[i] = d.Clone()
	}
	return out
}
