package site

import (
	"cmp"
	"slices"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/postbuilder/internal/diagnostics"
	"git.home.luguber.info/inful/postbuilder/internal/frontmatter"
	"git.home.luguber.info/inful/postbuilder/internal/identity"
	"git.home.luguber.info/inful/postbuilder/internal/layout"
)

// Document is one parsed and enriched source file.
type Document struct {
	// Seq is the document's position in scan order.
	Seq         int
	SourcePath  string
	FrontMatter frontmatter.FrontMatter
	Body        []byte

	ID          uuid.UUID
	Title       string
	Slug        string
	Permalink   string
	PublishDate time.Time
	DateSource  identity.DateSource

	// Categories and Tags hold the canonical bucket names, deduplicated, in
	// the order the document declares them.
	Categories []string
	Tags       []string

	Layout      layout.Ref
	Excerpt     string
	WordCount   int
	Fingerprint string

	Diagnostics []diagnostics.Diagnostic
}

// DocumentID is the deterministic identifier of the document published at
// permalink.
func DocumentID(permalink string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(permalink))
}

// Clone returns a deep copy.
func (d Document) Clone() Document {
	d.FrontMatter = d.FrontMatter.Clone()
	d.Body = slices.Clone(d.Body)
	d.Categories = slices.Clone(d.Categories)
	d.Tags = slices.Clone(d.Tags)
	d.Layout = d.Layout.Clone()
	d.Diagnostics = slices.Clone(d.Diagnostics)
	return d
}

// Worst returns the most severe severity attached to d; SeverityInfo when it
// has no diagnostics.
func (d Document) Worst() diagnostics.Severity {
	return diagnostics.Report(d.Diagnostics).Worst()
}

// Compare orders documents by publish date descending, then slug ascending,
// then source path ascending.
func Compare(a, b Document) int {
	if c := b.PublishDate.Compare(a.PublishDate); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Slug, b.Slug); c != 0 {
		return c
	}
	return cmp.Compare(a.SourcePath, b.SourcePath)
}
