// Package identity derives a document's canonical title, slug, publish date and
// permalink from its source path and front matter. It never touches the
// filesystem: everything it needs is passed in.
package identity

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"git.home.luguber.info/inful/postbuilder/internal/diagnostics"
	"git.home.luguber.info/inful/postbuilder/internal/frontmatter"
	"git.home.luguber.info/inful/postbuilder/internal/taxonomy"
)

// DefaultDateTolerance is how far an explicit date may drift from the filename
// date before DateAmbiguous is reported.
const DefaultDateTolerance = 24 * time.Hour

// Options configures a Resolver.
type Options struct {
	Location  *time.Location
	Tolerance time.Duration
	Permalink Permalink
}

// Resolver is safe for concurrent use; it holds no mutable state.
type Resolver struct {
	loc       *time.Location
	tolerance time.Duration
	permalink Permalink
}

// NewResolver fills unset options with defaults.
func NewResolver(opts Options) *Resolver {
	r := &Resolver{
		loc:       opts.Location,
		tolerance: opts.Tolerance,
		permalink: opts.Permalink,
	}
	if r.loc == nil {
		r.loc = time.UTC
	}
	if r.tolerance <= 0 {
		r.tolerance = DefaultDateTolerance
	}
	if r.permalink.pattern == "" {
		r.permalink = MustCompilePermalink(DefaultPermalink)
	}
	return r
}

// Input is the per-document information identity depends on.
type Input struct {
	Path        string
	FrontMatter frontmatter.FrontMatter
	// Heading is the first Markdown heading of the body, if any.
	Heading string
	ModTime time.Time
}

// Identity is the resolved naming of one document.
type Identity struct {
	Title       string
	Slug        string
	PublishDate time.Time
	DateSource  DateSource
	Permalink   string
}

// Resolve computes the identity of one document. The returned diagnostics are
// all warnings; resolution itself cannot fail.
func (r *Resolver) Resolve(in Input) (Identity, []diagnostics.Diagnostic) {
	name := SplitFileName(in.Path, r.loc)

	var explicit *time.Time
	if d, ok := in.FrontMatter.Date(frontmatter.KeyDate); ok {
		explicit = &d
	}
	date, source, diags := resolveDate(in.Path, explicit, name, in.ModTime, r.tolerance, r.loc)

	title := r.title(in, name)
	slug := r.slug(in.FrontMatter, name, title)

	permalink := r.permalink.Expand(Fields{
		Date:       date.In(r.loc),
		Slug:       slug,
		Title:      title,
		Categories: categoryNames(in.FrontMatter),
	})

	return Identity{
		Title:       title,
		Slug:        slug,
		PublishDate: date,
		DateSource:  source,
		Permalink:   permalink,
	}, diags
}

func (r *Resolver) title(in Input, name FileName) string {
	if t := in.FrontMatter.String(frontmatter.KeyTitle); t != "" {
		return t
	}
	if h := strings.TrimSpace(in.Heading); h != "" {
		return h
	}
	words := strings.Fields(strings.NewReplacer("-", " ", "_", " ").Replace(name.Stem))
	if len(words) == 0 {
		return ""
	}
	// Casers carry state and must not be shared between goroutines.
	return cases.Title(language.Und).String(strings.Join(words, " "))
}

func (r *Resolver) slug(fm frontmatter.FrontMatter, name FileName, title string) string {
	if explicit := Slugify(fm.String(frontmatter.KeySlug)); explicit != "" {
		return explicit
	}
	if s := Slugify(name.Stem); s != "" {
		return s
	}
	if s := Slugify(title); s != "" {
		return s
	}
	return FallbackSlug
}

// categoryNames returns the document's categories merged the way the category
// index merges them, keeping the first-seen display form.
func categoryNames(fm frontmatter.FrontMatter) []string {
	terms := taxonomy.Terms(fm.Sequence(frontmatter.KeyCategories))
	names := make([]string, len(terms))
	for i, t := range terms {
		names[i] = t.Display
	}
	return names
}
