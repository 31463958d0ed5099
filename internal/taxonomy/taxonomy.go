// Package taxonomy normalizes category and tag terms and builds the ordered
// term index of a site.
//
// Terms compare by Unicode case folding after trimming and collapsing internal
// whitespace. The first casing seen in scan order becomes the display name of
// the bucket. Indexes are built wholesale by a single writer and are read-only
// afterwards.
package taxonomy

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"git.home.luguber.info/inful/postbuilder/internal/util/sets"
)

// Term is one normalized taxonomy term.
type Term struct {
	// Key is the case-folded comparison form.
	Key string
	// Display is the trimmed, whitespace-collapsed form as written.
	Display string
}

// Normalize returns the term for raw; ok is false for blank input.
func Normalize(raw string) (Term, bool) {
	display := strings.Join(strings.Fields(raw), " ")
	if display == "" {
		return Term{}, false
	}
	return Term{Key: cases.Fold().String(display), Display: display}, true
}

// Terms normalizes a document's raw terms, dropping blanks and keeping the
// first occurrence of each key.
func Terms(raw []string) []Term {
	out := make([]Term, 0, len(raw))
	seen := sets.New[string]()
	for _, r := range raw {
		t, ok := Normalize(r)
		if !ok || !seen.AddNew(t.Key) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Bucket is one term with the documents carrying it. Docs holds positions in
// the site's final document order, ascending.
type Bucket struct {
	Key  string
	Name string
	Docs []int
}

// Index maps normalized terms to buckets.
type Index struct {
	buckets []Bucket
	byKey   map[string]int
}

// Len returns the number of buckets.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.buckets)
}

// Names returns display names ordered by key.
func (ix *Index) Names() []string {
	if ix == nil {
		return nil
	}
	out := make([]string, len(ix.buckets))
	for i, b := range ix.buckets {
		out[i] = b.Name
	}
	return out
}

// Lookup finds a bucket by any casing or spacing variant of its name.
func (ix *Index) Lookup(name string) (Bucket, bool) {
	if ix == nil {
		return Bucket{}, false
	}
	t, ok := Normalize(name)
	if !ok {
		return Bucket{}, false
	}
	i, ok := ix.byKey[t.Key]
	if !ok {
		return Bucket{}, false
	}
	return ix.buckets[i].clone(), true
}

// Canonical returns the display name of the bucket t belongs to.
func (ix *Index) Canonical(t Term) (string, bool) {
	if ix == nil {
		return "", false
	}
	i, ok := ix.byKey[t.Key]
	if !ok {
		return "", false
	}
	return ix.buckets[i].Name, true
}

// Buckets returns every bucket ordered by key.
func (ix *Index) Buckets() []Bucket {
	if ix == nil {
		return nil
	}
	out := make([]Bucket, len(ix.buckets))
	for i, b := range ix.buckets {
		out[i] = b.clone()
	}
	return out
}

func (b Bucket) clone() Bucket {
	b.Docs = slices.Clone(b.Docs)
	return b
}

// Builder accumulates contributions for one Index. It is not safe for
// concurrent use: the reduce phase is its only writer.
type Builder struct {
	byKey   map[string]*Bucket
	members map[string]sets.Set[int]
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		byKey:   make(map[string]*Bucket),
		members: make(map[string]sets.Set[int]),
	}
}

// Add records that the document at position pos carries terms. Calls must be
// made in scan order so the first-seen casing wins.
func (b *Builder) Add(pos int, terms []Term) {
	for _, t := range terms {
		bucket, ok := b.byKey[t.Key]
		if !ok {
			bucket = &Bucket{Key: t.Key, Name: t.Display}
			b.byKey[t.Key] = bucket
			b.members[t.Key] = sets.New[int]()
		}
		if b.members[t.Key].AddNew(pos) {
			bucket.Docs = append(bucket.Docs, pos)
		}
	}
}

// Build freezes the accumulated buckets into an Index.
func (b *Builder) Build() *Index {
	keys := make([]string, 0, len(b.byKey))
	for k := range b.byKey {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	ix := &Index{
		buckets: make([]Bucket, len(keys)),
		byKey:   make(map[string]int, len(keys)),
	}
	for i, k := range keys {
		bucket := b.byKey[k].clone()
		slices.Sort(bucket.Docs)
		ix.buckets[i] = bucket
		ix.byKey[k] = i
	}
	return ix
}
