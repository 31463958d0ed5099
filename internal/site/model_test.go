package site

import (
	"math"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/postbuilder/internal/diagnostics"
	"git.home.luguber.info/inful/postbuilder/internal/frontmatter"
	"git.home.luguber.info/inful/postbuilder/internal/taxonomy"
)

func doc(seq int, path, slug string, date time.Time, categories ...string) Document {
	permalink := "/" + date.Format("2006/01/02") + "/" + slug
	return Document{
		Seq:         seq,
		SourcePath:  path,
		Slug:        slug,
		Permalink:   permalink,
		PublishDate: date,
		ID:          DocumentID(permalink),
		Categories:  categories,
		Body:        []byte("body of " + slug),
	}
}

func day(d int) time.Time { return time.Date(2020, 9, d, 0, 0, 0, 0, time.UTC) }

func buildModel() *Model {
	docs := []Document{
		doc(0, "a.md", "alpha", day(1), "Swift"),
		doc(1, "b.md", "beta", day(3), "Swift", "Cocoa"),
		doc(2, "c.md", "gamma", day(1)),
	}
	docs[0].Diagnostics = []diagnostics.Diagnostic{diagnostics.New(diagnostics.CodeMissingLayout, "a.md", "missing")}
	slices.SortFunc(docs, Compare)

	b := taxonomy.NewBuilder()
	for i, d := range docs {
		b.Add(i, taxonomy.Terms(d.Categories))
	}

	failed := []Document{{Seq: 3, SourcePath: "d.md", Diagnostics: []diagnostics.Diagnostic{
		diagnostics.New(diagnostics.CodeUnreadableSource, "d.md", "permission denied"),
	}}}
	global := diagnostics.Report{diagnostics.New(diagnostics.CodeCancelled, "", "cancelled")}
	return NewModel(docs, failed, b.Build(), nil, global)
}

func TestCompare_DateDescThenSlugThenPath(t *testing.T) {
	docs := []Document{
		{SourcePath: "z.md", Slug: "same", PublishDate: day(1)},
		{SourcePath: "b.md", Slug: "b", PublishDate: day(1)},
		{SourcePath: "a.md", Slug: "same", PublishDate: day(1)},
		{SourcePath: "n.md", Slug: "new", PublishDate: day(2)},
	}
	slices.SortFunc(docs, Compare)

	var paths []string
	for _, d := range docs {
		paths = append(paths, d.SourcePath)
	}
	assert.Equal(t, []string{"n.md", "b.md", "a.md", "z.md"}, paths)
}

func TestModel_OrderAndLookup(t *testing.T) {
	m := buildModel()

	require.Equal(t, 3, m.Len())
	var slugs []string
	for _, d := range m.Documents() {
		slugs = append(slugs, d.Slug)
	}
	assert.Equal(t, []string{"beta", "alpha", "gamma"}, slugs)

	d, ok := m.ByPermalink("/2020/09/01/alpha")
	require.True(t, ok)
	assert.Equal(t, "a.md", d.SourcePath)
	_, ok = m.ByPermalink("/nope")
	assert.False(t, ok)
}

func TestModel_CategoryDocuments(t *testing.T) {
	m := buildModel()

	swift := m.CategoryDocuments("swift")
	require.Len(t, swift, 2)
	assert.Equal(t, "beta", swift[0].Slug)
	assert.Equal(t, "alpha", swift[1].Slug)
	assert.Nil(t, m.CategoryDocuments("unknown"))
	assert.Equal(t, 0, m.Tags().Len())
}

func TestModel_AccessorsReturnCopies(t *testing.T) {
	m := buildModel()

	docs := m.Documents()
	docs[0].Slug = "mutated"
	docs[0].Body[0] = 'X'
	docs[0].Categories[0] = "mutated"

	again := m.Document(0)
	assert.Equal(t, "beta", again.Slug)
	assert.Equal(t, byte('b'), again.Body[0])
	assert.Equal(t, "Swift", again.Categories[0])
}

func TestModel_OpaqueFrontMatterIsNotShared(t *testing.T) {
	docs := []Document{doc(0, "a.md", "alpha", day(1))}
	docs[0].FrontMatter.Set("extra", frontmatter.Opaque(map[string]any{
		"k":    "v",
		"list": []any{"a", map[string]any{"deep": 1}},
	}))
	m := NewModel(docs, nil, taxonomy.NewBuilder().Build(), nil, nil)
	digest := m.Digest()

	v, ok := m.Documents()[0].FrontMatter.Get("extra")
	require.True(t, ok)
	extra := v.Interface().(map[string]any)
	extra["k"] = "mutated"
	extra["list"].([]any)[1].(map[string]any)["deep"] = 2

	cloned := m.Document(0).FrontMatter.Clone()
	cv, _ := cloned.Get("extra")
	cv.Interface().(map[string]any)["added"] = true

	assert.Equal(t, digest, m.Digest())
	again, _ := m.Document(0).FrontMatter.Get("extra")
	assert.Equal(t, "v", again.Interface().(map[string]any)["k"])
}

func TestModel_ReportOrder(t *testing.T) {
	m := buildModel()

	report := m.Report()
	require.Len(t, report, 3)
	assert.Equal(t, "a.md", report[0].Path)
	assert.Equal(t, "d.md", report[1].Path)
	assert.Equal(t, diagnostics.CodeCancelled, report[2].Code)
}

func TestModel_DigestIsStable(t *testing.T) {
	a, b := buildModel(), buildModel()
	assert.Equal(t, a.Digest(), b.Digest())
	assert.Len(t, a.Digest(), 64)

	docs := a.Documents()
	docs[0].Title = "changed"
	changed := NewModel(docs, a.Failed(), a.Categories(), a.Tags(), a.Diagnostics())
	assert.NotEqual(t, a.Digest(), changed.Digest())
}

func TestManifest_BucketsAndOpaqueValues(t *testing.T) {
	docs := []Document{doc(0, "a.md", "alpha", day(1), "Swift")}
	docs[0].FrontMatter.Set("weird", frontmatter.Opaque(map[any]any{1: "one", "nan": math.NaN()}))
	b := taxonomy.NewBuilder()
	b.Add(0, taxonomy.Terms(docs[0].Categories))
	m := NewModel(docs, nil, b.Build(), nil, nil)

	manifest := m.Manifest()
	require.Len(t, manifest.Categories, 1)
	assert.Equal(t, ManifestBucket{Name: "Swift", Permalinks: []string{"/2020/09/01/alpha"}}, manifest.Categories[0])
	assert.Equal(t, map[string]any{"1": "one", "nan": "NaN"}, manifest.Documents[0].FrontMatter["weird"])
	assert.Equal(t, "2020-09-01T00:00:00Z", manifest.Documents[0].PublishDate)
	assert.NotPanics(t, func() { _ = m.Digest() })
}

func TestDocumentID_Deterministic(t *testing.T) {
	assert.Equal(t, DocumentID("/2020/09/01/example"), DocumentID("/2020/09/01/example"))
	assert.NotEqual(t, DocumentID("/2020/09/01/example"), DocumentID("/2020/09/02/example"))
}
