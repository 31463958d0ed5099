package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/postbuilder/internal/diagnostics"
	ferrors "git.home.luguber.info/inful/postbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/postbuilder/internal/frontmatter"
	"git.home.luguber.info/inful/postbuilder/internal/identity"
	"git.home.luguber.info/inful/postbuilder/internal/layout"
	"git.home.luguber.info/inful/postbuilder/internal/metrics"
	"git.home.luguber.info/inful/postbuilder/internal/site"
	"git.home.luguber.info/inful/postbuilder/internal/source"
)

type testRecorder struct {
	mu          sync.Mutex
	stages      map[string]int
	documents   map[metrics.DocumentOutcome]int
	diagnostics map[string]int
	runs        map[metrics.RunOutcome]int
	workers     int
}

func newTestRecorder() *testRecorder {
	return &testRecorder{
		stages:      map[string]int{},
		documents:   map[metrics.DocumentOutcome]int{},
		diagnostics: map[string]int{},
		runs:        map[metrics.RunOutcome]int{},
	}
}

func (r *testRecorder) ObserveStageDuration(stage string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages[stage]++
}
func (r *testRecorder) ObserveRunDuration(time.Duration) {}
func (r *testRecorder) IncDocumentOutcome(o metrics.DocumentOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.documents[o]++
}
func (r *testRecorder) IncDiagnostic(code, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.diagnostics[code]++
}
func (r *testRecorder) IncRunOutcome(o metrics.RunOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[o]++
}
func (r *testRecorder) SetWorkers(n int) { r.workers = n }

type brokenRegistry struct{}

func (brokenRegistry) Lookup(context.Context, string) (layout.Template, bool, error) {
	return layout.Template{}, false, errors.New("permission denied")
}

func blogRegistry() layout.MapRegistry {
	return layout.NewMapRegistry(
		layout.Template{Name: "default"},
		layout.Template{Name: "post", Parent: "default"},
	)
}

func file(path, content string) source.File {
	return source.File{Path: path, Content: []byte(content), ModTime: time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func post(title, date string, categories string) string {
	return fmt.Sprintf("---\nlayout: post\ntitle: %q\ndate: %s\ncategories: %s\n---\nBody of %s.\n", title, date, categories, title)
}

func run(t *testing.T, p *Pipeline, files ...source.File) *Result {
	t.Helper()
	res, err := p.Run(context.Background(), files)
	require.NoError(t, err)
	require.NotNil(t, res)
	require.NotNil(t, res.Model)
	return res
}

func TestRun_ExampleScenario(t *testing.T) {
	p := New(Config{}, blogRegistry())
	res := run(t, p, file("_posts/2020-09-01-example.md", post("Structuring Swift code", "2020-09-01", "[Swift, Cocoa]")))

	m := res.Model
	require.Equal(t, 1, m.Len())
	doc := m.Document(0)
	assert.Equal(t, "example", doc.Slug)
	assert.Equal(t, "/2020/09/01/example", doc.Permalink)
	assert.Equal(t, "Structuring Swift code", doc.Title)
	assert.Equal(t, []string{"Swift", "Cocoa"}, doc.Categories)
	assert.Equal(t, []string{"post", "default"}, doc.Layout.Chain)
	assert.Empty(t, doc.Diagnostics)
	assert.Equal(t, site.DocumentID("/2020/09/01/example"), doc.ID)
	assert.NotEmpty(t, doc.Fingerprint)

	for _, name := range []string{"Swift", "Cocoa"} {
		docs := m.CategoryDocuments(name)
		require.Len(t, docs, 1, name)
		assert.Equal(t, doc.Permalink, docs[0].Permalink)
	}
	assert.Equal(t, []string{"Cocoa", "Swift"}, m.Categories().Names())
	assert.False(t, res.Cancelled)
	assert.Equal(t, 1, res.Processed)
}

func corpus() []source.File {
	var files []source.File
	for i := range 40 {
		day := 1 + i%5
		files = append(files, file(
			fmt.Sprintf("_posts/2020-09-%02d-post-%02d.md", day, i),
			post(fmt.Sprintf("Post %d", i), fmt.Sprintf("2020-09-%02d", day), fmt.Sprintf("[Cat%d, cat%d , Shared]", i%3, i%3)),
		))
	}
	files = append(files,
		file("broken.md", "---\ntitle: never closed\nbody\n"),
		source.File{Path: "unreadable.md", Err: errors.New("permission denied")},
	)
	return files
}

func TestRun_Idempotent(t *testing.T) {
	files := corpus()

	serial := run(t, New(Config{Workers: 1}, blogRegistry()), files...)
	parallel := run(t, New(Config{Workers: 8}, blogRegistry()), files...)
	again := run(t, New(Config{Workers: 8}, blogRegistry()), files...)

	assert.Equal(t, serial.Model.Digest(), parallel.Model.Digest())
	assert.Equal(t, parallel.Model.Digest(), again.Model.Digest())
	assert.Equal(t, serial.Model.Manifest(), again.Model.Manifest())
	assert.Equal(t, serial.Model.Report(), parallel.Model.Report())
}

func TestRun_OrderingDateDescSlugAsc(t *testing.T) {
	res := run(t, New(Config{}, blogRegistry()),
		file("2020-09-01-b.md", "x"),
		file("2020-09-02-z.md", "x"),
		file("2020-09-01-a.md", "x"),
	)

	var slugs []string
	for _, d := range res.Model.Documents() {
		slugs = append(slugs, d.Slug)
	}
	assert.Equal(t, []string{"z", "a", "b"}, slugs)
}

func TestRun_ExplicitDateWithinToleranceWins(t *testing.T) {
	res := run(t, New(Config{}, blogRegistry()),
		file("2020-09-01-evening.md", "---\ndate: 2020-09-01 21:30:00\n---\n"))

	doc := res.Model.Document(0)
	assert.True(t, doc.PublishDate.Equal(time.Date(2020, 9, 1, 21, 30, 0, 0, time.UTC)))
	assert.Equal(t, identity.DateFromFrontMatter, doc.DateSource)
	assert.Empty(t, doc.Diagnostics)
}

func TestRun_CategoryVariantsMergeWithFirstSeenCasing(t *testing.T) {
	res := run(t, New(Config{}, blogRegistry()),
		file("2020-09-01-first.md", "---\ncategories: [\"  Swift \"]\n---\n"),
		file("2020-09-03-second.md", "---\ncategories: [SWIFT, \"cocoa   touch\"]\n---\n"),
		file("2020-09-02-third.md", "---\ncategories: [swift, Cocoa Touch]\n---\n"),
	)

	m := res.Model
	assert.Equal(t, []string{"cocoa touch", "Swift"}, m.Categories().Names())

	swift := m.CategoryDocuments("swift")
	require.Len(t, swift, 3)
	assert.Equal(t, "second", swift[0].Slug)
	assert.Equal(t, "third", swift[1].Slug)
	assert.Equal(t, "first", swift[2].Slug)

	second, ok := m.ByPermalink("/2020/09/03/second")
	require.True(t, ok)
	assert.Equal(t, []string{"Swift", "cocoa touch"}, second.Categories)
}

func TestRun_DuplicatePermalinkExcludesLaterDocument(t *testing.T) {
	res := run(t, New(Config{}, blogRegistry()),
		file("a/2020-09-01-same.md", "first"),
		file("b/2020-09-01-same.md", "second"),
	)

	m := res.Model
	require.Equal(t, 1, m.Len())
	assert.Equal(t, "a/2020-09-01-same.md", m.Document(0).SourcePath)

	failed := m.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "b/2020-09-01-same.md", failed[0].SourcePath)

	dups := m.Report().WithCode(diagnostics.CodeDuplicatePermalink)
	require.Len(t, dups, 1)
	assert.Equal(t, "b/2020-09-01-same.md", dups[0].Path)
	assert.Equal(t, diagnostics.SeverityError, dups[0].Severity)
	assert.Contains(t, dups[0].Message, "a/2020-09-01-same.md")
}

func TestRun_UnterminatedFrontMatterNeverAborts(t *testing.T) {
	res := run(t, New(Config{}, blogRegistry()),
		file("2020-09-01-broken.md", "---\ntitle: Broken\nno closing fence\n"),
		file("2020-09-02-fine.md", "fine"),
	)

	m := res.Model
	require.Equal(t, 2, m.Len())
	broken, ok := m.ByPermalink("/2020/09/01/broken")
	require.True(t, ok)
	require.NotEmpty(t, broken.Diagnostics)
	assert.Equal(t, diagnostics.CodeMalformedFrontMatter, broken.Diagnostics[0].Code)
	assert.Equal(t, "---\ntitle: Broken\nno closing fence\n", string(broken.Body))
}

func TestRun_InvalidDateKeepsPartialFrontMatter(t *testing.T) {
	res := run(t, New(Config{}, blogRegistry()),
		file("2020-09-01-bad-date.md", "---\ntitle: Kept\ndate: yesterday\n---\n"))

	doc := res.Model.Document(0)
	assert.Equal(t, "Kept", doc.Title)
	assert.Equal(t, identity.DateFromFilename, doc.DateSource)
	require.Len(t, doc.Diagnostics, 1)
	assert.Equal(t, diagnostics.CodeMalformedFrontMatter, doc.Diagnostics[0].Code)
	assert.Contains(t, doc.Diagnostics[0].Message, "date")
}

func TestRun_MissingLayoutIsWarning(t *testing.T) {
	res := run(t, New(Config{}, blogRegistry()),
		file("2020-09-01-gallery.md", "---\nlayout: gallery\n---\n"))

	doc := res.Model.Document(0)
	assert.True(t, doc.Layout.Substituted)
	assert.Equal(t, "default", doc.Layout.Name)
	require.Len(t, doc.Diagnostics, 1)
	assert.Equal(t, diagnostics.CodeMissingLayout, doc.Diagnostics[0].Code)
	assert.Empty(t, res.Model.Failed())
}

func TestRun_UnreadableSourceIsFailed(t *testing.T) {
	res := run(t, New(Config{}, blogRegistry()),
		source.File{Path: "locked.md", Err: errors.New("permission denied")},
		file("2020-09-01-ok.md", "ok"),
	)

	require.Equal(t, 1, res.Model.Len())
	failed := res.Model.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, diagnostics.CodeUnreadableSource, failed[0].Diagnostics[0].Code)
}

func TestRun_LayoutCycleIsFatal(t *testing.T) {
	reg := layout.NewMapRegistry(
		layout.Template{Name: "A", Parent: "B"},
		layout.Template{Name: "B", Parent: "A"},
	)
	p := New(Config{}, reg)

	res, err := p.Run(context.Background(), []source.File{
		file("2020-09-01-ok.md", "---\nlayout: default\n---\n"),
		file("2020-09-02-cyclic.md", "---\nlayout: A\n---\n"),
	})

	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, layout.ErrCycle))
	assert.Contains(t, err.Error(), "A -> B -> A")

	ce, ok := ferrors.AsClassified(err)
	require.True(t, ok)
	assert.Equal(t, ferrors.CategoryLayout, ce.Category())
	assert.True(t, ce.IsFatal())

	diag := FatalDiagnostic(err)
	assert.Equal(t, diagnostics.CodeLayoutCycle, diag.Code)
	assert.Equal(t, diagnostics.SeverityFatal, diag.Severity)
}

func TestRun_RegistryUnavailableIsFatal(t *testing.T) {
	res, err := New(Config{}, brokenRegistry{}).Run(context.Background(), []source.File{file("a.md", "a")})

	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, layout.ErrRegistryUnavailable))
	assert.Equal(t, diagnostics.CodeRegistryUnavailable, FatalDiagnostic(err).Code)
}

func TestRun_CancelledBeforeStartReturnsEmptyPartialModel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := New(Config{}, blogRegistry()).Run(ctx, corpus())
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.Cancelled)
	assert.Equal(t, 0, res.Model.Len())

	global := res.Model.Diagnostics()
	require.Len(t, global, 1)
	assert.Equal(t, diagnostics.CodeCancelled, global[0].Code)
	assert.Equal(t, diagnostics.SeverityInfo, global[0].Severity)
}

func TestRun_CancelledMidRunKeepsCompletedDocuments(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := newTestRecorder()
	p := New(Config{Workers: 1}, blogRegistry(), WithRecorder(rec))
	files := corpus()

	// Cancel as soon as the first document has been processed.
	var once sync.Once
	p.afterDocument = func() { once.Do(cancel) }

	res, err := p.Run(ctx, files)
	require.NoError(t, err)
	require.True(t, res.Cancelled)
	assert.Less(t, res.Processed, len(files))
	assert.GreaterOrEqual(t, res.Processed, 1)

	for _, d := range res.Model.Documents() {
		assert.NotEmpty(t, d.Layout.Chain, d.SourcePath)
	}
	assert.Equal(t, 1, rec.runs[metrics.RunCancelled])
}

func TestRun_CancelledAfterLastDocumentStillReduces(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := New(Config{Workers: 1}, blogRegistry())

	// Cancel once the second of two documents has been processed, so the
	// cancellation lands between processing and reduce.
	var mu sync.Mutex
	completed := 0
	p.afterDocument = func() {
		mu.Lock()
		defer mu.Unlock()
		completed++
		if completed == 2 {
			cancel()
		}
	}

	res, err := p.Run(ctx, []source.File{
		file("2020-09-01-a.md", "---\nlayout: post\n---\na"),
		file("2020-09-02-b.md", "---\nlayout: post\n---\nb"),
	})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.Cancelled)
	require.Equal(t, 2, res.Model.Len())
	for _, d := range res.Model.Documents() {
		assert.Equal(t, []string{"post", "default"}, d.Layout.Chain, d.SourcePath)
	}

	var codes []diagnostics.Code
	for _, d := range res.Model.Diagnostics() {
		codes = append(codes, d.Code)
	}
	assert.Contains(t, codes, diagnostics.CodeCancelled)
}

func TestRun_FingerprintFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	p := New(Config{}, blogRegistry(), WithLogger(logger))
	p.fingerprint = func(frontmatter.FrontMatter, []byte) (string, error) {
		return "", errors.New("serialize failed")
	}

	res := run(t, p, file("2020-09-01-a.md", "a"))
	require.Equal(t, 1, res.Model.Len())
	assert.Empty(t, res.Model.Documents()[0].Fingerprint)

	out := buf.String()
	assert.Contains(t, out, `"msg":"Fingerprint skipped"`)
	assert.Contains(t, out, "2020-09-01-a.md")
	assert.Contains(t, out, "serialize failed")
}

func TestRun_RecordsMetrics(t *testing.T) {
	rec := newTestRecorder()
	p := New(Config{Workers: 2}, blogRegistry(), WithRecorder(rec))

	run(t, p,
		file("2020-09-01-a.md", "a"),
		file("2020-09-02-b.md", "---\nlayout: nope\n---\n"),
		source.File{Path: "c.md", Err: errors.New("gone")},
	)

	assert.Equal(t, 2, rec.workers)
	assert.Equal(t, 1, rec.stages[StageProcess])
	assert.Equal(t, 1, rec.stages[StageReduce])
	assert.Equal(t, 1, rec.documents[metrics.DocumentPublished])
	assert.Equal(t, 1, rec.documents[metrics.DocumentWarning])
	assert.Equal(t, 1, rec.documents[metrics.DocumentFailed])
	assert.Equal(t, 1, rec.diagnostics[string(diagnostics.CodeMissingLayout)])
	assert.Equal(t, 1, rec.runs[metrics.RunFailed])
}

func TestRun_EmptyInput(t *testing.T) {
	res := run(t, New(Config{}, blogRegistry()))
	assert.Equal(t, 0, res.Model.Len())
	assert.False(t, res.Cancelled)
}
