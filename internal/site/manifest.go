package site

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"git.home.luguber.info/inful/postbuilder/internal/diagnostics"
	"git.home.luguber.info/inful/postbuilder/internal/layout"
	"git.home.luguber.info/inful/postbuilder/internal/taxonomy"
)

// Manifest is the serializable form of a Model, handed to external renderers.
type Manifest struct {
	Documents   []ManifestDocument `json:"documents"`
	Categories  []ManifestBucket   `json:"categories"`
	Tags        []ManifestBucket   `json:"tags"`
	Failed      []ManifestDocument `json:"failed"`
	Diagnostics diagnostics.Report `json:"diagnostics"`
}

// ManifestDocument describes one document. Bodies are represented by the
// fingerprint.
type ManifestDocument struct {
	ID          string                  `json:"id"`
	SourcePath  string                  `json:"sourcePath"`
	Title       string                  `json:"title"`
	Slug        string                  `json:"slug"`
	Permalink   string                  `json:"permalink"`
	PublishDate string                  `json:"publishDate"`
	DateSource  string                  `json:"dateSource"`
	Categories  []string                `json:"categories"`
	Tags        []string                `json:"tags"`
	Layout      layout.Ref              `json:"layout"`
	Excerpt     string                  `json:"excerpt,omitempty"`
	WordCount   int                     `json:"wordCount"`
	Fingerprint string                  `json:"fingerprint"`
	FrontMatter map[string]any          `json:"frontMatter"`
	Diagnostics []diagnostics.Diagnostic `json:"diagnostics,omitempty"`
}

// ManifestBucket lists the permalinks of one taxonomy bucket, newest first.
type ManifestBucket struct {
	Name       string   `json:"name"`
	Permalinks []string `json:"permalinks"`
}

// Manifest builds the serializable form of m.
func (m *Model) Manifest() Manifest {
	return Manifest{
		Documents:   manifestDocs(m.docs),
		Categories:  m.manifestBuckets(m.categories),
		Tags:        m.manifestBuckets(m.tags),
		Failed:      manifestDocs(m.failed),
		Diagnostics: m.Diagnostics(),
	}
}

// Digest is a stable SHA-256 over the manifest. Two runs over the same input
// produce the same digest.
func (m *Model) Digest() string {
	// Manifest holds only JSON-safe values; maps marshal with sorted keys.
	raw, err := json.Marshal(m.Manifest())
	if err != nil {
		panic("site: manifest is not serializable: " + err.Error())
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

func manifestDocs(docs []Document) []ManifestDocument {
	out := make([]ManifestDocument, len(docs))
	for i, d := range docs {
		md := ManifestDocument{
			SourcePath:  d.SourcePath,
			Title:       d.Title,
			Slug:        d.Slug,
			Permalink:   d.Permalink,
			DateSource:  string(d.DateSource),
			Categories:  nonNil(d.Categories),
			Tags:        nonNil(d.Tags),
			Layout:      d.Layout.Clone(),
			Excerpt:     d.Excerpt,
			WordCount:   d.WordCount,
			Fingerprint: d.Fingerprint,
			FrontMatter: jsonSafeMap(d.FrontMatter.Map()),
			Diagnostics: d.Diagnostics,
		}
		if d.Permalink != "" {
			md.ID = d.ID.String()
		}
		if !d.PublishDate.IsZero() {
			md.PublishDate = d.PublishDate.Format(time.RFC3339)
		}
		out[i] = md
	}
	return out
}

func (m *Model) manifestBuckets(ix *taxonomy.Index) []ManifestBucket {
	buckets := ix.Buckets()
	out := make([]ManifestBucket, len(buckets))
	for i, b := range buckets {
		links := make([]string, len(b.Docs))
		for j, pos := range b.Docs {
			links[j] = m.docs[pos].Permalink
		}
		out[i] = ManifestBucket{Name: b.Name, Permalinks: links}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// jsonSafeMap converts decoded YAML into values encoding/json accepts:
// non-string map keys are stringified and non-finite floats become strings.
func jsonSafeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = jsonSafe(v)
	}
	return out
}

func jsonSafe(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return jsonSafeMap(x)
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[fmt.Sprint(k)] = jsonSafe(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = jsonSafe(val)
		}
		return out
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Sprint(x)
		}
		return x
	default:
		return v
	}
}
