package identity

import (
	"path"
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FallbackSlug is used when neither the filename, the slug field nor the title
// yields any alphanumeric characters.
const FallbackSlug = "untitled"

var datePrefix = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})-(.*)$`)

// Slugify lower-cases s, transliterates accented letters to their base form and
// collapses every run of other characters into a single '-'.
func Slugify(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	pendingSep := false
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return b.String()
}

// FileName is a source path split into its naming conventions.
type FileName struct {
	// Stem is the base name without date prefix and extension.
	Stem string
	// Date is the midnight of the YYYY-MM-DD- prefix; zero when absent or invalid.
	Date time.Time
}

// HasDate reports whether the filename carried a valid date prefix.
func (f FileName) HasDate() bool { return !f.Date.IsZero() }

// SplitFileName parses a slash-separated source path. The date prefix is only
// recognised when it is a real calendar date.
func SplitFileName(p string, loc *time.Location) FileName {
	if loc == nil {
		loc = time.UTC
	}
	base := path.Base(p)
	base = strings.TrimSuffix(base, path.Ext(base))

	m := datePrefix.FindStringSubmatch(base)
	if m == nil {
		return FileName{Stem: base}
	}
	d, err := time.ParseInLocation("2006-01-02", m[1], loc)
	if err != nil {
		return FileName{Stem: base}
	}
	return FileName{Stem: m[2], Date: d}
}
