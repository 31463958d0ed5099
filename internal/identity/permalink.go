package identity

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultPermalink is used when no pattern is configured.
const DefaultPermalink = "/:year/:month/:day/:slug"

var presets = map[string]string{
	"date":   "/:categories/:year/:month/:day/:slug",
	"pretty": "/:categories/:year/:month/:day/:slug/",
	"none":   "/:categories/:slug",
}

var placeholder = regexp.MustCompile(`:[a-z_]+`)

var knownPlaceholders = map[string]struct{}{
	":year": {}, ":month": {}, ":day": {}, ":i_month": {}, ":i_day": {},
	":short_year": {}, ":hour": {}, ":minute": {}, ":second": {},
	":slug": {}, ":title": {}, ":categories": {},
}

// ErrEmptyPermalink is returned by CompilePermalink for a blank pattern.
var ErrEmptyPermalink = errors.New("permalink pattern is empty")

// Permalink is a compiled permalink pattern.
type Permalink struct {
	pattern string
}

// CompilePermalink accepts a preset name or a pattern made of literal path
// segments and placeholders. Unknown placeholders are rejected.
func CompilePermalink(pattern string) (Permalink, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return Permalink{}, ErrEmptyPermalink
	}
	if preset, ok := presets[pattern]; ok {
		pattern = preset
	}
	for _, tok := range placeholder.FindAllString(pattern, -1) {
		if _, ok := knownPlaceholders[tok]; !ok {
			return Permalink{}, fmt.Errorf("unknown permalink placeholder %q in %q", tok, pattern)
		}
	}
	return Permalink{pattern: pattern}, nil
}

// MustCompilePermalink is like CompilePermalink but panics on error.
func MustCompilePermalink(pattern string) Permalink {
	p, err := CompilePermalink(pattern)
	if err != nil {
		panic(err)
	}
	return p
}

// Pattern returns the expanded pattern (presets resolved).
func (p Permalink) Pattern() string { return p.pattern }

// Fields are the values a permalink is expanded from. Date is interpreted in
// its own location; callers convert to the site timezone first.
type Fields struct {
	Date       time.Time
	Slug       string
	Title      string
	Categories []string
}

// Expand renders the permalink. Empty segments collapse, the result always
// starts with '/' and keeps a trailing '/' only when the pattern has one.
func (p Permalink) Expand(f Fields) string {
	expanded := placeholder.ReplaceAllStringFunc(p.pattern, func(tok string) string {
		return f.value(tok)
	})

	var segs []string
	for _, s := range strings.Split(expanded, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	if len(segs) == 0 {
		return "/"
	}
	out := "/" + strings.Join(segs, "/")
	if strings.HasSuffix(p.pattern, "/") {
		out += "/"
	}
	return out
}

func (f Fields) value(tok string) string {
	d := f.Date
	switch tok {
	case ":year":
		return fmt.Sprintf("%04d", d.Year())
	case ":short_year":
		return fmt.Sprintf("%02d", d.Year()%100)
	case ":month":
		return fmt.Sprintf("%02d", int(d.Month()))
	case ":i_month":
		return strconv.Itoa(int(d.Month()))
	case ":day":
		return fmt.Sprintf("%02d", d.Day())
	case ":i_day":
		return strconv.Itoa(d.Day())
	case ":hour":
		return fmt.Sprintf("%02d", d.Hour())
	case ":minute":
		return fmt.Sprintf("%02d", d.Minute())
	case ":second":
		return fmt.Sprintf("%02d", d.Second())
	case ":slug":
		return f.Slug
	case ":title":
		return Slugify(f.Title)
	case ":categories":
		parts := make([]string, 0, len(f.Categories))
		for _, c := range f.Categories {
			if s := Slugify(c); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "/")
	default:
		return tok
	}
}
