package identity

import (
	"time"

	"git.home.luguber.info/inful/postbuilder/internal/diagnostics"
)

// DateSource records where a publish date came from.
type DateSource string

const (
	DateFromFrontMatter DateSource = "frontmatter"
	DateFromFilename    DateSource = "filename"
	DateFromModTime     DateSource = "modtime"
)

// resolveDate picks the publish date. The explicit field always wins; the
// filename prefix is next; the file's modification time is the last resort.
func resolveDate(path string, explicit *time.Time, name FileName, modTime time.Time, tolerance time.Duration, loc *time.Location) (time.Time, DateSource, []diagnostics.Diagnostic) {
	switch {
	case explicit != nil && name.HasDate():
		diff := explicit.Sub(name.Date)
		if diff < 0 {
			diff = -diff
		}
		if diff > tolerance {
			return *explicit, DateFromFrontMatter, []diagnostics.Diagnostic{
				diagnostics.New(diagnostics.CodeDateAmbiguous, path,
					"date field %s differs from filename date %s by more than %s; using the date field",
					explicit.Format(time.RFC3339), name.Date.Format("2006-01-02"), tolerance),
			}
		}
		return *explicit, DateFromFrontMatter, nil

	case explicit != nil:
		return *explicit, DateFromFrontMatter, nil

	case name.HasDate():
		return name.Date, DateFromFilename, nil

	default:
		d := modTime.In(loc)
		return d, DateFromModTime, []diagnostics.Diagnostic{
			diagnostics.New(diagnostics.CodeDateAmbiguous, path,
				"no date field and no YYYY-MM-DD- filename prefix; using modification time %s",
				d.Format(time.RFC3339)),
		}
	}
}
