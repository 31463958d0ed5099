package frontmatter

import (
	"strings"

	"github.com/inful/mdfp"
)

// Fingerprint computes the content fingerprint of a document.
//
// The front matter is serialized with LF newlines, minus any existing
// fingerprint key and one trailing newline, then hashed with the body.
func Fingerprint(fm FrontMatter, body []byte) (string, error) {
	var forHash FrontMatter
	for _, k := range fm.Keys() {
		if k == mdfp.FingerprintField {
			continue
		}
		v, _ := fm.Get(k)
		forHash.Set(k, v)
	}

	serialized := ""
	if forHash.Len() > 0 {
		out, err := Serialize(forHash, Style{Newline: "\n"})
		if err != nil {
			return "", err
		}
		serialized = strings.TrimSuffix(string(out), "\n")
	}
	return mdfp.CalculateFingerprintFromParts(serialized, string(body)), nil
}
