package frontmatter

import (
	"bytes"
	"errors"
)

// Style is the newline convention of a document. Serialize uses it to emit
// front matter in the same shape.
type Style struct {
	Newline string
}

const fence = "---"

// ErrMissingClosingDelimiter indicates the document started with a front matter
// fence but did not contain a closing fence.
var ErrMissingClosingDelimiter = errors.New("front matter opening fence found but closing fence is missing")

// Split separates YAML front matter (`---` fenced) from the Markdown body.
//
// If the document does not start with a fence, had is false and body is the
// full input. A closing fence on the last line without a trailing newline is
// accepted.
func Split(content []byte) (frontmatter []byte, body []byte, had bool, style Style, err error) {
	style = detectStyle(content)

	nl := style.Newline
	open := []byte(fence + nl)
	if !bytes.HasPrefix(content, open) {
		return nil, content, false, style, nil
	}

	rest := content[len(open):]
	closeLine := []byte(fence + nl)
	if bytes.HasPrefix(rest, closeLine) {
		return []byte{}, rest[len(closeLine):], true, style, nil
	}
	if bytes.Equal(rest, []byte(fence)) {
		return []byte{}, []byte{}, true, style, nil
	}

	closeSeq := []byte(nl + fence + nl)
	if idx := bytes.Index(rest, closeSeq); idx >= 0 {
		return rest[:idx+len(nl)], rest[idx+len(closeSeq):], true, style, nil
	}

	closeAtEOF := []byte(nl + fence)
	if bytes.HasSuffix(rest, closeAtEOF) {
		idx := len(rest) - len(closeAtEOF)
		return rest[:idx+len(nl)], []byte{}, true, style, nil
	}

	return nil, nil, false, style, ErrMissingClosingDelimiter
}

func detectStyle(content []byte) Style {
	newline := "\n"
	for i := 0; i+1 < len(content); i++ {
		if content[i] == '\r' && content[i+1] == '\n' {
			newline = "\r\n"
			break
		}
		if content[i] == '\n' {
			break
		}
	}

	return Style{Newline: newline}
}
