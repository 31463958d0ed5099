// Package markdown analyses Markdown bodies with goldmark. It never renders
// HTML: it only extracts the facts the pipeline needs about a body.
package markdown

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Options controls body analysis.
type Options struct {
	// ExcerptSeparator, when non-empty and present in the body, ends the
	// excerpt. Otherwise the excerpt is the first paragraph.
	ExcerptSeparator string
}

// Summary is what the pipeline learns from a body.
type Summary struct {
	// FirstHeading is the plain text of the first heading of any level.
	FirstHeading string
	// Excerpt is plain text with whitespace collapsed.
	Excerpt   string
	WordCount int
}

// ParseBody parses a Markdown body (front matter already removed) into a
// goldmark AST.
func ParseBody(body []byte) gmast.Node {
	return goldmark.New().Parser().Parse(text.NewReader(body))
}

// Analyze parses body once and summarizes it.
func Analyze(body []byte, opts Options) Summary {
	root := ParseBody(body)

	var s Summary
	var firstPara gmast.Node
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *gmast.Heading:
			if s.FirstHeading == "" {
				s.FirstHeading = plainText(node, body)
			}
		case *gmast.Paragraph:
			if firstPara == nil {
				firstPara = node
			}
		}
		return gmast.WalkContinue, nil
	})
	s.WordCount = len(strings.Fields(plainText(root, body)))

	if sep := opts.ExcerptSeparator; sep != "" {
		if idx := bytes.Index(body, []byte(sep)); idx >= 0 {
			head := body[:idx]
			s.Excerpt = plainText(ParseBody(head), head)
			return s
		}
	}
	if firstPara != nil {
		s.Excerpt = plainText(firstPara, body)
	}
	return s
}

// plainText concatenates the text content below n with whitespace collapsed.
func plainText(n gmast.Node, source []byte) string {
	var b strings.Builder
	_ = gmast.Walk(n, func(c gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch node := c.(type) {
		case *gmast.Text:
			b.Write(node.Segment.Value(source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *gmast.String:
			b.Write(node.Value)
		case *gmast.AutoLink:
			b.Write(node.Label(source))
			return gmast.WalkSkipChildren, nil
		case *gmast.Paragraph, *gmast.Heading:
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
		}
		return gmast.WalkContinue, nil
	})
	return strings.Join(strings.Fields(b.String()), " ")
}
