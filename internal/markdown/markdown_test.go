package markdown

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAnalyze_FirstHeadingAndParagraph(t *testing.T) {
	body := []byte("Intro line one\nline *two*.\n\n## Structuring `Swift` code\n\nMore text here.\n")

	s := Analyze(body, Options{})
	require.Equal(t, "Structuring Swift code", s.FirstHeading)
	require.Equal(t, "Intro line one line two.", s.Excerpt)
	require.Equal(t, 11, s.WordCount)
}

func TestAnalyze_NoHeading(t *testing.T) {
	s := Analyze([]byte("Just a paragraph with a [link](https://example.com).\n"), Options{})
	require.Empty(t, s.FirstHeading)
	require.Equal(t, "Just a paragraph with a link.", s.Excerpt)
}

func TestAnalyze_SetextHeading(t *testing.T) {
	s := Analyze([]byte("Title Here\n==========\n\nBody.\n"), Options{})
	require.Equal(t, "Title Here", s.FirstHeading)
	require.Equal(t, "Body.", s.Excerpt)
}

func TestAnalyze_ExcerptSeparator(t *testing.T) {
	body := []byte("First para.\n\nSecond para.\n<!--more-->\nRest.\n")

	s := Analyze(body, Options{ExcerptSeparator: "<!--more-->"})
	require.Equal(t, "First para. Second para.", s.Excerpt)

	s = Analyze([]byte("No separator here.\n"), Options{ExcerptSeparator: "<!--more-->"})
	require.Equal(t, "No separator here.", s.Excerpt)
}

func TestAnalyze_EmptyBody(t *testing.T) {
	s := Analyze(nil, Options{})
	require.Equal(t, Summary{}, s)
}
