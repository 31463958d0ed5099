package frontmatter

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrMalformed is matched (via errors.Is) by every MalformedError.
var ErrMalformed = errors.New("malformed front matter")

// MalformedError describes one problem in a front matter block. Key is empty
// when the whole block was rejected.
type MalformedError struct {
	Key  string
	Line int
	Err  error
}

func (e *MalformedError) Error() string {
	switch {
	case e.Key != "" && e.Line > 0:
		return fmt.Sprintf("key %q (line %d): %v", e.Key, e.Line, e.Err)
	case e.Key != "":
		return fmt.Sprintf("key %q: %v", e.Key, e.Err)
	default:
		return e.Err.Error()
	}
}

func (e *MalformedError) Unwrap() error { return e.Err }

func (e *MalformedError) Is(target error) bool { return target == ErrMalformed }

// Problems flattens the error returned by Parse into its individual problems.
func Problems(err error) []*MalformedError {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []*MalformedError
		for _, e := range joined.Unwrap() {
			out = append(out, Problems(e)...)
		}
		return out
	}
	var me *MalformedError
	if errors.As(err, &me) {
		return []*MalformedError{me}
	}
	return []*MalformedError{{Err: err}}
}

// Options controls typed decoding.
type Options struct {
	// Location is used for date values without a zone offset. Defaults to UTC.
	Location *time.Location
}

// Parsed is the result of parsing one source file.
type Parsed struct {
	FrontMatter FrontMatter
	Body        []byte
}

// Parse splits content into front matter and body and decodes the front matter.
//
// A non-nil error always satisfies errors.Is(err, ErrMalformed) and never means
// the result is unusable: the returned Parsed carries whatever could be
// recovered. An unterminated fence yields empty front matter and the whole
// input as body; a block that is not a valid YAML mapping yields empty front
// matter; an invalid typed value drops only that key.
func Parse(content []byte, opts Options) (Parsed, error) {
	raw, body, had, _, err := Split(content)
	if err != nil {
		return Parsed{Body: content}, &MalformedError{Err: err}
	}

	out := Parsed{Body: body}
	if !had {
		return out, nil
	}

	fm, err := Decode(raw, opts)
	out.FrontMatter = fm
	return out, err
}

// Decode decodes a raw YAML block (without fences) into typed front matter.
func Decode(raw []byte, opts Options) (FrontMatter, error) {
	var fm FrontMatter
	if len(bytes.TrimSpace(raw)) == 0 {
		return fm, nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return FrontMatter{}, &MalformedError{Err: err}
	}
	if len(doc.Content) == 0 {
		// Comments only.
		return fm, nil
	}
	root := resolveAlias(doc.Content[0])
	if root.Kind != yaml.MappingNode {
		return FrontMatter{}, &MalformedError{Line: root.Line, Err: fmt.Errorf("front matter must be a mapping, got %s", nodeKindName(root.Kind))}
	}

	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	seen := make(map[string]int, len(root.Content)/2)
	var problems []error
	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode, valNode := root.Content[i], resolveAlias(root.Content[i+1])
		if keyNode.Kind != yaml.ScalarNode {
			return FrontMatter{}, &MalformedError{Line: keyNode.Line, Err: errors.New("front matter keys must be scalars")}
		}
		key := keyNode.Value
		if first, dup := seen[key]; dup {
			return FrontMatter{}, &MalformedError{Key: key, Line: keyNode.Line, Err: fmt.Errorf("duplicate key, first defined on line %d", first)}
		}
		seen[key] = keyNode.Line

		val, ok, err := decodeValue(key, valNode, loc)
		if err != nil {
			problems = append(problems, &MalformedError{Key: key, Line: valNode.Line, Err: err})
			continue
		}
		if ok {
			fm.Set(key, val)
		}
	}
	return fm, errors.Join(problems...)
}

// decodeValue decodes one value. ok is false for a null typed field, which is
// treated as absent.
func decodeValue(key string, n *yaml.Node, loc *time.Location) (Value, bool, error) {
	isNull := n.Kind == yaml.ScalarNode && n.Tag == "!!null"

	switch key {
	case KeyTitle, KeyLayout, KeySlug:
		if isNull {
			return Value{}, false, nil
		}
		if n.Kind != yaml.ScalarNode {
			return Value{}, false, fmt.Errorf("expected a string, got %s", nodeKindName(n.Kind))
		}
		return String(strings.TrimSpace(n.Value)), true, nil

	case KeyDate:
		if isNull {
			return Value{}, false, nil
		}
		if n.Kind != yaml.ScalarNode {
			return Value{}, false, fmt.Errorf("expected a date, got %s", nodeKindName(n.Kind))
		}
		t, err := ParseDate(n.Value, loc)
		if err != nil {
			return Value{}, false, err
		}
		return Date(t), true, nil

	case KeyCategories, KeyTags:
		if isNull {
			return Sequence(), true, nil
		}
		items, err := decodeTerms(n)
		if err != nil {
			return Value{}, false, err
		}
		return Sequence(items...), true, nil
	}

	var v any
	if err := n.Decode(&v); err != nil {
		return Value{}, false, err
	}
	return Opaque(v), true, nil
}

// decodeTerms accepts a sequence of scalars, or a single scalar split on commas
// when it contains one and on whitespace otherwise. Comma-separated parts are
// trimmed and empty parts dropped.
func decodeTerms(n *yaml.Node) ([]string, error) {
	switch n.Kind {
	case yaml.SequenceNode:
		items := make([]string, 0, len(n.Content))
		for _, item := range n.Content {
			item = resolveAlias(item)
			if item.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("sequence items must be scalars, got %s", nodeKindName(item.Kind))
			}
			if item.Tag == "!!null" {
				continue
			}
			items = append(items, item.Value)
		}
		return items, nil
	case yaml.ScalarNode:
		if !strings.Contains(n.Value, ",") {
			return strings.Fields(n.Value), nil
		}
		var items []string
		for _, part := range strings.Split(n.Value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				items = append(items, part)
			}
		}
		return items, nil
	default:
		return nil, fmt.Errorf("expected a sequence, got %s", nodeKindName(n.Kind))
	}
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05 -07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04 -0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseDate parses the date syntaxes accepted in front matter. Values without a
// zone offset are interpreted in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

func nodeKindName(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "unknown"
	}
}
