package frontmatter

import (
	"slices"
	"time"
)

// Well-known front matter keys.
const (
	KeyLayout     = "layout"
	KeyTitle      = "title"
	KeyDate       = "date"
	KeyCategories = "categories"
	KeyTags       = "tags"
	KeySlug       = "slug"
)

// Kind identifies the typed shape of a front matter value.
type Kind int

const (
	KindString Kind = iota + 1
	KindDate
	KindSequence
	KindOpaque // unknown key, kept verbatim
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindDate:
		return "date"
	case KindSequence:
		return "sequence"
	case KindOpaque:
		return "opaque"
	default:
		return "invalid"
	}
}

// Value is one typed front matter value.
type Value struct {
	kind Kind
	str  string
	date time.Time
	seq  []string
	raw  any
}

// String returns a KindString value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Date returns a KindDate value.
func Date(t time.Time) Value { return Value{kind: KindDate, date: t} }

// Sequence returns a KindSequence value holding a copy of items.
func Sequence(items ...string) Value { return Value{kind: KindSequence, seq: slices.Clone(items)} }

// Opaque wraps a decoded value of an unknown key.
func Opaque(v any) Value { return Value{kind: KindOpaque, raw: deepCopy(v)} }

// Kind returns the value's kind.
func (v Value) Kind() Kind { return v.kind }

// AsDate returns the time payload of a KindDate value.
func (v Value) AsDate() (time.Time, bool) { return v.date, v.kind == KindDate }

// AsString returns the string payload of a KindString value.
func (v Value) AsString() (string, bool) {
	return v.str, v.kind == KindString
}

// AsSequence returns a copy of the items of a KindSequence value.
func (v Value) AsSequence() ([]string, bool) {
	if v.kind != KindSequence {
		return nil, false
	}
	return slices.Clone(v.seq), true
}

// Interface returns the value as a plain Go value (string, time.Time, []string
// or the decoded YAML value for opaque keys).
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindDate:
		return v.date
	case KindSequence:
		return slices.Clone(v.seq)
	default:
		return deepCopy(v.raw)
	}
}

// deepCopy copies the maps and slices a YAML decode produces so opaque values
// never share storage with the caller.
func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = deepCopy(e)
		}
		return out
	case map[any]any:
		out := make(map[any]any, len(t))
		for k, e := range t {
			out[k] = deepCopy(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopy(e)
		}
		return out
	case []string:
		return slices.Clone(t)
	default:
		return v
	}
}

// FrontMatter is an ordered, case-sensitive attribute set. Keys keep the order
// in which they appeared in the source document.
type FrontMatter struct {
	keys   []string
	values map[string]Value
}

// Set adds or replaces key. New keys are appended to the key order.
func (fm *FrontMatter) Set(key string, v Value) {
	if fm.values == nil {
		fm.values = make(map[string]Value)
	}
	if _, exists := fm.values[key]; !exists {
		fm.keys = append(fm.keys, key)
	}
	fm.values[key] = v
}

// Get returns the value stored under key.
func (fm FrontMatter) Get(key string) (Value, bool) {
	v, ok := fm.values[key]
	return v, ok
}

// Has reports whether key is present.
func (fm FrontMatter) Has(key string) bool {
	_, ok := fm.values[key]
	return ok
}

// Keys returns the keys in document order.
func (fm FrontMatter) Keys() []string { return slices.Clone(fm.keys) }

// Len returns the number of keys.
func (fm FrontMatter) Len() int { return len(fm.keys) }

// String returns the string value of key, or "" when absent or not a string.
func (fm FrontMatter) String(key string) string {
	v, _ := fm.values[key].AsString()
	return v
}

// Date returns the date value of key.
func (fm FrontMatter) Date(key string) (time.Time, bool) {
	return fm.values[key].AsDate()
}

// Sequence returns the sequence value of key, or nil.
func (fm FrontMatter) Sequence(key string) []string {
	v, _ := fm.values[key].AsSequence()
	return v
}

// Clone returns an independent copy.
func (fm FrontMatter) Clone() FrontMatter {
	out := FrontMatter{keys: slices.Clone(fm.keys)}
	if fm.values != nil {
		out.values = make(map[string]Value, len(fm.values))
		for k, v := range fm.values {
			switch v.kind {
			case KindSequence:
				v.seq = slices.Clone(v.seq)
			case KindOpaque:
				v.raw = deepCopy(v.raw)
			}
			out.values[k] = v
		}
	}
	return out
}

// Map returns the attributes as a plain map, e.g. for JSON encoding.
func (fm FrontMatter) Map() map[string]any {
	out := make(map[string]any, len(fm.keys))
	for _, k := range fm.keys {
		out[k] = fm.values[k].Interface()
	}
	return out
}
