// Package normalization maps free-form configuration strings onto typed enum
// values. Input is trimmed and lower-cased before lookup; several spellings
// may map to the same value.
package normalization

import (
	"fmt"
	"slices"
	"strings"
)

// Enum normalizes strings into values of T.
type Enum[T comparable] struct {
	name     string
	values   map[string]T
	fallback T
	keys     []string
}

// NewEnum creates a normalizer named name (used in error messages). Blank
// input resolves to fallback.
func NewEnum[T comparable](name string, values map[string]T, fallback T) *Enum[T] {
	e := &Enum[T]{name: name, values: make(map[string]T, len(values)), fallback: fallback}
	for k, v := range values {
		key := clean(k)
		e.values[key] = v
		e.keys = append(e.keys, key)
	}
	slices.Sort(e.keys)
	return e
}

// Parse resolves raw, rejecting unknown spellings.
func (e *Enum[T]) Parse(raw string) (T, error) {
	key := clean(raw)
	if key == "" {
		return e.fallback, nil
	}
	if v, ok := e.values[key]; ok {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q, valid options: %s", e.name, raw, strings.Join(e.keys, ", "))
}

// Or resolves raw, falling back on unknown spellings.
func (e *Enum[T]) Or(raw string) T {
	v, err := e.Parse(raw)
	if err != nil {
		return e.fallback
	}
	return v
}

// Keys returns the accepted spellings, sorted.
func (e *Enum[T]) Keys() []string { return slices.Clone(e.keys) }

func clean(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
