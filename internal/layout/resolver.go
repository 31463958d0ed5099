// Package layout resolves a document's declared layout into a flat inheritance
// chain against a template Registry.
package layout

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"git.home.luguber.info/inful/postbuilder/internal/diagnostics"
)

// DefaultFallback is the layout used when a document declares none.
const DefaultFallback = "default"

// Ref is the resolved layout of one document.
type Ref struct {
	// Requested is the name the document declared, possibly empty.
	Requested string `json:"requested,omitempty"`
	// Name is the layout actually used; empty when Missing.
	Name string `json:"name,omitempty"`
	// Chain lists Name and its ancestors, most specific first.
	Chain []string `json:"chain,omitempty"`
	// Substituted is set when Requested was missing and the fallback used.
	Substituted bool `json:"substituted,omitempty"`
	// Missing is set when neither Requested nor the fallback exist.
	Missing bool `json:"missing,omitempty"`
}

// Clone returns a deep copy.
func (r Ref) Clone() Ref {
	r.Chain = slices.Clone(r.Chain)
	return r
}

// CycleError reports a layout inheritance cycle. Chain starts and ends with
// the same layout.
type CycleError struct {
	Chain []string
}

func (e *CycleError) Error() string {
	return "layout cycle: " + strings.Join(e.Chain, " -> ")
}

// ErrCycle is matched by every CycleError.
var ErrCycle = errors.New("layout cycle")

func (e *CycleError) Is(target error) bool { return target == ErrCycle }

type chain struct {
	found         bool
	names         []string
	missingParent string
}

// Resolver resolves and memoizes layout chains for one pipeline run. It is not
// safe for concurrent use.
type Resolver struct {
	registry Registry
	fallback string
	memo     map[string]chain
}

// NewResolver returns a Resolver; an empty fallback means DefaultFallback.
func NewResolver(registry Registry, fallback string) *Resolver {
	if fallback == "" {
		fallback = DefaultFallback
	}
	return &Resolver{registry: registry, fallback: fallback, memo: make(map[string]chain)}
}

// Resolve validates the layout requested by the document at path. Missing
// layouts are reported as MissingLayout warnings. The error is non-nil only for
// run-fatal problems: a *CycleError or an ErrRegistryUnavailable.
func (r *Resolver) Resolve(ctx context.Context, path, requested string) (Ref, []diagnostics.Diagnostic, error) {
	ref := Ref{Requested: requested}
	var diags []diagnostics.Diagnostic

	name := requested
	if name == "" {
		name = r.fallback
	}

	c, err := r.chain(ctx, name)
	if err != nil {
		return Ref{}, nil, err
	}

	if !c.found && name != r.fallback {
		diags = append(diags, diagnostics.New(diagnostics.CodeMissingLayout, path,
			"layout %q not found; using fallback %q", name, r.fallback))
		ref.Substituted = true
		name = r.fallback
		if c, err = r.chain(ctx, name); err != nil {
			return Ref{}, nil, err
		}
	}

	if !c.found {
		diags = append(diags, diagnostics.New(diagnostics.CodeMissingLayout, path,
			"fallback layout %q not found", r.fallback))
		ref.Substituted = false
		ref.Missing = true
		return ref, diags, nil
	}

	if c.missingParent != "" {
		diags = append(diags, diagnostics.New(diagnostics.CodeMissingLayout, path,
			"layout %q extends missing layout %q; chain truncated",
			c.names[len(c.names)-1], c.missingParent))
	}

	ref.Name = name
	ref.Chain = slices.Clone(c.names)
	return ref, diags, nil
}

func (r *Resolver) chain(ctx context.Context, name string) (chain, error) {
	if c, ok := r.memo[name]; ok {
		return c, nil
	}

	var c chain
	visited := make(map[string]int)
	for current := name; current != ""; {
		if at, seen := visited[current]; seen {
			cycle := append(slices.Clone(c.names[at:]), current)
			return chain{}, &CycleError{Chain: cycle}
		}

		t, ok, err := r.registry.Lookup(ctx, current)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return chain{}, ctxErr
			}
			if !errors.Is(err, ErrRegistryUnavailable) {
				err = fmt.Errorf("%w: %w", ErrRegistryUnavailable, err)
			}
			return chain{}, err
		}
		if !ok {
			if current == name {
				break
			}
			c.missingParent = current
			break
		}

		visited[current] = len(c.names)
		c.names = append(c.names, current)
		c.found = true
		current = t.Parent
	}

	r.memo[name] = c
	return c, nil
}
