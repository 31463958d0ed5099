package layout

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/postbuilder/internal/frontmatter"
)

// ErrRegistryUnavailable wraps every error a Registry returns for a store it
// cannot read.
var ErrRegistryUnavailable = errors.New("layout registry unavailable")

// Template is a registry entry. Parent is empty for a root layout.
type Template struct {
	Name   string
	Parent string
}

// Registry is the template store collaborator. Lookup reports (t, true, nil)
// when name exists, (zero, false, nil) when it does not, and an error only when
// the store itself cannot be read.
type Registry interface {
	Lookup(ctx context.Context, name string) (Template, bool, error)
}

// MapRegistry is an in-memory Registry.
type MapRegistry map[string]Template

// NewMapRegistry indexes templates by name.
func NewMapRegistry(templates ...Template) MapRegistry {
	m := make(MapRegistry, len(templates))
	for _, t := range templates {
		m[t.Name] = t
	}
	return m
}

// Lookup implements Registry.
func (m MapRegistry) Lookup(ctx context.Context, name string) (Template, bool, error) {
	if err := ctx.Err(); err != nil {
		return Template{}, false, err
	}
	t, ok := m[name]
	return t, ok, nil
}

// DefaultExtensions are the template file extensions DirRegistry probes.
var DefaultExtensions = []string{".html"}

// DirRegistry reads layouts from a directory: `<dir>/<name><ext>`. A
// template's parent is the `layout` key of its own front matter.
type DirRegistry struct {
	dir  string
	exts []string
}

// NewDirRegistry returns a DirRegistry rooted at dir. With no extensions,
// DefaultExtensions are used.
func NewDirRegistry(dir string, exts ...string) *DirRegistry {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	return &DirRegistry{dir: dir, exts: exts}
}

// Dir returns the registry root.
func (r *DirRegistry) Dir() string { return r.dir }

// Lookup implements Registry.
func (r *DirRegistry) Lookup(ctx context.Context, name string) (Template, bool, error) {
	if err := ctx.Err(); err != nil {
		return Template{}, false, err
	}

	info, err := os.Stat(r.dir)
	if err != nil {
		return Template{}, false, fmt.Errorf("%w: %w", ErrRegistryUnavailable, err)
	}
	if !info.IsDir() {
		return Template{}, false, fmt.Errorf("%w: %s is not a directory", ErrRegistryUnavailable, r.dir)
	}

	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return Template{}, false, nil
	}

	for _, ext := range r.exts {
		// #nosec G304 -- name is a single path element inside the layouts dir
		content, err := os.ReadFile(filepath.Join(r.dir, name+ext))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return Template{}, false, fmt.Errorf("%w: %w", ErrRegistryUnavailable, err)
		}

		// A template with broken front matter still exists; whatever parent
		// could be recovered is used.
		parsed, _ := frontmatter.Parse(content, frontmatter.Options{})
		return Template{Name: name, Parent: parsed.FrontMatter.String(frontmatter.KeyLayout)}, true, nil
	}
	return Template{}, false, nil
}
