// Package source turns a content directory or an explicit list of paths into
// immutable source files for the pipeline.
package source

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"git.home.luguber.info/inful/postbuilder/internal/logfields"
)

// DefaultExtensions are the content file extensions picked up by Scan.
var DefaultExtensions = []string{".md", ".markdown"}

// File is one source document. Path is slash-separated and relative to the
// content root. A file that could not be read carries Err and no Content; it
// is reported per document and never aborts a run.
type File struct {
	Path    string
	Content []byte
	ModTime time.Time
	Err     error
}

// Options controls which files are picked up.
type Options struct {
	Extensions []string
	// Exclude holds path.Match patterns tested against the relative path and
	// against each of its directory prefixes.
	Exclude []string
}

func (o Options) extensions() []string {
	if len(o.Extensions) == 0 {
		return DefaultExtensions
	}
	return o.Extensions
}

// Scan walks root and reads every content file, sorted by relative path.
// Hidden files and directories are skipped.
func Scan(ctx context.Context, root string, opts Options) ([]File, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRootNotFound, root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrRootNotFound, root)
	}

	exts := opts.extensions()
	var rels []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}

		if strings.HasPrefix(d.Name(), ".") || excluded(rel, opts.Exclude) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !hasExtension(d.Name(), exts) {
			return nil
		}
		rels = append(rels, rel)
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrWalkFailed, root, err)
	}

	slices.Sort(rels)
	slog.Debug("Scanned content directory", logfields.Path(root), logfields.Documents(len(rels)))
	return readAll(ctx, root, rels)
}

// Load reads an explicit list of paths relative to root, in the given order.
// Missing or unreadable paths become files carrying Err.
func Load(ctx context.Context, root string, paths []string) ([]File, error) {
	rels := make([]string, 0, len(paths))
	for _, p := range paths {
		if filepath.IsAbs(p) {
			if rel, err := filepath.Rel(root, p); err == nil && !strings.HasPrefix(rel, "..") {
				p = rel
			}
		}
		rels = append(rels, filepath.ToSlash(filepath.Clean(p)))
	}
	return readAll(ctx, root, rels)
}

func readAll(ctx context.Context, root string, rels []string) ([]File, error) {
	files := make([]File, 0, len(rels))
	for _, rel := range rels {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		files = append(files, read(root, rel))
	}
	return files, nil
}

func read(root, rel string) File {
	f := File{Path: rel}
	full := rel
	if !filepath.IsAbs(rel) {
		full = filepath.Join(root, filepath.FromSlash(rel))
	}

	info, err := os.Stat(full)
	if err != nil {
		f.Err = fmt.Errorf("%w: %w", ErrUnreadable, err)
		return f
	}
	f.ModTime = info.ModTime()

	// #nosec G304 -- reading content files is the purpose of this package
	content, err := os.ReadFile(full)
	if err != nil {
		f.Err = fmt.Errorf("%w: %w", ErrUnreadable, err)
		return f
	}
	f.Content = content
	return f
}

func hasExtension(name string, exts []string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, e := range exts {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

func excluded(rel string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, _ := path.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := path.Match(pattern, path.Base(rel)); ok {
			return true
		}
	}
	return false
}
