// Package watch triggers rebuilds when content or layout files change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/postbuilder/internal/logfields"
)

// DefaultDebounce is used when Options.Debounce is zero.
const DefaultDebounce = 300 * time.Millisecond

// RebuildFunc is called with the sorted set of paths that changed since the
// previous call. Calls never overlap.
type RebuildFunc func(ctx context.Context, changed []string) error

// Options configures a Watcher.
type Options struct {
	Debounce time.Duration
	Logger   *slog.Logger
}

// Watcher monitors directory trees and calls a RebuildFunc once changes
// settle.
type Watcher struct {
	rebuild  RebuildFunc
	debounce time.Duration
	logger   *slog.Logger
	fsw      *fsnotify.Watcher
}

// New watches every directory below each root. Missing roots are skipped.
func New(roots []string, rebuild RebuildFunc, opts Options) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	w := &Watcher{
		rebuild:  rebuild,
		debounce: opts.Debounce,
		logger:   opts.Logger,
		fsw:      fsw,
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}

	watched := 0
	for _, root := range roots {
		if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
			w.logger.Warn("Watch root does not exist", logfields.Path(root))
			continue
		}
		if err := w.addTree(root); err != nil {
			_ = fsw.Close()
			return nil, err
		}
		watched++
	}
	if watched == 0 {
		_ = fsw.Close()
		return nil, errors.New("no directories to watch")
	}
	return w, nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && hidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(p); err != nil {
			return fmt.Errorf("failed to watch %s: %w", p, err)
		}
		return nil
	})
}

// Run processes events until ctx is done. It closes the underlying watcher
// on return.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() { _ = w.fsw.Close() }()

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	var fire <-chan time.Time
	pending := make(map[string]struct{})

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if hidden(filepath.Base(ev.Name)) || ev.Op == fsnotify.Chmod {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addTree(ev.Name); err != nil {
						w.logger.Warn("Failed to watch new directory", logfields.Path(ev.Name), logfields.Error(err))
					}
				}
			}
			w.logger.Debug("Change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
			pending[ev.Name] = struct{}{}
			timer.Reset(w.debounce)
			fire = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("File watcher error", logfields.Error(err))

		case <-fire:
			fire = nil
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			clear(pending)
			slices.Sort(changed)
			if err := w.rebuild(ctx, changed); err != nil {
				w.logger.Error("Rebuild failed", logfields.Error(err))
			}
		}
	}
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~")
}
