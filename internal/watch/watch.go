// Package watch reports file changes under a project root as session file
// edits.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/locopilot/locopilot/internal/session"
)

const (
	DefaultDebounce   = 300 * time.Millisecond
	defaultPreviewMax = 4 * 1024
)

// Sink receives file edits. agent.Agent implements it.
type Sink interface {
	RecordFileEdit(path, action, content string) error
}

// Options configures a Watcher.
type Options struct {
	// Ignore lists directory names skipped at any depth. Dot directories
	// are always skipped.
	Ignore []string

	// Debounce coalesces bursts of events on the same path. 0 = DefaultDebounce.
	Debounce time.Duration

	// PreviewBytes caps how much of a changed file is read. 0 = 4KB.
	PreviewBytes int64

	Logger *slog.Logger
}

// Watcher recursively watches a directory tree with fsnotify.
type Watcher struct {
	root    string
	sink    Sink
	opts    Options
	logger  *slog.Logger
	fs      *fsnotify.Watcher
	pending map[string]session.Action
}

// New creates a Watcher on root and registers every directory below it.
func New(root string, sink Sink, opts Options) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", root, err)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.PreviewBytes <= 0 {
		opts.PreviewBytes = defaultPreviewMax
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	w := &Watcher{
		root:    abs,
		sink:    sink,
		opts:    opts,
		logger:  logger.With("component", "watch"),
		fs:      fw,
		pending: make(map[string]session.Action),
	}
	if err := w.addWatchDirs(abs); err != nil {
		fw.Close()
		return nil, fmt.Errorf("add watch dirs: %w", err)
	}
	return w, nil
}

// Run delivers edits to the sink until ctx is done, then closes the watcher.
// Pending edits are flushed before returning.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close()

	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	armed := false

	for {
		select {
		case <-ctx.Done():
			w.flush()
			return nil
		case event, ok := <-w.fs.Events:
			if !ok {
				w.flush()
				return nil
			}
			w.handle(event)
			if len(w.pending) > 0 && !armed {
				timer.Reset(w.opts.Debounce)
				armed = true
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				w.flush()
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		case <-timer.C:
			armed = false
			w.flush()
		}
	}
}

// handle queues a relevant event and starts watching new directories.
func (w *Watcher) handle(event fsnotify.Event) {
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil || w.shouldIgnore(rel) {
		return
	}
	action, ok := classify(event.Op)
	if !ok {
		return
	}

	if action == session.ActionCreate {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addWatchDirs(event.Name); err != nil {
				w.logger.Warn("watch new directory", "path", rel, "error", err)
			}
			return
		}
	}
	if merged := merge(w.pending[rel], action); merged != "" {
		w.pending[rel] = merged
	} else {
		delete(w.pending, rel)
	}
}

// flush delivers pending edits in path order.
func (w *Watcher) flush() {
	if len(w.pending) == 0 {
		return
	}
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	slices.Sort(paths)

	for _, p := range paths {
		action := w.pending[p]
		var content string
		if action != session.ActionDelete {
			content = w.preview(filepath.Join(w.root, p))
		}
		if err := w.sink.RecordFileEdit(p, string(action), content); err != nil {
			w.logger.Warn("record file edit", "path", p, "error", err)
			continue
		}
		w.logger.Debug("file edit", "path", p, "action", action)
	}
	clear(w.pending)
}

func (w *Watcher) preview(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, w.opts.PreviewBytes))
	if err != nil && !errors.Is(err, io.EOF) {
		return ""
	}
	return string(data)
}

func (w *Watcher) addWatchDirs(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root {
			if rel, err := filepath.Rel(w.root, path); err == nil && w.shouldIgnore(rel) {
				return filepath.SkipDir
			}
		}
		return w.fs.Add(path)
	})
}

// shouldIgnore reports whether rel (relative to the root) lies in a dot
// directory or an ignored directory, or is itself a dot file.
func (w *Watcher) shouldIgnore(rel string) bool {
	if rel == "." || strings.HasPrefix(rel, "..") {
		return rel != "."
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(part, ".") || slices.Contains(w.opts.Ignore, part) {
			return true
		}
	}
	return false
}

// classify maps an fsnotify op to a file edit action. Chmod-only events
// are not edits.
func classify(op fsnotify.Op) (session.Action, bool) {
	switch {
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return session.ActionDelete, true
	case op.Has(fsnotify.Create):
		return session.ActionCreate, true
	case op.Has(fsnotify.Write):
		return session.ActionEdit, true
	}
	return "", false
}

// merge combines a queued action with a newer one on the same path.
// A file created and then written within one window is still a create;
// one created and then removed yields "" and is not reported.
func merge(prev, next session.Action) session.Action {
	if prev == session.ActionCreate {
		switch next {
		case session.ActionEdit:
			return session.ActionCreate
		case session.ActionDelete:
			return ""
		}
	}
	return next
}
