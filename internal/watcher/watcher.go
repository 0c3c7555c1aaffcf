// Package watcher reports content changes of a tracked set of files. It
// watches the parent directories through fsnotify so files replaced by
// rename (the way most editors save) are still seen, and falls back to
// polling when fsnotify is unavailable.
package watcher

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ErrClosed is returned when operations are called on a closed Watcher.
var ErrClosed = errors.New("watcher: closed")

// DefaultPollInterval is used when falling back to polling.
const DefaultPollInterval = time.Second

// Handler receives the changed paths of one debounced batch, sorted and
// without duplicates.
type Handler func(paths []string)

// ErrorHandler is called when a watch error occurs.
type ErrorHandler func(err error)

type stamp struct {
	modTime time.Time
	size    int64
	exists  bool
}

func stat(path string) stamp {
	fi, err := os.Stat(path)
	if err != nil {
		return stamp{}
	}
	return stamp{modTime: fi.ModTime(), size: fi.Size(), exists: true}
}

// Watcher tracks a set of files.
type Watcher struct {
	handler      Handler
	errorHandler ErrorHandler
	debounce     time.Duration
	pollInterval time.Duration
	forcePoll    bool

	fs        *fsnotify.Watcher
	debouncer *Debouncer
	closeCh   chan struct{}

	mu      sync.Mutex
	files   map[string]stamp
	dirs    map[string]int
	pending map[string]struct{}
	closed  bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before changes are delivered.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithErrorHandler sets the error handler.
func WithErrorHandler(h ErrorHandler) Option {
	return func(w *Watcher) { w.errorHandler = h }
}

// WithPollInterval sets the polling interval used in polling mode.
func WithPollInterval(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.pollInterval = d
		}
	}
}

// WithPolling forces polling mode.
func WithPolling(force bool) Option {
	return func(w *Watcher) { w.forcePoll = force }
}

// New creates a Watcher that calls handler with changed files.
func New(handler Handler, opts ...Option) (*Watcher, error) {
	w := &Watcher{
		handler:      handler,
		pollInterval: DefaultPollInterval,
		files:        make(map[string]stamp),
		dirs:         make(map[string]int),
		pending:      make(map[string]struct{}),
		closeCh:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.debouncer = NewDebouncer(w.debounce, w.deliver)

	if !w.forcePoll {
		fsw, err := fsnotify.NewWatcher()
		if err == nil {
			w.fs = fsw
			go w.run()
			return w, nil
		}
		w.reportError(fmt.Errorf("fsnotify unavailable, polling instead: %w", err))
	}
	go w.poll()
	return w, nil
}

// Polling reports whether the watcher is in polling mode.
func (w *Watcher) Polling() bool {
	return w.fs == nil
}

// Track starts watching path. Tracking an already tracked path is a no-op.
func (w *Watcher) Track(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if _, ok := w.files[abs]; ok {
		return nil
	}

	dir := filepath.Dir(abs)
	if w.fs != nil && w.dirs[dir] == 0 {
		if err := w.fs.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
	}
	w.dirs[dir]++
	w.files[abs] = stat(abs)
	return nil
}

// Untrack stops watching path.
func (w *Watcher) Untrack(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	w.untrackLocked(abs)
	return nil
}

func (w *Watcher) untrackLocked(abs string) {
	if _, ok := w.files[abs]; !ok {
		return
	}
	delete(w.files, abs)
	delete(w.pending, abs)

	dir := filepath.Dir(abs)
	w.dirs[dir]--
	if w.dirs[dir] <= 0 {
		delete(w.dirs, dir)
		if w.fs != nil {
			_ = w.fs.Remove(dir)
		}
	}
}

// Sync makes the tracked set equal to paths.
func (w *Watcher) Sync(paths []string) error {
	want := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		want[abs] = struct{}{}
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	for abs := range w.files {
		if _, ok := want[abs]; !ok {
			w.untrackLocked(abs)
		}
	}
	w.mu.Unlock()

	var errs []error
	for abs := range want {
		if err := w.Track(abs); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Tracked returns the tracked paths, sorted.
func (w *Watcher) Tracked() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.files))
	for p := range w.files {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	w.mu.Unlock()

	w.debouncer.Stop()
	if w.fs != nil {
		return w.fs.Close()
	}
	return nil
}

func (w *Watcher) run() {
	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Rename) {
				continue
			}
			w.check(filepath.Clean(ev.Name))
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.reportError(err)
		case <-w.closeCh:
			return
		}
	}
}

// check compares a tracked file against its last stamp and queues it when
// the content may have changed.
func (w *Watcher) check(path string) {
	w.mu.Lock()
	prev, ok := w.files[path]
	if !ok || w.closed {
		w.mu.Unlock()
		return
	}
	cur := stat(path)
	if !cur.exists || (cur.modTime.Equal(prev.modTime) && cur.size == prev.size) {
		w.mu.Unlock()
		return
	}
	w.files[path] = cur
	w.pending[path] = struct{}{}
	w.mu.Unlock()

	w.debouncer.Trigger()
}

func (w *Watcher) poll() {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			for _, p := range w.Tracked() {
				w.check(p)
			}
		case <-w.closeCh:
			return
		}
	}
}

func (w *Watcher) deliver() {
	w.mu.Lock()
	if w.closed || len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]struct{})
	w.mu.Unlock()

	slices.Sort(paths)
	if w.handler != nil {
		w.handler(paths)
	}
}

func (w *Watcher) reportError(err error) {
	if w.errorHandler != nil {
		w.errorHandler(err)
	}
}
