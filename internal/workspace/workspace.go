// Package workspace is a terminal workspace of file panes arranged in tabs.
// It implements the host interfaces of the refresh engine and ships a
// bubbletea UI.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/theirongolddev/panefresh/internal/events"
	"github.com/theirongolddev/panefresh/internal/host"
)

type action struct {
	seq     int
	icon    string
	title   string
	onClick func()
}

type paneRec struct {
	id       string
	tab      int
	viewType string
	file     string
	mode     host.DisplayMode
	lazy     bool

	doc         *Document
	source      string
	baseline    string
	hasBaseline bool
	offset      int
	version     int
	err         error
	actions     []action
}

// Workspace holds the panes and tabs. All methods are safe for concurrent
// use; document edits are serialized by each Document.
type Workspace struct {
	name   string
	cache  *ContentCache
	bus    *events.EventBus
	logger *slog.Logger

	mu        sync.Mutex
	tabs      []string
	panes     []*paneRec
	tab       int
	focused   string
	builder   host.MenuBuilder
	actionSeq int

	onChange atomic.Pointer[func()]
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithBus publishes layout and menu notifications on bus.
func WithBus(bus *events.EventBus) Option {
	return func(w *Workspace) { w.bus = bus }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Workspace) { w.logger = l }
}

// WithCache replaces the content cache.
func WithCache(c *ContentCache) Option {
	return func(w *Workspace) { w.cache = c }
}

// New builds a workspace from l. Nothing is read until Open.
func New(l *Layout, opts ...Option) *Workspace {
	w := &Workspace{name: l.Name, logger: slog.Default()}
	for _, opt := range opts {
		opt(w)
	}
	if w.cache == nil {
		w.cache = NewContentCache()
	}
	for ti, tab := range l.Tabs {
		w.tabs = append(w.tabs, tab.Name)
		for _, def := range tab.Panes {
			w.panes = append(w.panes, &paneRec{
				id:       def.ID,
				tab:      ti,
				viewType: def.Type,
				file:     def.File,
				mode:     displayMode(def.Type, def.Mode),
				lazy:     def.Lazy,
			})
		}
	}
	if len(w.panes) > 0 {
		w.focused = w.panes[0].id
	}
	w.builder = w.defaultMenu
	return w
}

// Name returns the layout name.
func (w *Workspace) Name() string { return w.name }

// OnChange sets the callback run after any change visible in the UI.
func (w *Workspace) OnChange(fn func()) {
	w.onChange.Store(&fn)
}

func (w *Workspace) changed() {
	if fn := w.onChange.Load(); fn != nil && *fn != nil {
		(*fn)()
	}
}

func (w *Workspace) publish(e events.BusEvent) {
	if w.bus != nil {
		w.bus.Publish(e)
	}
}

// Open loads every pane that is not lazy, plus the panes of the first tab.
func (w *Workspace) Open(ctx context.Context) error {
	w.mu.Lock()
	var todo []*paneRec
	for _, r := range w.panes {
		if !r.lazy || r.tab == w.tab {
			todo = append(todo, r)
		}
	}
	w.mu.Unlock()

	var errs []error
	for _, r := range todo {
		if err := w.load(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	w.changed()
	return errors.Join(errs...)
}

// load reads the pane's file and installs it. Read errors are kept on the
// pane and shown in place of the content.
func (w *Workspace) load(ctx context.Context, r *paneRec) error {
	w.mu.Lock()
	file, viewType := r.file, r.viewType
	w.mu.Unlock()

	var text string
	var err error
	if file != "" && viewType != host.EmptyViewType {
		text, err = w.cache.Read(ctx, file)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.install(r, text, err)
	return err
}

// install sets pane content. Must hold mu.
func (w *Workspace) install(r *paneRec, text string, err error) {
	r.lazy = false
	r.err = err
	r.version++
	if r.doc != nil {
		r.doc.OnChange(nil)
		r.doc = nil
	}
	r.source = ""
	if err != nil {
		return
	}
	switch {
	case isEditorType(r.viewType):
		r.doc = NewDocument(text)
		r.doc.OnChange(w.changed)
	case r.viewType == TypeDiff:
		if !r.hasBaseline {
			r.baseline, r.hasBaseline = text, true
		}
		r.source = text
	default:
		r.source = text
	}
}

func (w *Workspace) find(id string) *paneRec {
	for _, r := range w.panes {
		if r.id == id {
			return r
		}
	}
	return nil
}

func (w *Workspace) lookup(id string) (*paneRec, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	r := w.find(id)
	if r == nil {
		return nil, fmt.Errorf("%s: %w", id, host.ErrPaneNotFound)
	}
	return r, nil
}

// snapshot must hold mu.
func (w *Workspace) snapshot(r *paneRec) *Pane {
	p := &Pane{
		id:       r.id,
		viewType: r.viewType,
		file:     r.file,
		mode:     r.mode,
		visible:  r.tab == w.tab,
		lazy:     r.lazy,
		doc:      r.doc,
	}
	if r.doc != nil {
		p.dirty = r.doc.Dirty()
	}
	return p
}

// Panes implements host.Enumerator.
func (w *Workspace) Panes() []host.Pane {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]host.Pane, 0, len(w.panes))
	for _, r := range w.panes {
		out = append(out, w.snapshot(r))
	}
	return out
}

// ActivePane returns the focused pane of the current tab.
func (w *Workspace) ActivePane() host.Pane {
	w.mu.Lock()
	defer w.mu.Unlock()
	if r := w.find(w.focused); r != nil && r.tab == w.tab {
		return w.snapshot(r)
	}
	return nil
}

// Pane implements host.Resolver.
func (w *Workspace) Pane(id string) (host.Pane, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	r := w.find(id)
	if r == nil {
		return nil, false
	}
	return w.snapshot(r), true
}

// Materialize loads a lazy pane.
func (w *Workspace) Materialize(ctx context.Context, p host.Pane) error {
	r, err := w.lookup(p.ID())
	if err != nil {
		return err
	}
	if err := w.load(ctx, r); err != nil {
		return err
	}
	w.changed()
	return nil
}

// Save writes an editor pane's document to its file.
func (w *Workspace) Save(_ context.Context, p host.Pane) error {
	r, err := w.lookup(p.ID())
	if err != nil {
		return err
	}
	w.mu.Lock()
	doc, file := r.doc, r.file
	w.mu.Unlock()
	if doc == nil || file == "" {
		return nil
	}

	perm := os.FileMode(0o644)
	if fi, err := os.Stat(file); err == nil {
		perm = fi.Mode().Perm()
	}
	if err := os.WriteFile(file, []byte(doc.Text()), perm); err != nil {
		return err
	}
	doc.MarkSaved()
	w.cache.Invalidate(file)
	w.logger.Debug("pane saved", "pane", p.ID(), "file", file)
	return nil
}

// ReadFresh implements host.ContentSource.
func (w *Workspace) ReadFresh(ctx context.Context, path string) (string, error) {
	return w.cache.Read(ctx, path)
}

// ViewState implements host.ViewStater.
func (w *Workspace) ViewState(p host.Pane) host.ViewState {
	w.mu.Lock()
	defer w.mu.Unlock()
	r := w.find(p.ID())
	if r == nil {
		return host.EmptyViewState
	}
	return host.ViewState{Type: r.viewType, File: r.file, Mode: r.mode}
}

// Ephemeral state keys.
const (
	ephSelection = "selection"
	ephScroll    = "scroll"
	ephOffset    = "offset"
)

// EphemeralState captures cursor and scroll.
func (w *Workspace) EphemeralState(p host.Pane) host.EphemeralState {
	w.mu.Lock()
	defer w.mu.Unlock()
	r := w.find(p.ID())
	if r == nil {
		return nil
	}
	if r.doc != nil {
		return host.EphemeralState{ephSelection: r.doc.Selection(), ephScroll: r.doc.Scroll()}
	}
	return host.EphemeralState{ephOffset: r.offset}
}

// SetViewState swaps what the pane shows. Like most pane hosts it moves
// focus to the pane.
func (w *Workspace) SetViewState(ctx context.Context, p host.Pane, vs host.ViewState, eph host.EphemeralState) error {
	r, err := w.lookup(p.ID())
	if err != nil {
		return err
	}

	var text string
	if vs.Type != host.EmptyViewType && vs.File != "" {
		if text, err = w.cache.Read(ctx, vs.File); err != nil {
			return err
		}
	}

	w.mu.Lock()
	r.viewType, r.file, r.mode = vs.Type, vs.File, vs.Mode
	w.install(r, text, nil)
	doc := r.doc
	if off, ok := eph[ephOffset].(int); ok {
		r.offset = off
	}
	w.focused = r.id
	w.mu.Unlock()

	if doc != nil {
		if sel, ok := eph[ephSelection].(host.Selection); ok {
			doc.SetSelection(sel)
		}
		if s, ok := eph[ephScroll].(host.ScrollOffset); ok {
			doc.SetScroll(s)
		}
	}
	w.changed()
	return nil
}

// Rerender reloads the content of a preview pane in place.
func (w *Workspace) Rerender(ctx context.Context, p host.Pane) error {
	r, err := w.lookup(p.ID())
	if err != nil {
		return err
	}
	w.mu.Lock()
	file := r.file
	w.mu.Unlock()

	text, err := w.cache.Read(ctx, file)
	w.mu.Lock()
	r.err = err
	if err == nil {
		r.source = text
	}
	r.version++
	w.mu.Unlock()
	w.changed()
	return err
}

type focusElem struct {
	w  *Workspace
	id string
}

func (f focusElem) Attached() bool {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	return f.w.find(f.id) != nil
}

func (f focusElem) Focus() { f.w.Focus(f.id) }

// FocusedElement implements host.FocusTracker.
func (w *Workspace) FocusedElement() host.FocusTarget {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.focused == "" {
		return nil
	}
	return focusElem{w: w, id: w.focused}
}

// Focus moves focus to the pane, switching tabs if needed.
func (w *Workspace) Focus(id string) {
	w.mu.Lock()
	r := w.find(id)
	if r == nil || (w.focused == id && w.tab == r.tab) {
		w.mu.Unlock()
		return
	}
	w.focused = id
	switched := w.tab != r.tab
	w.tab = r.tab
	w.mu.Unlock()

	if switched {
		w.loadLazyInTab(context.Background())
	}
	w.publish(events.NewLayoutChangedEvent())
	w.changed()
}

// Focused returns the focused pane ID.
func (w *Workspace) Focused() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.focused
}

// FocusNext focuses the next pane of the current tab.
func (w *Workspace) FocusNext() {
	w.mu.Lock()
	var ids []string
	for _, r := range w.panes {
		if r.tab == w.tab {
			ids = append(ids, r.id)
		}
	}
	cur := slices.Index(ids, w.focused)
	w.mu.Unlock()
	if len(ids) == 0 {
		return
	}
	w.Focus(ids[(cur+1)%len(ids)])
}

// SwitchTab shows tab i, loading its lazy panes on first visit.
func (w *Workspace) SwitchTab(ctx context.Context, i int) {
	w.mu.Lock()
	if i < 0 || i >= len(w.tabs) || i == w.tab {
		w.mu.Unlock()
		return
	}
	w.tab = i
	for _, r := range w.panes {
		if r.tab == i {
			w.focused = r.id
			break
		}
	}
	w.mu.Unlock()

	w.loadLazyInTab(ctx)
	w.publish(events.NewLayoutChangedEvent())
	w.changed()
}

func (w *Workspace) loadLazyInTab(ctx context.Context) {
	w.mu.Lock()
	var lazy []*paneRec
	for _, r := range w.panes {
		if r.tab == w.tab && r.lazy {
			lazy = append(lazy, r)
		}
	}
	w.mu.Unlock()
	for _, r := range lazy {
		if err := w.load(ctx, r); err != nil {
			w.logger.Warn("loading pane failed", "pane", r.id, "error", err)
		}
	}
}

// ToggleMode switches an editor pane between source and live mode.
func (w *Workspace) ToggleMode(id string) {
	w.mu.Lock()
	r := w.find(id)
	if r == nil || !isEditorType(r.viewType) {
		w.mu.Unlock()
		return
	}
	if r.mode == host.ModeSource {
		r.mode = host.ModeLive
	} else {
		r.mode = host.ModeSource
	}
	w.mu.Unlock()
	w.changed()
}

// Close removes a pane.
func (w *Workspace) Close(id string) {
	w.mu.Lock()
	i := slices.IndexFunc(w.panes, func(r *paneRec) bool { return r.id == id })
	if i < 0 {
		w.mu.Unlock()
		return
	}
	r := w.panes[i]
	w.panes = slices.Delete(w.panes, i, i+1)
	if r.doc != nil {
		r.doc.OnChange(nil)
	}
	if w.focused == id {
		w.focused = ""
		for _, o := range w.panes {
			if o.tab == w.tab {
				w.focused = o.id
				break
			}
		}
	}
	w.mu.Unlock()

	w.publish(events.NewLayoutChangedEvent())
	w.changed()
}

// SetOffset scrolls a non-editor pane.
func (w *Workspace) SetOffset(id string, offset int) {
	w.mu.Lock()
	if r := w.find(id); r != nil {
		r.offset = max(offset, 0)
	}
	w.mu.Unlock()
	w.changed()
}

// Files returns the distinct files shown by panes.
func (w *Workspace) Files() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	var files []string
	for _, r := range w.panes {
		if r.file != "" && !slices.Contains(files, r.file) {
			files = append(files, r.file)
		}
	}
	return files
}

// RunFrames runs the after-render callbacks of every document.
func (w *Workspace) RunFrames() {
	w.mu.Lock()
	var docs []*Document
	for _, r := range w.panes {
		if r.doc != nil {
			docs = append(docs, r.doc)
		}
	}
	w.mu.Unlock()
	for _, d := range docs {
		d.RunFrames()
	}
}

// Button is a pane header action.
type Button struct {
	Icon  string
	Title string
}

// PaneView is what the UI draws for one pane.
type PaneView struct {
	ID       string
	Type     string
	File     string
	Mode     host.DisplayMode
	Dirty    bool
	Lazy     bool
	Focused  bool
	Doc      *Document
	Source   string
	Baseline string
	Offset   int
	Version  int
	Err      error
	Buttons  []Button
}

// View returns the tab names, the current tab and its panes.
func (w *Workspace) View() (tabs []string, current int, panes []PaneView) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, r := range w.panes {
		if r.tab != w.tab {
			continue
		}
		pv := PaneView{
			ID:       r.id,
			Type:     r.viewType,
			File:     r.file,
			Mode:     r.mode,
			Lazy:     r.lazy,
			Focused:  r.id == w.focused,
			Doc:      r.doc,
			Source:   r.source,
			Baseline: r.baseline,
			Offset:   r.offset,
			Version:  r.version,
			Err:      r.err,
		}
		if r.doc != nil {
			pv.Dirty = r.doc.Dirty()
		}
		for _, a := range r.actions {
			pv.Buttons = append(pv.Buttons, Button{Icon: a.icon, Title: a.title})
		}
		panes = append(panes, pv)
	}
	return slices.Clone(w.tabs), w.tab, panes
}
