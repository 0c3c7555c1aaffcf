package refresh

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/theirongolddev/panefresh/internal/host"
)

type fakeEditor struct {
	mu       sync.Mutex
	text     []rune
	sel      host.Selection
	scroll   host.ScrollOffset
	observed []string
	frames   []func()
}

func newFakeEditor(text string) *fakeEditor {
	return &fakeEditor{text: []rune(text)}
}

func (e *fakeEditor) Text() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return string(e.text)
}

func (e *fakeEditor) Selection() host.Selection {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sel
}

func (e *fakeEditor) Scroll() host.ScrollOffset {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scroll
}

func (e *fakeEditor) SetScroll(s host.ScrollOffset) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scroll = s
}

func (e *fakeEditor) Apply(changes ...host.Change) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, c := range changes {
		from := min(max(c.From, 0), len(e.text))
		to := min(max(c.To, from), len(e.text))
		next := append([]rune{}, e.text[:from]...)
		next = append(next, []rune(c.Insert)...)
		e.text = append(next, e.text[to:]...)
		if c.Selection != nil {
			e.sel = *c.Selection
		}
	}
	// A real editor would also reset scroll when the document is replaced.
	e.scroll = host.ScrollOffset{}
	e.observed = append(e.observed, string(e.text))
}

func (e *fakeEditor) OnNextFrame(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.frames = append(e.frames, fn)
}

func (e *fakeEditor) render() {
	e.mu.Lock()
	frames := e.frames
	e.frames = nil
	e.mu.Unlock()
	for _, fn := range frames {
		fn()
	}
}

type fakePane struct {
	id       string
	viewType string
	dirty    bool
	visible  bool
	lazy     bool
	file     string
	mode     host.DisplayMode
	editor   host.Editor
	// pinned panes report that they cannot be rebuilt.
	pinned bool
}

func (p *fakePane) ID() string                    { return p.id }
func (p *fakePane) ViewType() string              { return p.viewType }
func (p *fakePane) Dirty() bool                   { return p.dirty }
func (p *fakePane) Visible() bool                 { return p.visible }
func (p *fakePane) Lazy() bool                    { return p.lazy }
func (p *fakePane) File() string                  { return p.file }
func (p *fakePane) DisplayMode() host.DisplayMode { return p.mode }
func (p *fakePane) Rebuildable() bool             { return !p.pinned }
func (p *fakePane) Editor() (host.Editor, bool) {
	if p.editor == nil {
		return nil, false
	}
	return p.editor, true
}

type fakeFocus struct {
	h        *fakeHost
	name     string
	attached bool
}

func (f *fakeFocus) Attached() bool { return f.attached }
func (f *fakeFocus) Focus() {
	f.h.mu.Lock()
	defer f.h.mu.Unlock()
	f.h.focused = f.name
}

// fakeHost is an in-memory host. Panes are snapshots; the host copies its
// records on every read so references go stale the way real ones do.
type fakeHost struct {
	mu      sync.Mutex
	panes   []*fakePane
	active  string
	disk    map[string]string
	states  map[string]host.ViewState
	lastEph map[string]host.EphemeralState
	calls   []string
	focused string
	focus   *fakeFocus

	failMaterialize map[string]error
	failSave        map[string]error
	failSet         map[string]error
	stallSet        chan struct{}
}

func newFakeHost(panes ...*fakePane) *fakeHost {
	h := &fakeHost{
		panes:           panes,
		disk:            map[string]string{},
		states:          map[string]host.ViewState{},
		lastEph:         map[string]host.EphemeralState{},
		failMaterialize: map[string]error{},
		failSave:        map[string]error{},
		failSet:         map[string]error{},
	}
	for _, p := range panes {
		h.states[p.id] = host.ViewState{Type: p.viewType, File: p.file, Mode: p.mode}
	}
	if len(panes) > 0 {
		h.active = panes[0].id
	}
	return h
}

func (h *fakeHost) record(format string, args ...any) {
	h.calls = append(h.calls, fmt.Sprintf(format, args...))
}

func (h *fakeHost) Calls() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.calls)
}

func (h *fakeHost) find(id string) *fakePane {
	for _, p := range h.panes {
		if p.id == id {
			return p
		}
	}
	return nil
}

func (h *fakeHost) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.panes = slices.DeleteFunc(h.panes, func(p *fakePane) bool { return p.id == id })
}

func (h *fakeHost) Panes() []host.Pane {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]host.Pane, 0, len(h.panes))
	for _, p := range h.panes {
		cp := *p
		out = append(out, &cp)
	}
	return out
}

func (h *fakeHost) ActivePane() host.Pane {
	p, ok := h.Pane(h.activeID())
	if !ok {
		return nil
	}
	return p
}

func (h *fakeHost) activeID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active
}

func (h *fakeHost) Pane(id string) (host.Pane, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p := h.find(id)
	if p == nil {
		return nil, false
	}
	cp := *p
	return &cp, true
}

func (h *fakeHost) Materialize(_ context.Context, p host.Pane) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record("materialize %s", p.ID())
	if err := h.failMaterialize[p.ID()]; err != nil {
		return err
	}
	if fp := h.find(p.ID()); fp != nil {
		fp.lazy = false
	}
	return nil
}

func (h *fakeHost) Save(_ context.Context, p host.Pane) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record("save %s", p.ID())
	if err := h.failSave[p.ID()]; err != nil {
		return err
	}
	fp := h.find(p.ID())
	if fp == nil {
		return host.ErrPaneNotFound
	}
	if fp.editor != nil {
		h.disk[fp.file] = fp.editor.Text()
	}
	fp.dirty = false
	return nil
}

func (h *fakeHost) ReadFresh(_ context.Context, path string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record("read %s", path)
	text, ok := h.disk[path]
	if !ok {
		return "", fmt.Errorf("%s: no such file", path)
	}
	return text, nil
}

func (h *fakeHost) ViewState(p host.Pane) host.ViewState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.states[p.ID()]
}

func (h *fakeHost) EphemeralState(p host.Pane) host.EphemeralState {
	return host.EphemeralState{"scroll": 7}
}

func (h *fakeHost) SetViewState(_ context.Context, p host.Pane, vs host.ViewState, eph host.EphemeralState) error {
	if h.stallSet != nil {
		<-h.stallSet
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record("set %s %s", p.ID(), vs.Type)
	if err := h.failSet[p.ID()]; err != nil {
		return err
	}
	h.states[p.ID()] = vs
	h.lastEph[p.ID()] = eph
	// Rebuilding a pane moves focus to it, like most hosts do.
	h.focused = p.ID()
	return nil
}

func (h *fakeHost) FocusedElement() host.FocusTarget {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.focus == nil {
		return nil
	}
	return h.focus
}

func (h *fakeHost) setFocus(name string, attached bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.focused = name
	h.focus = &fakeFocus{h: h, name: name, attached: attached}
}

func (h *fakeHost) Focused() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.focused
}

// menuHost adds menu and action capabilities.
type menuHost struct {
	*fakeHost
	builder host.MenuBuilder
	actions map[string]int
	removed []string
}

func newMenuHost(h *fakeHost) *menuHost {
	return &menuHost{
		fakeHost: h,
		builder: func(m host.Menu, p host.Pane) {
			m.AddItem(host.MenuItem{Title: "Close"})
			m.AddItem(host.MenuItem{Title: "Split right"})
		},
		actions: map[string]int{},
	}
}

func (m *menuHost) MenuBuilder() host.MenuBuilder {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.builder
}

func (m *menuHost) SetMenuBuilder(b host.MenuBuilder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.builder = b
}

func (m *menuHost) AddAction(p host.Pane, icon, title string, onClick func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := p.ID()
	m.actions[id]++
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.actions[id]--
		m.removed = append(m.removed, id)
	}
}

func (m *menuHost) actionCount(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.actions[id]
}

type rerenderHost struct {
	*fakeHost
	rerendered []string
}

func (r *rerenderHost) Rerender(_ context.Context, p host.Pane) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rerendered = append(r.rerendered, p.ID())
	return nil
}

type fakeTicker struct {
	d       time.Duration
	ch      chan time.Time
	mu      sync.Mutex
	stopped bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }
func (t *fakeTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}
func (t *fakeTicker) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type fakeClock struct {
	mu      sync.Mutex
	tickers []*fakeTicker
	timers  []*fakeTimer
}

func (c *fakeClock) NewTicker(d time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTicker{d: d, ch: make(chan time.Time)}
	c.tickers = append(c.tickers, t)
	return t
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) live() []*fakeTicker {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*fakeTicker
	for _, t := range c.tickers {
		if !t.isStopped() {
			out = append(out, t)
		}
	}
	return out
}

type fakeCopier struct {
	mu     sync.Mutex
	copied []string
}

func (c *fakeCopier) Copy(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.copied = append(c.copied, text)
	return nil
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func indexOf(calls []string, call string) int {
	return slices.Index(calls, call)
}

// fmtSscan parses a "set <id> <type>" call record.
func fmtSscan(call string, id, typ *string) (int, error) {
	return fmt.Sscanf(call, "set %s %s", id, typ)
}
