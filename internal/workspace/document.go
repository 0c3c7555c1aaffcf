package workspace

import (
	"strings"
	"sync"

	"github.com/theirongolddev/panefresh/internal/host"
)

const maxUndo = 100

type snapshot struct {
	text []rune
	sel  host.Selection
}

// Document is the text buffer behind an editor pane. It implements
// host.Editor. Every mutation takes the lock once and notifies the change
// listener once, after the lock is released.
type Document struct {
	mu       sync.Mutex
	text     []rune
	sel      host.Selection
	scroll   host.ScrollOffset
	dirty    bool
	version  int
	undo     []snapshot
	frames   []func()
	onChange func()
}

// NewDocument returns a clean document holding text.
func NewDocument(text string) *Document {
	return &Document{text: []rune(text)}
}

// OnChange sets the listener called after every change.
func (d *Document) OnChange(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onChange = fn
}

func (d *Document) notify() {
	d.mu.Lock()
	fn := d.onChange
	d.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Text implements host.Editor.
func (d *Document) Text() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return string(d.text)
}

// Lines returns the document split into lines.
func (d *Document) Lines() []string {
	return strings.Split(d.Text(), "\n")
}

// Selection implements host.Editor.
func (d *Document) Selection() host.Selection {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sel
}

// SetSelection moves the selection, clamped to the document.
func (d *Document) SetSelection(s host.Selection) {
	d.mu.Lock()
	d.sel = host.Selection{Anchor: d.clamp(s.Anchor), Head: d.clamp(s.Head)}
	d.mu.Unlock()
	d.notify()
}

// Scroll implements host.Editor.
func (d *Document) Scroll() host.ScrollOffset {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.scroll
}

// SetScroll implements host.Editor.
func (d *Document) SetScroll(s host.ScrollOffset) {
	d.mu.Lock()
	d.scroll = d.clampScroll(s)
	d.mu.Unlock()
	d.notify()
}

// Dirty reports unsaved edits.
func (d *Document) Dirty() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dirty
}

// MarkSaved clears the dirty flag.
func (d *Document) MarkSaved() {
	d.mu.Lock()
	d.dirty = false
	d.mu.Unlock()
	d.notify()
}

// Version increases with every text change.
func (d *Document) Version() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.version
}

// Apply implements host.Editor. It replaces content from outside the pane
// (a reload from disk) and so leaves the dirty flag alone.
func (d *Document) Apply(changes ...host.Change) {
	d.apply(false, changes)
}

// Edit applies user edits and marks the document dirty.
func (d *Document) Edit(changes ...host.Change) {
	d.apply(true, changes)
}

func (d *Document) apply(user bool, changes []host.Change) {
	if len(changes) == 0 {
		return
	}
	d.mu.Lock()
	d.pushUndo()
	for _, c := range changes {
		from := min(max(c.From, 0), len(d.text))
		to := min(max(c.To, from), len(d.text))
		next := make([]rune, 0, len(d.text)-(to-from)+len(c.Insert))
		next = append(next, d.text[:from]...)
		next = append(next, []rune(c.Insert)...)
		d.text = append(next, d.text[to:]...)
		if c.Selection != nil {
			d.sel = *c.Selection
		}
	}
	d.sel = host.Selection{Anchor: d.clamp(d.sel.Anchor), Head: d.clamp(d.sel.Head)}
	d.scroll = d.clampScroll(d.scroll)
	d.version++
	if user {
		d.dirty = true
	}
	d.mu.Unlock()
	d.notify()
}

func (d *Document) pushUndo() {
	d.undo = append(d.undo, snapshot{text: append([]rune(nil), d.text...), sel: d.sel})
	if len(d.undo) > maxUndo {
		d.undo = d.undo[len(d.undo)-maxUndo:]
	}
}

// Undo reverts the last change. It reports false when there is nothing to
// undo.
func (d *Document) Undo() bool {
	d.mu.Lock()
	if len(d.undo) == 0 {
		d.mu.Unlock()
		return false
	}
	last := d.undo[len(d.undo)-1]
	d.undo = d.undo[:len(d.undo)-1]
	d.text, d.sel = last.text, last.sel
	d.version++
	d.dirty = true
	d.mu.Unlock()
	d.notify()
	return true
}

// OnNextFrame implements host.Editor.
func (d *Document) OnNextFrame(fn func()) {
	d.mu.Lock()
	d.frames = append(d.frames, fn)
	d.mu.Unlock()
	d.notify()
}

// RunFrames runs the callbacks queued by OnNextFrame. The UI calls it after
// drawing.
func (d *Document) RunFrames() {
	d.mu.Lock()
	frames := d.frames
	d.frames = nil
	d.mu.Unlock()
	for _, fn := range frames {
		fn()
	}
}

// Insert replaces the selection with s and collapses the cursor after it.
func (d *Document) Insert(s string) {
	d.mu.Lock()
	from, to := d.sel.Ordered()
	start, end := d.offset(from), d.offset(to)
	cursor := d.position(start+len([]rune(s)), []rune(string(d.text[:start])+s+string(d.text[end:])))
	d.mu.Unlock()
	sel := host.Cursor(cursor)
	d.Edit(host.Change{From: start, To: end, Insert: s, Selection: &sel})
}

// Backspace deletes the selection, or the rune before the cursor.
func (d *Document) Backspace() {
	d.mu.Lock()
	from, to := d.sel.Ordered()
	start, end := d.offset(from), d.offset(to)
	if start == end {
		if start == 0 {
			d.mu.Unlock()
			return
		}
		start--
	}
	cursor := d.position(start, d.text)
	d.mu.Unlock()
	sel := host.Cursor(cursor)
	d.Edit(host.Change{From: start, To: end, Selection: &sel})
}

// MoveCursor moves the cursor by lines and columns and collapses the
// selection.
func (d *Document) MoveCursor(dLine, dCol int) {
	d.mu.Lock()
	p := d.sel.Head
	if dCol != 0 {
		off := min(max(d.offset(p)+dCol, 0), len(d.text))
		p = d.position(off, d.text)
	}
	p.Line += dLine
	d.sel = host.Cursor(d.clamp(p))
	d.followCursor()
	d.mu.Unlock()
	d.notify()
}

// followCursor keeps the cursor line within a window of 1 line below the
// top. The UI adjusts for the real height.
func (d *Document) followCursor() {
	if d.sel.Head.Line < d.scroll.Top {
		d.scroll.Top = d.sel.Head.Line
	}
}

// ScrollBy moves the scroll offset by n lines.
func (d *Document) ScrollBy(n int) {
	d.mu.Lock()
	d.scroll = d.clampScroll(host.ScrollOffset{Top: d.scroll.Top + n, Left: d.scroll.Left})
	d.mu.Unlock()
	d.notify()
}

func (d *Document) lineStarts() []int {
	starts := []int{0}
	for i, r := range d.text {
		if r == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// offset converts a position to a rune offset. Must hold mu.
func (d *Document) offset(p host.Position) int {
	p = d.clamp(p)
	return d.lineStarts()[p.Line] + p.Col
}

// position converts a rune offset in text to a line/column position.
func (d *Document) position(off int, text []rune) host.Position {
	var p host.Position
	for i := 0; i < off && i < len(text); i++ {
		if text[i] == '\n' {
			p.Line++
			p.Col = 0
		} else {
			p.Col++
		}
	}
	return p
}

// clamp moves p inside the document. Must hold mu.
func (d *Document) clamp(p host.Position) host.Position {
	starts := d.lineStarts()
	p.Line = min(max(p.Line, 0), len(starts)-1)
	end := len(d.text)
	if p.Line+1 < len(starts) {
		end = starts[p.Line+1] - 1
	}
	p.Col = min(max(p.Col, 0), end-starts[p.Line])
	return p
}

func (d *Document) clampScroll(s host.ScrollOffset) host.ScrollOffset {
	lines := len(d.lineStarts())
	s.Top = min(max(s.Top, 0), lines-1)
	s.Left = max(s.Left, 0)
	return s
}
