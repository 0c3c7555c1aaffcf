package host

// EmptyViewType is the view type of the placeholder pane state.
const EmptyViewType = "empty"

// ViewState describes what a pane slot shows. Hosts fill in what they need;
// the engine only copies it around.
type ViewState struct {
	Type  string            `json:"type"`
	File  string            `json:"file,omitempty"`
	Mode  DisplayMode       `json:"mode,omitempty"`
	Extra map[string]string `json:"extra,omitempty"`
}

// EmptyViewState is the placeholder used during a full rebuild.
var EmptyViewState = ViewState{Type: EmptyViewType}

// Equivalent reports whether two view states show the same thing.
func (v ViewState) Equivalent(o ViewState) bool {
	return v.Type == o.Type && v.File == o.File && v.Mode == o.Mode
}

// EphemeralState is transient UI state restored after a rebuild (scroll,
// cursor). Hosts store whatever they need; nil means nothing to restore.
type EphemeralState map[string]any

// Position is a zero-based line/column location in a document.
type Position struct {
	Line int `json:"line"`
	Col  int `json:"col"`
}

// Before reports whether p sorts before o.
func (p Position) Before(o Position) bool {
	return p.Line < o.Line || (p.Line == o.Line && p.Col < o.Col)
}

// Selection is an anchor/head range. A collapsed selection is a cursor.
type Selection struct {
	Anchor Position `json:"anchor"`
	Head   Position `json:"head"`
}

// Cursor returns a collapsed selection at p.
func Cursor(p Position) Selection {
	return Selection{Anchor: p, Head: p}
}

// Empty reports whether the selection is collapsed.
func (s Selection) Empty() bool {
	return s.Anchor == s.Head
}

// Ordered returns the selection bounds in document order.
func (s Selection) Ordered() (from, to Position) {
	if s.Head.Before(s.Anchor) {
		return s.Head, s.Anchor
	}
	return s.Anchor, s.Head
}

// ScrollOffset is the first visible line and column of an editor.
type ScrollOffset struct {
	Top  int `json:"top"`
	Left int `json:"left"`
}

// Change replaces the rune range [From, To) with Insert and optionally moves
// the selection afterwards. Editors clamp the range to the document, so To
// may be math.MaxInt to mean the end.
type Change struct {
	From      int
	To        int
	Insert    string
	Selection *Selection
}

// Editor is the text-editing engine of a pane.
type Editor interface {
	Text() string
	Selection() Selection
	Scroll() ScrollOffset
	SetScroll(ScrollOffset)
	// Apply applies all changes back to back. Observers only ever see the
	// document before the first change and after the last one.
	Apply(changes ...Change)
	// OnNextFrame runs fn after the next render of the pane.
	OnNextFrame(fn func())
}
