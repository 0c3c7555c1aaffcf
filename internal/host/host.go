// Package host defines the capabilities the refresh engine needs from a pane
// workspace. Hosts (tmux, the built-in workspace) implement these interfaces;
// the engine never depends on a concrete host type.
package host

import (
	"context"
	"errors"
)

// ErrPaneNotFound is returned when a pane ID no longer resolves.
var ErrPaneNotFound = errors.New("pane not found")

// DisplayMode is the display sub-mode of a pane.
type DisplayMode int

const (
	// ModeNone is used by panes without sub-modes.
	ModeNone DisplayMode = iota
	// ModeSource is the raw source editing mode of a text pane.
	ModeSource
	// ModeLive is the live-rendered editing mode of a text pane.
	ModeLive
	// ModePreview is a read-only rendered view.
	ModePreview
)

func (m DisplayMode) String() string {
	switch m {
	case ModeSource:
		return "source"
	case ModeLive:
		return "live"
	case ModePreview:
		return "preview"
	default:
		return "none"
	}
}

// Pane is a host-managed pane. References are only valid until the next
// suspending host call; re-resolve by ID afterwards.
type Pane interface {
	ID() string
	ViewType() string
	Dirty() bool
	Visible() bool
	Lazy() bool
	File() string
	DisplayMode() DisplayMode
	// Editor returns the text-editing engine of the pane, if it has one.
	Editor() (Editor, bool)
}

// Enumerator lists panes.
type Enumerator interface {
	// Panes returns every open pane. The slice is a snapshot.
	Panes() []Pane
	// ActivePane returns the focused pane, or nil.
	ActivePane() Pane
}

// Resolver looks a pane up by ID.
type Resolver interface {
	Pane(id string) (Pane, bool)
}

// Materializer loads a lazy pane.
type Materializer interface {
	Materialize(ctx context.Context, p Pane) error
}

// Saver persists unsaved edits of a pane.
type Saver interface {
	Save(ctx context.Context, p Pane) error
}

// ContentSource returns the freshest known content of a backing file.
type ContentSource interface {
	ReadFresh(ctx context.Context, path string) (string, error)
}

// ViewStater captures and replaces a pane's view state.
type ViewStater interface {
	ViewState(p Pane) ViewState
	EphemeralState(p Pane) EphemeralState
	SetViewState(ctx context.Context, p Pane, vs ViewState, eph EphemeralState) error
}

// FocusTracker exposes the element holding input focus.
type FocusTracker interface {
	// FocusedElement returns the element holding focus, or nil.
	FocusedElement() FocusTarget
}

// FocusTarget is a focusable UI element.
type FocusTarget interface {
	// Attached reports whether the element still exists in the UI.
	Attached() bool
	Focus()
}

// Host is the set of capabilities every host provides.
type Host interface {
	Enumerator
	Resolver
	Materializer
	Saver
	ContentSource
	ViewStater
	FocusTracker
}

// Rerenderer is implemented by hosts that can re-render preview panes in
// place without the placeholder swap.
type Rerenderer interface {
	Rerender(ctx context.Context, p Pane) error
}

// Rebuildable is implemented by panes that a host can only rebuild by
// destroying what they run. Panes reporting false are never rebuilt.
type Rebuildable interface {
	Rebuildable() bool
}

// CanRebuild reports whether a full rebuild of p is safe. Panes that do
// not implement Rebuildable always are.
func CanRebuild(p Pane) bool {
	if r, ok := p.(Rebuildable); ok {
		return r.Rebuildable()
	}
	return true
}
