package workspace

import "github.com/theirongolddev/panefresh/internal/host"

// Pane is a snapshot of a workspace pane. It goes stale on the next
// workspace change; resolve again by ID.
type Pane struct {
	id       string
	viewType string
	file     string
	mode     host.DisplayMode
	dirty    bool
	visible  bool
	lazy     bool
	doc      *Document
}

func (p *Pane) ID() string                    { return p.id }
func (p *Pane) ViewType() string              { return p.viewType }
func (p *Pane) Dirty() bool                   { return p.dirty }
func (p *Pane) Visible() bool                 { return p.visible }
func (p *Pane) Lazy() bool                    { return p.lazy }
func (p *Pane) File() string                  { return p.file }
func (p *Pane) DisplayMode() host.DisplayMode { return p.mode }

// Editor returns the pane's document for editor panes.
func (p *Pane) Editor() (host.Editor, bool) {
	if p.doc == nil {
		return nil, false
	}
	return p.doc, true
}
