package workspace

import (
	"context"

	"github.com/theirongolddev/panefresh/internal/events"
	"github.com/theirongolddev/panefresh/internal/host"
)

// MenuBuilder implements host.MenuHook.
func (w *Workspace) MenuBuilder() host.MenuBuilder {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.builder
}

// SetMenuBuilder implements host.MenuHook.
func (w *Workspace) SetMenuBuilder(b host.MenuBuilder) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.builder = b
}

func (w *Workspace) defaultMenu(m host.Menu, p host.Pane) {
	if p == nil {
		return
	}
	id := p.ID()
	if _, ok := p.Editor(); ok {
		title := "Source mode"
		if p.DisplayMode() == host.ModeSource {
			title = "Live mode"
		}
		m.AddItem(host.MenuItem{Title: title, Icon: "code", Section: "view", OnClick: func() { w.ToggleMode(id) }})
		if p.Dirty() {
			m.AddItem(host.MenuItem{Title: "Save", Icon: "save", Section: "view", OnClick: func() {
				if err := w.Save(context.Background(), p); err != nil {
					w.logger.Warn("saving pane failed", "pane", id, "error", err)
				}
			}})
		}
	}
	m.AddItem(host.MenuItem{Title: "Close pane", Icon: "x", Section: "close", OnClick: func() { w.Close(id) }})
}

// OpenMenu announces the context menu of a pane and returns its items.
func (w *Workspace) OpenMenu(paneID string) []host.MenuItem {
	p, ok := w.Pane(paneID)
	if !ok {
		return nil
	}
	w.publish(events.NewMenuOpeningEvent(paneID))
	return host.Build(w.MenuBuilder(), p)
}

// AddAction implements host.ActionHost. Buttons are drawn in the pane
// header, newest first.
func (w *Workspace) AddAction(p host.Pane, icon, title string, onClick func()) func() {
	w.mu.Lock()
	r := w.find(p.ID())
	if r == nil {
		w.mu.Unlock()
		return func() {}
	}
	w.actionSeq++
	seq := w.actionSeq
	r.actions = append([]action{{seq: seq, icon: icon, title: title, onClick: onClick}}, r.actions...)
	w.mu.Unlock()
	w.changed()

	return func() {
		w.mu.Lock()
		for _, r := range w.panes {
			for i, a := range r.actions {
				if a.seq == seq {
					r.actions = append(r.actions[:i:i], r.actions[i+1:]...)
					break
				}
			}
		}
		w.mu.Unlock()
		w.changed()
	}
}

// ClickAction runs the i-th header button of a pane.
func (w *Workspace) ClickAction(paneID string, i int) bool {
	w.mu.Lock()
	r := w.find(paneID)
	if r == nil || i < 0 || i >= len(r.actions) {
		w.mu.Unlock()
		return false
	}
	fn := r.actions[i].onClick
	w.mu.Unlock()
	if fn != nil {
		fn()
	}
	return true
}
