package refresh

import (
	"sync"

	"github.com/theirongolddev/panefresh/internal/host"
)

// Menu item labels added to pane context menus.
const (
	RefreshItemTitle  = "Refresh view"
	CopyTypeItemTitle = "Copy view type"
)

// MenuActions are the callbacks behind the added menu items.
type MenuActions struct {
	Refresh      func(paneID string)
	CopyViewType func(viewType string)
}

// WrapMenu returns a builder that runs original unchanged and then appends
// the refresh and copy-view-type items.
func WrapMenu(original host.MenuBuilder, actions MenuActions) host.MenuBuilder {
	return func(m host.Menu, p host.Pane) {
		if original != nil {
			original(m, p)
		}
		if p == nil {
			return
		}
		id, viewType := p.ID(), p.ViewType()
		if actions.Refresh != nil {
			m.AddItem(host.MenuItem{
				Title:   RefreshItemTitle,
				Icon:    "refresh-cw",
				Section: "pane",
				OnClick: func() { actions.Refresh(id) },
			})
		}
		if actions.CopyViewType != nil {
			m.AddItem(host.MenuItem{
				Title:   CopyTypeItemTitle,
				Icon:    "copy",
				Section: "info",
				OnClick: func() { actions.CopyViewType(viewType) },
			})
		}
	}
}

// MenuExtension installs the wrapped builder into a host and restores the
// original one on Uninstall.
type MenuExtension struct {
	actions MenuActions

	mu       sync.Mutex
	hook     host.MenuHook
	original host.MenuBuilder
}

// NewMenuExtension returns an uninstalled extension.
func NewMenuExtension(actions MenuActions) *MenuExtension {
	return &MenuExtension{actions: actions}
}

// Install wraps the hook's current builder. Installing twice is a no-op.
func (x *MenuExtension) Install(hook host.MenuHook) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.hook != nil {
		return
	}
	x.hook = hook
	x.original = hook.MenuBuilder()
	hook.SetMenuBuilder(WrapMenu(x.original, x.actions))
}

// Installed reports whether the extension is active.
func (x *MenuExtension) Installed() bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.hook != nil
}

// Uninstall puts the original builder back and forgets it.
func (x *MenuExtension) Uninstall() {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.hook == nil {
		return
	}
	x.hook.SetMenuBuilder(x.original)
	x.hook, x.original = nil, nil
}
