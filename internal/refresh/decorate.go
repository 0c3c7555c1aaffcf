package refresh

import (
	"sync"

	"github.com/theirongolddev/panefresh/internal/host"
)

// Decorator adds a refresh action button to each pane the first time the
// pane is seen active. It remembers pane IDs only.
type Decorator struct {
	actions   host.ActionHost
	lifecycle *Lifecycle
	onClick   func(paneID string)

	mu   sync.Mutex
	seen map[string]decoration
}

type decoration struct {
	remove     func()
	unregister func()
}

// NewDecorator returns a decorator adding buttons through actions. Button
// removal is registered with lc.
func NewDecorator(actions host.ActionHost, lc *Lifecycle, onClick func(paneID string)) *Decorator {
	return &Decorator{
		actions:   actions,
		lifecycle: lc,
		onClick:   onClick,
		seen:      make(map[string]decoration),
	}
}

// Observe decorates p unless it already was.
func (d *Decorator) Observe(p host.Pane) {
	if p == nil {
		return
	}
	id := p.ID()

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[id]; ok {
		return
	}
	remove := d.actions.AddAction(p, "refresh-cw", RefreshItemTitle, func() { d.onClick(id) })
	if remove == nil {
		remove = func() {}
	}
	d.seen[id] = decoration{
		remove:     remove,
		unregister: d.lifecycle.Register("action "+id, remove),
	}
}

// Prune forgets panes the host no longer reports.
func (d *Decorator) Prune(live []host.Pane) {
	keep := make(map[string]struct{}, len(live))
	for _, p := range live {
		keep[p.ID()] = struct{}{}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for id, dec := range d.seen {
		if _, ok := keep[id]; ok {
			continue
		}
		dec.unregister()
		dec.remove()
		delete(d.seen, id)
	}
}

// Decorated reports whether the pane carries a button.
func (d *Decorator) Decorated(paneID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.seen[paneID]
	return ok
}
