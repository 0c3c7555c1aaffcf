package refresh

import (
	"slices"
	"testing"

	"github.com/theirongolddev/panefresh/internal/host"
)

func titles(items []host.MenuItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Title
	}
	return out
}

func TestWrapMenuKeepsOriginalItems(t *testing.T) {
	var refreshed, copied string
	original := func(m host.Menu, p host.Pane) {
		m.AddItem(host.MenuItem{Title: "Close"})
	}
	wrapped := WrapMenu(original, MenuActions{
		Refresh:      func(id string) { refreshed = id },
		CopyViewType: func(vt string) { copied = vt },
	})

	items := host.Build(wrapped, &fakePane{id: "p9", viewType: "kanban"})
	if got := titles(items); !slices.Equal(got, []string{"Close", RefreshItemTitle, CopyTypeItemTitle}) {
		t.Fatalf("items = %v", got)
	}
	if items[1].Icon != "refresh-cw" || items[1].Section != "pane" {
		t.Errorf("refresh item = %+v", items[1])
	}
	items[1].OnClick()
	items[2].OnClick()
	if refreshed != "p9" || copied != "kanban" {
		t.Errorf("refreshed=%q copied=%q", refreshed, copied)
	}
}

func TestWrapMenuNilOriginal(t *testing.T) {
	items := host.Build(WrapMenu(nil, MenuActions{Refresh: func(string) {}}), &fakePane{id: "p"})
	if got := titles(items); !slices.Equal(got, []string{RefreshItemTitle}) {
		t.Errorf("items = %v", got)
	}
}

func TestMenuExtensionInstallUninstall(t *testing.T) {
	h := newMenuHost(newFakeHost())
	x := NewMenuExtension(MenuActions{Refresh: func(string) {}, CopyViewType: func(string) {}})
	p := &fakePane{id: "p1", viewType: "markdown"}

	x.Install(h)
	x.Install(h)
	if got := titles(host.Build(h.MenuBuilder(), p)); !slices.Equal(got, []string{"Close", "Split right", RefreshItemTitle, CopyTypeItemTitle}) {
		t.Fatalf("installed items = %v", got)
	}

	x.Uninstall()
	if x.Installed() {
		t.Error("still installed")
	}
	if got := titles(host.Build(h.MenuBuilder(), p)); !slices.Equal(got, []string{"Close", "Split right"}) {
		t.Errorf("restored items = %v", got)
	}
	x.Uninstall()
	if got := titles(host.Build(h.MenuBuilder(), p)); len(got) != 2 {
		t.Errorf("second uninstall changed the menu: %v", got)
	}
}

func TestDecoratorAddsOncePerPane(t *testing.T) {
	h := newMenuHost(newFakeHost(&fakePane{id: "p1"}, &fakePane{id: "p2"}))
	lc := &Lifecycle{}
	var clicked []string
	d := NewDecorator(h, lc, func(id string) { clicked = append(clicked, id) })

	p1, _ := h.Pane("p1")
	d.Observe(p1)
	p1again, _ := h.Pane("p1")
	d.Observe(p1again)
	d.Observe(nil)
	if h.actionCount("p1") != 1 {
		t.Errorf("p1 buttons = %d, want 1", h.actionCount("p1"))
	}

	p2, _ := h.Pane("p2")
	d.Observe(p2)
	h.remove("p2")
	d.Prune(h.Panes())
	if d.Decorated("p2") || h.actionCount("p2") != 0 {
		t.Error("closed pane p2 should be forgotten")
	}
	if lc.Len() != 1 {
		t.Errorf("lifecycle holds %d callbacks, want 1", lc.Len())
	}

	lc.Close()
	if h.actionCount("p1") != 0 {
		t.Error("button not removed on unload")
	}
}

func TestLifecycleOrder(t *testing.T) {
	var order []string
	lc := &Lifecycle{}
	lc.Register("a", func() { order = append(order, "a") })
	drop := lc.Register("b", func() { order = append(order, "b") })
	lc.Register("c", func() { order = append(order, "c") })
	drop()

	lc.Close()
	lc.Close()
	if !slices.Equal(order, []string{"c", "a"}) {
		t.Errorf("order = %v", order)
	}

	lc.Register("late", func() { order = append(order, "late") })
	if order[len(order)-1] != "late" {
		t.Error("registering after Close should run immediately")
	}
}
