package host

// MenuItem is one entry of a pane context menu.
type MenuItem struct {
	Title   string
	Icon    string
	Section string
	OnClick func()
}

// Menu collects items while a context menu is being built.
type Menu interface {
	AddItem(item MenuItem)
}

// MenuBuilder fills a context menu for a pane.
type MenuBuilder func(m Menu, p Pane)

// MenuHook gives access to the host's context menu builder.
type MenuHook interface {
	MenuBuilder() MenuBuilder
	SetMenuBuilder(b MenuBuilder)
}

// ActionHost adds persistent action buttons to panes.
type ActionHost interface {
	// AddAction adds a button to the pane and returns a func removing it.
	AddAction(p Pane, icon, title string, onClick func()) (remove func())
}

// ItemList is a Menu that records items in order.
type ItemList struct {
	Items []MenuItem
}

// AddItem implements Menu.
func (l *ItemList) AddItem(item MenuItem) {
	l.Items = append(l.Items, item)
}

// Build runs b against a fresh list and returns the items.
func Build(b MenuBuilder, p Pane) []MenuItem {
	var l ItemList
	if b != nil {
		b(&l, p)
	}
	return l.Items
}
