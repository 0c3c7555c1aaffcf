package workspace

import "github.com/charmbracelet/bubbles/key"

// keyMap avoids plain letters, which are typed into editor panes.
type keyMap struct {
	RefreshActive  key.Binding
	RefreshVisible key.Binding
	RefreshAll     key.Binding
	Menu           key.Binding
	NextPane       key.Binding
	Save           key.Binding
	ToggleMode     key.Binding
	Undo           key.Binding
	Help           key.Binding
	Quit           key.Binding
	Tab            key.Binding

	Up       key.Binding
	Down     key.Binding
	Left     key.Binding
	Right    key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Enter    key.Binding
	Back     key.Binding
	Escape   key.Binding
}

var keys = keyMap{
	RefreshActive:  key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "refresh pane")),
	RefreshVisible: key.NewBinding(key.WithKeys("alt+r"), key.WithHelp("alt+r", "refresh visible")),
	RefreshAll:     key.NewBinding(key.WithKeys("alt+a"), key.WithHelp("alt+a", "refresh all")),
	Menu:           key.NewBinding(key.WithKeys("alt+m"), key.WithHelp("alt+m", "pane menu")),
	NextPane:       key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next pane")),
	Save:           key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
	ToggleMode:     key.NewBinding(key.WithKeys("ctrl+e"), key.WithHelp("ctrl+e", "source/live")),
	Undo:           key.NewBinding(key.WithKeys("ctrl+z"), key.WithHelp("ctrl+z", "undo")),
	Help:           key.NewBinding(key.WithKeys("f1"), key.WithHelp("f1", "help")),
	Quit:           key.NewBinding(key.WithKeys("ctrl+q", "ctrl+c"), key.WithHelp("ctrl+q", "quit")),
	Tab: key.NewBinding(
		key.WithKeys("alt+1", "alt+2", "alt+3", "alt+4", "alt+5", "alt+6", "alt+7", "alt+8", "alt+9"),
		key.WithHelp("alt+1..9", "switch tab"),
	),

	Up:       key.NewBinding(key.WithKeys("up")),
	Down:     key.NewBinding(key.WithKeys("down")),
	Left:     key.NewBinding(key.WithKeys("left")),
	Right:    key.NewBinding(key.WithKeys("right")),
	PageUp:   key.NewBinding(key.WithKeys("pgup")),
	PageDown: key.NewBinding(key.WithKeys("pgdown")),
	Enter:    key.NewBinding(key.WithKeys("enter")),
	Back:     key.NewBinding(key.WithKeys("backspace")),
	Escape:   key.NewBinding(key.WithKeys("esc")),
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.RefreshActive, k.RefreshVisible, k.Menu, k.NextPane, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.RefreshActive, k.RefreshVisible, k.RefreshAll},
		{k.Menu, k.NextPane, k.Tab},
		{k.Save, k.ToggleMode, k.Undo},
		{k.Help, k.Quit},
	}
}

// tabIndex returns the zero-based tab of an alt+digit key.
func tabIndex(s string) int {
	if len(s) == len("alt+1") && s[:4] == "alt+" && s[4] >= '1' && s[4] <= '9' {
		return int(s[4] - '1')
	}
	return -1
}
