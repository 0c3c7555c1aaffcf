package workspace

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme is the workspace palette.
type Theme struct {
	Name    string
	Dark    bool
	Text    lipgloss.Color
	Subtle  lipgloss.Color
	Surface lipgloss.Color
	Border  lipgloss.Color
	Focus   lipgloss.Color
	Accent  lipgloss.Color
	Added   lipgloss.Color
	Removed lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
}

// Mocha is the dark palette.
var Mocha = Theme{
	Name:    "dark",
	Dark:    true,
	Text:    lipgloss.Color("#cdd6f4"),
	Subtle:  lipgloss.Color("#6c7086"),
	Surface: lipgloss.Color("#313244"),
	Border:  lipgloss.Color("#585b70"),
	Focus:   lipgloss.Color("#89b4fa"),
	Accent:  lipgloss.Color("#cba6f7"),
	Added:   lipgloss.Color("#a6e3a1"),
	Removed: lipgloss.Color("#f38ba8"),
	Warning: lipgloss.Color("#f9e2af"),
	Error:   lipgloss.Color("#f38ba8"),
}

// Latte is the light palette.
var Latte = Theme{
	Name:    "light",
	Text:    lipgloss.Color("#4c4f69"),
	Subtle:  lipgloss.Color("#9ca0b0"),
	Surface: lipgloss.Color("#ccd0da"),
	Border:  lipgloss.Color("#acb0be"),
	Focus:   lipgloss.Color("#1e66f5"),
	Accent:  lipgloss.Color("#8839ef"),
	Added:   lipgloss.Color("#40a02b"),
	Removed: lipgloss.Color("#d20f39"),
	Warning: lipgloss.Color("#df8e1d"),
	Error:   lipgloss.Color("#d20f39"),
}

// Plain uses terminal defaults only.
var Plain = Theme{Name: "plain"}

// detectDarkBackground is a variable for tests.
var detectDarkBackground = func() bool {
	return termenv.NewOutput(os.Stdout).HasDarkBackground()
}

// ThemeFor returns the palette for a workspace.theme setting: auto, dark
// or light. NO_COLOR always wins.
func ThemeFor(name string) Theme {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return Plain
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "dark":
		return Mocha
	case "light":
		return Latte
	case "plain", "none":
		return Plain
	}
	if detectDarkBackground() {
		return Mocha
	}
	return Latte
}

// GlamourStyle picks the markdown style: the explicit setting if any,
// otherwise one matching the theme.
func GlamourStyle(explicit string, t Theme) string {
	if explicit != "" {
		return explicit
	}
	switch {
	case t.Name == Plain.Name:
		return "notty"
	case t.Dark:
		return "dark"
	}
	return "light"
}

type styles struct {
	pane        lipgloss.Style
	paneFocused lipgloss.Style
	header      lipgloss.Style
	headerDim   lipgloss.Style
	button      lipgloss.Style
	cursor      lipgloss.Style
	selection   lipgloss.Style
	added       lipgloss.Style
	removed     lipgloss.Style
	dim         lipgloss.Style
	err         lipgloss.Style
	tab         lipgloss.Style
	tabActive   lipgloss.Style
	status      lipgloss.Style
	menu        lipgloss.Style
	menuItem    lipgloss.Style
	menuCursor  lipgloss.Style
}

func newStyles(t Theme) styles {
	s := styles{
		pane:        lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(t.Border),
		paneFocused: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(t.Focus),
		header:      lipgloss.NewStyle().Bold(true).Foreground(t.Text),
		headerDim:   lipgloss.NewStyle().Foreground(t.Subtle),
		button:      lipgloss.NewStyle().Foreground(t.Accent),
		cursor:      lipgloss.NewStyle().Reverse(true),
		selection:   lipgloss.NewStyle().Background(t.Surface),
		added:       lipgloss.NewStyle().Foreground(t.Added),
		removed:     lipgloss.NewStyle().Foreground(t.Removed),
		dim:         lipgloss.NewStyle().Foreground(t.Subtle),
		err:         lipgloss.NewStyle().Foreground(t.Error).Bold(true),
		tab:         lipgloss.NewStyle().Foreground(t.Subtle).Padding(0, 1),
		tabActive:   lipgloss.NewStyle().Bold(true).Foreground(t.Text).Background(t.Surface).Padding(0, 1),
		status:      lipgloss.NewStyle().Foreground(t.Subtle),
		menu:        lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(t.Accent).Padding(0, 1),
		menuItem:    lipgloss.NewStyle().Foreground(t.Text),
		menuCursor:  lipgloss.NewStyle().Bold(true).Foreground(t.Focus),
	}
	if t.Name == Plain.Name {
		s.selection = lipgloss.NewStyle().Underline(true)
		s.tabActive = lipgloss.NewStyle().Bold(true).Reverse(true).Padding(0, 1)
		s.menuCursor = lipgloss.NewStyle().Reverse(true)
	}
	return s
}
