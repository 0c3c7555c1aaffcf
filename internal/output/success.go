package output

import (
	"fmt"
	"io"
	"strings"
)

// Suggestion is a "what next" command.
type Suggestion struct {
	Command     string
	Description string
}

// PrintSuccessFooter writes a "What's next?" section. Nothing is written
// when w is not a terminal.
func PrintSuccessFooter(w io.Writer, suggestions ...Suggestion) {
	if len(suggestions) == 0 || !colorEnabled(w) {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, FormatSuggestions(suggestions))
}

// FormatSuggestions renders suggestions as plain lines.
func FormatSuggestions(suggestions []Suggestion) string {
	if len(suggestions) == 0 {
		return ""
	}
	lines := []string{"What's next?"}
	for _, s := range suggestions {
		lines = append(lines, fmt.Sprintf("  %s  # %s", s.Command, s.Description))
	}
	return strings.Join(lines, "\n")
}

// ConfigInitSuggestions follow 'panefresh config init'.
func ConfigInitSuggestions(path string) []Suggestion {
	return []Suggestion{
		{Command: "panefresh config set refresh.autoRefreshMode all-visible-views", Description: "Pick what the timer refreshes"},
		{Command: "panefresh daemon", Description: "Keep tmux panes fresh"},
		{Command: "$EDITOR " + path, Description: "Edit the policy by hand"},
	}
}

// TagSuggestions follow 'panefresh tag'.
func TagSuggestions(paneID string) []Suggestion {
	return []Suggestion{
		{Command: "panefresh refresh pane " + paneID, Description: "Refresh it now"},
		{Command: "panefresh status", Description: "See every pane and its view type"},
	}
}
