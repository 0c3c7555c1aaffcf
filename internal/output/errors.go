package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// CLIError is a user-facing error with an optional cause and remediation
// hint.
type CLIError struct {
	Message string
	Cause   string
	Hint    string
	Code    string
}

func (e *CLIError) Error() string {
	return e.Message
}

// NewCLIError creates an error with just a message.
func NewCLIError(msg string) *CLIError {
	return &CLIError{Message: msg}
}

// WithCause adds a cause.
func (e *CLIError) WithCause(cause string) *CLIError {
	e.Cause = cause
	return e
}

// WithHint adds a remediation hint.
func (e *CLIError) WithHint(hint string) *CLIError {
	e.Hint = hint
	return e
}

// WithCode adds a machine-readable code.
func (e *CLIError) WithCode(code string) *CLIError {
	e.Code = code
	return e
}

var (
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#f38ba8")).Bold(true)
	causeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#a6adc8"))
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#89dceb"))
	codeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6c7086"))
	checkStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#a6e3a1"))
)

func colorEnabled(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	_, noColor := os.LookupEnv("NO_COLOR")
	return !noColor && term.IsTerminal(int(f.Fd()))
}

// FormatCLIError renders e, in colour when color is set.
func FormatCLIError(e *CLIError, color bool) string {
	render := func(s lipgloss.Style, text string) string {
		if color {
			return s.Render(text)
		}
		return text
	}

	var sb strings.Builder
	sb.WriteString(render(errorStyle, "Error: "))
	sb.WriteString(e.Message)
	if e.Code != "" {
		sb.WriteString(" " + render(codeStyle, "["+e.Code+"]"))
	}
	sb.WriteString("\n")
	if e.Cause != "" {
		sb.WriteString(render(causeStyle, "  Cause: ") + e.Cause + "\n")
	}
	if e.Hint != "" {
		sb.WriteString(render(hintStyle, "  Hint: ") + e.Hint + "\n")
	}
	return sb.String()
}

// PrintCLIError writes e to stderr.
func PrintCLIError(e *CLIError) {
	fmt.Fprint(os.Stderr, FormatCLIError(e, colorEnabled(os.Stderr)))
}

// WriteError reports err in the formatter's format. CLIErrors keep their
// hint; JSON goes to the formatter's writer, text to stderr.
func (f *Formatter) WriteError(err error) {
	cliErr, ok := err.(*CLIError)
	if !ok {
		cliErr = NewCLIError(err.Error())
	}
	if f.IsJSON() {
		_ = f.JSON(ErrorResponse{
			Error:   cliErr.Message,
			Code:    cliErr.Code,
			Details: cliErr.Cause,
			Hint:    cliErr.Hint,
		})
		return
	}
	PrintCLIError(cliErr)
}

// PrintSuccessCheck writes msg with a check mark.
func PrintSuccessCheck(w io.Writer, msg string) {
	mark := "✓"
	if colorEnabled(w) {
		mark = checkStyle.Render(mark)
	}
	fmt.Fprintf(w, "%s %s\n", mark, msg)
}

// Remediation hints.
const (
	HintTmuxNotInstalled = "Install tmux (brew install tmux, apt install tmux) and retry"
	HintTmuxNotRunning   = "Start a tmux session first, or pass --socket for a non-default server"
	HintPaneNotFound     = "Run 'panefresh status' to list panes"
	HintNoActivePane     = "Focus a pane, or name one with 'panefresh refresh pane ID'"
	HintConfigInvalid    = "Check the file with 'panefresh config show' or recreate it with 'panefresh config init --force'"
	HintNotRefreshable   = "Start the pane with the program to show, or tag it with 'panefresh tag ID TYPE'"
)

// TmuxNotInstalledError reports a missing tmux binary.
func TmuxNotInstalledError() *CLIError {
	return NewCLIError("tmux is not installed").
		WithCode("TMUX_NOT_INSTALLED").
		WithHint(HintTmuxNotInstalled)
}

// TmuxNotRunningError reports that no tmux server answered.
func TmuxNotRunningError() *CLIError {
	return NewCLIError("no tmux server is running").
		WithCode("TMUX_NOT_RUNNING").
		WithHint(HintTmuxNotRunning)
}

// PaneNotFoundError reports an unknown pane ID.
func PaneNotFoundError(id string) *CLIError {
	return NewCLIError(fmt.Sprintf("pane %s not found", id)).
		WithCode("PANE_NOT_FOUND").
		WithHint(HintPaneNotFound)
}

// NoActivePaneError reports that nothing is focused.
func NoActivePaneError() *CLIError {
	return NewCLIError("no active pane").
		WithCode("NO_ACTIVE_PANE").
		WithHint(HintNoActivePane)
}

// NotRefreshableError reports a pane that would be destroyed by a rebuild.
func NotRefreshableError(id string) *CLIError {
	return NewCLIError(fmt.Sprintf("pane %s cannot be refreshed without killing its program", id)).
		WithCode("NOT_REFRESHABLE").
		WithHint(HintNotRefreshable)
}

// ConfigError wraps a configuration failure.
func ConfigError(path string, err error) *CLIError {
	return NewCLIError(fmt.Sprintf("invalid config %s", path)).
		WithCode("CONFIG_INVALID").
		WithCause(err.Error()).
		WithHint(HintConfigInvalid)
}
