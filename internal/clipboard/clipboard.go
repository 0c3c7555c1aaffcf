// Package clipboard copies short diagnostic strings (such as a pane's view
// type) to the user's clipboard from wherever panefresh happens to run: a
// local desktop session, inside tmux, or over SSH.
package clipboard

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	sysclip "github.com/atotto/clipboard"
	"github.com/aymanbagabas/go-osc52/v2"
)

// Clipboard copies text.
type Clipboard interface {
	Copy(text string) error
	Backend() string
}

// ErrUnavailable is returned when no backend can reach a clipboard.
var ErrUnavailable = errors.New("no clipboard available")

type backend interface {
	copy(text string) error
	name() string
}

type detector struct {
	getenv      func(string) string
	lookPath    func(string) error
	systemOK    bool
	openTTY     func() (io.WriteCloser, error)
	runTmuxLoad func(text string) error
}

func defaultDetector() detector {
	return detector{
		getenv: os.Getenv,
		lookPath: func(bin string) error {
			_, err := exec.LookPath(bin)
			return err
		},
		systemOK: !sysclip.Unsupported,
		openTTY: func() (io.WriteCloser, error) {
			return os.OpenFile("/dev/tty", os.O_WRONLY, 0)
		},
		runTmuxLoad: func(text string) error {
			// -w also forwards the buffer to the outer terminal clipboard.
			cmd := exec.Command("tmux", "load-buffer", "-w", "-")
			cmd.Stdin = strings.NewReader(text)
			if out, err := cmd.CombinedOutput(); err != nil {
				return fmt.Errorf("tmux load-buffer: %w: %s", err, strings.TrimSpace(string(out)))
			}
			return nil
		},
	}
}

type clipboardImpl struct {
	b backend
}

func (c *clipboardImpl) Copy(text string) error { return c.b.copy(text) }
func (c *clipboardImpl) Backend() string        { return c.b.name() }

// New picks the best backend for the current environment.
func New() (Clipboard, error) {
	return newWithDetector(defaultDetector())
}

func newWithDetector(det detector) (Clipboard, error) {
	b, err := chooseBackend(det)
	if err != nil {
		return nil, err
	}
	return &clipboardImpl{b: b}, nil
}

// chooseBackend prefers the transport that reaches the clipboard the user is
// looking at: the terminal's (OSC 52) over SSH, tmux's buffer inside tmux,
// the desktop clipboard otherwise.
func chooseBackend(det detector) (backend, error) {
	inTmux := det.getenv("TMUX") != ""
	remote := det.getenv("SSH_TTY") != "" || det.getenv("SSH_CONNECTION") != ""

	if remote && det.openTTY != nil {
		return &osc52Backend{open: det.openTTY, tmux: inTmux}, nil
	}
	if inTmux && det.lookPath("tmux") == nil {
		return &tmuxBackend{load: det.runTmuxLoad}, nil
	}
	if det.systemOK {
		return systemBackend{}, nil
	}
	if det.openTTY != nil && det.getenv("TERM") != "" && det.getenv("TERM") != "dumb" {
		return &osc52Backend{open: det.openTTY, tmux: inTmux}, nil
	}
	return nil, ErrUnavailable
}

type systemBackend struct{}

func (systemBackend) copy(text string) error { return sysclip.WriteAll(text) }
func (systemBackend) name() string           { return "system" }

type tmuxBackend struct {
	load func(text string) error
}

func (b *tmuxBackend) copy(text string) error { return b.load(text) }
func (b *tmuxBackend) name() string           { return "tmux-buffer" }

type osc52Backend struct {
	open func() (io.WriteCloser, error)
	tmux bool
}

func (b *osc52Backend) copy(text string) error {
	w, err := b.open()
	if err != nil {
		return fmt.Errorf("opening terminal: %w", err)
	}
	defer w.Close()

	seq := osc52.New(text)
	if b.tmux {
		seq = seq.Tmux()
	}
	if _, err := seq.WriteTo(w); err != nil {
		return fmt.Errorf("writing osc52 sequence: %w", err)
	}
	return nil
}

func (b *osc52Backend) name() string {
	if b.tmux {
		return "osc52-tmux"
	}
	return "osc52"
}
