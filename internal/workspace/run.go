package workspace

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/theirongolddev/panefresh/internal/events"
)

// RunOptions configures the UI.
type RunOptions struct {
	Theme        Theme
	GlamourStyle string
	TabWidth     int
	// Mouse enables click and wheel support.
	Mouse bool
}

// Run shows the workspace until the user quits or ctx is done.
func Run(ctx context.Context, ws *Workspace, cmds Commander, bus *events.EventBus, opts RunOptions) error {
	progOpts := []tea.ProgramOption{tea.WithAltScreen()}
	if opts.Mouse {
		progOpts = append(progOpts, tea.WithMouseCellMotion())
	}
	p, detach := newProgram(ctx, ws, cmds, bus, opts, progOpts...)
	defer detach()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			p.Quit()
		case <-done:
		}
	}()

	_, err := p.Run()
	return err
}

// newProgram builds the program and hooks workspace and bus notifications
// to it. Most changes happen inside Update, which runs on the program's
// event loop, so nothing here may call Send synchronously. Workspace changes
// are coalesced: one changedMsg is in flight until Update drains it.
func newProgram(ctx context.Context, ws *Workspace, cmds Commander, bus *events.EventBus, opts RunOptions, progOpts ...tea.ProgramOption) (*tea.Program, func()) {
	m := NewModel(ctx, ws, cmds, opts)
	p := tea.NewProgram(m, progOpts...)

	pending := m.pending
	ws.OnChange(func() {
		if pending.CompareAndSwap(false, true) {
			go p.Send(changedMsg{})
		}
	})
	unsub := func() {}
	if bus != nil {
		unsub = bus.SubscribeAll(func(e events.BusEvent) {
			go p.Send(busMsg{event: e})
		})
	}
	return p, func() {
		ws.OnChange(nil)
		unsub()
	}
}
