package cli

import (
	"context"
	"errors"
	"log/slog"

	"github.com/theirongolddev/panefresh/internal/clipboard"
	"github.com/theirongolddev/panefresh/internal/events"
	"github.com/theirongolddev/panefresh/internal/host"
	"github.com/theirongolddev/panefresh/internal/output"
	"github.com/theirongolddev/panefresh/internal/policy"
	"github.com/theirongolddev/panefresh/internal/refresh"
	"github.com/theirongolddev/panefresh/internal/tmux"
)

// Seams replaced by tests.
var (
	newClient = func(socket string) *tmux.Client {
		return tmux.NewClient(tmux.WithSocket(socket))
	}
	newClipboard = clipboard.New
	tmuxInstalled = tmux.IsInstalled
)

// tmuxHost connects to the configured server. It fails with a CLIError when
// tmux is missing or no server answers.
func tmuxHost(ctx context.Context) (*tmux.Host, error) {
	if !tmuxInstalled() {
		return nil, output.TmuxNotInstalledError()
	}
	client := newClient(cfg.Tmux.Socket)
	if _, err := client.Run(ctx, "display-message", "-p", "#{pid}"); err != nil {
		if errors.Is(err, tmux.ErrNoServer) {
			return nil, output.TmuxNotRunningError()
		}
		return nil, err
	}
	h := tmux.NewHost(ctx, client, slog.Default())
	h.SetActionLabel(cfg.Tmux.ActionLabel)
	return h, nil
}

// policyStore seeds a store with the configured policy. An invalid record
// falls back to the defaults.
func policyStore() *policy.Store {
	p, err := cfg.Policy()
	if err != nil {
		slog.Warn("invalid refresh policy, using defaults", "error", err)
	}
	return policy.NewStore(p)
}

// copier returns the clipboard, or nil when none is reachable.
func copier() refresh.Copier {
	c, err := newClipboard()
	if err != nil {
		slog.Debug("clipboard unavailable", "error", err)
		return nil
	}
	return c
}

// newCoordinator wires an executor and coordinator for one-shot commands.
func newCoordinator(h host.Host, store *policy.Store, bus *events.EventBus) *refresh.Coordinator {
	logger := slog.Default()
	return refresh.NewCoordinator(h, refresh.NewExecutor(h, bus, logger), store, bus, logger)
}

// cliError maps engine errors to CLIErrors with hints.
func cliError(err error, paneID string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, refresh.ErrNoActivePane):
		return output.NoActivePaneError()
	case errors.Is(err, host.ErrPaneNotFound):
		return output.PaneNotFoundError(paneID)
	case errors.Is(err, refresh.ErrNotRefreshable):
		var pe *refresh.PaneError
		if errors.As(err, &pe) {
			paneID = pe.PaneID
		}
		return output.NotRefreshableError(paneID)
	case errors.Is(err, tmux.ErrNoServer):
		return output.TmuxNotRunningError()
	}
	return err
}
