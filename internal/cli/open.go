package cli

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/panefresh/internal/config"
	"github.com/theirongolddev/panefresh/internal/events"
	"github.com/theirongolddev/panefresh/internal/output"
	"github.com/theirongolddev/panefresh/internal/refresh"
	"github.com/theirongolddev/panefresh/internal/watcher"
	"github.com/theirongolddev/panefresh/internal/workspace"
)

func newOpenCmd() *cobra.Command {
	var noMouse bool
	cmd := &cobra.Command{
		Use:   "open <layout.yaml>",
		Short: "Open a workspace layout",
		Long: `Open a workspace of markdown, text, preview and diff panes.

Layout file:
  name: notes
  tabs:
    - name: main
      panes:
        - type: markdown
          file: README.md
        - type: preview
          file: README.md
    - name: later
      panes:
        - {type: diff, file: CHANGELOG.md, lazy: true}

Keys: ctrl+r refreshes the focused pane, alt+r every visible pane, alt+a
every pane. alt+m or a right click opens the pane menu. f1 shows all keys.`,
		Annotations: map[string]string{annotationLogMode: "tui"},
		Args:        cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !IsInteractive(os.Stdout) {
				return output.NewCLIError("open needs a terminal").
					WithHint("Run it directly in a terminal, not through a pipe")
			}
			layout, err := workspace.LoadLayout(args[0])
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
			defer stop()

			logger := slog.Default()
			bus := events.NewEventBus(100)
			ws := workspace.New(layout, workspace.WithBus(bus), workspace.WithLogger(logger))
			if err := ws.Open(ctx); err != nil {
				logger.Warn("some panes failed to load", "layout", args[0], "error", err)
			}

			store := policyStore()
			engine := refresh.NewEngine(ws, store,
				refresh.WithBus(bus),
				refresh.WithClipboard(copier()),
				refresh.WithLogger(logger),
			)
			if err := engine.Load(ctx); err != nil {
				return err
			}
			defer engine.Unload()

			files, err := watcher.New(func(paths []string) {
				for _, p := range paths {
					bus.Publish(events.NewContentChangedEvent(p))
				}
			}, watcher.WithErrorHandler(func(err error) {
				logger.Warn("file watcher error", "error", err)
			}))
			if err != nil {
				return err
			}
			defer files.Close()
			if err := files.Sync(ws.Files()); err != nil {
				logger.Warn("watching workspace files failed", "error", err)
			}

			if stopConfig, err := config.Watch(configPath(), func(next *config.Config, err error) {
				reloadPolicy(store, next, err, logger)
			}); err == nil {
				defer stopConfig()
			}

			return workspace.Run(ctx, ws, engine, bus, workspace.RunOptions{
				Theme:        workspace.ThemeFor(cfg.Workspace.Theme),
				GlamourStyle: cfg.Workspace.GlamourStyle,
				TabWidth:     cfg.Workspace.TabWidth,
				Mouse:        !noMouse,
			})
		},
	}
	cmd.Flags().BoolVar(&noMouse, "no-mouse", false, "Disable mouse support")
	return cmd
}
