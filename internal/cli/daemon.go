package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/panefresh/internal/config"
	"github.com/theirongolddev/panefresh/internal/events"
	"github.com/theirongolddev/panefresh/internal/policy"
	"github.com/theirongolddev/panefresh/internal/refresh"
	"github.com/theirongolddev/panefresh/internal/tmux"
	"github.com/theirongolddev/panefresh/internal/watcher"
)

func newDaemonCmd() *cobra.Command {
	var (
		every     time.Duration
		noBind    bool
		debounce  time.Duration
		pollFiles bool
	)
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Keep tmux panes fresh until interrupted",
		Long: `Run the refresh engine against the tmux server.

The daemon applies the auto-refresh policy, refreshes panes whose file
changed on disk, marks the active pane with a refresh action and installs
the pane menu (right click) and refresh (prefix R) bindings. Edits to the
config file are picked up without a restart. Bindings are restored on exit.`,
		Annotations: map[string]string{annotationLogMode: "daemon"},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runDaemon(ctx, daemonOptions{
				poll:      every,
				bind:      !noBind,
				debounce:  debounce,
				pollFiles: pollFiles,
			})
		},
	}
	cmd.Flags().DurationVar(&every, "poll", tmux.DefaultPollInterval, "How often to check the pane layout")
	cmd.Flags().BoolVar(&noBind, "no-bind", false, "Do not install tmux key bindings")
	cmd.Flags().DurationVar(&debounce, "debounce", 200*time.Millisecond, "Quiet period before a file change triggers a refresh")
	cmd.Flags().BoolVar(&pollFiles, "poll-files", false, "Poll files instead of using filesystem notifications")
	return cmd
}

type daemonOptions struct {
	poll      time.Duration
	bind      bool
	debounce  time.Duration
	pollFiles bool
}

func runDaemon(ctx context.Context, opts daemonOptions) error {
	logger := slog.Default()
	h, err := tmuxHost(ctx)
	if err != nil {
		return err
	}

	bus := events.NewEventBus(200)
	store := policyStore()

	if cfg.Journal.Enabled && cfg.Journal.Path != "" {
		j, err := events.OpenJournal(cfg.Journal.Path, time.Duration(cfg.Journal.RetentionDays)*24*time.Hour)
		if err != nil {
			logger.Warn("refresh journal disabled", "error", err)
		} else {
			defer j.Close()
			defer j.Attach(bus)()
		}
	}

	engine := refresh.NewEngine(h, store,
		refresh.WithBus(bus),
		refresh.WithClipboard(copier()),
		refresh.WithLogger(logger),
	)
	if err := engine.Load(ctx); err != nil {
		return err
	}
	defer engine.Unload()

	if opts.bind {
		b := tmux.NewBindings(h.Client(), cfg.Tmux.MenuKey, selfArgs())
		if err := b.Install(ctx); err != nil {
			return err
		}
		defer func() {
			uctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := b.Uninstall(uctx); err != nil {
				logger.Warn("restoring tmux bindings failed", "error", err)
			}
		}()
	}

	files, err := watcher.New(func(paths []string) {
		for _, p := range paths {
			bus.Publish(events.NewContentChangedEvent(p))
		}
	},
		watcher.WithDebounce(opts.debounce),
		watcher.WithPolling(opts.pollFiles),
		watcher.WithErrorHandler(func(err error) {
			logger.Warn("file watcher error", "error", err)
		}),
	)
	if err != nil {
		return err
	}
	defer files.Close()

	stopConfig, err := config.Watch(configPath(), func(next *config.Config, err error) {
		reloadPolicy(store, next, err, logger)
	})
	if err != nil {
		logger.Warn("config reload disabled", "error", err)
	} else {
		defer stopConfig()
	}

	logger.Info("daemon started", "socket", cfg.Tmux.Socket, "poll", opts.poll)
	h.Watch(ctx, bus, opts.poll, func(panes []tmux.PaneInfo) {
		if err := files.Sync(paneFiles(panes)); err != nil {
			logger.Debug("syncing watched files failed", "error", err)
		}
	})
	logger.Info("daemon stopping")
	return nil
}

// reloadPolicy swaps in the policy of a reloaded config. A broken file
// keeps the current policy.
func reloadPolicy(store *policy.Store, next *config.Config, loadErr error, logger *slog.Logger) {
	if loadErr != nil {
		logger.Warn("config reload failed, keeping current policy", "error", loadErr)
		return
	}
	p, err := next.Policy()
	if err != nil {
		logger.Warn("reloaded policy is invalid, keeping current policy", "error", err)
		return
	}
	store.Replace(p)
	logger.Info("refresh policy reloaded", "mode", p.Mode, "interval", p.IntervalSeconds)
}

func paneFiles(panes []tmux.PaneInfo) []string {
	var files []string
	seen := make(map[string]bool)
	for _, p := range panes {
		if p.File != "" && !seen[p.File] {
			seen[p.File] = true
			files = append(files, p.File)
		}
	}
	return files
}
