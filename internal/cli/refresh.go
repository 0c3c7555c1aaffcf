package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/panefresh/internal/output"
	"github.com/theirongolddev/panefresh/internal/refresh"
	"github.com/theirongolddev/panefresh/internal/tmux"
)

func newRefreshCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Refresh tmux panes now",
		Long: `Refresh tmux panes once, ignoring the auto-refresh filters.

Without a subcommand the active pane is refreshed.

Examples:
  panefresh refresh                # the focused pane
  panefresh refresh visible        # every pane on screen
  panefresh refresh pane %3        # one pane by ID
  panefresh refresh file notes.md  # panes showing a file that changed`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefreshActive(cmd.Context())
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "active",
		Short: "Refresh the focused pane",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefreshActive(cmd.Context())
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "visible",
		Short: "Refresh every visible pane",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefreshBatch(cmd.Context(), func(ctx context.Context, c *refresh.Coordinator) refresh.BatchResult {
				return c.RefreshVisible(ctx)
			}, "visible")
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "all",
		Short: "Refresh every open pane",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefreshBatch(cmd.Context(), func(ctx context.Context, c *refresh.Coordinator) refresh.BatchResult {
				return c.RefreshAll(ctx)
			}, "all")
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "auto",
		Short: "Run one pass of the configured auto-refresh mode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefreshBatch(cmd.Context(), func(ctx context.Context, c *refresh.Coordinator) refresh.BatchResult {
				return c.RefreshAuto(ctx)
			}, "timer")
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "pane <id>",
		Short: "Refresh one pane by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefreshPane(cmd.Context(), args[0])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "file <path>",
		Short: "Refresh the panes showing a file that changed",
		Long: `Refresh the panes showing a file that changed on disk. Nothing
happens unless shouldAutoRefreshOnFileChange is set. Meant for editor
save hooks.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			return runRefreshBatch(cmd.Context(), func(ctx context.Context, c *refresh.Coordinator) refresh.BatchResult {
				return c.RefreshFile(ctx, path)
			}, "file_change")
		},
	})
	return cmd
}

func oneShotCoordinator(ctx context.Context) (*refresh.Coordinator, error) {
	h, err := tmuxHost(ctx)
	if err != nil {
		return nil, err
	}
	return newCoordinator(h, policyStore(), nil), nil
}

func runRefreshActive(ctx context.Context) error {
	coord, err := oneShotCoordinator(ctx)
	if err != nil {
		return err
	}
	if err := coord.RefreshActive(ctx); err != nil {
		return cliError(err, "")
	}
	return GetFormatter().Success("refreshed the active pane")
}

func runRefreshPane(ctx context.Context, paneID string) error {
	if err := tmux.ValidatePaneID(paneID); err != nil {
		return output.NewCLIError(err.Error()).WithHint(output.HintPaneNotFound)
	}
	coord, err := oneShotCoordinator(ctx)
	if err != nil {
		return err
	}
	if err := coord.RefreshPane(ctx, paneID); err != nil {
		return cliError(err, paneID)
	}
	return GetFormatter().Success("refreshed pane " + paneID)
}

func runRefreshBatch(ctx context.Context, run func(context.Context, *refresh.Coordinator) refresh.BatchResult, trigger string) error {
	coord, err := oneShotCoordinator(ctx)
	if err != nil {
		return err
	}
	res := batchOutput{Trigger: trigger, BatchResult: run(ctx, coord)}
	if err := GetFormatter().Output(res); err != nil {
		return err
	}
	if n := len(res.Failed); n > 0 {
		return output.NewCLIError(fmt.Sprintf("%s failed to refresh", output.CountStr(n, "pane", "panes"))).
			WithCause(res.Err().Error()).
			WithCode("REFRESH_FAILED")
	}
	return nil
}

type batchOutput struct {
	Trigger string
	refresh.BatchResult
}

func (b batchOutput) JSON() any {
	errs := make(map[string]string, len(b.Errors))
	for id, err := range b.Errors {
		errs[id] = err.Error()
	}
	return struct {
		Trigger   string            `json:"trigger"`
		Refreshed []string          `json:"refreshed"`
		Failed    []string          `json:"failed"`
		Errors    map[string]string `json:"errors,omitempty"`
	}{b.Trigger, nonNil(b.Refreshed), nonNil(b.Failed), errs}
}

func (b batchOutput) Text(w io.Writer) error {
	if len(b.Refreshed)+len(b.Failed) == 0 {
		fmt.Fprintln(w, "No panes to refresh")
		return nil
	}
	if len(b.Refreshed) > 0 {
		output.PrintSuccessCheck(w, "refreshed "+output.CountStr(len(b.Refreshed), "pane", "panes"))
	}
	t := output.NewTable(w, "PANE", "RESULT")
	for _, id := range b.Refreshed {
		t.AddRow(id, "ok")
	}
	for _, id := range b.Failed {
		t.AddRow(id, b.Errors[id].Error())
	}
	t.Render()
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
