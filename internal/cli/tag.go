package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/panefresh/internal/output"
	"github.com/theirongolddev/panefresh/internal/tmux"
)

func newTagCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag <pane> <view-type> [file]",
		Short: "Record the view type and backing file of a tmux pane",
		Long: `Record the view type and backing file of a tmux pane.

Untagged panes use their running command as view type. The file decides
which panes refresh when it changes on disk.

Examples:
  panefresh tag %3 markdown README.md
  panefresh tag %4 logs`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			paneID, viewType := args[0], args[1]
			if err := tmux.ValidatePaneID(paneID); err != nil {
				return output.NewCLIError(err.Error()).WithHint(output.HintPaneNotFound)
			}
			var file string
			if len(args) == 3 {
				abs, err := filepath.Abs(args[2])
				if err != nil {
					return err
				}
				file = abs
			}

			ctx := cmd.Context()
			h, err := tmuxHost(ctx)
			if err != nil {
				return err
			}
			if _, ok := h.Pane(paneID); !ok {
				return output.PaneNotFoundError(paneID)
			}
			if err := h.Client().Tag(ctx, paneID, viewType, file); err != nil {
				return err
			}

			f := GetFormatter()
			return f.OutputData(map[string]string{
				"pane":      paneID,
				"view_type": viewType,
				"file":      file,
			}, func(w io.Writer) error {
				msg := fmt.Sprintf("tagged %s as %s", paneID, viewType)
				if file != "" {
					msg += " (" + file + ")"
				}
				output.PrintSuccessCheck(w, msg)
				output.PrintSuccessFooter(w, output.TagSuggestions(paneID)...)
				return nil
			})
		},
	}
	return cmd
}
