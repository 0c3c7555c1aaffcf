package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/panefresh/internal/host"
	"github.com/theirongolddev/panefresh/internal/output"
	"github.com/theirongolddev/panefresh/internal/refresh"
	"github.com/theirongolddev/panefresh/internal/tmux"
)

// paneMenu is the context menu of one tmux pane: tmux's own items followed
// by the refresh items.
type paneMenu struct {
	host  *tmux.Host
	pane  host.Pane
	items []host.MenuItem
}

func buildPaneMenu(ctx context.Context, paneID string) (*paneMenu, error) {
	if err := tmux.ValidatePaneID(paneID); err != nil {
		return nil, output.NewCLIError(err.Error()).WithHint(output.HintPaneNotFound)
	}
	h, err := tmuxHost(ctx)
	if err != nil {
		return nil, err
	}
	p, ok := h.Pane(paneID)
	if !ok {
		return nil, output.PaneNotFoundError(paneID)
	}

	coord := newCoordinator(h, policyStore(), nil)
	client := h.Client()
	notify := func(msg string) {
		if err := client.DisplayMessage(ctx, paneID, msg); err != nil {
			slog.Debug("showing message failed", "pane", paneID, "error", err)
		}
	}
	ext := refresh.NewMenuExtension(refresh.MenuActions{
		Refresh: func(id string) {
			if err := coord.RefreshPane(ctx, id); err != nil {
				slog.Warn("refresh from menu failed", "pane", id, "error", err)
				notify("panefresh: " + err.Error())
			}
		},
		CopyViewType: func(viewType string) {
			if err := copyText(viewType); err != nil {
				notify("panefresh: " + err.Error())
				return
			}
			notify("Copied view type: " + viewType)
		},
	})
	ext.Install(h)
	defer ext.Uninstall()

	return &paneMenu{host: h, pane: p, items: host.Build(h.MenuBuilder(), p)}, nil
}

func copyText(text string) error {
	c := copier()
	if c == nil {
		return errors.New("no clipboard available")
	}
	return c.Copy(text)
}

func newMenuCmd() *cobra.Command {
	var paneID, clientName string
	cmd := &cobra.Command{
		Use:   "menu",
		Short: "Show the context menu of a tmux pane",
		Long: `Show the context menu of a tmux pane. The daemon binds this to a
right click on a pane; choosing an item runs 'panefresh menu-action'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			m, err := buildPaneMenu(ctx, paneID)
			if err != nil {
				return err
			}
			return m.host.Client().DisplayMenu(ctx, m.items, tmux.MenuOptions{
				Pane:   paneID,
				Client: clientName,
				Title:  m.pane.ViewType(),
				Self:   selfArgs(),
			})
		},
	}
	cmd.Flags().StringVar(&paneID, "pane", "", "Pane ID (%N)")
	cmd.Flags().StringVar(&clientName, "client", "", "tmux client to show the menu on")
	_ = cmd.MarkFlagRequired("pane")
	return cmd
}

func newMenuActionCmd() *cobra.Command {
	var (
		paneID string
		item   int
	)
	cmd := &cobra.Command{
		Use:    "menu-action",
		Short:  "Run an item of a pane context menu",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := buildPaneMenu(cmd.Context(), paneID)
			if err != nil {
				return err
			}
			if item < 0 || item >= len(m.items) {
				return fmt.Errorf("menu item %d out of range (menu has %d)", item, len(m.items))
			}
			slog.Debug("running menu item", "pane", paneID, "item", m.items[item].Title)
			if onClick := m.items[item].OnClick; onClick != nil {
				onClick()
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&paneID, "pane", "", "Pane ID (%N)")
	cmd.Flags().IntVar(&item, "item", -1, "Zero-based item index")
	_ = cmd.MarkFlagRequired("pane")
	_ = cmd.MarkFlagRequired("item")
	return cmd
}

func newCopyTypeCmd() *cobra.Command {
	var paneID string
	cmd := &cobra.Command{
		Use:   "copy-type",
		Short: "Copy the view type of a pane to the clipboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			h, err := tmuxHost(ctx)
			if err != nil {
				return err
			}
			var p host.Pane
			if paneID == "" {
				p = h.ActivePane()
				if p == nil {
					return output.NoActivePaneError()
				}
			} else {
				var ok bool
				if p, ok = h.Pane(paneID); !ok {
					return output.PaneNotFoundError(paneID)
				}
			}

			viewType := p.ViewType()
			copied := copyText(viewType) == nil
			return GetFormatter().OutputData(map[string]any{
				"pane":      p.ID(),
				"view_type": viewType,
				"copied":    copied,
			}, func(w io.Writer) error {
				fmt.Fprintln(w, viewType)
				if !copied {
					fmt.Fprintln(cmd.ErrOrStderr(), "(no clipboard available)")
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&paneID, "pane", "", "Pane ID (%N), default the active pane")
	return cmd
}
