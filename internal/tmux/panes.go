package tmux

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kballard/go-shellquote"
)

// Pane user options read and written by panefresh.
const (
	OptionType   = "@panefresh_type"
	OptionFile   = "@panefresh_file"
	OptionAction = "@panefresh_action"
)

const sep = "|===|"

var paneFields = []string{
	"#{pane_id}",
	"#{session_name}",
	"#{window_id}",
	"#{" + OptionType + "}",
	"#{pane_current_command}",
	"#{pane_current_path}",
	"#{pane_start_command}",
	"#{pane_dead}",
	"#{window_active}",
	"#{session_attached}",
	"#{pane_active}",
	"#{pane_in_mode}",
	"#{scroll_position}",
	"#{" + OptionFile + "}",
}

var paneFormat = strings.Join(paneFields, sep)

// PaneInfo is one row of list-panes.
type PaneInfo struct {
	ID             string
	Session        string
	WindowID       string
	Type           string // @panefresh_type, empty if untagged
	Command        string
	Path           string
	StartCommand   string
	Dead           bool
	WindowActive   bool
	Attached       bool
	Active         bool
	InMode         bool
	ScrollPosition int
	File           string
}

// ViewType is the tagged type or, for untagged panes, the running command.
func (p PaneInfo) ViewType() string {
	if p.Type != "" {
		return p.Type
	}
	return p.Command
}

// Visible reports whether the pane is on screen for some client.
func (p PaneInfo) Visible() bool {
	return p.WindowActive && p.Attached
}

// Rebuildable reports whether respawning the pane brings back what it
// shows. Dead panes always are. Live panes need a start command, and
// untagged ones must still be running it: a shell the user typed into,
// or a program started from that shell, would be lost. self is the pane
// panefresh runs in, which is never respawned.
func (p PaneInfo) Rebuildable(self string) bool {
	if self != "" && p.ID == self {
		return false
	}
	if p.Dead {
		return true
	}
	if p.StartCommand == "" {
		return false
	}
	return p.Type != "" || commandName(p.StartCommand) == p.Command
}

// commandName returns the program name of a pane_start_command, which tmux
// may print as one quoted word.
func commandName(start string) string {
	words, err := shellquote.Split(start)
	if err != nil || len(words) == 0 {
		words = strings.Fields(start)
	}
	if len(words) == 1 {
		words = strings.Fields(words[0])
	}
	if len(words) == 0 {
		return ""
	}
	return filepath.Base(words[0])
}

func parsePanes(output string) []PaneInfo {
	var panes []PaneInfo
	for _, line := range strings.Split(output, "\n") {
		if line == "" {
			continue
		}
		parts := strings.Split(line, sep)
		if len(parts) < len(paneFields) {
			continue
		}
		attached, _ := strconv.Atoi(parts[9])
		scroll, _ := strconv.Atoi(parts[12])
		panes = append(panes, PaneInfo{
			ID:             parts[0],
			Session:        parts[1],
			WindowID:       parts[2],
			Type:           parts[3],
			Command:        parts[4],
			Path:           parts[5],
			StartCommand:   parts[6],
			Dead:           parts[7] == "1",
			WindowActive:   parts[8] == "1",
			Attached:       attached > 0,
			Active:         parts[10] == "1",
			InMode:         parts[11] == "1",
			ScrollPosition: scroll,
			File:           parts[13],
		})
	}
	return panes
}

// ListPanes returns every pane of every session. A missing server yields
// no panes and no error.
func (c *Client) ListPanes(ctx context.Context) ([]PaneInfo, error) {
	out, err := c.Run(ctx, "list-panes", "-a", "-F", paneFormat)
	if err != nil {
		if errors.Is(err, ErrNoServer) {
			return nil, nil
		}
		return nil, err
	}
	return parsePanes(out), nil
}

// SetPaneOption sets a pane user option.
func (c *Client) SetPaneOption(ctx context.Context, paneID, key, value string) error {
	return c.RunSilent(ctx, "set-option", "-p", "-t", paneID, key, value)
}

// UnsetPaneOption removes a pane user option.
func (c *Client) UnsetPaneOption(ctx context.Context, paneID, key string) error {
	return c.RunSilent(ctx, "set-option", "-p", "-u", "-t", paneID, key)
}

// Tag records the view type and backing file of a pane.
func (c *Client) Tag(ctx context.Context, paneID, viewType, file string) error {
	if viewType != "" {
		if err := c.SetPaneOption(ctx, paneID, OptionType, viewType); err != nil {
			return err
		}
	}
	if file != "" {
		return c.SetPaneOption(ctx, paneID, OptionFile, file)
	}
	return nil
}

// RespawnPane restarts the pane's program. With kill set a live program is
// killed first; otherwise only dead panes can be respawned.
func (c *Client) RespawnPane(ctx context.Context, paneID, dir, command string, kill bool) error {
	args := []string{"respawn-pane"}
	if kill {
		args = append(args, "-k")
	}
	args = append(args, "-t", paneID)
	if dir != "" {
		args = append(args, "-c", dir)
	}
	if command != "" {
		args = append(args, command)
	}
	return c.RunSilent(ctx, args...)
}

// ClearPane blanks the visible screen and drops the scrollback.
func (c *Client) ClearPane(ctx context.Context, paneID string) error {
	if err := c.RunSilent(ctx, "send-keys", "-R", "-t", paneID); err != nil {
		return err
	}
	return c.RunSilent(ctx, "clear-history", "-t", paneID)
}

// ScrollTo enters copy mode and moves the view position lines up from the
// bottom.
func (c *Client) ScrollTo(ctx context.Context, paneID string, position int) error {
	if err := c.RunSilent(ctx, "copy-mode", "-t", paneID); err != nil {
		return err
	}
	return c.RunSilent(ctx, "send-keys", "-t", paneID, "-X", "goto-line", strconv.Itoa(position))
}

// SelectPane focuses the pane and its window.
func (c *Client) SelectPane(ctx context.Context, windowID, paneID string) error {
	if windowID != "" {
		if err := c.RunSilent(ctx, "select-window", "-t", windowID); err != nil {
			return err
		}
	}
	return c.RunSilent(ctx, "select-pane", "-t", paneID)
}

// PaneExists reports whether the pane ID still resolves.
func (c *Client) PaneExists(ctx context.Context, paneID string) bool {
	out, err := c.Run(ctx, "display-message", "-p", "-t", paneID, "#{pane_id}")
	return err == nil && out == paneID
}

// DisplayMessage shows msg in the status line of the client.
func (c *Client) DisplayMessage(ctx context.Context, target, msg string) error {
	args := []string{"display-message"}
	if target != "" {
		args = append(args, "-t", target)
	}
	return c.RunSilent(ctx, append(args, msg)...)
}

// ResizeZoom toggles the zoom state of the pane.
func (c *Client) ResizeZoom(ctx context.Context, paneID string) error {
	return c.RunSilent(ctx, "resize-pane", "-Z", "-t", paneID)
}

// Split splits the pane, horizontally or vertically, keeping its directory.
func (c *Client) Split(ctx context.Context, paneID string, horizontal bool) error {
	flag := "-v"
	if horizontal {
		flag = "-h"
	}
	return c.RunSilent(ctx, "split-window", flag, "-t", paneID, "-c", "#{pane_current_path}")
}

// ValidatePaneID checks that id has the %N form tmux uses for pane IDs.
func ValidatePaneID(id string) error {
	if !strings.HasPrefix(id, "%") {
		return fmt.Errorf("invalid pane id %q: want %%N", id)
	}
	return nil
}
