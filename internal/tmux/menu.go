package tmux

import (
	"context"
	"strconv"
	"strings"

	"github.com/kballard/go-shellquote"

	"github.com/theirongolddev/panefresh/internal/host"
)

// MenuOptions controls how a context menu is shown.
type MenuOptions struct {
	Pane   string
	Client string // tmux client name, empty for the current one
	Title  string
	// Self is the command line that runs panefresh, e.g. the executable
	// path plus global flags. Item commands append menu-action to it.
	Self []string
}

// MenuArgs builds the display-menu command for items. Items are numbered in
// order; the N-th item runs "menu-action --pane P --item N". A separator is
// inserted wherever the section changes.
func MenuArgs(items []host.MenuItem, opts MenuOptions) []string {
	args := []string{"display-menu", "-T", "#[align=centre]" + escapeFormat(opts.Title), "-x", "M", "-y", "M"}
	if opts.Client != "" {
		args = append(args, "-c", opts.Client)
	}
	args = append(args, "-t", opts.Pane)

	for i, item := range items {
		if i > 0 && item.Section != items[i-1].Section {
			args = append(args, "")
		}
		key := ""
		if i < 9 {
			key = strconv.Itoa(i + 1)
		}
		shell := append(append([]string{}, opts.Self...), "menu-action", "--pane", opts.Pane, "--item", strconv.Itoa(i))
		args = append(args, menuLabel(item.Title), key, shellquote.Join("run-shell", "-b", shellquote.Join(shell...)))
	}
	return args
}

// menuLabel makes a title safe as a display-menu item name: a leading '-'
// would disable the item and '#' starts a format.
func menuLabel(title string) string {
	return escapeFormat(strings.TrimLeft(title, "-"))
}

func escapeFormat(s string) string {
	return strings.ReplaceAll(s, "#", "##")
}

// DisplayMenu shows items as a tmux popup menu.
func (c *Client) DisplayMenu(ctx context.Context, items []host.MenuItem, opts MenuOptions) error {
	return c.RunSilent(ctx, MenuArgs(items, opts)...)
}
