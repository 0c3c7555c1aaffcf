package tmux

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/kballard/go-shellquote"
)

// DefaultMenuKey opens the pane context menu.
const DefaultMenuKey = "MouseDown3Pane"

// RefreshKey (after the prefix) refreshes the current pane.
const RefreshKey = "R"

const borderOption = "pane-border-format"

type binding struct {
	table   string
	key     string
	command []string
	saved   string
}

// Bindings installs the panefresh key bindings and border fragment and puts
// back whatever was there before.
type Bindings struct {
	client *Client

	mu          sync.Mutex
	bindings    []*binding
	savedBorder string
	installed   bool
}

// NewBindings prepares the menu binding on menuKey (root table) and the
// prefix refresh binding. self is the command line running panefresh.
func NewBindings(client *Client, menuKey string, self []string) *Bindings {
	if menuKey == "" {
		menuKey = DefaultMenuKey
	}
	// Formats are expanded by run-shell before the shell sees the line, so
	// they are appended unescaped.
	prog := shellquote.Join(self...)
	menu := prog + " menu --pane '#{pane_id}' --client '#{client_name}'"
	refresh := prog + " refresh pane '#{pane_id}'"
	return &Bindings{
		client: client,
		bindings: []*binding{
			{table: "root", key: menuKey, command: []string{"run-shell", "-b", "-t", "=", menu}},
			{table: "prefix", key: RefreshKey, command: []string{"run-shell", "-b", refresh}},
		},
	}
}

// Install saves the current bindings and border format and installs ours.
// Calling it twice does nothing.
func (b *Bindings) Install(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.installed {
		return nil
	}

	for _, bd := range b.bindings {
		bd.saved = b.current(ctx, bd)
		args := append([]string{"bind-key", "-T", bd.table, bd.key}, bd.command...)
		if err := b.client.RunSilent(ctx, args...); err != nil {
			return fmt.Errorf("binding %s: %w", bd.key, err)
		}
	}

	border, _ := b.client.Run(ctx, "show-options", "-gqv", borderOption)
	b.savedBorder = border
	fragment := "#{?" + OptionAction + ", #{" + OptionAction + "},}"
	if !strings.Contains(border, OptionAction) {
		if err := b.client.RunSilent(ctx, "set-option", "-g", borderOption, border+fragment); err != nil {
			return fmt.Errorf("setting %s: %w", borderOption, err)
		}
	}
	b.installed = true
	return nil
}

// current returns the list-keys line of the binding, or "" when the key is
// unbound or already bound by panefresh.
func (b *Bindings) current(ctx context.Context, bd *binding) string {
	out, err := b.client.Run(ctx, "list-keys", "-T", bd.table, bd.key)
	if err != nil || out == "" {
		return ""
	}
	line := strings.SplitN(out, "\n", 2)[0]
	words, err := shellquote.Split(line)
	if err != nil || len(words) == 0 || words[0] != "bind-key" {
		return ""
	}
	if strings.Contains(line, "menu --pane") || strings.Contains(line, "refresh pane") {
		return ""
	}
	return line
}

// Installed reports whether our bindings are active.
func (b *Bindings) Installed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.installed
}

// Uninstall restores the saved bindings and border format. A second call is
// a no-op.
func (b *Bindings) Uninstall(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.installed {
		return nil
	}
	b.installed = false

	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, bd := range b.bindings {
		if bd.saved == "" {
			keep(b.client.RunSilent(ctx, "unbind-key", "-T", bd.table, bd.key))
			continue
		}
		keep(b.client.Source(ctx, bd.saved))
	}
	if b.savedBorder == "" {
		keep(b.client.RunSilent(ctx, "set-option", "-gu", borderOption))
	} else {
		keep(b.client.RunSilent(ctx, "set-option", "-g", borderOption, b.savedBorder))
	}
	return firstErr
}

// Source runs tmux command text through source-file. list-keys prints
// bindings in command syntax (braces included) that only the tmux parser
// understands, so it cannot be passed as argv.
func (c *Client) Source(ctx context.Context, commands string) error {
	f, err := os.CreateTemp("", "panefresh-*.tmux")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())
	if _, err := f.WriteString(commands + "\n"); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return c.RunSilent(ctx, "source-file", f.Name())
}
