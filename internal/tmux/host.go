package tmux

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/theirongolddev/panefresh/internal/events"
	"github.com/theirongolddev/panefresh/internal/host"
)

// DefaultPollInterval is how often Watch lists panes to detect layout
// changes.
const DefaultPollInterval = 2 * time.Second

// Pane is a tmux pane snapshot. tmux panes never have an editor and are
// never dirty: every refresh is a full rebuild, which only some panes
// survive (see PaneInfo.Rebuildable).
type Pane struct {
	info PaneInfo
	self string
}

// Info returns the list-panes row the pane was built from.
func (p *Pane) Info() PaneInfo { return p.info }

func (p *Pane) ID() string                    { return p.info.ID }
func (p *Pane) ViewType() string              { return p.info.ViewType() }
func (p *Pane) Dirty() bool                   { return false }
func (p *Pane) Visible() bool                 { return p.info.Visible() }
func (p *Pane) Lazy() bool                    { return p.info.Dead }
func (p *Pane) File() string                  { return p.info.File }
func (p *Pane) DisplayMode() host.DisplayMode { return host.ModeNone }
func (p *Pane) Editor() (host.Editor, bool)   { return nil, false }
func (p *Pane) Rebuildable() bool             { return p.info.Rebuildable(p.self) }

// Extra keys of a tmux view state.
const (
	stateDir     = "dir"
	stateCommand = "command"
	stateScroll  = "scroll"
)

// Host adapts a tmux server to the refresh engine.
type Host struct {
	client *Client
	logger *slog.Logger
	// ctx bounds the tmux calls made by methods without a context.
	ctx context.Context

	// self is the pane this process runs in, from $TMUX_PANE.
	self string

	mu          sync.Mutex
	builder     host.MenuBuilder
	actionLabel string
}

// errUnsafeRespawn is returned by SetViewState for panes that a respawn
// would destroy.
var errUnsafeRespawn = errors.New("pane is not safe to respawn")

// NewHost returns a host backed by client. Its context menu starts with
// tmux's usual pane items.
func NewHost(ctx context.Context, client *Client, logger *slog.Logger) *Host {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Host{client: client, logger: logger, ctx: ctx, self: os.Getenv("TMUX_PANE")}
	h.builder = h.defaultMenu
	return h
}

// Client returns the tmux client.
func (h *Host) Client() *Client { return h.client }

func (h *Host) list() []PaneInfo {
	panes, err := h.client.ListPanes(h.ctx)
	if err != nil {
		h.logger.Warn("listing tmux panes failed", "error", err)
		return nil
	}
	return panes
}

// Panes implements host.Enumerator.
func (h *Host) Panes() []host.Pane {
	infos := h.list()
	out := make([]host.Pane, 0, len(infos))
	for _, info := range infos {
		out = append(out, &Pane{info: info, self: h.self})
	}
	return out
}

// ActivePane returns the active pane of the first attached session's
// current window.
func (h *Host) ActivePane() host.Pane {
	for _, info := range h.list() {
		if info.Active && info.Visible() {
			return &Pane{info: info, self: h.self}
		}
	}
	return nil
}

// Pane implements host.Resolver.
func (h *Host) Pane(id string) (host.Pane, bool) {
	for _, info := range h.list() {
		if info.ID == id {
			return &Pane{info: info, self: h.self}, true
		}
	}
	return nil, false
}

// Materialize respawns a dead pane.
func (h *Host) Materialize(ctx context.Context, p host.Pane) error {
	return h.client.RespawnPane(ctx, p.ID(), "", "", false)
}

// Save is a no-op: tmux panes hold no unsaved edits.
func (h *Host) Save(context.Context, host.Pane) error { return nil }

// ReadFresh reads the file from disk.
func (h *Host) ReadFresh(_ context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func paneInfo(p host.Pane) PaneInfo {
	if tp, ok := p.(*Pane); ok {
		return tp.info
	}
	return PaneInfo{ID: p.ID()}
}

// ViewState records what the pane runs and where.
func (h *Host) ViewState(p host.Pane) host.ViewState {
	in := paneInfo(p)
	return host.ViewState{
		Type: p.ViewType(),
		File: p.File(),
		Extra: map[string]string{
			stateDir:     in.Path,
			stateCommand: in.StartCommand,
		},
	}
}

// EphemeralState records the copy-mode scroll position.
func (h *Host) EphemeralState(p host.Pane) host.EphemeralState {
	in := paneInfo(p)
	if !in.InMode || in.ScrollPosition == 0 {
		return nil
	}
	return host.EphemeralState{stateScroll: in.ScrollPosition}
}

// SetViewState blanks the pane for the placeholder state and respawns its
// program for any other state.
func (h *Host) SetViewState(ctx context.Context, p host.Pane, vs host.ViewState, eph host.EphemeralState) error {
	if !paneInfo(p).Rebuildable(h.self) {
		return fmt.Errorf("pane %s: %w", p.ID(), errUnsafeRespawn)
	}
	if vs.Type == host.EmptyViewType {
		return h.client.ClearPane(ctx, p.ID())
	}
	if err := h.client.RespawnPane(ctx, p.ID(), vs.Extra[stateDir], vs.Extra[stateCommand], true); err != nil {
		return err
	}
	if pos := scrollOf(eph); pos > 0 {
		if err := h.client.ScrollTo(ctx, p.ID(), pos); err != nil {
			h.logger.Debug("restoring scroll position failed", "pane", p.ID(), "error", err)
		}
	}
	return nil
}

func scrollOf(eph host.EphemeralState) int {
	switch v := eph[stateScroll].(type) {
	case int:
		return v
	case string:
		n, _ := strconv.Atoi(v)
		return n
	}
	return 0
}

type focusTarget struct {
	h        *Host
	windowID string
	paneID   string
}

func (f focusTarget) Attached() bool { return f.h.client.PaneExists(f.h.ctx, f.paneID) }

func (f focusTarget) Focus() {
	if err := f.h.client.SelectPane(f.h.ctx, f.windowID, f.paneID); err != nil {
		f.h.logger.Debug("restoring focus failed", "pane", f.paneID, "error", err)
	}
}

// FocusedElement returns the active pane as a focus target.
func (h *Host) FocusedElement() host.FocusTarget {
	p := h.ActivePane()
	if p == nil {
		return nil
	}
	in := paneInfo(p)
	return focusTarget{h: h, windowID: in.WindowID, paneID: in.ID}
}

// MenuBuilder implements host.MenuHook.
func (h *Host) MenuBuilder() host.MenuBuilder {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.builder
}

// SetMenuBuilder implements host.MenuHook.
func (h *Host) SetMenuBuilder(b host.MenuBuilder) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.builder = b
}

func (h *Host) defaultMenu(m host.Menu, p host.Pane) {
	if p == nil {
		return
	}
	id := p.ID()
	run := func(what string, fn func() error) func() {
		return func() {
			if err := fn(); err != nil {
				h.logger.Warn("pane menu action failed", "action", what, "pane", id, "error", err)
			}
		}
	}
	m.AddItem(host.MenuItem{Title: "Zoom", Section: "tmux", OnClick: run("zoom", func() error {
		return h.client.ResizeZoom(h.ctx, id)
	})})
	m.AddItem(host.MenuItem{Title: "Split horizontally", Section: "tmux", OnClick: run("split", func() error {
		return h.client.Split(h.ctx, id, true)
	})})
	m.AddItem(host.MenuItem{Title: "Split vertically", Section: "tmux", OnClick: run("split", func() error {
		return h.client.Split(h.ctx, id, false)
	})})
}

// SetActionLabel replaces the icon name shown in front of action titles.
func (h *Host) SetActionLabel(label string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.actionLabel = label
}

// AddAction shows title in the pane border through the @panefresh_action
// pane option. tmux has no clickable border regions; the refresh binding
// installed by Bindings triggers the action.
func (h *Host) AddAction(p host.Pane, icon, title string, _ func()) func() {
	id := p.ID()
	h.mu.Lock()
	if h.actionLabel != "" {
		icon = h.actionLabel
	}
	h.mu.Unlock()
	label := fmt.Sprintf("%s %s", icon, title)
	if err := h.client.SetPaneOption(h.ctx, id, OptionAction, label); err != nil {
		h.logger.Warn("setting pane action failed", "pane", id, "error", err)
	}
	return func() {
		if err := h.client.UnsetPaneOption(context.Background(), id, OptionAction); err != nil {
			h.logger.Debug("removing pane action failed", "pane", id, "error", err)
		}
	}
}

// Watch polls the server and publishes layout_changed whenever panes open,
// close or change focus. It returns when ctx is done.
func (h *Host) Watch(ctx context.Context, bus *events.EventBus, every time.Duration, onLayout func([]PaneInfo)) {
	if every <= 0 {
		every = DefaultPollInterval
	}
	t := time.NewTicker(every)
	defer t.Stop()

	last := ""
	for {
		panes, err := h.client.ListPanes(ctx)
		if err == nil {
			if sig := layoutSignature(panes); sig != last {
				last = sig
				if onLayout != nil {
					onLayout(panes)
				}
				bus.Publish(events.NewLayoutChangedEvent())
			}
		} else if ctx.Err() == nil {
			h.logger.Debug("polling tmux panes failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

func layoutSignature(panes []PaneInfo) string {
	var b []byte
	for _, p := range panes {
		b = append(b, p.ID...)
		b = append(b, ':')
		b = strconv.AppendBool(b, p.Active && p.Visible())
		b = strconv.AppendBool(b, p.Dead)
		b = append(b, p.File...)
		b = append(b, ';')
	}
	return string(b)
}
