package workspace

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/theirongolddev/panefresh/internal/events"
	"github.com/theirongolddev/panefresh/internal/host"
	"github.com/theirongolddev/panefresh/internal/refresh"
)

// Commander runs engine commands by ID.
type Commander interface {
	Command(id string) (refresh.Command, bool)
}

var errUnavailable = errors.New("not available right now")

type (
	changedMsg     struct{}
	frameMsg       struct{}
	busMsg         struct{ event events.BusEvent }
	commandDoneMsg struct {
		name string
		err  error
	}
)

type menuState struct {
	pane  string
	items []host.MenuItem
	// rows maps each menu line to an item index, -1 for separators.
	rows   []int
	cursor int
}

type renderKey struct {
	id      string
	version int
	width   int
}

// Model is the bubbletea model of the workspace UI.
type Model struct {
	ctx     context.Context
	ws      *Workspace
	cmds    Commander
	styles  styles
	glamour string
	help    help.Model

	width, height int
	tabWidth      int
	showHelp      bool
	status        string
	menu          *menuState
	rendered      map[renderKey]string
	// pending is set while a changedMsg is queued for the program.
	pending *atomic.Bool
}

// NewModel creates the UI model. cmds may be nil.
func NewModel(ctx context.Context, ws *Workspace, cmds Commander, opts RunOptions) Model {
	return Model{
		ctx:      ctx,
		ws:       ws,
		cmds:     cmds,
		styles:   newStyles(opts.Theme),
		glamour:  GlamourStyle(opts.GlamourStyle, opts.Theme),
		tabWidth: max(opts.TabWidth, 1),
		help:     help.New(),
		width:    80,
		height:   24,
		rendered: make(map[renderKey]string),
		pending:  new(atomic.Bool),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		return m, nil

	case changedMsg:
		m.pending.Store(false)
		return m, func() tea.Msg { return frameMsg{} }

	case frameMsg:
		m.ws.RunFrames()
		return m, nil

	case busMsg:
		if s := describeEvent(msg.event); s != "" {
			m.status = s
		}
		return m, nil

	case commandDoneMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("%s: %v", msg.name, msg.err)
		} else {
			m.status = msg.name + ": done"
		}
		return m, nil

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.KeyMsg:
		if m.menu != nil {
			return m.handleMenuKey(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	focused := m.ws.Focused()
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Help):
		m.showHelp = !m.showHelp
		return m, nil
	case key.Matches(msg, keys.RefreshActive):
		return m, m.runCommand("refresh-active-view")
	case key.Matches(msg, keys.RefreshVisible):
		return m, m.runCommand("refresh-all-visible-views")
	case key.Matches(msg, keys.RefreshAll):
		return m, m.runCommand("refresh-all-open-views")
	case key.Matches(msg, keys.Menu):
		m.openMenu(focused)
		return m, nil
	case key.Matches(msg, keys.NextPane):
		m.ws.FocusNext()
		return m, nil
	case key.Matches(msg, keys.Tab):
		m.ws.SwitchTab(m.ctx, tabIndex(msg.String()))
		return m, nil
	case key.Matches(msg, keys.ToggleMode):
		m.ws.ToggleMode(focused)
		return m, nil
	case key.Matches(msg, keys.Save):
		return m, m.save(focused)
	}

	p, ok := m.ws.Pane(focused)
	if !ok {
		return m, nil
	}
	ed, ok := p.Editor()
	if !ok {
		m.scrollPane(p, msg)
		return m, nil
	}
	doc := ed.(*Document)
	switch {
	case key.Matches(msg, keys.Undo):
		doc.Undo()
	case key.Matches(msg, keys.Up):
		doc.MoveCursor(-1, 0)
	case key.Matches(msg, keys.Down):
		doc.MoveCursor(1, 0)
	case key.Matches(msg, keys.Left):
		doc.MoveCursor(0, -1)
	case key.Matches(msg, keys.Right):
		doc.MoveCursor(0, 1)
	case key.Matches(msg, keys.PageUp):
		doc.ScrollBy(-m.bodyHeight())
	case key.Matches(msg, keys.PageDown):
		doc.ScrollBy(m.bodyHeight())
	case key.Matches(msg, keys.Enter):
		doc.Insert("\n")
	case key.Matches(msg, keys.Back):
		doc.Backspace()
	case msg.Type == tea.KeySpace:
		doc.Insert(" ")
	case msg.Type == tea.KeyRunes && !msg.Alt:
		doc.Insert(string(msg.Runes))
	}
	return m, nil
}

func (m Model) scrollPane(p host.Pane, msg tea.KeyMsg) {
	off := m.offsetOf(p.ID())
	switch {
	case key.Matches(msg, keys.Up):
		m.ws.SetOffset(p.ID(), off-1)
	case key.Matches(msg, keys.Down):
		m.ws.SetOffset(p.ID(), off+1)
	case key.Matches(msg, keys.PageUp):
		m.ws.SetOffset(p.ID(), off-m.bodyHeight())
	case key.Matches(msg, keys.PageDown):
		m.ws.SetOffset(p.ID(), off+m.bodyHeight())
	}
}

func (m Model) offsetOf(id string) int {
	_, _, panes := m.ws.View()
	for _, pv := range panes {
		if pv.ID == id {
			return pv.Offset
		}
	}
	return 0
}

func (m Model) save(id string) tea.Cmd {
	p, ok := m.ws.Pane(id)
	if !ok || !p.Dirty() {
		return nil
	}
	ctx := m.ctx
	return func() tea.Msg {
		return commandDoneMsg{name: "Save", err: m.ws.Save(ctx, p)}
	}
}

func (m Model) runCommand(id string) tea.Cmd {
	if m.cmds == nil {
		return nil
	}
	c, ok := m.cmds.Command(id)
	if !ok {
		return nil
	}
	ctx := m.ctx
	return func() tea.Msg {
		if c.Check != nil && !c.Check() {
			return commandDoneMsg{name: c.Name, err: errUnavailable}
		}
		return commandDoneMsg{name: c.Name, err: c.Run(ctx)}
	}
}

func (m *Model) openMenu(paneID string) {
	items := m.ws.OpenMenu(paneID)
	if len(items) == 0 {
		return
	}
	st := &menuState{pane: paneID, items: items}
	for i, it := range items {
		if i > 0 && it.Section != items[i-1].Section {
			st.rows = append(st.rows, -1)
		}
		st.rows = append(st.rows, i)
	}
	m.menu = st
}

func (m Model) handleMenuKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	st := m.menu
	switch {
	case key.Matches(msg, keys.Escape), key.Matches(msg, keys.Quit), key.Matches(msg, keys.Menu):
		m.menu = nil
	case key.Matches(msg, keys.Up):
		st.cursor = (st.cursor - 1 + len(st.items)) % len(st.items)
	case key.Matches(msg, keys.Down):
		st.cursor = (st.cursor + 1) % len(st.items)
	case key.Matches(msg, keys.Enter):
		m.menu = nil
		return m, clickItem(st.items[st.cursor])
	case msg.Type == tea.KeyRunes && len(msg.Runes) == 1:
		if n, err := strconv.Atoi(string(msg.Runes)); err == nil && n >= 1 && n <= len(st.items) {
			m.menu = nil
			return m, clickItem(st.items[n-1])
		}
	}
	return m, nil
}

// clickItem runs a menu item off the UI goroutine; items may refresh panes.
func clickItem(it host.MenuItem) tea.Cmd {
	if it.OnClick == nil {
		return nil
	}
	return func() tea.Msg {
		it.OnClick()
		return nil
	}
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.menu != nil {
		if msg.Type != tea.MouseLeft {
			return m, nil
		}
		st, r := m.menu, m.menuRect()
		row := msg.Y - r.y - 1
		m.menu = nil
		if r.contains(msg.X, msg.Y) && row >= 0 && row < len(st.rows) {
			if i := st.rows[row]; i >= 0 {
				return m, clickItem(st.items[i])
			}
		}
		return m, nil
	}

	tabs, current, panes := m.ws.View()
	if msg.Y == 0 && msg.Type == tea.MouseLeft {
		for i, r := range m.tabRects(tabs, current) {
			if r.contains(msg.X, msg.Y) {
				m.ws.SwitchTab(m.ctx, i)
			}
		}
		return m, nil
	}

	rects := paneRects(len(panes), m.bodyRect())
	for i, r := range rects {
		if !r.contains(msg.X, msg.Y) {
			continue
		}
		pv := panes[i]
		switch msg.Type {
		case tea.MouseLeft:
			for bi, br := range buttonRects(r, pv.Buttons) {
				if br.contains(msg.X, msg.Y) {
					id := pv.ID
					return m, func() tea.Msg {
						m.ws.ClickAction(id, bi)
						return nil
					}
				}
			}
			m.ws.Focus(pv.ID)
		case tea.MouseRight:
			m.openMenu(pv.ID)
		case tea.MouseWheelUp, tea.MouseWheelDown:
			step := 3
			if msg.Type == tea.MouseWheelUp {
				step = -3
			}
			if pv.Doc != nil {
				pv.Doc.ScrollBy(step)
			} else {
				m.ws.SetOffset(pv.ID, pv.Offset+step)
			}
		}
		return m, nil
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	tabs, current, panes := m.ws.View()
	var b strings.Builder
	b.WriteString(m.renderTabs(tabs, current))
	b.WriteString("\n")

	rects := paneRects(len(panes), m.bodyRect())
	cols := make([]string, len(panes))
	for i, pv := range panes {
		cols[i] = m.renderPane(pv, rects[i])
	}
	if len(cols) == 0 {
		b.WriteString(fitLines([]string{m.styles.dim.Render("no panes")}, m.width, m.bodyRect().h))
	} else {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cols...))
	}
	b.WriteString("\n")
	b.WriteString(m.styles.status.Render(runewidth.Truncate(m.status, m.width, "…")))
	b.WriteString("\n")
	m.help.ShowAll = m.showHelp
	b.WriteString(m.help.View(keys))

	out := b.String()
	if m.menu != nil {
		out = m.overlayMenu(out)
	}
	return out
}

func (m Model) bodyRect() rect {
	reserved := 3
	if m.showHelp {
		reserved += 3
	}
	return rect{x: 0, y: 1, w: m.width, h: max(m.height-reserved, 3)}
}

func (m Model) bodyHeight() int {
	return max(m.bodyRect().inner().h-1, 1)
}

func tabLabel(i int, name string) string {
	return strconv.Itoa(i+1) + " " + name
}

func (m Model) tabRects(tabs []string, current int) []rect {
	rects := make([]rect, len(tabs))
	x := 0
	for i, name := range tabs {
		style := m.styles.tab
		if i == current {
			style = m.styles.tabActive
		}
		w := lipgloss.Width(style.Render(tabLabel(i, name)))
		rects[i] = rect{x: x, y: 0, w: w, h: 1}
		x += w
	}
	return rects
}

func (m Model) renderTabs(tabs []string, current int) string {
	parts := make([]string, len(tabs))
	for i, name := range tabs {
		style := m.styles.tab
		if i == current {
			style = m.styles.tabActive
		}
		parts[i] = style.Render(tabLabel(i, name))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m Model) renderPane(pv PaneView, r rect) string {
	in := r.inner()
	bodyH := max(in.h-1, 0)

	var lines []string
	switch {
	case pv.Err != nil:
		lines = wrapError(m.styles, pv.Err, in.w)
	case pv.Lazy:
		lines = []string{m.styles.dim.Render("not loaded yet")}
	case pv.Doc != nil:
		lines = renderDocument(m.styles, pv.Doc, in.w, bodyH, m.tabWidth, pv.Focused)
	case pv.Type == TypePreview:
		lines = strings.Split(scrolled(m.markdown(pv, in.w), in.w, bodyH, pv.Offset), "\n")
	case pv.Type == TypeDiff:
		content := strings.Join(diffLines(m.styles, pv.Baseline, pv.Source), "\n")
		lines = strings.Split(scrolled(content, in.w, bodyH, pv.Offset), "\n")
	case pv.Type == host.EmptyViewType:
		lines = []string{m.styles.dim.Render("empty")}
	default:
		lines = strings.Split(scrolled(pv.Source, in.w, bodyH, pv.Offset), "\n")
	}

	body := renderHeader(m.styles, pv, in.w) + "\n" + fitLines(lines, in.w, bodyH)
	style := m.styles.pane
	if pv.Focused {
		style = m.styles.paneFocused
	}
	return style.Width(in.w).Height(in.h).Render(body)
}

func (m Model) markdown(pv PaneView, width int) string {
	k := renderKey{id: pv.ID, version: pv.Version, width: width}
	if s, ok := m.rendered[k]; ok {
		return s
	}
	out, err := renderMarkdown(pv.Source, width, m.glamour)
	if err != nil {
		out = pv.Source
	}
	for old := range m.rendered {
		if old.id == pv.ID {
			delete(m.rendered, old)
		}
	}
	m.rendered[k] = out
	return out
}

func (m Model) menuLines() []string {
	var lines []string
	for _, i := range m.menu.rows {
		if i < 0 {
			lines = append(lines, m.styles.dim.Render(strings.Repeat("─", m.menuWidth()-4)))
			continue
		}
		label := strconv.Itoa(i+1) + " " + m.menu.items[i].Title
		if i == m.menu.cursor {
			lines = append(lines, m.styles.menuCursor.Render(label))
		} else {
			lines = append(lines, m.styles.menuItem.Render(label))
		}
	}
	return lines
}

func (m Model) menuWidth() int {
	w := 10
	for i, it := range m.menu.items {
		w = max(w, runewidth.StringWidth(strconv.Itoa(i+1)+" "+it.Title))
	}
	return w + 4
}

func (m Model) menuRect() rect {
	w := m.menuWidth()
	h := len(m.menu.rows) + 2
	return rect{x: max((m.width-w)/2, 0), y: max((m.height-h)/2, 0), w: w, h: h}
}

// overlayMenu draws the menu box over the centre of the screen.
func (m Model) overlayMenu(screen string) string {
	r := m.menuRect()
	box := strings.Split(m.styles.menu.Width(r.w-2).Render(strings.Join(m.menuLines(), "\n")), "\n")
	lines := strings.Split(screen, "\n")
	for i, row := range box {
		y := r.y + i
		if y >= len(lines) {
			break
		}
		lines[y] = strings.Repeat(" ", r.x) + row
	}
	return strings.Join(lines, "\n")
}

func describeEvent(e events.BusEvent) string {
	switch ev := e.(type) {
	case events.PaneRefreshedEvent:
		return fmt.Sprintf("refreshed %s (%s)", ev.PaneID, ev.Strategy)
	case events.RefreshFailedEvent:
		return fmt.Sprintf("refresh of %s failed: %s", ev.PaneID, ev.Error)
	case events.BatchCompletedEvent:
		if len(ev.Failed) > 0 {
			return fmt.Sprintf("%s: %d refreshed, %d failed", ev.Trigger, len(ev.Refreshed), len(ev.Failed))
		}
		return fmt.Sprintf("%s: %d refreshed", ev.Trigger, len(ev.Refreshed))
	case events.PolicySavedEvent:
		return fmt.Sprintf("policy: %s every %ds", ev.Mode, ev.IntervalSeconds)
	case events.ContentChangedEvent:
		return "changed on disk: " + ev.Path
	}
	return ""
}
