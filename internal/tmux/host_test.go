package tmux

import (
	"context"
	"errors"
	"os"
	"slices"
	"strings"
	"testing"

	"github.com/theirongolddev/panefresh/internal/events"
	"github.com/theirongolddev/panefresh/internal/host"
	"github.com/theirongolddev/panefresh/internal/policy"
	"github.com/theirongolddev/panefresh/internal/refresh"
)

func newTestHost(lines ...string) (*Host, *fakeExec) {
	fe := newFakeExec()
	fe.outputs["list-panes"] = strings.Join(lines, "\n")
	h := NewHost(context.Background(), NewClient(WithExecutor(fe)), nil)
	h.self = ""
	return h, fe
}

var (
	viewerPane = paneLine("%1", "main", "@1", "markdown", "less", "/work", "less notes.md", "0", "1", "1", "1", "1", "12", "/work/notes.md")
	deadPane   = paneLine("%2", "main", "@1", "log", "", "/var/log", "tail -f app.log", "1", "1", "1", "0", "0", "0", "")
)

func TestHostPanes(t *testing.T) {
	h, _ := newTestHost(viewerPane, deadPane)

	panes := h.Panes()
	if len(panes) != 2 {
		t.Fatalf("Panes() = %d panes", len(panes))
	}
	if !panes[1].Lazy() || panes[0].Lazy() {
		t.Error("dead pane should be lazy")
	}
	if _, ok := panes[0].Editor(); ok || panes[0].Dirty() {
		t.Error("tmux panes have no editor and are never dirty")
	}
	if a := h.ActivePane(); a == nil || a.ID() != "%1" {
		t.Errorf("ActivePane() = %v", a)
	}
	if _, ok := h.Pane("%9"); ok {
		t.Error("unknown pane resolved")
	}
}

func TestHostFullRebuild(t *testing.T) {
	h, fe := newTestHost(viewerPane)
	exec := refresh.NewExecutor(h, nil, nil)

	if err := exec.Refresh(context.Background(), "%1", refresh.FullRebuild); err != nil {
		t.Fatal(err)
	}

	want := []string{
		"send-keys -R -t %1",
		"clear-history -t %1",
		"respawn-pane -k -t %1 -c /work less notes.md",
		"copy-mode -t %1",
		"send-keys -t %1 -X goto-line 12",
	}
	if got := fe.joined("send-keys", "clear-history", "respawn-pane", "copy-mode"); !slices.Equal(got, want) {
		t.Errorf("calls =\n%v\nwant\n%v", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

func TestHostMaterializesDeadPane(t *testing.T) {
	h, fe := newTestHost(deadPane)
	exec := refresh.NewExecutor(h, nil, nil)

	if err := exec.Refresh(context.Background(), "%2", refresh.FullRebuild); err != nil {
		t.Fatal(err)
	}
	got := fe.joined("respawn-pane")
	if len(got) != 2 || got[0] != "respawn-pane -t %2" || !strings.HasPrefix(got[1], "respawn-pane -k -t %2") {
		t.Errorf("respawns = %v", got)
	}
	if slices.Contains(fe.joined("copy-mode"), "copy-mode -t %2") {
		t.Error("pane outside copy mode must not be scrolled")
	}
}

func TestHostFocus(t *testing.T) {
	h, fe := newTestHost(viewerPane)
	fe.outputs["display-message"] = "%1"

	target := h.FocusedElement()
	if target == nil || !target.Attached() {
		t.Fatal("active pane should be an attached focus target")
	}
	target.Focus()
	if got := fe.joined("select-window", "select-pane"); !slices.Equal(got, []string{"select-window -t @1", "select-pane -t %1"}) {
		t.Errorf("focus calls = %v", got)
	}

	fe.outputs["display-message"] = ""
	if target.Attached() {
		t.Error("closed pane should be detached")
	}
}

func TestHostReadFresh(t *testing.T) {
	path := t.TempDir() + "/notes.md"
	if err := os.WriteFile(path, []byte("# fresh"), 0o644); err != nil {
		t.Fatal(err)
	}
	h, _ := newTestHost()
	got, err := h.ReadFresh(context.Background(), path)
	if err != nil || got != "# fresh" {
		t.Errorf("ReadFresh() = %q, %v", got, err)
	}
}

func TestHostAddAction(t *testing.T) {
	h, fe := newTestHost(viewerPane)
	p, _ := h.Pane("%1")

	remove := h.AddAction(p, "refresh-cw", "Refresh view", nil)
	remove()
	h.SetActionLabel("⟳")
	h.AddAction(p, "refresh-cw", "Refresh view", nil)

	want := []string{
		"set-option -p -t %1 @panefresh_action refresh-cw Refresh view",
		"set-option -p -u -t %1 @panefresh_action",
		"set-option -p -t %1 @panefresh_action ⟳ Refresh view",
	}
	if got := fe.joined("set-option"); !slices.Equal(got, want) {
		t.Errorf("calls = %v", got)
	}
}

func TestHostMenuExtension(t *testing.T) {
	h, _ := newTestHost(viewerPane)
	p, _ := h.Pane("%1")
	x := refresh.NewMenuExtension(refresh.MenuActions{Refresh: func(string) {}, CopyViewType: func(string) {}})
	x.Install(h)

	var titles []string
	for _, it := range host.Build(h.MenuBuilder(), p) {
		titles = append(titles, it.Title)
	}
	want := []string{"Zoom", "Split horizontally", "Split vertically", refresh.RefreshItemTitle, refresh.CopyTypeItemTitle}
	if !slices.Equal(titles, want) {
		t.Errorf("menu = %v", titles)
	}
}

func TestHostWatchPublishesLayoutChanges(t *testing.T) {
	h, fe := newTestHost(viewerPane)
	bus := events.NewEventBus(10)
	changed := make(chan struct{}, 4)
	bus.Subscribe(events.TypeLayoutChanged, func(events.BusEvent) { changed <- struct{}{} })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var seen [][]PaneInfo
	polls := 0
	fe.onCall = func(args []string) {
		if args[0] != "list-panes" {
			return
		}
		polls++
		if polls == 3 {
			fe.mu.Lock()
			fe.outputs["list-panes"] = viewerPane + "\n" + deadPane
			fe.mu.Unlock()
		}
		if polls == 5 {
			cancel()
		}
	}
	h.Watch(ctx, bus, 1, func(p []PaneInfo) { seen = append(seen, p) })

	if len(seen) != 2 || len(seen[1]) != 2 {
		t.Errorf("layout callbacks = %d", len(seen))
	}
}

func TestLayoutSignature(t *testing.T) {
	a := parsePanes(viewerPane)
	b := parsePanes(viewerPane + "\n" + deadPane)
	if layoutSignature(a) == layoutSignature(b) {
		t.Error("a new pane must change the signature")
	}
	moved := a[0]
	moved.Active = false
	if layoutSignature(a) == layoutSignature([]PaneInfo{moved}) {
		t.Error("a focus change must change the signature")
	}
}

func TestPaneRebuildable(t *testing.T) {
	tests := []struct {
		name string
		info PaneInfo
		self string
		want bool
	}{
		{"viewer still running", PaneInfo{ID: "%1", Command: "htop", StartCommand: "htop"}, "", true},
		{"quoted start command", PaneInfo{ID: "%1", Command: "glow", StartCommand: `"glow README.md"`}, "", true},
		{"absolute path", PaneInfo{ID: "%1", Command: "glow", StartCommand: "/usr/bin/glow -p README.md"}, "", true},
		{"tagged with start command", PaneInfo{ID: "%1", Type: "logs", Command: "sh", StartCommand: "sh -c 'tail -f app.log'"}, "", true},
		{"dead", PaneInfo{ID: "%1", Dead: true}, "", true},
		{"interactive shell", PaneInfo{ID: "%1", Command: "zsh"}, "", false},
		{"program typed into shell", PaneInfo{ID: "%1", Command: "vim"}, "", false},
		{"start command replaced", PaneInfo{ID: "%1", Command: "vim", StartCommand: "bash"}, "", false},
		{"tagged without start command", PaneInfo{ID: "%1", Type: "markdown", Command: "zsh"}, "", false},
		{"own pane", PaneInfo{ID: "%1", Command: "htop", StartCommand: "htop"}, "%1", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.info.Rebuildable(tt.self); got != tt.want {
				t.Errorf("Rebuildable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHostLeavesShellPanesAlone(t *testing.T) {
	shell := paneLine("%3", "main", "@1", "", "zsh", "/work", "", "0", "1", "1", "1", "0", "0", "")
	h, fe := newTestHost(viewerPane, shell)
	store := policy.NewStore(policy.Default())
	exec := refresh.NewExecutor(h, nil, nil)
	coord := refresh.NewCoordinator(h, exec, store, nil, nil)

	res := coord.RefreshAll(context.Background())
	if !slices.Equal(res.Refreshed, []string{"%1"}) || len(res.Failed) != 0 {
		t.Errorf("refreshed = %v failed = %v", res.Refreshed, res.Failed)
	}
	if err := coord.RefreshPane(context.Background(), "%3"); !errors.Is(err, refresh.ErrNotRefreshable) {
		t.Errorf("RefreshPane(shell) = %v", err)
	}
	for _, c := range fe.joined("send-keys", "clear-history", "respawn-pane") {
		if strings.Contains(c, "%3") {
			t.Errorf("shell pane touched: %s", c)
		}
	}
}

func TestHostNeverRespawnsItsOwnPane(t *testing.T) {
	h, fe := newTestHost(viewerPane)
	h.self = "%1"

	p, _ := h.Pane("%1")
	if refresh.StrategyFor(p, policy.Default()) != refresh.Skip {
		t.Error("own pane should be skipped")
	}
	err := h.SetViewState(context.Background(), p, host.ViewState{Type: "markdown"}, nil)
	if !errors.Is(err, errUnsafeRespawn) {
		t.Errorf("SetViewState(own pane) = %v", err)
	}
	if got := fe.joined("send-keys", "clear-history", "respawn-pane"); len(got) != 0 {
		t.Errorf("calls = %v", got)
	}
}
