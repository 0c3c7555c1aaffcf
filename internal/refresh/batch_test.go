package refresh

import (
	"context"
	"errors"
	"slices"
	"sync/atomic"
	"testing"

	"github.com/theirongolddev/panefresh/internal/events"
	"github.com/theirongolddev/panefresh/internal/host"
	"github.com/theirongolddev/panefresh/internal/policy"
)

func newCoordinator(h host.Host, pol policy.Policy, bus *events.EventBus) *Coordinator {
	return NewCoordinator(h, NewExecutor(h, bus, nil), policy.NewStore(pol), bus, nil)
}

func scenarioHost() *fakeHost {
	return newFakeHost(
		&fakePane{id: "md", viewType: "markdown", file: "a.md", visible: true},
		&fakePane{id: "search", viewType: "search", visible: true},
		&fakePane{id: "canvas", viewType: "canvas", file: "b.canvas"},
	)
}

func refreshedPanes(h *fakeHost) []string {
	var out []string
	for _, c := range h.Calls() {
		var id, typ string
		if n, _ := fmtSscan(c, &id, &typ); n == 2 && typ == "empty" {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

func TestBatchRestoresFocus(t *testing.T) {
	h := newFakeHost(
		&fakePane{id: "p1", viewType: "canvas", visible: true},
		&fakePane{id: "p2", viewType: "graph", visible: true},
		&fakePane{id: "p3", viewType: "pdf", visible: true},
	)
	h.setFocus("search-input", true)

	res := newCoordinator(h, policy.Default(), nil).RefreshAll(context.Background())
	if !slices.Equal(res.Refreshed, []string{"p1", "p2", "p3"}) {
		t.Fatalf("refreshed = %v", res.Refreshed)
	}
	if got := h.Focused(); got != "search-input" {
		t.Errorf("focus = %q, want search-input", got)
	}
}

func TestBatchSkipsDetachedFocus(t *testing.T) {
	h := newFakeHost(&fakePane{id: "p1", viewType: "canvas", visible: true})
	h.setFocus("closed-dialog", false)

	newCoordinator(h, policy.Default(), nil).RefreshAll(context.Background())
	if got := h.Focused(); got != "p1" {
		t.Errorf("focus = %q, want the host's choice p1", got)
	}
}

func TestBatchFailureIsolated(t *testing.T) {
	h := newFakeHost(
		&fakePane{id: "bad", viewType: "canvas", lazy: true},
		&fakePane{id: "good", viewType: "canvas"},
	)
	h.failMaterialize["bad"] = errors.New("plugin missing")

	bus := events.NewEventBus(10)
	var batches atomic.Int32
	bus.Subscribe(events.TypeBatchCompleted, func(events.BusEvent) { batches.Add(1) })

	res := newCoordinator(h, policy.Default(), bus).RefreshAll(context.Background())
	if !slices.Equal(res.Refreshed, []string{"good"}) || !slices.Equal(res.Failed, []string{"bad"}) {
		t.Fatalf("result = %+v", res)
	}
	if !IsKind(res.Errors["bad"], MaterializationFailure) {
		t.Errorf("error = %v", res.Errors["bad"])
	}
	if res.Err() == nil {
		t.Error("Err() should report the failed pane")
	}
	waitFor(t, "batch event", func() bool { return batches.Load() == 1 })
}

func TestRefreshVisible(t *testing.T) {
	h := scenarioHost()
	res := newCoordinator(h, policy.Default(), nil).RefreshVisible(context.Background())
	if !slices.Equal(res.Refreshed, []string{"md", "search"}) {
		t.Errorf("refreshed = %v", res.Refreshed)
	}
}

func TestRefreshActive(t *testing.T) {
	h := scenarioHost()
	h.active = "canvas"
	c := newCoordinator(h, policy.Default(), nil)
	if err := c.RefreshActive(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := refreshedPanes(h); !slices.Equal(got, []string{"canvas"}) {
		t.Errorf("refreshed = %v", got)
	}

	h.active = ""
	if err := c.RefreshActive(context.Background()); !errors.Is(err, ErrNoActivePane) {
		t.Errorf("err = %v, want ErrNoActivePane", err)
	}
}

func TestRefreshPaneUnknown(t *testing.T) {
	c := newCoordinator(scenarioHost(), policy.Default(), nil)
	if err := c.RefreshPane(context.Background(), "nope"); !errors.Is(err, host.ErrPaneNotFound) {
		t.Errorf("err = %v", err)
	}
	if err := c.RefreshPane(context.Background(), "search"); err != nil {
		t.Errorf("RefreshPane(search) = %v", err)
	}
}

func TestRefreshFile(t *testing.T) {
	h := newFakeHost(
		&fakePane{id: "a1", viewType: "markdown", file: "a.md"},
		&fakePane{id: "a2", viewType: "preview", file: "a.md"},
		&fakePane{id: "b", viewType: "markdown", file: "b.md"},
		&fakePane{id: "a3", viewType: "excluded", file: "a.md"},
	)

	pol := policy.Default()
	pol.ExcludeTypes = []string{"excluded"}
	if res := newCoordinator(h, pol, nil).RefreshFile(context.Background(), "a.md"); len(res.Refreshed) != 0 {
		t.Fatalf("file change refresh must be opt-in, got %v", res.Refreshed)
	}

	pol.RefreshOnFileChange = true
	res := newCoordinator(h, pol, nil).RefreshFile(context.Background(), "a.md")
	if !slices.Equal(res.Refreshed, []string{"a1", "a2"}) {
		t.Errorf("refreshed = %v", res.Refreshed)
	}
}

func TestRefreshAutoScenario(t *testing.T) {
	h := scenarioHost()
	pol := policy.Policy{Mode: policy.AllVisibleViews, IntervalSeconds: 5, ExcludeTypes: []string{"search"}, UseQuickTextRefresh: true}
	res := newCoordinator(h, pol, nil).RefreshAuto(context.Background())
	if !slices.Equal(res.Refreshed, []string{"md"}) {
		t.Errorf("refreshed = %v, want [md]", res.Refreshed)
	}
}

func TestRefreshAutoModes(t *testing.T) {
	tests := []struct {
		mode policy.Mode
		want []string
	}{
		{policy.Off, nil},
		{policy.ActiveView, []string{"md"}},
		{policy.AllVisibleViews, []string{"md", "search"}},
		{policy.AllOpenViews, []string{"canvas", "md", "search"}},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			h := scenarioHost()
			res := newCoordinator(h, policy.Policy{Mode: tt.mode, IntervalSeconds: 1}, nil).RefreshAuto(context.Background())
			if !slices.Equal(res.Refreshed, tt.want) {
				t.Errorf("refreshed = %v, want %v", res.Refreshed, tt.want)
			}
		})
	}
}

func TestMaterializeLazy(t *testing.T) {
	h := newFakeHost(
		&fakePane{id: "l1", lazy: true},
		&fakePane{id: "l2", lazy: true},
		&fakePane{id: "ready"},
	)
	h.failMaterialize["l2"] = errors.New("nope")
	if n := newCoordinator(h, policy.Default(), nil).MaterializeLazy(context.Background()); n != 1 {
		t.Errorf("loaded = %d, want 1", n)
	}
	if p, _ := h.Pane("l1"); p.Lazy() {
		t.Error("l1 still lazy")
	}
}

func TestPinnedPanesLeftAlone(t *testing.T) {
	h := newFakeHost(
		&fakePane{id: "shell", viewType: "zsh", visible: true, pinned: true},
		&fakePane{id: "viewer", viewType: "glow", visible: true},
	)
	coord := newCoordinator(h, policy.Default(), nil)

	res := coord.RefreshAll(context.Background())
	if !slices.Equal(res.Refreshed, []string{"viewer"}) || len(res.Failed) != 0 {
		t.Errorf("refreshed = %v failed = %v", res.Refreshed, res.Failed)
	}

	err := coord.RefreshPane(context.Background(), "shell")
	if !IsKind(err, Unsupported) || !errors.Is(err, ErrNotRefreshable) {
		t.Errorf("RefreshPane(pinned) = %v", err)
	}
	err = coord.RefreshActive(context.Background())
	if !errors.Is(err, ErrNotRefreshable) {
		t.Errorf("RefreshActive(pinned) = %v", err)
	}
	if got := refreshedPanes(h); !slices.Equal(got, []string{"viewer"}) {
		t.Errorf("rebuilt = %v", got)
	}
}
