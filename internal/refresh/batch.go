package refresh

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/theirongolddev/panefresh/internal/events"
	"github.com/theirongolddev/panefresh/internal/host"
	"github.com/theirongolddev/panefresh/internal/policy"
)

// DefaultConcurrency bounds the refreshes running at once in a batch.
const DefaultConcurrency = 8

// MatchFunc selects panes for a batch and the strategy to use for each.
type MatchFunc func(p host.Pane) (Strategy, bool)

type task struct {
	paneID   string
	strategy Strategy
}

// BatchResult lists the outcome of a batch. Both slices are sorted.
type BatchResult struct {
	Refreshed []string
	Failed    []string
	Errors    map[string]error
}

// Err joins the per-pane errors, or returns nil.
func (r BatchResult) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failed))
	for _, id := range r.Failed {
		errs = append(errs, r.Errors[id])
	}
	return errors.Join(errs...)
}

// Coordinator runs refreshes across many panes.
type Coordinator struct {
	host        host.Host
	exec        *Executor
	store       *policy.Store
	bus         *events.EventBus
	logger      *slog.Logger
	concurrency int
}

// NewCoordinator returns a coordinator refreshing panes of h through exec.
func NewCoordinator(h host.Host, exec *Executor, store *policy.Store, bus *events.EventBus, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		host:        h,
		exec:        exec,
		store:       store,
		bus:         bus,
		logger:      logger,
		concurrency: DefaultConcurrency,
	}
}

// SetConcurrency changes the batch concurrency limit. n < 1 means unlimited.
func (c *Coordinator) SetConcurrency(n int) {
	c.concurrency = n
}

// RefreshMatching refreshes every pane match selects, concurrently, and
// returns once all of them finished and focus was restored.
func (c *Coordinator) RefreshMatching(ctx context.Context, match MatchFunc) BatchResult {
	return c.run(ctx, "custom", c.collect(match))
}

func (c *Coordinator) collect(match MatchFunc) []task {
	var tasks []task
	for _, p := range c.host.Panes() {
		if s, ok := match(p); ok && s != Skip {
			tasks = append(tasks, task{paneID: p.ID(), strategy: s})
		}
	}
	return tasks
}

func (c *Coordinator) run(ctx context.Context, trigger string, tasks []task) BatchResult {
	res := BatchResult{Errors: map[string]error{}}
	if len(tasks) == 0 {
		return res
	}

	focused := c.host.FocusedElement()
	defer func() {
		if focused != nil && focused.Attached() {
			focused.Focus()
		}
	}()

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	if c.concurrency > 0 {
		g.SetLimit(c.concurrency)
	}
	for _, t := range tasks {
		t := t
		g.Go(func() error {
			err := c.exec.Refresh(ctx, t.paneID, t.strategy)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Failed = append(res.Failed, t.paneID)
				res.Errors[t.paneID] = err
			} else {
				res.Refreshed = append(res.Refreshed, t.paneID)
			}
			// Pane failures stay local to the pane.
			return nil
		})
	}
	_ = g.Wait()

	slices.Sort(res.Refreshed)
	slices.Sort(res.Failed)
	c.logger.Debug("batch refreshed", "trigger", trigger, "refreshed", len(res.Refreshed), "failed", len(res.Failed))
	if c.bus != nil {
		c.bus.Publish(events.NewBatchCompletedEvent(trigger, res.Refreshed, res.Failed))
	}
	return res
}

// RefreshActive refreshes the focused pane.
func (c *Coordinator) RefreshActive(ctx context.Context) error {
	p := c.host.ActivePane()
	if p == nil {
		return ErrNoActivePane
	}
	return c.refreshOne(ctx, p)
}

// RefreshPane refreshes one pane by ID.
func (c *Coordinator) RefreshPane(ctx context.Context, paneID string) error {
	p, ok := c.host.Pane(paneID)
	if !ok {
		return host.ErrPaneNotFound
	}
	return c.refreshOne(ctx, p)
}

// refreshOne runs an explicit refresh. Unlike batches, asking for a pane
// that cannot be refreshed is an error.
func (c *Coordinator) refreshOne(ctx context.Context, p host.Pane) error {
	s := StrategyFor(p, c.store.Get())
	if s == Skip {
		return c.exec.fail(p, Unsupported, ErrNotRefreshable)
	}
	return c.exec.Refresh(ctx, p.ID(), s)
}

// RefreshVisible refreshes every visible pane.
func (c *Coordinator) RefreshVisible(ctx context.Context) BatchResult {
	pol := c.store.Get()
	return c.run(ctx, "visible", c.collect(func(p host.Pane) (Strategy, bool) {
		return StrategyFor(p, pol), p.Visible()
	}))
}

// RefreshAll refreshes every open pane.
func (c *Coordinator) RefreshAll(ctx context.Context) BatchResult {
	pol := c.store.Get()
	return c.run(ctx, "all", c.collect(func(p host.Pane) (Strategy, bool) {
		return StrategyFor(p, pol), true
	}))
}

// RefreshFile refreshes the panes showing path after it changed on disk,
// when the policy asks for it.
func (c *Coordinator) RefreshFile(ctx context.Context, path string) BatchResult {
	pol := c.store.Get()
	if !pol.RefreshOnFileChange || path == "" {
		return BatchResult{}
	}
	return c.run(ctx, "file_change", c.collect(func(p host.Pane) (Strategy, bool) {
		if p.File() != path {
			return Skip, false
		}
		return Classify(p, pol), true
	}))
}

// RefreshAuto runs one automatic pass for the policy's mode.
func (c *Coordinator) RefreshAuto(ctx context.Context) BatchResult {
	pol := c.store.Get()
	var tasks []task
	switch pol.Mode {
	case policy.ActiveView:
		if p := c.host.ActivePane(); p != nil {
			if s := Classify(p, pol); s != Skip {
				tasks = append(tasks, task{paneID: p.ID(), strategy: s})
			}
		}
	case policy.AllVisibleViews:
		tasks = c.collect(func(p host.Pane) (Strategy, bool) {
			return Classify(p, pol), p.Visible()
		})
	case policy.AllOpenViews:
		tasks = c.collect(func(p host.Pane) (Strategy, bool) {
			return Classify(p, pol), true
		})
	}
	return c.run(ctx, "timer", tasks)
}

// MaterializeLazy loads every lazy pane.
func (c *Coordinator) MaterializeLazy(ctx context.Context) int {
	var (
		g      errgroup.Group
		mu     sync.Mutex
		loaded int
	)
	if c.concurrency > 0 {
		g.SetLimit(c.concurrency)
	}
	for _, p := range c.host.Panes() {
		if !p.Lazy() {
			continue
		}
		p := p
		g.Go(func() error {
			if err := c.host.Materialize(ctx, p); err != nil {
				c.logger.Warn("loading lazy pane failed", "pane", p.ID(), "error", err)
				return nil
			}
			mu.Lock()
			loaded++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return loaded
}
