// Package refresh keeps host panes in sync with their content. It decides
// which panes to refresh and when (policy, classifier, scheduler), performs
// refreshes with minimal disruption (executor, coordinator), and extends the
// host's pane menu and pane headers with refresh actions.
package refresh

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/theirongolddev/panefresh/internal/events"
	"github.com/theirongolddev/panefresh/internal/host"
	"github.com/theirongolddev/panefresh/internal/policy"
)

// ErrLoaded is returned by Load on an engine that is already loaded.
var ErrLoaded = errors.New("refresh engine already loaded")

// Copier copies text to a clipboard.
type Copier interface {
	Copy(text string) error
}

// Command is a user-invokable engine operation.
type Command struct {
	ID   string
	Name string
	// Check reports whether the command can run right now.
	Check func() bool
	Run   func(ctx context.Context) error
}

// Engine wires the refresh components to a host.
type Engine struct {
	host   host.Host
	store  *policy.Store
	bus    *events.EventBus
	clock  Clock
	copier Copier
	logger *slog.Logger

	exec  *Executor
	coord *Coordinator
	menu  *MenuExtension

	mu        sync.Mutex
	loaded    bool
	ctx       context.Context
	lifecycle *Lifecycle
	sched     *Scheduler
	deco      *Decorator
	inflight  sync.WaitGroup
}

// Option configures an Engine.
type Option func(*Engine)

// WithBus subscribes the engine to host notifications on bus and publishes
// refresh outcomes there.
func WithBus(bus *events.EventBus) Option {
	return func(e *Engine) { e.bus = bus }
}

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithClipboard sets the clipboard used by the copy-view-type menu item.
func WithClipboard(c Copier) Option {
	return func(e *Engine) { e.copier = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an engine for h reading its policy from store.
func NewEngine(h host.Host, store *policy.Store, opts ...Option) *Engine {
	e := &Engine{
		host:   h,
		store:  store,
		clock:  SystemClock{},
		logger: slog.Default(),
		ctx:    context.Background(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.exec = NewExecutor(h, e.bus, e.logger)
	e.coord = NewCoordinator(h, e.exec, store, e.bus, e.logger)
	e.menu = NewMenuExtension(MenuActions{
		Refresh:      e.refreshInBackground,
		CopyViewType: e.copyViewType,
	})
	return e
}

// Coordinator returns the batch coordinator.
func (e *Engine) Coordinator() *Coordinator { return e.coord }

// Store returns the policy store.
func (e *Engine) Store() *policy.Store { return e.store }

// Load starts the engine: policy subscription, host notifications, menu
// extension, action buttons, the auto-refresh timer and the optional
// startup pass over lazy panes.
func (e *Engine) Load(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.loaded {
		return ErrLoaded
	}

	ctx, cancel := context.WithCancel(ctx)
	lc := &Lifecycle{}
	lc.Register("context", cancel)
	e.ctx, e.lifecycle, e.loaded = ctx, lc, true

	sched := NewScheduler(ctx, e.coord, e.clock)
	e.sched = sched

	lc.Register("policy subscription", e.store.Subscribe(func(next, prev policy.Policy) {
		sched.Apply(next)
		if e.bus != nil {
			e.bus.Publish(events.NewPolicySavedEvent(next.Mode.String(), next.IntervalSeconds))
		}
	}))

	if hook, ok := e.host.(host.MenuHook); ok {
		e.menu.Install(hook)
		lc.Register("menu", e.menu.Uninstall)
	}

	if actions, ok := e.host.(host.ActionHost); ok {
		e.deco = NewDecorator(actions, lc, e.refreshInBackground)
		e.deco.Observe(e.host.ActivePane())
	}

	if e.bus != nil {
		lc.Register("layout events", e.bus.Subscribe(events.TypeLayoutChanged, func(events.BusEvent) {
			e.HandleLayoutChange()
		}))
		lc.Register("content events", e.bus.Subscribe(events.TypeContentChanged, func(ev events.BusEvent) {
			cc, ok := ev.(events.ContentChangedEvent)
			if !ok {
				return
			}
			ctx, ok := e.track()
			if !ok {
				return
			}
			defer e.inflight.Done()
			e.coord.RefreshFile(ctx, cc.Path)
		}))
		lc.Register("menu events", e.bus.Subscribe(events.TypeMenuOpening, func(ev events.BusEvent) {
			if mo, ok := ev.(events.MenuOpeningEvent); ok {
				e.logger.Debug("pane menu opening", "pane", mo.PaneID)
			}
		}))
	}

	pol := e.store.Get()
	sched.Apply(pol)
	sched.ScheduleStartup(pol)
	lc.Register("scheduler", sched.Stop)

	e.logger.Info("refresh engine loaded", "mode", pol.Mode, "interval", pol.IntervalSeconds)
	return nil
}

// HandleLayoutChange decorates the active pane and forgets closed ones.
func (e *Engine) HandleLayoutChange() {
	e.mu.Lock()
	deco := e.deco
	e.mu.Unlock()
	if deco == nil {
		return
	}
	deco.Prune(e.host.Panes())
	deco.Observe(e.host.ActivePane())
}

// Unload tears everything down in reverse order of setup and waits for
// refreshes started from menus, buttons and file changes. Calling it twice
// is harmless.
func (e *Engine) Unload() {
	e.mu.Lock()
	lc := e.lifecycle
	e.loaded = false
	e.lifecycle, e.deco, e.sched = nil, nil, nil
	e.mu.Unlock()

	if lc != nil {
		lc.Close()
		e.logger.Info("refresh engine unloaded")
	}
	e.inflight.Wait()
}

// Scheduler returns the scheduler of a loaded engine, or nil.
func (e *Engine) Scheduler() *Scheduler {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sched
}

// Decorated reports whether the pane carries a refresh button.
func (e *Engine) Decorated(paneID string) bool {
	e.mu.Lock()
	deco := e.deco
	e.mu.Unlock()
	return deco != nil && deco.Decorated(paneID)
}

// Wait blocks until refreshes started from menus, buttons and file
// changes finished.
func (e *Engine) Wait() {
	e.inflight.Wait()
}

// track counts a background refresh so Unload waits for it, and returns
// the engine context. It refuses once Unload has begun; the caller must
// call e.inflight.Done when it gets true.
func (e *Engine) track() (context.Context, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.loaded {
		return nil, false
	}
	e.inflight.Add(1)
	return e.ctx, true
}

func (e *Engine) refreshInBackground(paneID string) {
	ctx, ok := e.track()
	if !ok {
		return
	}
	go func() {
		defer e.inflight.Done()
		if err := e.coord.RefreshPane(ctx, paneID); err != nil && !errors.As(err, new(*PaneError)) {
			e.logger.Warn("refresh from pane action failed", "pane", paneID, "error", err)
		}
	}()
}

func (e *Engine) copyViewType(viewType string) {
	if e.copier == nil {
		e.logger.Warn("no clipboard configured", "view_type", viewType)
		return
	}
	if err := e.copier.Copy(viewType); err != nil {
		e.logger.Warn("copying view type failed", "view_type", viewType, "error", err)
	}
}

// Commands returns the user commands of the engine.
func (e *Engine) Commands() []Command {
	return []Command{
		{
			ID:    "refresh-active-view",
			Name:  "Refresh active view",
			Check: func() bool { return e.host.ActivePane() != nil },
			Run:   e.coord.RefreshActive,
		},
		{
			ID:    "refresh-all-visible-views",
			Name:  "Refresh all visible views",
			Check: func() bool { return true },
			Run: func(ctx context.Context) error {
				return e.coord.RefreshVisible(ctx).Err()
			},
		},
		{
			ID:    "refresh-all-open-views",
			Name:  "Refresh all open views",
			Check: func() bool { return true },
			Run: func(ctx context.Context) error {
				return e.coord.RefreshAll(ctx).Err()
			},
		},
	}
}

// Command looks a command up by ID.
func (e *Engine) Command(id string) (Command, bool) {
	for _, c := range e.Commands() {
		if c.ID == id {
			return c, true
		}
	}
	return Command{}, false
}
