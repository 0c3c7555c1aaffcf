package refresh

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/theirongolddev/panefresh/internal/events"
	"github.com/theirongolddev/panefresh/internal/host"
)

// Executor refreshes single panes.
type Executor struct {
	host   host.Host
	bus    *events.EventBus
	logger *slog.Logger
}

// NewExecutor returns an executor for h. bus may be nil.
func NewExecutor(h host.Host, bus *events.EventBus, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{host: h, bus: bus, logger: logger}
}

// Refresh refreshes the pane with the given ID. A pane that no longer
// exists is ignored. Failures are logged, published and returned as
// *PaneError. Once started, a refresh only checks ctx through the host
// calls it makes.
func (e *Executor) Refresh(ctx context.Context, paneID string, s Strategy) error {
	if s == Skip {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	p, ok := e.host.Pane(paneID)
	if !ok {
		e.logger.Debug("pane vanished before refresh", "pane", paneID)
		return nil
	}

	materialized := false
	if p.Lazy() {
		if err := e.host.Materialize(ctx, p); err != nil {
			return e.fail(p, MaterializationFailure, err)
		}
		materialized = true
		if p, ok = e.host.Pane(paneID); !ok {
			return nil
		}
	}

	if p.Dirty() {
		if err := e.host.Save(ctx, p); err != nil {
			return e.fail(p, PersistFailure, err)
		}
		if p, ok = e.host.Pane(paneID); !ok {
			return nil
		}
	}

	used, err := e.apply(ctx, p, s, materialized)
	if err != nil {
		return err
	}

	elapsed := time.Since(start)
	e.logger.Debug("pane refreshed", "pane", paneID, "view_type", p.ViewType(), "strategy", used, "took", elapsed)
	if e.bus != nil {
		e.bus.Publish(events.NewPaneRefreshedEvent(paneID, p.ViewType(), used, elapsed))
	}
	return nil
}

// apply runs the refresh proper and returns the name of the path taken.
// A pane that was just materialized and cannot be rebuilt counts as
// refreshed by the materialization.
func (e *Executor) apply(ctx context.Context, p host.Pane, s Strategy, materialized bool) (string, error) {
	if s == Quick {
		if ed, ok := p.Editor(); ok && p.File() != "" {
			return Quick.String(), e.quick(ctx, p, ed)
		}
	}
	if p.DisplayMode() == host.ModePreview {
		if r, ok := e.host.(host.Rerenderer); ok {
			if err := r.Rerender(ctx, p); err != nil {
				return "", e.fail(p, ViewStateFailure, err)
			}
			return "rerender", nil
		}
	}
	if !host.CanRebuild(p) {
		if materialized {
			return "materialize", nil
		}
		return "", e.fail(p, Unsupported, ErrNotRefreshable)
	}
	return FullRebuild.String(), e.rebuild(ctx, p)
}

// quick replaces the document with the freshest content. Both changes go
// through one Apply so the empty document is never observable. The clear
// runs to the end of whatever the document holds when Apply runs, not when
// it was last read.
func (e *Executor) quick(ctx context.Context, p host.Pane, ed host.Editor) error {
	text, err := e.host.ReadFresh(ctx, p.File())
	if err != nil {
		return e.fail(p, ContentFailure, err)
	}

	sel := ed.Selection()
	scroll := ed.Scroll()
	ed.Apply(
		host.Change{From: 0, To: math.MaxInt},
		host.Change{From: 0, To: 0, Insert: text, Selection: &sel},
	)
	ed.OnNextFrame(func() {
		ed.SetScroll(scroll)
	})
	return nil
}

// rebuild round-trips the pane through the empty placeholder.
func (e *Executor) rebuild(ctx context.Context, p host.Pane) error {
	id := p.ID()
	vs := e.host.ViewState(p)
	eph := e.host.EphemeralState(p)

	if err := e.host.SetViewState(ctx, p, host.EmptyViewState, nil); err != nil {
		return e.fail(p, ViewStateFailure, err)
	}
	p, ok := e.host.Pane(id)
	if !ok {
		return nil
	}
	if err := e.host.SetViewState(ctx, p, vs, eph); err != nil {
		return e.fail(p, ViewStateFailure, err)
	}
	return nil
}

func (e *Executor) fail(p host.Pane, kind ErrorKind, err error) error {
	pe := &PaneError{PaneID: p.ID(), Kind: kind, Err: err}
	e.logger.Warn("pane refresh failed", "pane", pe.PaneID, "view_type", p.ViewType(), "kind", kind.String(), "error", err)
	if e.bus != nil {
		e.bus.Publish(events.NewRefreshFailedEvent(pe.PaneID, kind.String(), err.Error()))
	}
	return pe
}
