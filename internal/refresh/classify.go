package refresh

import (
	"github.com/theirongolddev/panefresh/internal/host"
	"github.com/theirongolddev/panefresh/internal/policy"
)

// Strategy is how a pane gets refreshed. Skip means it is left alone.
type Strategy int

const (
	Skip Strategy = iota
	// Quick swaps the document text of an editor pane in place.
	Quick
	// FullRebuild tears the pane down to a placeholder and restores it.
	FullRebuild
)

func (s Strategy) String() string {
	switch s {
	case Quick:
		return "quick"
	case FullRebuild:
		return "full"
	default:
		return "skip"
	}
}

// Classify decides whether automatic refresh applies to p under pol and
// with which strategy. It has no side effects.
func Classify(p host.Pane, pol policy.Policy) Strategy {
	if !pol.Includes(p.ViewType()) {
		return Skip
	}
	if p.Lazy() && !pol.LoadLazyOnRefresh {
		return Skip
	}
	_, isEditor := p.Editor()
	if isEditor && p.DisplayMode() == host.ModeSource && !pol.RefreshInSourceMode {
		return Skip
	}
	return StrategyFor(p, pol)
}

// StrategyFor picks the strategy for an explicit refresh of p. Explicit
// refreshes ignore the automatic-refresh filters, but a pane the host
// cannot rebuild safely is still skipped.
func StrategyFor(p host.Pane, pol policy.Policy) Strategy {
	if _, isEditor := p.Editor(); isEditor && p.DisplayMode() == host.ModeLive && pol.UseQuickTextRefresh {
		return Quick
	}
	if !host.CanRebuild(p) {
		return Skip
	}
	return FullRebuild
}
