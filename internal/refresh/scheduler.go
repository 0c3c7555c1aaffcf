package refresh

import (
	"context"
	"sync"
	"time"

	"github.com/theirongolddev/panefresh/internal/policy"
)

// StartupLazyDelay gives the host time to finish its own startup layout
// before lazy panes are loaded.
const StartupLazyDelay = time.Second

// Scheduler owns the auto-refresh ticker. It is either disabled (no ticker)
// or armed with exactly one ticker at the policy's period.
type Scheduler struct {
	base  context.Context
	coord *Coordinator
	clock Clock

	mu      sync.Mutex
	ticker  Ticker
	disarm  context.CancelFunc
	period  time.Duration
	startup Timer
	stopped bool
	ticks   sync.WaitGroup
}

// NewScheduler returns a disabled scheduler. Refreshes it starts run under
// ctx, which outlives individual arm/disarm cycles.
func NewScheduler(ctx context.Context, coord *Coordinator, clock Clock) *Scheduler {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Scheduler{base: ctx, coord: coord, clock: clock}
}

// Apply re-evaluates the timer for pol: any existing ticker is stopped, and
// a new one is started when pol asks for one.
func (s *Scheduler) Apply(pol policy.Policy) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.disarmLocked()
	if s.stopped {
		return
	}
	d, ok := pol.Timer()
	if !ok {
		s.coord.logger.Debug("auto refresh disabled", "mode", pol.Mode)
		return
	}

	armCtx, cancel := context.WithCancel(s.base)
	t := s.clock.NewTicker(d)
	s.ticker, s.disarm, s.period = t, cancel, d
	s.ticks.Add(1)
	go s.loop(armCtx, t)
	s.coord.logger.Debug("auto refresh armed", "mode", pol.Mode, "period", d)
}

func (s *Scheduler) disarmLocked() {
	if s.ticker == nil {
		return
	}
	s.disarm()
	s.ticker.Stop()
	s.ticker, s.disarm, s.period = nil, nil, 0
}

func (s *Scheduler) loop(ctx context.Context, t Ticker) {
	defer s.ticks.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C():
			// A disarm racing with this tick wins.
			if ctx.Err() != nil {
				return
			}
			s.coord.RefreshAuto(s.base)
		}
	}
}

// Armed reports whether a ticker is live, and its period.
func (s *Scheduler) Armed() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.period, s.ticker != nil
}

// ScheduleStartup arranges the one-time delayed load of lazy panes when
// pol asks for it.
func (s *Scheduler) ScheduleStartup(pol policy.Policy) {
	if !pol.LoadLazyOnStart {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || s.startup != nil {
		return
	}
	s.startup = s.clock.AfterFunc(StartupLazyDelay, func() {
		n := s.coord.MaterializeLazy(s.base)
		s.coord.logger.Debug("startup lazy pass done", "loaded", n)
	})
}

// Stop disarms the scheduler for good and cancels the startup pass if it
// has not run yet. Later Apply calls do nothing.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.disarmLocked()
	if s.startup != nil {
		s.startup.Stop()
	}
	s.mu.Unlock()
	s.ticks.Wait()
}
