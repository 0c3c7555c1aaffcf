// Package policy holds the user-configured refresh ruleset and the store that
// every other component reads it from.
package policy

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Mode selects which panes the auto-refresh timer touches.
type Mode int

const (
	// Off disables the auto-refresh timer.
	Off Mode = iota
	// ActiveView refreshes only the focused pane.
	ActiveView
	// AllVisibleViews refreshes every pane the host reports as visible.
	AllVisibleViews
	// AllOpenViews refreshes every open pane.
	AllOpenViews
)

var modeNames = map[Mode]string{
	Off:             "off",
	ActiveView:      "active-view",
	AllVisibleViews: "all-visible-views",
	AllOpenViews:    "all-open-views",
}

// String returns the persisted form of the mode.
func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseMode parses the persisted form of a mode. Matching ignores case and
// accepts underscores in place of dashes.
func ParseMode(s string) (Mode, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	for m, name := range modeNames {
		if name == norm {
			return m, nil
		}
	}
	return Off, fmt.Errorf("unknown refresh mode %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if _, ok := modeNames[m]; !ok {
		return nil, fmt.Errorf("unknown refresh mode %d", int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Policy is the refresh configuration. It is replaced wholesale on save and
// never mutated in place by readers.
type Policy struct {
	Mode            Mode
	IntervalSeconds int

	IncludeTypes []string
	ExcludeTypes []string

	RefreshInSourceMode bool
	RefreshOnFileChange bool
	LoadLazyOnRefresh   bool
	LoadLazyOnStart     bool
	UseQuickTextRefresh bool
}

// Default returns the policy used when nothing is configured or the stored
// record cannot be read.
func Default() Policy {
	return Policy{
		Mode:                Off,
		UseQuickTextRefresh: true,
	}
}

// Includes reports whether the view type passes the include and exclude lists.
// Exclusion always wins.
func (p Policy) Includes(viewType string) bool {
	if len(p.IncludeTypes) > 0 && !slices.Contains(p.IncludeTypes, viewType) {
		return false
	}
	return !slices.Contains(p.ExcludeTypes, viewType)
}

// Timer returns the auto-refresh period. The second result is false when no
// timer should exist.
func (p Policy) Timer() (time.Duration, bool) {
	if p.Mode == Off || p.IntervalSeconds <= 0 {
		return 0, false
	}
	return time.Duration(p.IntervalSeconds) * time.Second, true
}

// Clone returns a deep copy.
func (p Policy) Clone() Policy {
	p.IncludeTypes = slices.Clone(p.IncludeTypes)
	p.ExcludeTypes = slices.Clone(p.ExcludeTypes)
	return p
}

// Validate reports fields that can never be honoured.
func (p Policy) Validate() error {
	if _, ok := modeNames[p.Mode]; !ok {
		return fmt.Errorf("unknown refresh mode %d", int(p.Mode))
	}
	if p.IntervalSeconds < 0 {
		return fmt.Errorf("refresh interval must be >= 0, got %d", p.IntervalSeconds)
	}
	return nil
}
