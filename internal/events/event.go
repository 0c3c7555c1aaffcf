package events

import "time"

// Event type names.
const (
	TypeContentChanged = "content_changed"
	TypeLayoutChanged  = "layout_changed"
	TypeMenuOpening    = "menu_opening"
	TypePaneRefreshed  = "pane_refreshed"
	TypeRefreshFailed  = "refresh_failed"
	TypeBatchCompleted = "batch_completed"
	TypePolicySaved    = "policy_saved"
)

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// EventType returns the event type.
func (e BaseEvent) EventType() string { return e.Type }

// EventTimestamp returns the event timestamp.
func (e BaseEvent) EventTimestamp() time.Time { return e.Timestamp }

func base(eventType string) BaseEvent {
	return BaseEvent{Type: eventType, Timestamp: time.Now().UTC()}
}

// ContentChangedEvent is published when a backing file changed on disk.
type ContentChangedEvent struct {
	BaseEvent
	Path string `json:"path"`
}

// NewContentChangedEvent creates a content changed event.
func NewContentChangedEvent(path string) ContentChangedEvent {
	return ContentChangedEvent{BaseEvent: base(TypeContentChanged), Path: path}
}

// LayoutChangedEvent is published when panes were opened, closed or focused.
type LayoutChangedEvent struct {
	BaseEvent
}

// NewLayoutChangedEvent creates a layout changed event.
func NewLayoutChangedEvent() LayoutChangedEvent {
	return LayoutChangedEvent{BaseEvent: base(TypeLayoutChanged)}
}

// MenuOpeningEvent is published right before a pane context menu is shown.
type MenuOpeningEvent struct {
	BaseEvent
	PaneID string `json:"pane_id"`
}

// NewMenuOpeningEvent creates a menu opening event.
func NewMenuOpeningEvent(paneID string) MenuOpeningEvent {
	return MenuOpeningEvent{BaseEvent: base(TypeMenuOpening), PaneID: paneID}
}

// PaneRefreshedEvent records a successful pane refresh.
type PaneRefreshedEvent struct {
	BaseEvent
	PaneID   string        `json:"pane_id"`
	ViewType string        `json:"view_type"`
	Strategy string        `json:"strategy"`
	Duration time.Duration `json:"duration_ns"`
}

// NewPaneRefreshedEvent creates a pane refreshed event.
func NewPaneRefreshedEvent(paneID, viewType, strategy string, d time.Duration) PaneRefreshedEvent {
	return PaneRefreshedEvent{
		BaseEvent: base(TypePaneRefreshed),
		PaneID:    paneID,
		ViewType:  viewType,
		Strategy:  strategy,
		Duration:  d,
	}
}

// RefreshFailedEvent records a pane refresh that was aborted.
type RefreshFailedEvent struct {
	BaseEvent
	PaneID string `json:"pane_id"`
	Kind   string `json:"kind"`
	Error  string `json:"error"`
}

// NewRefreshFailedEvent creates a refresh failed event.
func NewRefreshFailedEvent(paneID, kind, err string) RefreshFailedEvent {
	return RefreshFailedEvent{BaseEvent: base(TypeRefreshFailed), PaneID: paneID, Kind: kind, Error: err}
}

// BatchCompletedEvent summarises a batch refresh.
type BatchCompletedEvent struct {
	BaseEvent
	Trigger   string   `json:"trigger"`
	Refreshed []string `json:"refreshed"`
	Failed    []string `json:"failed,omitempty"`
}

// NewBatchCompletedEvent creates a batch completed event.
func NewBatchCompletedEvent(trigger string, refreshed, failed []string) BatchCompletedEvent {
	return BatchCompletedEvent{
		BaseEvent: base(TypeBatchCompleted),
		Trigger:   trigger,
		Refreshed: refreshed,
		Failed:    failed,
	}
}

// PolicySavedEvent is published after the refresh policy was replaced.
type PolicySavedEvent struct {
	BaseEvent
	Mode            string `json:"mode"`
	IntervalSeconds int    `json:"interval_seconds"`
}

// NewPolicySavedEvent creates a policy saved event.
func NewPolicySavedEvent(mode string, interval int) PolicySavedEvent {
	return PolicySavedEvent{BaseEvent: base(TypePolicySaved), Mode: mode, IntervalSeconds: interval}
}
