package refresh

import (
	"errors"
	"fmt"
)

// ErrNoActivePane is returned by RefreshActive when nothing has focus.
var ErrNoActivePane = errors.New("no active pane")

// ErrNotRefreshable is wrapped by an Unsupported PaneError when the host
// cannot rebuild a pane without destroying it.
var ErrNotRefreshable = errors.New("pane cannot be rebuilt safely")

// ErrorKind classifies a failed pane refresh.
type ErrorKind int

const (
	// MaterializationFailure: a lazy pane could not be loaded.
	MaterializationFailure ErrorKind = iota + 1
	// PersistFailure: unsaved edits could not be saved.
	PersistFailure
	// ContentFailure: fresh content could not be read for a quick refresh.
	ContentFailure
	// ViewStateFailure: the host rejected a view-state switch or re-render.
	ViewStateFailure
	// Unsupported: the pane needs a full rebuild the host refuses to do.
	Unsupported
)

func (k ErrorKind) String() string {
	switch k {
	case MaterializationFailure:
		return "materialize"
	case PersistFailure:
		return "persist"
	case ContentFailure:
		return "content"
	case ViewStateFailure:
		return "view_state"
	case Unsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// PaneError reports why one pane's refresh was aborted. It never affects
// other panes of the same batch.
type PaneError struct {
	PaneID string
	Kind   ErrorKind
	Err    error
}

func (e *PaneError) Error() string {
	return fmt.Sprintf("refresh pane %s: %s: %v", e.PaneID, e.Kind, e.Err)
}

func (e *PaneError) Unwrap() error { return e.Err }

// IsKind reports whether err is a PaneError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var pe *PaneError
	return errors.As(err, &pe) && pe.Kind == kind
}
