package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "pane.added", "run.completed")
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Event type identifiers.
const (
	TypePaneAdded     = "pane.added"
	TypePaneRemoved   = "pane.removed"
	TypeLayoutRebuilt = "layout.rebuilt"
	TypeRunDispatched = "run.dispatched"
	TypeRunCompleted  = "run.completed"
	TypeRunFailed     = "run.failed"
	TypeRunDiscarded  = "run.discarded"
	TypeNotice        = "notice"
)

type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Pane Lifecycle Events
// -----------------------------------------------------------------------------

// PaneAddedEvent is emitted after a runner pane was added, persisted and laid out.
type PaneAddedEvent struct {
	baseEvent
	RunnerID string
	Handle   string
	Position int // index in the runner set
}

// NewPaneAddedEvent creates a PaneAddedEvent.
func NewPaneAddedEvent(runnerID, handle string, position int) PaneAddedEvent {
	return PaneAddedEvent{
		baseEvent: newBaseEvent(TypePaneAdded),
		RunnerID:  runnerID,
		Handle:    handle,
		Position:  position,
	}
}

// PaneRemovedEvent is emitted after a runner pane was removed.
type PaneRemovedEvent struct {
	baseEvent
	RunnerID string
	InFlight int // requests still outstanding for the removed pane
}

// NewPaneRemovedEvent creates a PaneRemovedEvent.
func NewPaneRemovedEvent(runnerID string, inFlight int) PaneRemovedEvent {
	return PaneRemovedEvent{
		baseEvent: newBaseEvent(TypePaneRemoved),
		RunnerID:  runnerID,
		InFlight:  inFlight,
	}
}

// LayoutRebuiltEvent is emitted after every layout rebuild, including teardowns.
type LayoutRebuiltEvent struct {
	baseEvent
	Handles []string
}

// NewLayoutRebuiltEvent creates a LayoutRebuiltEvent.
func NewLayoutRebuiltEvent(handles []string) LayoutRebuiltEvent {
	return LayoutRebuiltEvent{
		baseEvent: newBaseEvent(TypeLayoutRebuilt),
		Handles:   handles,
	}
}

// -----------------------------------------------------------------------------
// Run Events
// -----------------------------------------------------------------------------

// RunDispatchedEvent is emitted when a run fans out to the active runners.
type RunDispatchedEvent struct {
	baseEvent
	RunnerIDs []string
	CodeBytes int
}

// NewRunDispatchedEvent creates a RunDispatchedEvent.
func NewRunDispatchedEvent(runnerIDs []string, codeBytes int) RunDispatchedEvent {
	return RunDispatchedEvent{
		baseEvent: newBaseEvent(TypeRunDispatched),
		RunnerIDs: runnerIDs,
		CodeBytes: codeBytes,
	}
}

// RunCompletedEvent is emitted when a response was rendered into a live pane.
type RunCompletedEvent struct {
	baseEvent
	RunnerID string
	ExitCode int
	Duration time.Duration
}

// NewRunCompletedEvent creates a RunCompletedEvent.
func NewRunCompletedEvent(runnerID string, exitCode int, duration time.Duration) RunCompletedEvent {
	return RunCompletedEvent{
		baseEvent: newBaseEvent(TypeRunCompleted),
		RunnerID:  runnerID,
		ExitCode:  exitCode,
		Duration:  duration,
	}
}

// RunFailedEvent is emitted when a transport failure was rendered into a live pane.
type RunFailedEvent struct {
	baseEvent
	RunnerID string
	Err      error
}

// NewRunFailedEvent creates a RunFailedEvent.
func NewRunFailedEvent(runnerID string, err error) RunFailedEvent {
	return RunFailedEvent{
		baseEvent: newBaseEvent(TypeRunFailed),
		RunnerID:  runnerID,
		Err:       err,
	}
}

// RunDiscardedEvent is emitted when a completion arrived for a pane that is
// no longer live.
type RunDiscardedEvent struct {
	baseEvent
	RunnerID string
	Reason   string
}

// NewRunDiscardedEvent creates a RunDiscardedEvent.
func NewRunDiscardedEvent(runnerID, reason string) RunDiscardedEvent {
	return RunDiscardedEvent{
		baseEvent: newBaseEvent(TypeRunDiscarded),
		RunnerID:  runnerID,
		Reason:    reason,
	}
}

// -----------------------------------------------------------------------------
// Notices
// -----------------------------------------------------------------------------

// NoticeLevel classifies a user notice.
type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeWarning
	NoticeError
)

// NoticeEvent carries a short message for the user (duplicate add,
// "did you mean", share URL).
type NoticeEvent struct {
	baseEvent
	Level   NoticeLevel
	Message string
}

// NewNoticeEvent creates a NoticeEvent.
func NewNoticeEvent(level NoticeLevel, message string) NoticeEvent {
	return NoticeEvent{
		baseEvent: newBaseEvent(TypeNotice),
		Level:     level,
		Message:   message,
	}
}
