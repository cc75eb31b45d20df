package tui

import (
	"github.com/Iron-Ham/pyexpl/internal/dispatch"
)

// completionMsg carries a finished request from its goroutine into Update,
// where the Controller reconciles it.
type completionMsg struct {
	completion dispatch.Completion
}
