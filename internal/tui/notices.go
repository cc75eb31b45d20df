package tui

import (
	"sync"

	"github.com/Iron-Ham/pyexpl/internal/event"
)

// noticeSink collects notice events for the Update loop. Bus handlers run on
// the publishing goroutine, which is usually Update itself, so they must not
// call Program.Send.
type noticeSink struct {
	mu      sync.Mutex
	pending []event.NoticeEvent
}

func (s *noticeSink) handle(e event.Event) {
	n, ok := e.(event.NoticeEvent)
	if !ok {
		return
	}
	s.mu.Lock()
	s.pending = append(s.pending, n)
	s.mu.Unlock()
}

func (s *noticeSink) drain() []event.NoticeEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.pending
	s.pending = nil
	return out
}
