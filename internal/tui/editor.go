package tui

import "sync"

// editorBuffer mirrors the textarea's content for the Controller, which reads
// it from outside the Update loop when sharing.
type editorBuffer struct {
	mu   sync.RWMutex
	text string
}

// Text implements playground.Editor.
func (b *editorBuffer) Text() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.text
}

// set stores text and reports whether it differed from the previous value.
func (b *editorBuffer) set(text string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.text == text {
		return false
	}
	b.text = text
	return true
}
