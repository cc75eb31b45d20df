// Package testutil provides fakes for the playground's collaborators: the
// execution backend, the layout widget and the editor.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Iron-Ham/pyexpl/internal/dispatch"
	"github.com/Iron-Ham/pyexpl/internal/errors"
	"github.com/Iron-Ham/pyexpl/internal/layout"
	"github.com/Iron-Ham/pyexpl/internal/runner"
)

// -----------------------------------------------------------------------------
// Executor
// -----------------------------------------------------------------------------

// Reply is a canned answer for one runner label.
type Reply struct {
	Response dispatch.Response
	Err      error
	// Gate, when non-nil, blocks the request until it is closed or receives.
	Gate chan struct{}
}

// FakeExecutor answers requests from a table keyed by wire label. Unknown
// labels fail with a transport error. It is safe for concurrent use.
type FakeExecutor struct {
	mu       sync.Mutex
	replies  map[runner.Label][]Reply
	requests []dispatch.Request
}

// NewFakeExecutor creates an empty FakeExecutor.
func NewFakeExecutor() *FakeExecutor {
	return &FakeExecutor{replies: make(map[runner.Label][]Reply)}
}

// On queues a reply for label. Queued replies are consumed in order; the last
// one is reused once the queue is drained.
func (f *FakeExecutor) On(label runner.Label, reply Reply) *FakeExecutor {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies[label] = append(f.replies[label], reply)
	return f
}

// Stdout is shorthand for a successful reply with exit code 0.
func (f *FakeExecutor) Stdout(label runner.Label, stdout string) *FakeExecutor {
	return f.On(label, Reply{Response: dispatch.Response{Stdout: stdout}})
}

// Execute implements dispatch.Executor.
func (f *FakeExecutor) Execute(ctx context.Context, req dispatch.Request) (dispatch.Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	queue := f.replies[req.Label]
	var reply Reply
	found := len(queue) > 0
	if found {
		reply = queue[0]
		if len(queue) > 1 {
			f.replies[req.Label] = queue[1:]
		}
	}
	f.mu.Unlock()

	if !found {
		return dispatch.Response{}, errors.NewTransportError("no such runner", nil).
			WithRunner(string(req.Label)).WithStatus(400)
	}
	if reply.Gate != nil {
		select {
		case <-reply.Gate:
		case <-ctx.Done():
			return dispatch.Response{}, ctx.Err()
		}
	}
	return reply.Response, reply.Err
}

// Requests returns a copy of every request received so far.
func (f *FakeExecutor) Requests() []dispatch.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]dispatch.Request, len(f.requests))
	copy(out, f.requests)
	return out
}

// -----------------------------------------------------------------------------
// Splitter
// -----------------------------------------------------------------------------

// FakeInstance records whether it was destroyed.
type FakeInstance struct {
	Handles   []string
	Opts      layout.Options
	Destroyed bool
}

// Destroy implements layout.Instance.
func (f *FakeInstance) Destroy() { f.Destroyed = true }

// FakeSplitter records every layout it creates.
type FakeSplitter struct {
	mu        sync.Mutex
	Instances []*FakeInstance
}

// Split implements layout.Splitter.
func (f *FakeSplitter) Split(handles []string, opts layout.Options) (layout.Instance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inst := &FakeInstance{Handles: handles, Opts: opts}
	f.Instances = append(f.Instances, inst)
	return inst, nil
}

// Live returns the layouts that have not been destroyed.
func (f *FakeSplitter) Live() []*FakeInstance {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*FakeInstance
	for _, inst := range f.Instances {
		if !inst.Destroyed {
			out = append(out, inst)
		}
	}
	return out
}

// -----------------------------------------------------------------------------
// Editor
// -----------------------------------------------------------------------------

// Editor is a text buffer implementing the playground's editor collaborator.
type Editor struct {
	mu   sync.Mutex
	text string
}

// NewEditor returns an Editor holding text.
func NewEditor(text string) *Editor { return &Editor{text: text} }

// Text returns the current text.
func (e *Editor) Text() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.text
}

// SetText replaces the text.
func (e *Editor) SetText(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.text = text
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

// Collector gathers completions delivered from request goroutines.
type Collector struct {
	ch chan dispatch.Completion
}

// NewCollector returns a Collector with room for n completions.
func NewCollector(n int) *Collector {
	return &Collector{ch: make(chan dispatch.Completion, n)}
}

// Deliver is a dispatch delivery hook.
func (c *Collector) Deliver(comp dispatch.Completion) { c.ch <- comp }

// Next waits for the next completion or fails the test after timeout.
func (c *Collector) Next(t *testing.T, timeout time.Duration) dispatch.Completion {
	t.Helper()
	select {
	case comp := <-c.ch:
		return comp
	case <-time.After(timeout):
		t.Fatalf("no completion within %v", timeout)
		return dispatch.Completion{}
	}
}

// WriteFile writes content to name under a fresh temp dir and returns the path.
func WriteFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}
