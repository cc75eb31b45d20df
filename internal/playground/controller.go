// Package playground contains the Controller, the single owner of a
// playground session's runner panes, layout, persisted selection and
// dispatch engine. Front ends (TUI, run, watch) drive it; they never touch
// the registry directly.
package playground

import (
	"context"
	"fmt"
	"sync"

	"github.com/Iron-Ham/pyexpl/internal/bootstrap"
	"github.com/Iron-Ham/pyexpl/internal/dispatch"
	"github.com/Iron-Ham/pyexpl/internal/errors"
	"github.com/Iron-Ham/pyexpl/internal/event"
	"github.com/Iron-Ham/pyexpl/internal/layout"
	"github.com/Iron-Ham/pyexpl/internal/logging"
	"github.com/Iron-Ham/pyexpl/internal/pane"
	"github.com/Iron-Ham/pyexpl/internal/runner"
	"github.com/Iron-Ham/pyexpl/internal/store"
)

// Editor is the source of the text to run.
type Editor interface {
	Text() string
}

// Sharer publishes a session and returns where it can be opened.
type Sharer interface {
	Share(ctx context.Context, code string, runners runner.Set) (string, error)
}

// Config wires a Controller to its collaborators.
type Config struct {
	Executor  dispatch.Executor
	Splitter  layout.Splitter
	Selection *store.Selection
	Editor    Editor
	Sharer    Sharer // optional
	Bus       *event.Bus
	Logger    *logging.Logger

	MinSize    int
	GutterSize int

	// Deliver routes completions back to the Controller's owner. Nil means
	// reconcile directly from the request goroutine under the Controller lock.
	Deliver func(dispatch.Completion)
}

// PaneView is a read-only snapshot of one pane for rendering.
type PaneView struct {
	ID       runner.ID
	Handle   string
	Title    string
	State    pane.State
	Output   string
	InFlight int
}

// Controller serializes every mutation of the session behind one mutex.
// Events are published after the lock is released, so handlers may read
// from the Controller.
type Controller struct {
	mu        sync.Mutex
	registry  *pane.Registry
	layout    *layout.Coordinator
	selection *store.Selection
	engine    *dispatch.Engine
	editor    Editor
	sharer    Sharer
	bus       *event.Bus
	logger    *logging.Logger
	started   bool
}

// New creates a Controller. Call Start before anything else.
func New(cfg Config) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	bus := cfg.Bus
	if bus == nil {
		bus = event.NewBus(logger)
	}
	splitter := cfg.Splitter
	if splitter == nil {
		splitter = layout.Nop{}
	}

	c := &Controller{
		registry:  pane.NewRegistry(),
		selection: cfg.Selection,
		editor:    cfg.Editor,
		sharer:    cfg.Sharer,
		bus:       bus,
		logger:    logger.WithComponent("controller"),
	}
	c.layout = layout.NewCoordinator(splitter, cfg.MinSize, cfg.GutterSize, logger)

	deliver := cfg.Deliver
	if deliver == nil {
		deliver = func(comp dispatch.Completion) { c.Reconcile(comp) }
	}
	c.engine = dispatch.NewEngine(cfg.Executor, c.registry, deliver, logger)
	return c
}

// Bus returns the event bus the Controller publishes on.
func (c *Controller) Bus() *event.Bus { return c.bus }

// Start creates panes for the bootstrap runners, normalized and de-duplicated,
// and lays them out once. It does not write the selection back.
func (c *Controller) Start(ctx context.Context, st bootstrap.State) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return errors.New("playground already started")
	}
	c.started = true

	set := runner.NormalizeAll(st.Runners.Strings())
	c.registry.RestoreAll(set)
	err := c.rebuildLocked()
	handles := c.registry.Handles()
	c.mu.Unlock()

	c.logger.Info("session started", "runners", set.Strings(), "shared", st.Shared)
	c.bus.Publish(event.NewLayoutRebuiltEvent(handles))
	return err
}

// AddLabel adds the runner named raw. Duplicates leave everything unchanged
// and return an *errors.AlreadyExistsError after publishing a notice.
// Runners outside the catalog are added anyway, with a notice.
func (c *Controller) AddLabel(ctx context.Context, raw string) (runner.ID, error) {
	id := runner.Normalize(raw)
	if id == "" {
		return "", errors.NewValidationError("runner name must not be empty").WithField("runner")
	}

	var events []event.Event

	c.mu.Lock()
	p, err := c.registry.Add(id)
	if err != nil {
		c.mu.Unlock()
		c.logger.Debug("duplicate runner add", "runner", string(id))
		c.bus.Publish(event.NewNoticeEvent(event.NoticeWarning, err.Error()))
		return id, err
	}
	c.selection.SaveRunnerSet(ctx, c.registry.IDs())
	rebuildErr := c.rebuildLocked()
	events = append(events,
		event.NewPaneAddedEvent(string(id), p.Handle(), c.registry.Len()-1),
		event.NewLayoutRebuiltEvent(c.registry.Handles()))
	c.mu.Unlock()

	if !runner.Known(id) {
		msg := fmt.Sprintf("runner `%s` is not in the catalog; it will be sent as-is", id)
		if s, ok := runner.Suggest(raw); ok {
			msg = fmt.Sprintf("runner `%s` is not in the catalog; did you mean `%s`?", id, s)
		}
		events = append(events, event.NewNoticeEvent(event.NoticeInfo, msg))
	}

	c.publish(events)
	return id, rebuildErr
}

// Remove removes a runner's pane. Removing an absent runner is a no-op that
// reports false. In-flight requests are not canceled; their results are
// dropped when they arrive.
func (c *Controller) Remove(ctx context.Context, id runner.ID) bool {
	c.mu.Lock()
	p := c.registry.Get(id)
	if p == nil || !c.registry.Remove(id) {
		c.mu.Unlock()
		return false
	}
	c.selection.SaveRunnerSet(ctx, c.registry.IDs())
	if err := c.rebuildLocked(); err != nil {
		c.logger.Error("layout rebuild failed", "error", err)
	}
	events := []event.Event{
		event.NewPaneRemovedEvent(string(id), c.engine.PaneInFlight(p)),
		event.NewLayoutRebuiltEvent(c.registry.Handles()),
	}
	c.mu.Unlock()

	c.publish(events)
	return true
}

// CodeChanged persists the editor text.
func (c *Controller) CodeChanged(ctx context.Context, text string) {
	c.selection.SaveCode(ctx, text)
}

// Run sends the editor's current text to every active runner and returns
// immediately.
func (c *Controller) Run(ctx context.Context) []dispatch.Request {
	code := c.editor.Text()

	c.mu.Lock()
	issued := c.engine.RunAll(ctx, code, c.registry.IDs())
	c.mu.Unlock()

	ids := make([]string, len(issued))
	for i, req := range issued {
		ids[i] = string(req.RunnerID)
	}
	c.logger.Info("run dispatched", "runners", ids, "bytes", len(code))
	c.bus.Publish(event.NewRunDispatchedEvent(ids, len(code)))
	return issued
}

// Reconcile applies a completion delivered from a request goroutine.
func (c *Controller) Reconcile(comp dispatch.Completion) dispatch.Outcome {
	c.mu.Lock()
	outcome := c.engine.Reconcile(comp)
	c.mu.Unlock()

	id := string(comp.Request.RunnerID)
	switch outcome {
	case dispatch.Rendered:
		c.bus.Publish(event.NewRunCompletedEvent(id, comp.Response.ExitCode, comp.Duration))
	case dispatch.FailedOutcome:
		c.bus.Publish(event.NewRunFailedEvent(id, comp.Err))
	default:
		c.bus.Publish(event.NewRunDiscardedEvent(id, "pane no longer live"))
	}
	return outcome
}

// Wait blocks until every dispatched request has been delivered. It must not
// be called from the goroutine that reconciles completions in the TUI.
func (c *Controller) Wait() {
	c.engine.Wait()
}

// Share publishes the current text and runner set through the Sharer.
func (c *Controller) Share(ctx context.Context) (string, error) {
	if c.sharer == nil {
		return "", errors.NewValidationError("sharing is not configured")
	}
	code := c.editor.Text()
	c.mu.Lock()
	ids := c.registry.IDs()
	c.mu.Unlock()

	url, err := c.sharer.Share(ctx, code, ids)
	if err != nil {
		c.logger.Error("share failed", "error", err)
		c.bus.Publish(event.NewNoticeEvent(event.NoticeError, "share failed: "+err.Error()))
		return "", err
	}
	c.logger.Info("session shared", "url", url)
	c.bus.Publish(event.NewNoticeEvent(event.NoticeInfo, "shared: "+url))
	return url, nil
}

// IDs returns the active runner set.
func (c *Controller) IDs() runner.Set {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.IDs()
}

// Panes returns a snapshot of every live pane in order.
func (c *Controller) Panes() []PaneView {
	c.mu.Lock()
	defer c.mu.Unlock()

	panes := c.registry.Panes()
	out := make([]PaneView, len(panes))
	for i, p := range panes {
		title := string(p.ID())
		if e, ok := runner.Lookup(p.ID()); ok {
			title = e.Title
		}
		out[i] = PaneView{
			ID:       p.ID(),
			Handle:   p.Handle(),
			Title:    title,
			State:    p.State(),
			Output:   p.Output(),
			InFlight: c.engine.InFlight(p.ID()),
		}
	}
	return out
}

// Pane returns the snapshot of one pane.
func (c *Controller) Pane(id runner.ID) (PaneView, bool) {
	for _, v := range c.Panes() {
		if v.ID == id {
			return v, true
		}
	}
	return PaneView{}, false
}

func (c *Controller) rebuildLocked() error {
	if err := c.layout.Rebuild(c.registry.Handles()); err != nil {
		c.logger.Error("layout rebuild failed", "error", err)
		return err
	}
	return nil
}

func (c *Controller) publish(events []event.Event) {
	for _, e := range events {
		c.bus.Publish(e)
	}
}
