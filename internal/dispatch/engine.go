// Package dispatch fans a run out to every active runner and reconciles each
// asynchronous result back into the pane it was issued for.
//
// RunAll only starts work. Each request runs on its own goroutine and hands
// its Completion to the Deliver hook, which must get it back to the goroutine
// that owns the pane registry (the Controller's lock in headless mode, the
// bubbletea Update loop in the TUI). Reconcile is then called there.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"

	"github.com/Iron-Ham/pyexpl/internal/logging"
	"github.com/Iron-Ham/pyexpl/internal/pane"
	"github.com/Iron-Ham/pyexpl/internal/runner"
)

// Request is one execution request: a code snapshot for one runner.
type Request struct {
	ID       string
	RunnerID runner.ID
	Label    runner.Label
	Code     string
}

// Response is a successful execution result.
type Response struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr,omitempty"`
	ExitCode int    `json:"exit_code"`
}

// Executor sends a request to the execution backend. Any returned error is
// treated as a transport failure.
type Executor interface {
	Execute(ctx context.Context, req Request) (Response, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, req Request) (Response, error)

// Execute implements Executor.
func (f ExecutorFunc) Execute(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

// Completion is the result of one request, tagged with the pane instance it
// was issued for.
type Completion struct {
	Request  Request
	Pane     *pane.Pane
	Seq      uint64
	Response Response
	Err      error
	Duration time.Duration
}

// Outcome says what Reconcile did with a Completion.
type Outcome int

const (
	// Discarded completions arrived for a pane that is no longer live.
	Discarded Outcome = iota
	// Rendered completions were shown in their pane.
	Rendered
	// FailedOutcome completions carried a transport failure that was shown in
	// their pane.
	FailedOutcome
)

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case Rendered:
		return "rendered"
	case FailedOutcome:
		return "failed"
	default:
		return "discarded"
	}
}

// FailurePrefix starts the text of a pane whose request failed.
const FailurePrefix = "failed (see log for details). "

// Engine issues requests and reconciles their results.
type Engine struct {
	executor Executor
	registry *pane.Registry
	deliver  func(Completion)
	logger   *logging.Logger

	wg conc.WaitGroup

	mu       sync.Mutex
	inflight map[*pane.Pane]int
}

// NewEngine creates an Engine. deliver is called once per request, from the
// request's goroutine, with its Completion.
func NewEngine(executor Executor, registry *pane.Registry, deliver func(Completion), logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Engine{
		executor: executor,
		registry: registry,
		deliver:  deliver,
		logger:   logger.WithComponent("dispatch"),
		inflight: make(map[*pane.Pane]int),
	}
}

// RunAll issues one request per runner in snapshot that still has a live
// pane, marking each pane pending. It returns the requests issued without
// waiting for any of them. Must be called by the registry's owner.
func (e *Engine) RunAll(ctx context.Context, code string, snapshot runner.Set) []Request {
	issued := make([]Request, 0, len(snapshot))
	for _, id := range snapshot {
		p := e.registry.Get(id)
		if p == nil {
			e.logger.Debug("runner removed before dispatch, skipping", "runner", string(id))
			continue
		}
		seq, err := p.MarkPending()
		if err != nil {
			continue
		}

		req := Request{
			ID:       uuid.NewString(),
			RunnerID: id,
			Label:    runner.WireLabel(id),
			Code:     code,
		}
		issued = append(issued, req)

		e.mu.Lock()
		e.inflight[p]++
		e.mu.Unlock()

		e.wg.Go(func() {
			e.deliver(e.execute(ctx, req, p, seq))
		})
	}
	return issued
}

// execute runs one request, turning a panicking Executor into a failure.
func (e *Engine) execute(ctx context.Context, req Request, p *pane.Pane, seq uint64) Completion {
	c := Completion{Request: req, Pane: p, Seq: seq}
	start := time.Now()

	var pc panics.Catcher
	pc.Try(func() {
		c.Response, c.Err = e.executor.Execute(ctx, req)
	})
	if r := pc.Recovered(); r != nil {
		c.Response, c.Err = Response{}, r.AsError()
	}

	c.Duration = time.Since(start)
	return c
}

// Reconcile applies c to its pane if that pane is still the registry's live
// pane for the runner. Results are applied in arrival order: a slower,
// older request that lands after a newer one overwrites it. Must be called
// by the registry's owner.
func (e *Engine) Reconcile(c Completion) Outcome {
	id := c.Request.RunnerID
	logger := e.logger.WithRunner(string(id)).WithRequest(c.Request.ID)

	e.mu.Lock()
	if e.inflight[c.Pane] > 0 {
		e.inflight[c.Pane]--
	}
	if e.inflight[c.Pane] == 0 {
		delete(e.inflight, c.Pane)
	}
	e.mu.Unlock()

	if live := e.registry.Get(id); live == nil || live != c.Pane || !c.Pane.Live() {
		logger.Debug("discarding result for removed pane", "seq", c.Seq, "error", c.Err)
		return Discarded
	}

	if c.Err != nil {
		logger.Error("run failed", "error", c.Err, "label", string(c.Request.Label), "duration", c.Duration)
		if err := c.Pane.Fail(FailurePrefix+c.Err.Error(), c.Err); err != nil {
			return Discarded
		}
		return FailedOutcome
	}

	if err := c.Pane.Render(RenderText(c.Response)); err != nil {
		return Discarded
	}
	logger.Info("run completed", "exit_code", c.Response.ExitCode, "duration", c.Duration)
	return Rendered
}

// RenderText is what a pane shows for resp: stdout verbatim, followed by
// stderr when the exit code is non-zero.
func RenderText(resp Response) string {
	if resp.ExitCode != 0 {
		return resp.Stdout + resp.Stderr
	}
	return resp.Stdout
}

// InFlight returns the number of outstanding requests issued for the live
// pane of id. Requests issued for a pane that has since been removed never
// count against a pane re-added for the same runner. Must be called by the
// registry's owner.
func (e *Engine) InFlight(id runner.ID) int {
	p := e.registry.Get(id)
	if p == nil {
		return 0
	}
	return e.PaneInFlight(p)
}

// PaneInFlight returns the number of outstanding requests issued for p.
func (e *Engine) PaneInFlight(p *pane.Pane) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inflight[p]
}

// Wait blocks until every issued request has been delivered.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// String implements fmt.Stringer.
func (c Completion) String() string {
	return fmt.Sprintf("completion(%s, seq=%d, err=%v)", c.Request.RunnerID, c.Seq, c.Err)
}
