// Package pane holds the output panes of the active runners and the registry
// that keeps them in display order.
//
// A Pane is bound to exactly one runner ID for its whole life. Removing the
// runner moves its pane to the terminal Removed state; anything that still
// holds the pointer (an in-flight request, for instance) can see that and
// drop its result.
package pane

import (
	"fmt"

	"github.com/Iron-Ham/pyexpl/internal/errors"
	"github.com/Iron-Ham/pyexpl/internal/runner"
)

// State is the lifecycle state of a Pane.
type State int

const (
	// Idle panes have never been run.
	Idle State = iota
	// Pending panes have at least one request outstanding and no newer result.
	Pending
	// Rendered panes show the output of the most recent response.
	Rendered
	// Failed panes show a transport failure.
	Failed
	// Removed panes are gone from the registry. Terminal.
	Removed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Rendered:
		return "rendered"
	case Failed:
		return "failed"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// HandlePrefix prefixes every pane's layout handle.
const HandlePrefix = "output-"

// Handle returns the layout handle for id.
func Handle(id runner.ID) string {
	return HandlePrefix + string(id)
}

// Pane is the output container of one runner. Panes are not safe for
// concurrent use; the owning Controller serializes access.
type Pane struct {
	id     runner.ID
	state  State
	output string
	err    error
	seq    uint64
}

func newPane(id runner.ID) *Pane {
	return &Pane{id: id, state: Idle}
}

// ID returns the runner the pane is bound to.
func (p *Pane) ID() runner.ID { return p.id }

// Handle returns the pane's layout handle.
func (p *Pane) Handle() string { return Handle(p.id) }

// State returns the current lifecycle state.
func (p *Pane) State() State { return p.state }

// Output returns the rendered text. Empty until the first render.
func (p *Pane) Output() string { return p.output }

// Err returns the failure shown by a Failed pane.
func (p *Pane) Err() error { return p.err }

// Seq is bumped on every dispatch so callers can tell runs apart.
func (p *Pane) Seq() uint64 { return p.seq }

// Live reports whether the pane still belongs to the registry.
func (p *Pane) Live() bool { return p.state != Removed }

// MarkPending records a new dispatch and returns its sequence number. Earlier
// output stays visible until a result replaces it.
func (p *Pane) MarkPending() (uint64, error) {
	if err := p.refuseRemoved("mark pending"); err != nil {
		return 0, err
	}
	p.seq++
	p.state = Pending
	return p.seq, nil
}

// Render replaces the pane's content with text.
func (p *Pane) Render(text string) error {
	if err := p.refuseRemoved("render"); err != nil {
		return err
	}
	p.output = text
	p.err = nil
	p.state = Rendered
	return nil
}

// Fail shows err in the pane using message as the visible text.
func (p *Pane) Fail(message string, err error) error {
	if rerr := p.refuseRemoved("fail"); rerr != nil {
		return rerr
	}
	p.output = message
	p.err = err
	p.state = Failed
	return nil
}

func (p *Pane) markRemoved() {
	p.state = Removed
}

func (p *Pane) refuseRemoved(op string) error {
	if p.state == Removed {
		return errors.NewPaneError(op, errors.ErrPaneRemoved).
			WithRunner(string(p.id)).
			WithSeverity(errors.SeverityDebug)
	}
	return nil
}

// String implements fmt.Stringer for diagnostics.
func (p *Pane) String() string {
	return fmt.Sprintf("pane(%s, %s, seq=%d)", p.id, p.state, p.seq)
}
