// Package layout keeps a split-pane widget consistent with the ordered list of
// pane handles. The widget itself is a collaborator: the TUI provides one, the
// headless front ends use a no-op.
package layout

import (
	"fmt"
	"slices"

	"github.com/Iron-Ham/pyexpl/internal/logging"
)

// Direction is the axis panes are stacked along.
type Direction int

const (
	Vertical Direction = iota
	Horizontal
)

// Options are passed to the Splitter on every rebuild.
type Options struct {
	// Sizes are percentages, one per handle, summing to 100.
	Sizes      []float64
	MinSize    int
	GutterSize int
	Direction  Direction
}

// Instance is a live split layout.
type Instance interface {
	// Destroy tears the layout down, gutters included.
	Destroy()
}

// Splitter lays out containers identified by handle.
type Splitter interface {
	Split(handles []string, opts Options) (Instance, error)
}

// Coordinator owns at most one live Instance and replaces it wholesale on
// every Rebuild.
type Coordinator struct {
	splitter   Splitter
	minSize    int
	gutterSize int
	direction  Direction
	logger     *logging.Logger

	current Instance
	handles []string
}

// NewCoordinator creates a Coordinator. minSize and gutterSize are forwarded
// to the Splitter unchanged.
func NewCoordinator(splitter Splitter, minSize, gutterSize int, logger *logging.Logger) *Coordinator {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Coordinator{
		splitter:   splitter,
		minSize:    minSize,
		gutterSize: gutterSize,
		direction:  Vertical,
		logger:     logger.WithComponent("layout"),
	}
}

// Rebuild destroys the current layout, if any, and lays out handles with
// equal sizes. An empty list leaves no layout. Rebuilding with the same
// handles yields an equivalent layout.
func (c *Coordinator) Rebuild(handles []string) error {
	if c.current != nil {
		c.current.Destroy()
		c.current = nil
		c.handles = nil
	}
	if len(handles) == 0 {
		c.logger.Debug("layout torn down")
		return nil
	}

	opts := Options{
		Sizes:      EqualSizes(len(handles)),
		MinSize:    c.minSize,
		GutterSize: c.gutterSize,
		Direction:  c.direction,
	}
	inst, err := c.splitter.Split(slices.Clone(handles), opts)
	if err != nil {
		return fmt.Errorf("split %d panes: %w", len(handles), err)
	}
	c.current = inst
	c.handles = slices.Clone(handles)
	c.logger.Debug("layout rebuilt", "panes", len(handles))
	return nil
}

// Current returns the live layout or nil.
func (c *Coordinator) Current() Instance {
	return c.current
}

// Handles returns the handles of the live layout.
func (c *Coordinator) Handles() []string {
	return slices.Clone(c.handles)
}

// EqualSizes returns n percentages of 100/n each.
func EqualSizes(n int) []float64 {
	if n <= 0 {
		return nil
	}
	sizes := make([]float64, n)
	for i := range sizes {
		sizes[i] = 100 / float64(n)
	}
	return sizes
}

// Nop is a Splitter for front ends without a visual layout.
type Nop struct{}

// Split implements Splitter.
func (Nop) Split([]string, Options) (Instance, error) { return nopInstance{}, nil }

type nopInstance struct{}

func (nopInstance) Destroy() {}
