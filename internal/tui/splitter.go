package tui

import (
	"fmt"
	"sync"

	"github.com/Iron-Ham/pyexpl/internal/layout"
)

// paneSplitter is the layout.Splitter of the TUI: it divides the height of
// the output column between the pane handles it is given.
type paneSplitter struct {
	mu      sync.Mutex
	height  int
	current *paneLayout
	splits  int
}

// paneLayout is one live split. It is replaced wholesale on every rebuild.
type paneLayout struct {
	splitter  *paneSplitter
	handles   []string
	opts      layout.Options
	heights   []int
	destroyed bool
}

var _ layout.Splitter = (*paneSplitter)(nil)

func newPaneSplitter(height int) *paneSplitter {
	return &paneSplitter{height: height}
}

// Split implements layout.Splitter.
func (s *paneSplitter) Split(handles []string, opts layout.Options) (layout.Instance, error) {
	if len(opts.Sizes) != len(handles) {
		return nil, fmt.Errorf("split %d handles with %d sizes", len(handles), len(opts.Sizes))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	l := &paneLayout{
		splitter: s,
		handles:  append([]string(nil), handles...),
		opts:     opts,
	}
	l.heights = allocate(s.height, opts.Sizes, opts.MinSize, opts.GutterSize)
	s.current = l
	s.splits++
	return l, nil
}

// SetHeight changes the height of the output column and reflows the live
// layout, if any.
func (s *paneSplitter) SetHeight(h int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.height = h
	if s.current != nil {
		s.current.heights = allocate(h, s.current.opts.Sizes, s.current.opts.MinSize, s.current.opts.GutterSize)
	}
}

// Heights returns the line budget of every handle in the live layout.
func (s *paneSplitter) Heights() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int)
	if s.current == nil {
		return out
	}
	for i, h := range s.current.handles {
		out[h] = s.current.heights[i]
	}
	return out
}

// Gutter returns the gutter size of the live layout.
func (s *paneSplitter) Gutter() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return 0
	}
	return s.current.opts.GutterSize
}

// Destroy implements layout.Instance.
func (l *paneLayout) Destroy() {
	s := l.splitter
	s.mu.Lock()
	defer s.mu.Unlock()
	l.destroyed = true
	if s.current == l {
		s.current = nil
	}
}

// allocate divides total lines between panes by percentage. Every pane gets
// at least minSize lines and panes are separated by gutter lines. Lines lost
// to rounding go to the first panes. When total cannot satisfy the minimums
// the column overflows and the view clips it.
func allocate(total int, sizes []float64, minSize, gutter int) []int {
	n := len(sizes)
	heights := make([]int, n)
	if n == 0 {
		return heights
	}
	minSize = max(minSize, 1)

	avail := total - gutter*(n-1)
	if avail < n*minSize {
		for i := range heights {
			heights[i] = minSize
		}
		return heights
	}

	sum := 0
	for i, pct := range sizes {
		heights[i] = max(int(float64(avail)*pct/100), minSize)
		sum += heights[i]
	}
	for i := 0; sum < avail; i = (i + 1) % n {
		heights[i]++
		sum++
	}
	for i := n - 1; sum > avail; {
		if heights[i] > minSize {
			heights[i]--
			sum--
			continue
		}
		i--
	}
	return heights
}
