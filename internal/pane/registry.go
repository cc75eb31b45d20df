package pane

import (
	"github.com/Iron-Ham/pyexpl/internal/errors"
	"github.com/Iron-Ham/pyexpl/internal/runner"
)

// Registry is the ordered set of live panes, keyed by runner ID. The order is
// the order of addition and is the order the layout shows.
type Registry struct {
	order runner.Set
	panes map[runner.ID]*Pane
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{panes: make(map[runner.ID]*Pane)}
}

// Add creates a pane for id and appends it. Adding a live id returns an
// *errors.AlreadyExistsError and leaves the registry unchanged.
func (r *Registry) Add(id runner.ID) (*Pane, error) {
	if id == "" {
		return nil, errors.NewValidationError("runner id must not be empty").WithField("runner")
	}
	if _, ok := r.panes[id]; ok {
		return nil, errors.NewAlreadyExistsError("runner", string(id)).WithCause(errors.ErrPaneExists)
	}
	p := newPane(id)
	r.panes[id] = p
	r.order = append(r.order, id)
	return p, nil
}

// Remove deletes id and marks its pane Removed. Removing an absent id is a
// no-op. It reports whether a pane was removed.
func (r *Registry) Remove(id runner.ID) bool {
	p, ok := r.panes[id]
	if !ok {
		return false
	}
	p.markRemoved()
	delete(r.panes, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Get returns the live pane for id, or nil.
func (r *Registry) Get(id runner.ID) *Pane {
	return r.panes[id]
}

// IDs returns a copy of the ordered runner set.
func (r *Registry) IDs() runner.Set {
	return r.order.Clone()
}

// Panes returns the live panes in order.
func (r *Registry) Panes() []*Pane {
	out := make([]*Pane, len(r.order))
	for i, id := range r.order {
		out[i] = r.panes[id]
	}
	return out
}

// Handles returns the layout handles in order.
func (r *Registry) Handles() []string {
	out := make([]string, len(r.order))
	for i, id := range r.order {
		out[i] = Handle(id)
	}
	return out
}

// Len returns the number of live panes.
func (r *Registry) Len() int {
	return len(r.order)
}

// RestoreAll adds every id in set that is not already live, in order, and
// returns the panes that were created. Duplicates are skipped silently.
func (r *Registry) RestoreAll(set runner.Set) []*Pane {
	var created []*Pane
	for _, id := range set {
		p, err := r.Add(id)
		if err != nil {
			continue
		}
		created = append(created, p)
	}
	return created
}
