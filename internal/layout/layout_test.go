package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Iron-Ham/pyexpl/internal/errors"
)

type fakeInstance struct {
	handles   []string
	opts      Options
	destroyed int
}

func (f *fakeInstance) Destroy() { f.destroyed++ }

type fakeSplitter struct {
	instances []*fakeInstance
	err       error
}

func (f *fakeSplitter) Split(handles []string, opts Options) (Instance, error) {
	if f.err != nil {
		return nil, f.err
	}
	inst := &fakeInstance{handles: handles, opts: opts}
	f.instances = append(f.instances, inst)
	return inst, nil
}

func (f *fakeSplitter) live() int {
	n := 0
	for _, inst := range f.instances {
		if inst.destroyed == 0 {
			n++
		}
	}
	return n
}

func TestCoordinator_RebuildReplacesPrevious(t *testing.T) {
	sp := &fakeSplitter{}
	c := NewCoordinator(sp, 100, 8, nil)

	require.NoError(t, c.Rebuild([]string{"output-a"}))
	require.NoError(t, c.Rebuild([]string{"output-a", "output-b"}))
	require.NoError(t, c.Rebuild([]string{"output-a", "output-b", "output-c"}))

	require.Len(t, sp.instances, 3)
	assert.Equal(t, 1, sp.instances[0].destroyed)
	assert.Equal(t, 1, sp.instances[1].destroyed)
	assert.Equal(t, 0, sp.instances[2].destroyed)
	assert.Equal(t, 1, sp.live(), "exactly one live layout")

	last := sp.instances[2]
	assert.Equal(t, []string{"output-a", "output-b", "output-c"}, last.handles)
	assert.Equal(t, 100, last.opts.MinSize)
	assert.Equal(t, 8, last.opts.GutterSize)
	assert.Equal(t, Vertical, last.opts.Direction)
	assert.InDeltaSlice(t, []float64{33.333, 33.333, 33.333}, last.opts.Sizes, 0.01)
}

func TestCoordinator_EmptyTearsDown(t *testing.T) {
	sp := &fakeSplitter{}
	c := NewCoordinator(sp, 1, 1, nil)

	require.NoError(t, c.Rebuild([]string{"output-a", "output-b"}))
	require.NoError(t, c.Rebuild(nil))

	assert.Nil(t, c.Current())
	assert.Empty(t, c.Handles())
	assert.Equal(t, 0, sp.live())
	assert.Len(t, sp.instances, 1, "empty rebuild must not create a layout")

	// Tearing down twice is harmless.
	require.NoError(t, c.Rebuild([]string{}))
	assert.Equal(t, 1, sp.instances[0].destroyed)
}

func TestCoordinator_Idempotent(t *testing.T) {
	sp := &fakeSplitter{}
	c := NewCoordinator(sp, 1, 1, nil)

	handles := []string{"output-x", "output-y"}
	require.NoError(t, c.Rebuild(handles))
	require.NoError(t, c.Rebuild(handles))

	assert.Equal(t, 1, sp.live())
	assert.Equal(t, sp.instances[0].handles, sp.instances[1].handles)
	assert.Equal(t, sp.instances[0].opts, sp.instances[1].opts)
}

func TestCoordinator_HandlesAreCopied(t *testing.T) {
	sp := &fakeSplitter{}
	c := NewCoordinator(sp, 1, 1, nil)

	handles := []string{"output-x"}
	require.NoError(t, c.Rebuild(handles))
	handles[0] = "mutated"

	assert.Equal(t, []string{"output-x"}, c.Handles())
	assert.Equal(t, []string{"output-x"}, sp.instances[0].handles)
}

func TestCoordinator_SplitError(t *testing.T) {
	sp := &fakeSplitter{}
	c := NewCoordinator(sp, 1, 1, nil)
	require.NoError(t, c.Rebuild([]string{"output-a"}))

	sp.err = errors.New("widget exploded")
	err := c.Rebuild([]string{"output-a", "output-b"})
	require.Error(t, err)

	assert.Nil(t, c.Current())
	assert.Equal(t, 0, sp.live(), "previous layout is destroyed even when the new split fails")
}

func TestEqualSizes(t *testing.T) {
	assert.Nil(t, EqualSizes(0))
	assert.Equal(t, []float64{100}, EqualSizes(1))
	assert.Equal(t, []float64{25, 25, 25, 25}, EqualSizes(4))
}

func TestNop(t *testing.T) {
	c := NewCoordinator(Nop{}, 1, 1, nil)
	require.NoError(t, c.Rebuild([]string{"output-a"}))
	assert.NotNil(t, c.Current())
}
