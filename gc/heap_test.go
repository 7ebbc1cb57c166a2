package gc_test

import (
	"testing"

	"github.com/mna/corevm/gc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cell is a minimal gc.Object used only to exercise the heap in isolation.
type cell struct {
	hdr  gc.Header
	refs []*cell
	dead bool
}

func newCell(h *gc.Heap, refs ...*cell) *cell {
	c := &cell{refs: refs}
	h.Register(c, gc.KindAbstract, 8)
	return c
}

func (c *cell) GCHeader() *gc.Header { return &c.hdr }
func (c *cell) GCMark(h *gc.Heap, depth int) {
	for _, r := range c.refs {
		h.Mark(r, depth)
	}
}
func (c *cell) GCFinalize() { c.dead = true }

func TestCollectFreesUnreachable(t *testing.T) {
	h := gc.NewHeap(1)
	root := newCell(h)
	orphan := newCell(h)
	h.Root(root)

	h.Collect()

	assert.False(t, root.dead)
	assert.True(t, orphan.dead)
	assert.Equal(t, 1, h.Count())
}

func TestCollectKeepsTransitiveReachability(t *testing.T) {
	h := gc.NewHeap(1)
	leaf := newCell(h)
	root := newCell(h, leaf)
	h.Root(root)

	h.Collect()

	assert.False(t, leaf.dead)
	assert.False(t, root.dead)
}

func TestCyclicReferencesAreCollectedWhenUnrooted(t *testing.T) {
	h := gc.NewHeap(1)
	a := newCell(h)
	b := newCell(h, a)
	a.refs = []*cell{b} // a <-> b cycle, nothing external roots them

	h.Collect()

	assert.True(t, a.dead)
	assert.True(t, b.dead)
}

func TestRootUnrootBalance(t *testing.T) {
	h := gc.NewHeap(1)
	v := newCell(h)
	h.Root(v)
	h.Root(v)

	require.True(t, h.Unroot(v))
	h.Collect()
	assert.False(t, v.dead, "one root occurrence remains")

	require.True(t, h.Unroot(v))
	h.Collect()
	assert.True(t, v.dead)
}

func TestUnrootAll(t *testing.T) {
	h := gc.NewHeap(1)
	v := newCell(h)
	h.Root(v)
	h.Root(v)
	h.Root(v)

	assert.Equal(t, 3, h.UnrootAll(v))
	h.Collect()
	assert.True(t, v.dead)
}

func TestLockUnlockBalanced(t *testing.T) {
	h := gc.NewHeap(1)
	assert.False(t, h.Suspended())

	handle := h.Lock()
	assert.True(t, h.Suspended())

	inner := h.Lock()
	h.Unlock(inner)
	assert.True(t, h.Suspended(), "outer lock still held")

	h.Unlock(handle)
	assert.False(t, h.Suspended())
}

func TestCollectNoopWhileSuspended(t *testing.T) {
	h := gc.NewHeap(1)
	orphan := newCell(h)
	handle := h.Lock()
	h.Collect()
	assert.False(t, orphan.dead)
	h.Unlock(handle)

	h.Collect()
	assert.True(t, orphan.dead)
}

func TestDisabledObjectSurvives(t *testing.T) {
	h := gc.NewHeap(1)
	v := newCell(h)
	v.hdr.Disable()

	h.Collect()
	assert.False(t, v.dead)

	v.hdr.Enable()
	h.Collect()
	assert.True(t, v.dead)
}

func TestScratchFreedAfterCollection(t *testing.T) {
	h := gc.NewHeap(1)
	var finalized bool
	h.ScratchAlloc(16, func() { finalized = true })
	h.Collect()
	assert.True(t, finalized)
}

func TestMaybeCollectRespectsInterval(t *testing.T) {
	h := gc.NewHeap(1 << 20)
	orphan := newCell(h)
	assert.False(t, h.MaybeCollect())
	assert.False(t, orphan.dead)

	h.Pressure(1 << 21)
	assert.True(t, h.MaybeCollect())
	assert.True(t, orphan.dead)
}
