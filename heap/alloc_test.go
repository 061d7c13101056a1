package heap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eachKind(t *testing.T, f func(t *testing.T, kind Kind)) {
	for _, kind := range []Kind{SegList, Splay} {
		kind := kind
		t.Run(kind.String(), func(t *testing.T) { f(t, kind) })
	}
}

func TestAllocateBasic(t *testing.T) {
	eachKind(t, func(t *testing.T, kind Kind) {
		a := newTestAllocator(t, kind)

		p, err := a.Allocate(40)
		require.NoError(t, err)
		assert.NotEqual(t, nilPtr, p)

		off := toOffset(p)
		assert.True(t, a.isAlloc(off))
		assert.GreaterOrEqual(t, a.blockSize(off), 40+HeaderSize)
	})
}

func TestAllocateZeroSizeErrors(t *testing.T) {
	eachKind(t, func(t *testing.T, kind Kind) {
		a := newTestAllocator(t, kind)
		_, err := a.Allocate(0)
		assert.Equal(t, ErrZeroSize, err)
	})
}

func TestReleaseThenReallocateReusesSpace(t *testing.T) {
	eachKind(t, func(t *testing.T, kind Kind) {
		a := newTestAllocator(t, kind)

		p1, err := a.Allocate(64)
		require.NoError(t, err)
		highAfterFirst := a.arena.High()

		a.Release(p1)

		p2, err := a.Allocate(64)
		require.NoError(t, err)
		assert.Equal(t, highAfterFirst, a.arena.High(), "freed space should be reused, not re-extended")
		assert.Equal(t, p1, p2)
	})
}

func TestAllocateWritesAreIsolated(t *testing.T) {
	eachKind(t, func(t *testing.T, kind Kind) {
		a := newTestAllocator(t, kind)

		p1, err := a.Allocate(32)
		require.NoError(t, err)
		p2, err := a.Allocate(32)
		require.NoError(t, err)

		a.arena.WriteAt([]byte{1, 2, 3, 4}, toOffset(p1)+HeaderSize)
		a.arena.WriteAt([]byte{9, 9, 9, 9}, toOffset(p2)+HeaderSize)

		buf := make([]byte, 4)
		a.arena.ReadAt(buf, toOffset(p1)+HeaderSize)
		assert.Equal(t, []byte{1, 2, 3, 4}, buf)
	})
}

func TestResizeNilActsAsAllocate(t *testing.T) {
	eachKind(t, func(t *testing.T, kind Kind) {
		a := newTestAllocator(t, kind)
		p, err := a.Resize(nilPtr, 48)
		require.NoError(t, err)
		assert.NotEqual(t, nilPtr, p)
	})
}

func TestResizeZeroActsAsRelease(t *testing.T) {
	eachKind(t, func(t *testing.T, kind Kind) {
		a := newTestAllocator(t, kind)
		p, err := a.Allocate(48)
		require.NoError(t, err)

		p2, err := a.Resize(p, 0)
		require.NoError(t, err)
		assert.Equal(t, nilPtr, p2)
	})
}

func TestResizeShrinkInPlace(t *testing.T) {
	eachKind(t, func(t *testing.T, kind Kind) {
		a := newTestAllocator(t, kind)
		p, err := a.Allocate(200)
		require.NoError(t, err)
		off := toOffset(p)

		p2, err := a.Resize(p, 16)
		require.NoError(t, err)
		assert.Equal(t, off, toOffset(p2), "shrinking must not move the block")
	})
}

// TestResizeShrinkCoalescesFreeSuccessor covers §4.E's "s < old" branch
// when the shrunk tail lands next to an already-free physical
// successor: the tail must be coalesced into that successor rather than
// indexed as a separate block, or CheckHeap's I5 (no adjacent free
// blocks) fails.
func TestResizeShrinkCoalescesFreeSuccessor(t *testing.T) {
	eachKind(t, func(t *testing.T, kind Kind) {
		a := newTestAllocator(t, kind)

		p, err := a.Allocate(4000)
		require.NoError(t, err)
		off := toOffset(p)
		original := a.blockSize(off)

		// Pin a successor, then free it, so there is a real free block
		// physically following p before the shrink.
		p2, err := a.Allocate(64)
		require.NoError(t, err)
		a.Release(p2)

		assert.NotPanics(t, func() { a.CheckHeap(0) })

		p3, err := a.Resize(p, 2000)
		require.NoError(t, err)
		assert.Equal(t, off, toOffset(p3), "shrinking must not move the block")
		assert.Less(t, a.blockSize(off), original, "block should have actually shrunk")

		assert.NotPanics(t, func() { a.CheckHeap(0) })
	})
}

func TestResizeGrowPreservesContent(t *testing.T) {
	eachKind(t, func(t *testing.T, kind Kind) {
		a := newTestAllocator(t, kind)
		p, err := a.Allocate(16)
		require.NoError(t, err)
		a.arena.WriteAt([]byte{5, 6, 7, 8}, toOffset(p)+HeaderSize)

		// Force a move by allocating a neighbour that pins the
		// original block's successor as allocated.
		_, err = a.Allocate(16)
		require.NoError(t, err)

		p2, err := a.Resize(p, 512)
		require.NoError(t, err)

		buf := make([]byte, 4)
		a.arena.ReadAt(buf, toOffset(p2)+HeaderSize)
		assert.Equal(t, []byte{5, 6, 7, 8}, buf)
	})
}

func TestCallocAllocateZeroesAndOverflow(t *testing.T) {
	eachKind(t, func(t *testing.T, kind Kind) {
		a := newTestAllocator(t, kind)

		p, err := a.CallocAllocate(4, 8)
		require.NoError(t, err)
		buf := make([]byte, 32)
		a.arena.ReadAt(buf, toOffset(p)+HeaderSize)
		for _, b := range buf {
			assert.Equal(t, byte(0), b)
		}

		_, err = a.CallocAllocate(1<<62, 1<<62)
		assert.Error(t, err)
	})
}

func TestCoalesceMergesFreedNeighbours(t *testing.T) {
	eachKind(t, func(t *testing.T, kind Kind) {
		a := newTestAllocator(t, kind)

		p1, err := a.Allocate(32)
		require.NoError(t, err)
		p2, err := a.Allocate(32)
		require.NoError(t, err)
		p3, err := a.Allocate(32)
		require.NoError(t, err)

		a.Release(p1)
		a.Release(p3)
		a.Release(p2)

		// The whole run should now be a single free block; a
		// subsequent large-enough allocation should reuse it without
		// growing the heap.
		highBefore := a.arena.High()
		_, err = a.Allocate(3*32 + 2*HeaderSize)
		require.NoError(t, err)
		assert.Equal(t, highBefore, a.arena.High())
	})
}
