package heap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckHeapPassesOnHealthyHeap(t *testing.T) {
	eachKind(t, func(t *testing.T, kind Kind) {
		a := newTestAllocator(t, kind)

		ptrs := make([]Ptr, 0, 8)
		for i := 0; i < 8; i++ {
			p, err := a.Allocate(16 * (i + 1))
			require.NoError(t, err)
			ptrs = append(ptrs, p)
		}
		for i := 0; i < len(ptrs); i += 2 {
			a.Release(ptrs[i])
		}

		assert.NotPanics(t, func() { a.CheckHeap(0) })
	})
}

func TestCheckHeapCatchesAdjacentFreeBlocks(t *testing.T) {
	a := newTestAllocator(t, SegList)

	p1, err := a.Allocate(32)
	require.NoError(t, err)
	p2, err := a.Allocate(32)
	require.NoError(t, err)

	off1 := toOffset(p1)
	off2 := toOffset(p2)
	size1 := a.blockSize(off1)
	size2 := a.blockSize(off2)

	// Bypass Release's coalescing to fabricate two physically adjacent
	// free blocks, an I5 violation CheckHeap must catch.
	a.tagFree(off1, size1)
	a.tagFree(off2, size2)

	assert.Panics(t, func() { a.CheckHeap(0) })
}

func TestCheckHeapCatchesFooterMismatch(t *testing.T) {
	a := newTestAllocator(t, SegList)

	p, err := a.Allocate(64)
	require.NoError(t, err)
	off := toOffset(p)
	a.Release(p)
	size := a.blockSize(off)

	a.arena.SetUint32(footerOffset(off, size), uint32(size+8))

	assert.Panics(t, func() { a.CheckHeap(0) })
}
