package heap

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/GeorgeMLP/malloclab/substrate"
)

func newTestAllocator(t *testing.T, kind Kind) *Allocator {
	t.Helper()
	a := NewAllocator(kind, substrate.NewMemArena(0))
	if err := a.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return a
}

func TestTagAllocAndIsAlloc(t *testing.T) {
	a := newTestAllocator(t, SegList)
	a.arena.Extend(64)
	off := a.heapStart

	a.tagAlloc(off, 32)
	assert.True(t, a.isAlloc(off))
	assert.Equal(t, 32, a.blockSize(off))
}

func TestTagFreeHeaderFooterMatch(t *testing.T) {
	a := newTestAllocator(t, SegList)
	a.arena.Extend(64)
	off := a.heapStart

	a.tagFree(off, 32)
	assert.False(t, a.isAlloc(off))
	assert.Equal(t, 32, a.blockSize(off))
	assert.Equal(t, uint32(32), a.arena.Uint32(footerOffset(off, 32)))
}

func TestTagFree8Degenerate(t *testing.T) {
	a := newTestAllocator(t, SegList)
	a.arena.Extend(64)
	off := a.heapStart

	a.tagFree8(off)
	assert.Equal(t, minFreeSize, a.blockSize(off))
	assert.Equal(t, uint32(minFreeSize), a.arena.Uint32(off+HeaderSize))
}

func TestPrevFreeBitRealHeader(t *testing.T) {
	a := newTestAllocator(t, SegList)
	a.arena.Extend(64)
	off := a.heapStart
	succ := off + 16

	a.tagAlloc(off, 16)
	a.tagAlloc(succ, 16)
	assert.False(t, a.prevFreeBit(succ))

	a.tagPrevFreeAt(succ)
	assert.True(t, a.prevFreeBit(succ))

	a.tagPrevAllocAt(succ)
	assert.False(t, a.prevFreeBit(succ))
}

func TestPrevFreeBitHiTagSentinel(t *testing.T) {
	a := newTestAllocator(t, SegList)
	high := a.arena.High()

	a.tagPrevFreeAt(high)
	assert.True(t, a.hiTag)
	assert.True(t, a.prevFreeBit(high))

	a.tagPrevAllocAt(high)
	assert.False(t, a.hiTag)
	assert.False(t, a.prevFreeBit(high))
}

func TestClassIndexRanges(t *testing.T) {
	assert.Equal(t, 0, classIndex(16))
	assert.Equal(t, 0, classIndex(31))
	assert.Equal(t, 1, classIndex(32))
	assert.Equal(t, ListLen-1, classIndex(1<<30))
}

func TestSmallClassIndex(t *testing.T) {
	assert.Equal(t, 0, smallClassIndex(16))
	assert.Equal(t, 1, smallClassIndex(24))
	assert.Equal(t, Threshold-1, smallClassIndex(smallMax))
}
