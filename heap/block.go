package heap

// Block header/footer codec.
//
// Every block starts with a 4-byte header word:
//
//	|<------------------- size ------------------->|a|-|p|
//
// size occupies the bits above bit 2 and is always a multiple of
// Alignment; bit 2 (value 4) is the alloc bit, set iff the block is
// currently allocated; bit 0 (value 1) is the prev-free bit, set iff the
// block's physical predecessor is free. Free blocks of size >= 16 repeat
// the same word, unchanged, as a footer in their last four bytes -
// that's what lets the coalescer walk backwards in O(1). A free block of
// exactly 8 bytes is degenerate: header and footer both equal 8, and
// such a block is never reachable through the free index, only by
// walking physical neighbours.
//
// This is the tagged-variant encoding spec.md's Design Notes describe:
// the alloc and prev-free bits (bits 2 and 0 of the bottom three) form
// the small state enum
// {alloc-prev-alloc, alloc-prev-free, free-prev-alloc, free-prev-free}.

const (
	bitPrevFree = 1
	bitAlloc    = 4
	sizeMask    = ^uint32(Alignment - 1)
)

func sizeOf(word uint32) int      { return int(word & sizeMask) }
func isAllocWord(word uint32) bool { return word&bitAlloc != 0 }
func prevFreeWord(word uint32) bool { return word&bitPrevFree != 0 }

// header reads the header word at off.
func (a *Allocator) header(off int) uint32 {
	return a.arena.Uint32(off)
}

// blockSize returns the size, in bytes, of the block starting at off.
func (a *Allocator) blockSize(off int) int {
	return sizeOf(a.header(off))
}

// isAlloc reports whether the block at off is allocated.
func (a *Allocator) isAlloc(off int) bool {
	return isAllocWord(a.header(off))
}

// footerOffset returns the offset of the footer word of a free block of
// the given size starting at off. Only meaningful for size >= 8.
func footerOffset(off, size int) int {
	return off + size - HeaderSize
}

// tagAlloc marks the block at off, of the given size, as allocated. It
// always clears the prev-free bit in the new header word; the caller
// must re-assert it afterwards (by OR-ing bitPrevFree into the header) if
// the predecessor was
// in fact free - this mirrors mm.c's TAG_ALLOC, which is a full word
// overwrite, and the realloc call sites that re-apply TAG_PREV_FREE right
// after.
func (a *Allocator) tagAlloc(off, size int) {
	a.arena.SetUint32(off, uint32(size)|bitAlloc)
}

// tagFree marks a block of size >= 16 as free, writing size into both
// header and footer. The successor's prev-free bit is not touched here;
// callers combine this with tagPrevFreeAt on the successor's address.
func (a *Allocator) tagFree(off, size int) {
	a.arena.SetUint32(off, uint32(size))
	a.arena.SetUint32(footerOffset(off, size), uint32(size))
}

// tagFree8 writes the degenerate 8-byte free block encoding.
func (a *Allocator) tagFree8(off int) {
	a.arena.SetUint32(off, minFreeSize)
	a.arena.SetUint32(off+HeaderSize, minFreeSize)
}

// succOf returns the offset one past the block [off, off+size).
func succOf(off, size int) int {
	return off + size
}

// tagPrevFreeAt sets the prev-free bit of whatever is at offset succ -
// either a real block header, or, if succ is at or beyond the current
// heap_high, the out-of-heap hiTag sentinel (§3's "Sentinel" and §4.A).
func (a *Allocator) tagPrevFreeAt(succ int) {
	if succ >= a.arena.High() {
		a.hiTag = true
		return
	}

	a.arena.SetUint32(succ, a.header(succ)|bitPrevFree)
}

// tagPrevAllocAt clears the prev-free bit of whatever is at offset succ,
// or the hiTag sentinel if succ is beyond heap_high.
func (a *Allocator) tagPrevAllocAt(succ int) {
	if succ >= a.arena.High() {
		a.hiTag = false
		return
	}

	a.arena.SetUint32(succ, a.header(succ)&^bitPrevFree)
}

// prevFreeBit reports the prev-free bit of the block at off, or the
// hiTag sentinel when off is at or beyond heap_high.
func (a *Allocator) prevFreeBit(off int) bool {
	if off >= a.arena.High() {
		return a.hiTag
	}

	return prevFreeWord(a.header(off))
}
