package heap

// Coalescing: merging a newly-freed block with whichever of its physical
// neighbours are themselves free, before handing the result to
// freeInsert. Grounded on §4.D and on lldb.Allocator.realloc's four-way
// switch over (left free?, right free?) - the same four cases appear
// here, just split from realloc's in-place-grow logic into a standalone
// release path.

// coalesce merges the block [off, off+size) with a free physical
// predecessor and/or successor, and returns the resulting (off, size) of
// the merged, not-yet-indexed free region. It does not touch the free
// index itself - callers index the result via freeInsert once they know
// its final extent.
func (a *Allocator) coalesce(off, size int) (int, int) {
	if a.prevFreeBit(off) {
		predFooter := off - HeaderSize
		predSize := sizeOf(a.arena.Uint32(predFooter))
		predOff := off - predSize
		if predSize == minFreeSize {
			// The degenerate 8-byte block is never indexed, so there
			// is nothing to remove from the free index.
		} else {
			a.freeRemove(predOff, predSize)
		}
		off = predOff
		size += predSize
	}

	succ := off + size
	if succ < a.arena.High() && !a.isAlloc(succ) {
		succSize := a.blockSize(succ)
		if succSize == minFreeSize {
			// A degenerate successor was never indexed either, but we
			// still need to read past it correctly; nothing to remove.
		} else {
			a.freeRemove(succ, succSize)
		}
		size += succSize
	}

	return off, size
}

// release implements §4.D Release: mark [off, off+size) free, coalesce
// with free physical neighbours, and index whatever results.
func (a *Allocator) release(off, size int) {
	off, size = a.coalesce(off, size)
	a.freeInsert(off, size)
}
