package heap

// The free index: segregated lists of power-of-two size classes (Kind ==
// SegList) or a hybrid of small exact-size buckets plus a size-ordered
// splay tree (Kind == Splay). Both satisfy the same three operations -
// insert, search, remove - described in §4.C of the design. Dispatch
// between the two happens here; the class-specific mechanics live in
// seglist.go and splay.go.
//
// free blocks carry their index links in-place, at fixed byte offsets
// from the block's own start:
//
//	+4  prev  (doubly-linked bucket list, both Kind values)
//	+8  next  (doubly-linked bucket list, both Kind values)
//
// Splay-tree-managed blocks (size > smallMax, Kind == Splay only) use
// two further words beyond that, described in splay.go.
//
// Every link word holds either a valid block offset or nullOffset (1).
// No block starts at offset 1, since the index root array occupies the
// front of the arena.

const (
	linkPrevOff = 4
	linkNextOff = 8
)

// linkAt reads the 4-byte word at off+rel as an offset.
func (a *Allocator) linkAt(off, rel int) int {
	return int(a.arena.Uint32(off + rel))
}

// setLinkAt writes val (an offset, possibly nullOffset) to off+rel.
func (a *Allocator) setLinkAt(off, rel, val int) {
	a.arena.SetUint32(off+rel, uint32(val))
}

// rootWordOffset returns the absolute arena offset of the i-th root-array
// slot. The root array sits at the front of [0, heapStart), reserved by
// Init.
func rootWordOffset(i int) int { return i * HeaderSize }

func (a *Allocator) rootHead(i int) int {
	return int(a.arena.Uint32(rootWordOffset(i)))
}

func (a *Allocator) setRootHead(i, off int) {
	a.arena.SetUint32(rootWordOffset(i), uint32(off))
}

// pushBucket inserts off at the head of the doubly-linked bucket list
// whose head lives in root-array slot i.
func (a *Allocator) pushBucket(i, off int) {
	head := a.rootHead(i)
	if head != nullOffset {
		a.setLinkAt(head, linkPrevOff, off)
	}
	a.setLinkAt(off, linkNextOff, head)
	a.setLinkAt(off, linkPrevOff, nullOffset)
	a.setRootHead(i, off)
}

// removeBucket unlinks off from the doubly-linked bucket list whose head
// lives in root-array slot i, in O(1).
func (a *Allocator) removeBucket(i, off int) {
	prev := a.linkAt(off, linkPrevOff)
	next := a.linkAt(off, linkNextOff)
	if prev == nullOffset {
		a.setRootHead(i, next)
	} else {
		a.setLinkAt(prev, linkNextOff, next)
	}
	if next != nullOffset {
		a.setLinkAt(next, linkPrevOff, prev)
	}
}

// classIndex returns the SegList bucket index for size (class i covers
// [2^(i+4), 2^(i+5)), the last class is unbounded above).
func classIndex(size int) int {
	e := bitLen(uint32(size)) - 1 - 4
	if e < 0 {
		e = 0
	}
	if e > ListLen-1 {
		e = ListLen - 1
	}
	return e
}

func bitLen(v uint32) int {
	n := 0
	for v != 0 {
		n++
		v >>= 1
	}
	return n
}

// smallClassIndex returns the Splay small-bucket index for an exact size
// in [16, smallMax].
func smallClassIndex(size int) int {
	return (size - 16) / Alignment
}

// freeInsert is the shared entry point for §4.C Insert, handling the
// size == 0 and size == 8 special cases before delegating size >= 16 to
// the Kind-specific index.
func (a *Allocator) freeInsert(off, size int) {
	switch {
	case size == 0:
		// No trailing remainder: the caller is only signaling that
		// the block ending at off is allocated.
		a.tagPrevAllocAt(off)
	case size == minFreeSize:
		a.tagFree8(off)
		a.tagPrevFreeAt(off + minFreeSize)
	default:
		a.tagFree(off, size)
		a.indexInsert(off, size)
		a.tagPrevFreeAt(off + size)
	}
}

// freeSearch is the shared entry point for §4.C Search: first-fit across
// the index for a free block of size >= request (request is floored at
// 16, the smallest indexed size).
func (a *Allocator) freeSearch(request int) (off int, ok bool) {
	if request < minIndexedSize {
		request = minIndexedSize
	}
	return a.indexSearch(request)
}

// freeRemove is the shared entry point for §4.C Remove. size must be the
// block's current size (size >= 16; callers never remove degenerate or
// size-0 placeholders from the index).
func (a *Allocator) freeRemove(off, size int) {
	a.indexRemove(off, size)
}

// indexInsert/indexSearch/indexRemove dispatch to the Kind-specific free
// index implementation (seglist.go / splay.go).
func (a *Allocator) indexInsert(off, size int) {
	switch a.kind {
	case SegList:
		a.segInsert(off, size)
	case Splay:
		a.splayInsert(off, size)
	}
}

func (a *Allocator) indexSearch(request int) (int, bool) {
	switch a.kind {
	case SegList:
		return a.segSearch(request)
	case Splay:
		return a.splaySearch(request)
	}
	return 0, false
}

func (a *Allocator) indexRemove(off, size int) {
	switch a.kind {
	case SegList:
		a.segRemove(off, size)
	case Splay:
		a.splayRemove(off, size)
	}
}
