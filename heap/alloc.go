package heap

import (
	"github.com/GeorgeMLP/malloclab/substrate"
)

// Allocator is the dynamic-memory engine of §4: a boundary-tagged,
// first-fit heap backed by an Arena, indexed by either a SegList or a
// Splay free index (see const.go's Kind). The zero value is not usable;
// construct one with NewAllocator and call Init before any other method.
type Allocator struct {
	arena Arena
	kind  Kind

	heapStart int // byte offset where block storage begins, past the root array
	hiTag     bool
	splayRoot int // Splay only; always nullOffset for Kind == SegList
}

// NewAllocator constructs an Allocator of the given Kind over arena.
// Call Init before use.
func NewAllocator(kind Kind, arena Arena) *Allocator {
	return &Allocator{arena: arena, kind: kind, splayRoot: nullOffset}
}

// Init lays out the free-index root array at the base of the arena and
// resets the allocator to an empty heap. It must be called exactly once,
// before any Allocate/Release/Resize/CallocAllocate call. Every root slot
// starts as nullOffset, and the array is padded so that block headers sit
// HeaderSize bytes before an Alignment boundary, which makes every payload
// Ptr Alignment-aligned.
func (a *Allocator) Init() error {
	rootWords := ListLen
	if a.kind == Splay {
		rootWords = Threshold
	}
	size := align8(rootWords*HeaderSize) + HeaderSize

	old, ok := a.arena.Extend(size)
	if !ok || old != a.arena.Low() {
		return ErrOOM
	}
	a.arena.Zero(old, size)
	for i := 0; i < rootWords; i++ {
		a.setRootHead(i, nullOffset)
	}

	a.heapStart = old + size
	a.hiTag = false
	a.splayRoot = nullOffset
	return nil
}

// place carves a block of reqSize bytes out of a run of available bytes
// starting at off, tags it allocated, preserves off's own prev-free bit,
// and indexes whatever remainder is left over (if any) as a new free
// block. It is shared by the first-fit path, the heap-growth path, and
// in-place Resize.
func (a *Allocator) place(off, available, reqSize int) Ptr {
	oldPrevFree := a.prevFreeBit(off)
	remainder := available - reqSize
	allocSize := reqSize
	if remainder == 0 {
		allocSize = available
	}

	a.tagAlloc(off, allocSize)
	if oldPrevFree {
		a.arena.SetUint32(off, a.header(off)|bitPrevFree)
	}

	if remainder > 0 {
		a.freeInsert(off+allocSize, remainder)
	} else {
		a.tagPrevAllocAt(off + allocSize)
	}
	return toPtr(off)
}

// Allocate is §4.E Allocate: first-fit search of the free index, falling
// back to extending the heap.
func (a *Allocator) Allocate(size int) (Ptr, error) {
	if size <= 0 {
		return nilPtr, ErrZeroSize
	}

	reqSize := align8(size + HeaderSize)
	if reqSize < minFreeSize {
		reqSize = minFreeSize
	}

	if off, ok := a.freeSearch(reqSize); ok {
		avail := a.blockSize(off)
		a.freeRemove(off, avail)
		return a.place(off, avail, reqSize), nil
	}

	return a.extendAndAllocate(reqSize)
}

// extendAndAllocate grows the heap to satisfy reqSize. If the heap's
// last block is currently free (hiTag set), it computes the shortfall
// needed beyond that block's existing size rather than extending by the
// full request, then merges the extension with it.
func (a *Allocator) extendAndAllocate(reqSize int) (Ptr, error) {
	lastFreeSize := 0
	if a.hiTag {
		lastFreeSize = sizeOf(a.arena.Uint32(a.arena.High() - HeaderSize))
	}

	growBy := reqSize - lastFreeSize
	if growBy < 0 {
		growBy = 0
	}
	if minGrow := a.kind.blockSize(); growBy < minGrow {
		growBy = minGrow
	}

	old, ok := a.arena.Extend(growBy)
	if !ok {
		return nilPtr, ErrOOM
	}

	off := old
	avail := growBy
	if lastFreeSize > 0 {
		off = old - lastFreeSize
		if lastFreeSize != minFreeSize {
			a.freeRemove(off, lastFreeSize)
		}
		avail = lastFreeSize + growBy
	}

	return a.place(off, avail, reqSize), nil
}

// Release is §4.E Release. A nilPtr, or a Ptr whose block header would lie
// outside [heapStart, High), is ignored.
func (a *Allocator) Release(ptr Ptr) {
	off := toOffset(ptr)
	if ptr == nilPtr || off < a.heapStart || off >= a.arena.High() {
		return
	}
	a.release(off, a.blockSize(off))
}

// growInPlace attempts to satisfy a Resize to reqSize without moving the
// block at off (current bytes), by merging with a free physical
// successor and, if that successor is also the heap's last block,
// extending past it. It reports ok == false when no in-place option
// exists and the caller must allocate-copy-release instead.
func (a *Allocator) growInPlace(off, current, reqSize int) (int, bool, error) {
	succ := off + current

	if succ == a.arena.High() {
		growBy := reqSize - current
		if growBy < 0 {
			growBy = 0
		}
		if growBy > 0 {
			if g := a.kind.blockSize(); growBy < g {
				growBy = g
			}
			if _, ok := a.arena.Extend(growBy); !ok {
				return 0, false, ErrOOM
			}
		}
		return current + growBy, true, nil
	}

	if a.isAlloc(succ) {
		return 0, false, nil
	}

	succSize := a.blockSize(succ)
	if succ+succSize == a.arena.High() {
		combined := current + succSize
		growBy := reqSize - combined
		if growBy < 0 {
			growBy = 0
		}
		if growBy > 0 {
			if g := a.kind.blockSize(); growBy < g {
				growBy = g
			}
			if _, ok := a.arena.Extend(growBy); !ok {
				return 0, false, ErrOOM
			}
		}
		if succSize != minFreeSize {
			a.freeRemove(succ, succSize)
		}
		return combined + growBy, true, nil
	}

	if current+succSize < reqSize {
		return 0, false, nil
	}

	if succSize != minFreeSize {
		a.freeRemove(succ, succSize)
	}
	return current + succSize, true, nil
}

// shrinkInPlace implements the s < old branch of Resize: carve reqSize
// bytes off the front of the block at off (current bytes) and, unlike
// place, absorb a free physical successor into the (current - reqSize)
// tail before indexing it - the tail's own successor is whatever used to
// follow the whole block, which may already be free, so leaving it
// un-coalesced would create an I5 adjacent-free-pair violation. Mirrors
// mm-splay tree.c's realloc shrink branch.
func (a *Allocator) shrinkInPlace(off, current, reqSize int) Ptr {
	oldPrevFree := a.prevFreeBit(off)
	remainder := current - reqSize
	allocSize := reqSize
	if remainder == 0 {
		allocSize = current
	}

	a.tagAlloc(off, allocSize)
	if oldPrevFree {
		a.arena.SetUint32(off, a.header(off)|bitPrevFree)
	}

	if remainder == 0 {
		return toPtr(off)
	}

	tailOff, tailSize := off+allocSize, remainder
	succ := off + current
	if succ < a.arena.High() && !a.isAlloc(succ) {
		succSize := a.blockSize(succ)
		if succSize != minFreeSize {
			a.freeRemove(succ, succSize)
		}
		tailSize += succSize
	}
	a.freeInsert(tailOff, tailSize)
	return toPtr(off)
}

// Resize is §4.E Resize: ptr == 0 behaves as Allocate, size <= 0 behaves
// as Release. Otherwise it shrinks in place, grows in place when a
// neighbouring free block (and, if necessary, fresh heap space) can
// satisfy the request, or falls back to allocate-copy-release.
func (a *Allocator) Resize(ptr Ptr, size int) (Ptr, error) {
	if ptr == nilPtr {
		return a.Allocate(size)
	}
	if size <= 0 {
		a.Release(ptr)
		return nilPtr, nil
	}

	off := toOffset(ptr)
	current := a.blockSize(off)
	reqSize := align8(size + HeaderSize)
	if reqSize < minFreeSize {
		reqSize = minFreeSize
	}

	if reqSize <= current {
		return a.shrinkInPlace(off, current, reqSize), nil
	}

	avail, ok, err := a.growInPlace(off, current, reqSize)
	if err != nil {
		return nilPtr, err
	}
	if ok {
		return a.place(off, avail, reqSize), nil
	}

	newPtr, err := a.Allocate(size)
	if err != nil {
		return nilPtr, err
	}

	n := current - HeaderSize
	if size < n {
		n = size
	}
	buf := make([]byte, n)
	a.arena.ReadAt(buf, off+HeaderSize)
	a.arena.WriteAt(buf, toOffset(newPtr)+HeaderSize)

	a.release(off, current)
	return newPtr, nil
}

// CallocAllocate is §4.E CallocAllocate: Allocate(nmemb*size), zeroed,
// with overflow checking on the multiplication.
func (a *Allocator) CallocAllocate(nmemb, size int) (Ptr, error) {
	if nmemb < 0 || size < 0 {
		return nilPtr, &ErrINVAL{Msg: "negative calloc argument", Arg: [2]int{nmemb, size}}
	}
	if nmemb == 0 || size == 0 {
		return nilPtr, ErrZeroSize
	}

	total := nmemb * size
	if total/size != nmemb {
		return nilPtr, &ErrINVAL{Msg: "calloc size overflow", Arg: [2]int{nmemb, size}}
	}

	ptr, err := a.Allocate(total)
	if err != nil {
		return nilPtr, err
	}
	a.arena.Zero(toOffset(ptr)+HeaderSize, total)
	return ptr, nil
}

var defaultAllocator *Allocator

// Default returns a process-wide Allocator backed by an unbounded
// MemArena, constructing and initializing it on first use. Most callers
// should prefer NewAllocator for an isolated heap; Default exists for
// parity with a C malloc library's implicit single heap.
func Default() *Allocator {
	if defaultAllocator == nil {
		a := NewAllocator(SegList, substrate.NewMemArena(0))
		if err := a.Init(); err != nil {
			panic(err)
		}
		defaultAllocator = a
	}
	return defaultAllocator
}
