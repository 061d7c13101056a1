package heap

import (
	"fmt"
	"log/slog"
)

// CheckHeap walks the whole heap and the free index, logging every
// violation it detects via log/slog, and then, if there was any, panics
// with the first one found. lineNo identifies the call site
// in caller-visible diagnostics, mirroring mm_checkheap(lineNo)'s usual
// call convention in the handout driver.
//
// Grounded on the multi-pass structure of lldb.Allocator.Verify, cut
// down to the invariants this design actually needs to hold (numbered
// to match the design's own I1-I7, not the order they're discovered in
// here):
//
//	I1  blocks tile the heap with no gaps and no overlaps - walking
//	    block headers from heapStart lands exactly on High()
//	I2  every block's size is a positive multiple of 8
//	I3  every free block's footer equals its header
//	I4  each block's prev-free bit agrees with whether its physical
//	    predecessor is actually free
//	I5  no two physically adjacent free blocks (they should have
//	    coalesced into one)
//	I6  every free block of size >= 16 is reachable via exactly one
//	    path through the free index, and every index entry is in fact
//	    free, at the recorded size, in the heap
//	I7  a SegList-indexed block's size falls within its bucket's range
func (a *Allocator) CheckHeap(lineNo int) {
	var violations []error
	report := func(e error) {
		violations = append(violations, e)
		slog.Error("heap check failed", "line", lineNo, "error", e)
	}

	type freeBlock struct {
		size  int
		found bool // set once matched against an index entry
	}
	physicalFree := make(map[int]*freeBlock)

	prevOff := -1
	prevFree := false
	off := a.heapStart
	for off < a.arena.High() {
		size := a.blockSize(off)
		if size <= 0 || size%Alignment != 0 {
			report(&ErrILSEQ{Kind: "I2", Off: off, Detail: fmt.Sprintf("bad block size %d", size)})
			break
		}

		alloc := a.isAlloc(off)
		if !alloc {
			footer := a.arena.Uint32(footerOffset(off, size))
			if sizeOf(footer) != size {
				report(&ErrILSEQ{Kind: "I3", Off: off, Detail: "header/footer size mismatch"})
			}
			if prevFree {
				report(&ErrILSEQ{Kind: "I5", Off: off, Detail: fmt.Sprintf("adjacent free block at %#x", prevOff)})
			}
			physicalFree[off] = &freeBlock{size: size}
		}

		if a.prevFreeBit(off) != prevFree {
			report(&ErrILSEQ{Kind: "I4", Off: off, Detail: fmt.Sprintf("prev-free bit says %v, predecessor is %v", a.prevFreeBit(off), prevFree)})
		}

		prevOff = off
		prevFree = !alloc
		off += size
	}
	if off != a.arena.High() {
		report(&ErrILSEQ{Kind: "I1", Off: off, Detail: fmt.Sprintf("block walk ended at %#x, heap high is %#x", off, a.arena.High())})
	}

	visit := func(off, size int) {
		fb, ok := physicalFree[off]
		if !ok {
			report(&ErrILSEQ{Kind: "I6", Off: off, Detail: "index entry is not a physically free block"})
			return
		}
		if fb.size != size {
			report(&ErrILSEQ{Kind: "I6", Off: off, Detail: fmt.Sprintf("index size %d, actual %d", size, fb.size)})
		}
		if fb.found {
			report(&ErrILSEQ{Kind: "I6", Off: off, Detail: "free block reachable more than once through the index"})
		}
		fb.found = true
	}

	switch a.kind {
	case SegList:
		a.segWalk(func(class, off, size int) {
			lo := 1 << uint(class+4)
			hi := 1 << uint(class+5)
			if class < ListLen-1 && (size < lo || size >= hi) {
				report(&ErrILSEQ{Kind: "I7", Off: off, Detail: fmt.Sprintf("size %d outside class %d range [%d,%d)", size, class, lo, hi)})
			}
			visit(off, size)
		})
	case Splay:
		a.splayWalk(visit)
	}

	for off, fb := range physicalFree {
		if fb.size >= minIndexedSize && !fb.found {
			report(&ErrILSEQ{Kind: "I6", Off: off, Detail: "physically free block missing from index"})
		}
	}

	if len(violations) > 0 {
		panic(violations[0])
	}
}
