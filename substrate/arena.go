// A memory-only implementation of the sbrk-style heap substrate.

/*

Package substrate models the single external collaborator the heap
allocator depends on: a linear, grow-only region of bytes, reachable only
through Low, High and Extend, exactly as a real allocator would reach a
process's break segment through sbrk(2).

Arena addresses

All addresses an Arena hands out are byte offsets relative to Low(), never
negative, and stable for the Arena's lifetime: once Extend has returned an
offset, no later Extend call may invalidate bytes at or before that offset.
This is the property a literal growable []byte cannot guarantee (append may
reallocate and move the backing array), so MemArena is paged instead -
pages are allocated on demand and never moved, the same way lldb.MemFiler
backs a Filer with a sparse map of fixed-size pages rather than one flat
slice.

*/
package substrate

import (
	"encoding/binary"
	"io"

	"github.com/cznic/mathutil"
)

const (
	pageBits = 12
	pageSize = 1 << pageBits
	pageMask = pageSize - 1
)

// Arena is the heap provider the allocator core consumes. It is the
// "sbrk" abstraction: a byte region that can only grow, addressed by
// offsets relative to Low().
type Arena interface {
	// Low is the address of the first byte of the region. It never
	// changes after the Arena is created.
	Low() int

	// High is the address one past the last byte currently in the
	// region.
	High() int

	// Extend grows the region by n bytes (n must be > 0) and returns
	// the old value of High, or ok == false if the request cannot be
	// satisfied (substrate exhaustion).
	Extend(n int) (old int, ok bool)
}

var zeroPage [pageSize]byte

// MemArena is an in-process Arena backed by a sparse set of fixed-size
// pages, grounded on lldb.MemFiler. Addresses it returns remain valid for
// as long as the MemArena itself is reachable.
type MemArena struct {
	pages map[int]*[pageSize]byte
	size  int
	limit int // 0 means unbounded
}

// NewMemArena returns an empty MemArena. limit, if non-zero, caps the
// total number of bytes Extend will ever grant (modeling a machine with
// bounded address space); 0 means unbounded.
func NewMemArena(limit int) *MemArena {
	return &MemArena{pages: map[int]*[pageSize]byte{}, limit: limit}
}

// Low implements Arena.
func (m *MemArena) Low() int { return 0 }

// High implements Arena.
func (m *MemArena) High() int { return m.size }

// Extend implements Arena.
func (m *MemArena) Extend(n int) (old int, ok bool) {
	if n <= 0 {
		return m.size, true
	}

	if m.limit != 0 && m.size+n > m.limit {
		return 0, false
	}

	old = m.size
	m.size += n
	return old, true
}

func (m *MemArena) page(pg int) *[pageSize]byte {
	p := m.pages[pg]
	if p == nil {
		p = &[pageSize]byte{}
		m.pages[pg] = p
	}
	return p
}

// ReadAt copies len(b) bytes starting at off into b. It panics if the
// requested span is not entirely within [Low, High) - callers inside the
// allocator core never address outside the live heap.
func (m *MemArena) ReadAt(b []byte, off int) {
	if off < 0 || off+len(b) > m.size {
		panic("substrate: ReadAt out of range")
	}

	rem := len(b)
	pgI := off >> pageBits
	pgO := off & pageMask
	for rem != 0 {
		p := m.pages[pgI]
		var src []byte
		if p == nil {
			src = zeroPage[pgO:]
		} else {
			src = p[pgO:]
		}

		nc := copy(b[:mathutil.Min(rem, pageSize-pgO)], src)
		b = b[nc:]
		rem -= nc
		pgI++
		pgO = 0
	}
}

// WriteAt writes b starting at off. It panics if the requested span is
// not entirely within [Low, High).
func (m *MemArena) WriteAt(b []byte, off int) {
	if off < 0 || off+len(b) > m.size {
		panic("substrate: WriteAt out of range")
	}

	rem := len(b)
	pgI := off >> pageBits
	pgO := off & pageMask
	for rem != 0 {
		p := m.page(pgI)
		nc := copy(p[pgO:], b)
		b = b[nc:]
		rem -= nc
		pgI++
		pgO = 0
	}
}

// Zero zeroes n bytes starting at off.
func (m *MemArena) Zero(off, n int) {
	if off < 0 || off+n > m.size {
		panic("substrate: Zero out of range")
	}

	rem := n
	pgI := off >> pageBits
	pgO := off & pageMask
	for rem != 0 {
		p := m.page(pgI)
		nc := mathutil.Min(rem, pageSize-pgO)
		for i := 0; i < nc; i++ {
			p[pgO+i] = 0
		}
		rem -= nc
		pgI++
		pgO = 0
	}
}

// Uint32 reads a 4-byte big-endian word at off.
func (m *MemArena) Uint32(off int) uint32 {
	var b [4]byte
	m.ReadAt(b[:], off)
	return binary.BigEndian.Uint32(b[:])
}

// SetUint32 writes v as a 4-byte big-endian word at off.
func (m *MemArena) SetUint32(off int, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	m.WriteAt(b[:], off)
}

// WriteTo dumps the arena's live bytes to w, for debugging crashed
// property tests.
func (m *MemArena) WriteTo(w io.Writer) (n int64, err error) {
	buf := make([]byte, pageSize)
	for off := 0; off < m.size; off += pageSize {
		m.ReadAt(buf[:mathutil.Min(pageSize, m.size-off)], off)
		wn, werr := w.Write(buf[:mathutil.Min(pageSize, m.size-off)])
		n += int64(wn)
		if werr != nil {
			return n, werr
		}
	}
	return n, nil
}
