package heap

// Ptr is an opaque handle returned by Allocate/Resize/CallocAllocate: a
// payload offset relative to the arena's own base, not a real pointer.
// See SPEC_FULL.md §6 for why - MemArena's page-mapped backing store
// never moves existing bytes, but Go has no stable unsafe.Pointer into
// memory that may not even be backed by contiguous storage yet, so
// offsets are what travel between caller and allocator.
//
// Ptr(0) is reserved: Allocate and friends return it on failure, and it
// is never a valid payload offset (the arena's first HeaderSize*len
// bytes are the free-index root array, never a payload).
type Ptr int

const nilPtr Ptr = 0

// toOffset converts a caller-facing Ptr to the internal byte offset of
// the block header that precedes its payload.
func toOffset(p Ptr) int { return int(p) - HeaderSize }

// toPtr converts a block's header offset to the Ptr of its payload.
func toPtr(off int) Ptr { return Ptr(off + HeaderSize) }
