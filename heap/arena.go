package heap

// Arena is the substrate the allocator core consumes: the sbrk-style
// heap provider of §1/§4.A. The core only ever calls these methods;
// substrate.MemArena is the concrete implementation used by Default and
// by every test in this package, but any type satisfying Arena works
// (the core depends only on this interface, not on MemArena's concrete
// page-mapped type, so it never assumes a particular backing store - the same
// decoupling lldb.Allocator has from Filer).
type Arena interface {
	Low() int
	High() int
	Extend(n int) (old int, ok bool)
	Uint32(off int) uint32
	SetUint32(off int, v uint32)
	ReadAt(b []byte, off int)
	WriteAt(b []byte, off int)
	Zero(off, n int)
}
