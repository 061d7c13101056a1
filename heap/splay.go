package heap

// The Splay free index: exact-size buckets for sizes in
// [16, smallMax], and a size-ordered, top-down splay tree for anything
// larger. Grounded on original_source/malloclab-handout/mm-splay tree.c;
// ported to named fields instead of that file's overlapping bit tricks
// (see DESIGN.md).
//
// Tree-managed free blocks (size > smallMax) carry two additional link
// words beyond the shared prev/next pair used for small buckets:
//
//	+4   left child   (tree node role) / prev (duplicate-chain role, unused)
//	+8   right child  (tree node role) / next (duplicate-chain role, unused)
//	+12  dupNext: duplicate-chain head (tree-root role) or next duplicate
//	+16  dupPrev: nullOffset for the tree root, or a back-link to the
//	     previous chain member for a duplicate
//
// Exactly one block per distinct size is ever "the root" of that size's
// subtree at a time (holding the left/right children); any further
// blocks of the same size chain off it as duplicates via dupNext/dupPrev,
// the same design mm-splay tree.c uses, ported to explicit fields.

const (
	dupNextOff   = 12
	dupPrevOff   = 16
	infinitySize = 1<<31 - 1 // "find the maximum" sentinel, mirrors ~0U>>1 in the original
)

var childOff = [2]int{4, 8}

func (a *Allocator) childAt(off, lr int) int {
	return a.linkAt(off, childOff[lr])
}

func (a *Allocator) setChildAt(off, lr, val int) {
	a.setLinkAt(off, childOff[lr], val)
}

// splayRotate performs a single rotation promoting child lr of node to
// take node's place, returning the new subtree root.
func (a *Allocator) splayRotate(node, lr int) int {
	child := a.childAt(node, lr)
	a.setChildAt(node, lr, a.childAt(child, 1-lr))
	a.setChildAt(child, 1-lr, node)
	return child
}

// splayTreeInsert inserts off (a free block of size > smallMax) into the
// subtree rooted at node, returning the new subtree root. If a node of
// the same size already exists, off is chained onto it as a duplicate
// and becomes the new root of that size's subtree (see the §4.C Insert
// text: "chain onto it as a duplicate and re-root the new node").
func (a *Allocator) splayTreeInsert(node, off int) int {
	if node == nullOffset {
		a.setChildAt(off, 0, nullOffset)
		a.setChildAt(off, 1, nullOffset)
		a.setLinkAt(off, dupNextOff, nullOffset)
		a.setLinkAt(off, dupPrevOff, nullOffset)
		return off
	}

	nodeSize := a.blockSize(node)
	offSize := a.blockSize(off)
	if nodeSize == offSize {
		a.setChildAt(off, 0, a.childAt(node, 0))
		a.setChildAt(off, 1, a.childAt(node, 1))
		a.setLinkAt(off, dupNextOff, node)
		a.setLinkAt(off, dupPrevOff, nullOffset)
		a.setLinkAt(node, dupPrevOff, off)
		return off
	}

	lr := 0
	if offSize > nodeSize {
		lr = 1
	}
	a.setChildAt(node, lr, a.splayTreeInsert(a.childAt(node, lr), off))
	return node
}

// splayTreeSearch splays the node with the given size toward the root of
// the subtree rooted at node (or, with size == infinitySize, splays the
// maximum of the subtree toward the root), returning the new subtree
// root. Ported directly from mm-splay tree.c's splay_search: a node is
// promoted one level at a time as the recursion unwinds, rather than by
// a textbook zig-zig/zig-zag splay.
func (a *Allocator) splayTreeSearch(node, size int) int {
	if node == nullOffset {
		return nullOffset
	}

	nodeSize := a.blockSize(node)
	if nodeSize == size {
		return node
	}

	lr := 0
	if size > nodeSize {
		lr = 1
	}

	newChild := a.splayTreeSearch(a.childAt(node, lr), size)
	a.setChildAt(node, lr, newChild)
	if newChild == nullOffset {
		return node
	}

	if size == infinitySize {
		return a.splayRotate(node, lr)
	}

	if size <= a.blockSize(newChild) {
		return a.splayRotate(node, lr)
	}

	return node
}

// splayDeleteRoot removes the current a.splayRoot, which must have no
// duplicates, using the standard splay delete: the maximum of the left
// subtree is splayed to the top of that subtree and the old root's right
// subtree becomes its right child.
func (a *Allocator) splayDeleteRoot() {
	rchild := a.childAt(a.splayRoot, 1)
	left := a.childAt(a.splayRoot, 0)
	if left == nullOffset {
		a.splayRoot = rchild
		return
	}

	left = a.splayTreeSearch(left, infinitySize)
	a.setChildAt(left, 1, rchild)
	a.splayRoot = left
}

// splayInsert is §4.C Insert for the Splay index.
func (a *Allocator) splayInsert(off, size int) {
	if size <= smallMax {
		a.pushBucket(smallClassIndex(size), off)
		return
	}
	a.splayRoot = a.splayTreeInsert(a.splayRoot, off)
}

// splaySearch is §4.C Search for the Splay index: small buckets first,
// then the tree.
func (a *Allocator) splaySearch(request int) (int, bool) {
	for i := smallClassIndex(request); i >= 0 && i < Threshold; i++ {
		if h := a.rootHead(i); h != nullOffset {
			return h, true
		}
	}

	a.splayRoot = a.splayTreeSearch(a.splayRoot, request)
	if a.splayRoot == nullOffset {
		return 0, false
	}
	if a.blockSize(a.splayRoot) < request {
		return 0, false
	}
	return a.splayRoot, true
}

// splayRemove is §4.C Remove for the Splay index.
func (a *Allocator) splayRemove(off, size int) {
	if size <= smallMax {
		a.removeBucket(smallClassIndex(size), off)
		return
	}

	if dp := a.linkAt(off, dupPrevOff); dp != nullOffset {
		dn := a.linkAt(off, dupNextOff)
		a.setLinkAt(dp, dupNextOff, dn)
		if dn != nullOffset {
			a.setLinkAt(dn, dupPrevOff, dp)
		}
		return
	}

	// off is the designated root of its size, or becomes it once its
	// own size is splayed to the top - a no-op splay if it already is
	// the root. Mirrors mm-splay tree.c's free_remove, which always
	// calls free_search(size) before deciding whether to promote a
	// duplicate or run the standard splay delete.
	a.splayRoot = a.splayTreeSearch(a.splayRoot, size)

	dn := a.linkAt(off, dupNextOff)
	if dn != nullOffset {
		a.setChildAt(dn, 0, a.childAt(off, 0))
		a.setChildAt(dn, 1, a.childAt(off, 1))
		a.setLinkAt(dn, dupPrevOff, nullOffset)
		a.splayRoot = dn
		return
	}

	a.splayDeleteRoot()
}

// splayWalk visits every indexed free block - small buckets then an
// in-order tree walk including duplicate chains - calling visit for
// each. Used by CheckHeap.
func (a *Allocator) splayWalk(visit func(off, size int)) {
	for i := 0; i < Threshold; i++ {
		for off := a.rootHead(i); off != nullOffset; off = a.linkAt(off, linkNextOff) {
			visit(off, a.blockSize(off))
		}
	}

	var walk func(node int)
	walk = func(node int) {
		if node == nullOffset {
			return
		}
		walk(a.childAt(node, 0))
		size := a.blockSize(node)
		visit(node, size)
		for dup := a.linkAt(node, dupNextOff); dup != nullOffset; dup = a.linkAt(dup, dupNextOff) {
			visit(dup, a.blockSize(dup))
		}
		walk(a.childAt(node, 1))
	}
	walk(a.splayRoot)
}
