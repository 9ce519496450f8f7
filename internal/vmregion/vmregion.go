// Package vmregion implements the per-process virtual-address allocator:
// a singly-linked, address-ordered list of (start, size, allocated)
// regions partitioning a process's whole virtual heap.
package vmregion

import (
	"vmcore/internal/mem"
	"vmcore/internal/util"
)

// Node is one region of the heap.
type Node struct {
	Start     uintptr
	Size      uintptr
	Allocated bool
	Next      *Node
}

// List is the address-ordered region list for one process's heap.
type List struct {
	Head *Node
}

// NewHeap builds a region list for [start, limit) seeded as a single free
// region, as every new user process's VM state is at creation time.
func NewHeap(start, limit uintptr) *List {
	return &List{Head: &Node{Start: start, Size: limit - start}}
}

// Vmalloc rounds nbytes up to a page and performs a first-fit scan from
// the head, splitting the winning region if it's larger than needed. It
// returns the allocated start address and the page count consumed, or
// ok=false if nbytes is zero or nothing fits.
func (l *List) Vmalloc(nbytes uintptr) (start uintptr, pages uintptr, ok bool) {
	if nbytes == 0 {
		return 0, 0, false
	}
	size := util.Roundup(nbytes, uintptr(mem.PGSIZE))
	for n := l.Head; n != nil; n = n.Next {
		if n.Allocated || n.Size < size {
			continue
		}
		start = n.Start
		if n.Size > size {
			l.splitAfter(n, size)
		}
		n.Allocated = true
		return start, size / uintptr(mem.PGSIZE), true
	}
	return 0, 0, false
}

// splitAfter shrinks n to headSize and inserts a new free node covering
// the remainder immediately after it.
func (l *List) splitAfter(n *Node, headSize uintptr) {
	rest := &Node{
		Start: n.Start + headSize,
		Size:  n.Size - headSize,
		Next:  n.Next,
	}
	n.Size = headSize
	n.Next = rest
}

// Vfree rounds ptr down and ptr+nbytes up to page boundaries, rejects the
// call if any region touching that span is not fully contained in it and
// allocated (no partial frees), flips every region fully covered by the
// span to free, then coalesces adjacent free regions in one pass. It
// returns the page count released.
func (l *List) Vfree(ptr, nbytes uintptr) (pages uintptr, ok bool) {
	if ptr == 0 || nbytes == 0 {
		return 0, false
	}
	start := util.Rounddown(ptr, uintptr(mem.PGSIZE))
	end := util.Roundup(ptr+nbytes, uintptr(mem.PGSIZE))
	if !l.SpanFullyAllocated(start, end) {
		return 0, false
	}
	for n := l.Head; n != nil; n = n.Next {
		if n.Start >= start && n.Start+n.Size <= end {
			n.Allocated = false
		}
	}
	l.coalesce()
	return (end - start) / uintptr(mem.PGSIZE), true
}

// SpanFullyAllocated reports whether every region intersecting [start,end)
// is allocated and wholly contained within [start,end) — rejecting both
// unallocated pages in the span and partial overlaps of an allocation.
func (l *List) SpanFullyAllocated(start, end uintptr) bool {
	for n := l.Head; n != nil; n = n.Next {
		regionEnd := n.Start + n.Size
		if regionEnd <= start || n.Start >= end {
			continue
		}
		if !n.Allocated {
			return false
		}
		if n.Start < start || regionEnd > end {
			return false
		}
	}
	return true
}

// coalesce merges adjacent free regions in a single left-to-right pass.
func (l *List) coalesce() {
	for n := l.Head; n != nil && n.Next != nil; {
		if !n.Allocated && !n.Next.Allocated && n.Start+n.Size == n.Next.Start {
			n.Size += n.Next.Size
			n.Next = n.Next.Next
			continue
		}
		n = n.Next
	}
}

// Lookup returns the region containing vaddr, if any.
func (l *List) Lookup(vaddr uintptr) (*Node, bool) {
	for n := l.Head; n != nil; n = n.Next {
		if vaddr >= n.Start && vaddr < n.Start+n.Size {
			return n, true
		}
	}
	return nil, false
}

// InAllocated reports whether vaddr falls within an allocated region.
func (l *List) InAllocated(vaddr uintptr) bool {
	n, ok := l.Lookup(vaddr)
	return ok && n.Allocated
}

// IsSingleFreeRegion reports whether the list is exactly one free region
// spanning the whole heap — the invariant a full vmalloc/vfree cycle back
// to empty must restore.
func (l *List) IsSingleFreeRegion() bool {
	return l.Head != nil && l.Head.Next == nil && !l.Head.Allocated
}
