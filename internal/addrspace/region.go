package addrspace

import "dumbvm/internal/verr"

// DefineRegion (component C "define_region"): rounds [vaddr, vaddr+size) to
// page boundaries, marks every page in range with the r/w/x permissions,
// and pushes one region node per page onto the LIFO list. If w is set, the
// heap is anchored to the end of this region; the *last* writable region
// defined wins if the loader defines more than one.
func (as *AddressSpace) DefineRegion(vaddr, size uint32, r, w, x bool) error {
	return as.defineRegion(vaddr, size, r, w, x, true)
}

// DefineRegionNoHeap is DefineRegion without the heap-marker update, used
// for the stack and for sbrk's own page-straddle growth (which maintains
// heap_end itself).
func (as *AddressSpace) DefineRegionNoHeap(vaddr, size uint32, r, w, x bool) error {
	return as.defineRegion(vaddr, size, r, w, x, false)
}

func (as *AddressSpace) defineRegion(vaddr, size uint32, r, w, x bool, updateHeap bool) error {
	size += vaddr &^ pageFrameMask
	vaddr &= pageFrameMask
	size = (size + PageSize - 1) & pageFrameMask

	flags := flagsFrom(r, w, x)

	if updateHeap && w {
		as.heapStart = vaddr + size
		as.heapEnd = as.heapStart
	}

	for off := uint32(0); off < size; off += PageSize {
		vbase := vaddr + off
		as.addPage(vbase, flags)

		if ok := as.hw.Alloc(regionNodeHeapCost); !ok {
			return verr.New("DefineRegion", verr.KindFault, "kernel heap exhausted allocating region node")
		}
		as.head = &regionNode{vbase: vbase, oldFlags: flags, next: as.head}
	}
	return nil
}

// RemoveRegion (component C "remove_region") unlinks every node whose vbase
// falls in [vaddr, vaddr+size), decrementing the frame-table refcount for
// any page that had a frame. vaddr+size is allowed to wrap (uint32
// underflow); when it does, no node matches and nothing happens, which is
// what lets sbrk shrink an already-shrunk heap safely.
func (as *AddressSpace) RemoveRegion(vaddr, size uint32) {
	end := vaddr + size

	var prev *regionNode
	cur := as.head
	for cur != nil {
		if cur.vbase >= vaddr && cur.vbase < end {
			next := cur.next
			if prev == nil {
				as.head = next
			} else {
				prev.next = next
			}

			if page := as.getPage(cur.vbase); page != nil && page.hasFrame() {
				as.frames.Decrement(page.PAddrTLB)
			}
			as.hw.Free(regionNodeHeapCost)

			cur = next
			continue
		}
		prev = cur
		cur = cur.next
	}
}
