package addrspace

import "dumbvm/internal/verr"

// Sbrk (component F) grows or shrinks the heap by amount bytes (amount may
// be negative) and returns the previous break.
func (as *AddressSpace) Sbrk(amount int32) (uint32, error) {
	if amount%4 != 0 {
		amount += 4 - amount%4
	}

	oldBreak := as.heapEnd
	// Unsigned wraparound here is intentional and load-bearing: a large
	// negative amount wraps heapEnd+amount past userSpaceTop, which the
	// second bounds check below catches. This mirrors the original's
	// vaddr_t (unsigned) + int arithmetic exactly.
	newBreak := as.heapEnd + uint32(amount)

	if newBreak < as.heapStart {
		return 0, verr.New("Sbrk", verr.KindInval, "amount would move the break below heap start")
	}
	if newBreak > userSpaceTop {
		return 0, verr.New("Sbrk", verr.KindInval, "amount would move the break above user space")
	}
	if amount > SbrkMaxDelta || amount < -SbrkMaxDelta {
		return 0, verr.New("Sbrk", verr.KindNomem, "amount exceeds the per-call sbrk bound")
	}

	switch {
	case amount > 0:
		// Only define new pages if growth crossed into a new page frame.
		if (oldBreak-1)&pageFrameMask != (newBreak-1)&pageFrameMask {
			newBase := (oldBreak-1)&pageFrameMask + PageSize
			_ = as.DefineRegionNoHeap(newBase, newBreak-newBase, true, true, true)
		}
	case amount < 0:
		base := (newBreak-1)&pageFrameMask + PageSize
		as.RemoveRegion(base, oldBreak-base)
	}

	as.heapEnd = newBreak
	return oldBreak, nil
}
