package addrspace

import (
	"log/slog"

	"dumbvm/internal/hal"
	"dumbvm/internal/vmlog"
)

// AddressSpace is component D: it owns a process's root page table and
// region list, and implements the lifecycle operations the loader, the
// fork path, and the syscall layer drive it through.
type AddressSpace struct {
	hw     hal.Hardware
	frames *FrameTable
	log    *slog.Logger

	root [NumRootEntries]rootEntry
	head *regionNode

	heapStart, heapEnd uint32
}

// Create returns a new, empty address space backed by the given frame
// table (and therefore the same underlying hardware every other address
// space sharing that frame table uses).
func Create(frames *FrameTable) *AddressSpace {
	as := &AddressSpace{hw: frames.hw, frames: frames, log: vmlog.Default()}
	for i := range as.root {
		as.root[i].index = i
	}
	return as
}

// Copy (component D "copy") clones src into a freshly created address
// space: every region is redefined in the new space, and any page that
// already has a frame is shared copy-on-write rather than duplicated.
//
// A Go allocation for the *AddressSpace itself cannot fail the way the
// source's kmalloc could, so the NOMEM path here models the one the source
// actually hits in practice: the new space's own page-table/region
// bookkeeping outgrowing the kernel heap mid-copy. On that path, every
// region already pushed onto dst and every frame already shared with src is
// unwound before returning, so a failed Copy leaves src exactly as it found
// it and leaks nothing in dst's half-built state.
func (src *AddressSpace) Copy() (dst *AddressSpace, err error) {
	dst = Create(src.frames)

	// shared collects the src pages this call has already marked COW (and
	// incremented the frame refcount for), so a mid-copy panic can put them
	// back the way it found them.
	var shared []*PageEntry

	defer func() {
		if r := recover(); r != nil {
			nm, ok := r.(nomem)
			if !ok {
				panic(r)
			}

			dst.Destroy()
			for _, p := range shared {
				p.COW = false
				if p.Flags&FlagW != 0 {
					p.PAddrTLB |= tlbloDirty
				}
			}

			dst = nil
			err = nm.err
		}
	}()

	dst.heapStart, dst.heapEnd = src.heapStart, src.heapEnd

	// Region lists are LIFO; walking src head-to-tail and appending each
	// node at dst's tail reproduces src's list order in dst.
	var tail *regionNode
	for cur := src.head; cur != nil; cur = cur.next {
		srcPage := src.getPage(cur.vbase)

		if ok := dst.hw.Alloc(regionNodeHeapCost); !ok {
			panic(nomem{err: nomemError("Copy", "kernel heap exhausted allocating region node")})
		}
		node := &regionNode{vbase: cur.vbase, oldFlags: cur.oldFlags}
		if tail == nil {
			dst.head = node
		} else {
			tail.next = node
		}
		tail = node
		dstPage := dst.addPage(cur.vbase, srcPage.Flags)

		if !srcPage.hasFrame() {
			continue
		}

		wasCOW := srcPage.COW
		dstPage.PAddrTLB = srcPage.PAddrTLB
		dstPage.COW = true
		srcPage.COW = true
		dstPage.PAddrTLB &^= tlbloDirty
		srcPage.PAddrTLB &^= tlbloDirty
		src.frames.Increment(dstPage.PAddrTLB)
		if !wasCOW {
			shared = append(shared, srcPage)
		}

		src.invalidateTLBForPage(srcPage)
	}

	return dst, nil
}

// Destroy (component D "destroy") deactivates the address space, drops the
// frame-table reference for every defined page, and frees every allocated
// secondary table. The caller drops its own reference to as afterwards;
// unlike the source, there is no separate struct to free.
func (as *AddressSpace) Destroy() {
	as.Deactivate()

	for cur := as.head; cur != nil; cur = cur.next {
		if page := as.getPage(cur.vbase); page != nil && page.hasFrame() {
			as.frames.Decrement(page.PAddrTLB)
		}
		as.hw.Free(regionNodeHeapCost)
	}
	as.head = nil

	for i := range as.root {
		if as.root[i].target != nil {
			as.root[i].target = nil
			as.hw.Free(secondaryTableHeapCost)
		}
	}
}

// Activate and Deactivate invalidate every TLB entry with interrupts
// raised. Neither has an ASID to scope the flush to, so both flush
// everything rather than a single address space's mappings. The "no
// current address space" no-op the source describes belongs to a
// process-layer accessor this core doesn't have, not to AddressSpace
// itself: callers simply don't call these on a nil reference.
func (as *AddressSpace) Activate()   { as.flushTLB() }
func (as *AddressSpace) Deactivate() { as.flushTLB() }

func (as *AddressSpace) flushTLB() {
	tok := as.hw.Raise()
	defer as.hw.Restore(tok)
	for i := 0; i < as.hw.NumEntries(); i++ {
		as.hw.Write(i, as.hw.InvalidHigh(i), as.hw.InvalidLow())
	}
}

// PrepareLoad (component D "prepare_load") stashes each region's current
// flags and grants W, so the loader can write to regions that will end up
// read-only (e.g. .rodata) once loading completes.
func (as *AddressSpace) PrepareLoad() {
	for cur := as.head; cur != nil; cur = cur.next {
		page := as.getPage(cur.vbase)
		cur.oldFlags = page.Flags
		page.Flags |= FlagW

		if page.hasFrame() && page.PAddrTLB&tlbloDirty == 0 {
			as.invalidateTLBForPage(page)
			page.PAddrTLB |= tlbloDirty
		}
	}
}

// CompleteLoad (component D "complete_load") is prepare_load's inverse:
// flags are restored, and DIRTY is cleared if the restored flags are no
// longer writable. The source clears DIRTY with logical-NOT of the DIRTY
// bit, which zeroes the whole word; this uses bitwise AND-NOT so only the
// DIRTY bit is cleared.
func (as *AddressSpace) CompleteLoad() {
	for cur := as.head; cur != nil; cur = cur.next {
		page := as.getPage(cur.vbase)
		page.Flags = cur.oldFlags

		if page.hasFrame() && page.Flags&FlagW == 0 && page.PAddrTLB&tlbloDirty != 0 {
			as.invalidateTLBForPage(page)
			page.PAddrTLB &^= tlbloDirty
		}
	}
}

// DefineStack (component D "define_stack") defines the fixed-size stack
// region just below userStack and returns the initial stack pointer.
func (as *AddressSpace) DefineStack() (uint32, error) {
	if err := as.DefineRegionNoHeap(userStack-UserStackSize, UserStackSize, true, true, false); err != nil {
		return 0, err
	}
	return userStack - 1, nil
}

// invalidateTLBForPage removes any TLB slot currently holding page's
// virtual page, so a stale mapping can't survive a permission or frame
// change underneath it.
func (as *AddressSpace) invalidateTLBForPage(page *PageEntry) {
	high := page.VAddrPage << 12
	idx := as.hw.Probe(high)
	if idx < 0 {
		return
	}
	tok := as.hw.Raise()
	as.hw.Write(idx, as.hw.InvalidHigh(idx), as.hw.InvalidLow())
	as.hw.Restore(tok)
}

