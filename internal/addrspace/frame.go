package addrspace

import "dumbvm/internal/hal"

// FrameTable is the reference-counted physical-frame table (component A):
// one entry per physical frame, indexed by frame number. A count of zero
// means free. It is shared by every AddressSpace built on top of the same
// hal.Hardware, since copy-on-write sharing means two address spaces can
// both hold references into the same frame.
type FrameTable struct {
	hw       hal.Hardware
	refcount []int32
}

// NewFrameTable bootstraps a frame table for a machine with numFrames
// physical frames (component G: "zero every frame-table entry's refcount").
func NewFrameTable(hw hal.Hardware, numFrames int) *FrameTable {
	return &FrameTable{hw: hw, refcount: make([]int32, numFrames)}
}

func frameOf(paddrTLB uint32) uint32 { return (paddrTLB & tlbloPPage) >> 12 }

// Refcount reports the current reference count for the frame paddrTLB
// refers to (masking off the VALID/DIRTY bits first).
func (ft *FrameTable) Refcount(paddrTLB uint32) int32 {
	tok := ft.hw.Raise()
	defer ft.hw.Restore(tok)
	return ft.refcount[frameOf(paddrTLB)]
}

// Increment adds one reference to the frame paddrTLB names. The caller must
// already hold a reference (the 0→1 transition is only reachable through
// EnsurePaddr); violating that is a programming error, not a recoverable
// fault, so it panics exactly as the source's KASSERT did.
func (ft *FrameTable) Increment(paddrTLB uint32) {
	tok := ft.hw.Raise()
	defer ft.hw.Restore(tok)
	frame := frameOf(paddrTLB)
	if ft.refcount[frame] < 1 {
		panic("addrspace: Increment called on a frame with no existing reference")
	}
	ft.refcount[frame]++
}

// Decrement removes one reference from the frame paddrTLB names, releasing
// it back to the host allocator if the count reaches zero.
func (ft *FrameTable) Decrement(paddrTLB uint32) {
	frame := frameOf(paddrTLB)
	tok := ft.hw.Raise()
	ft.refcount[frame]--
	release := ft.refcount[frame] == 0
	ft.hw.Restore(tok)
	if release {
		ft.hw.FreeFrame(frame)
	}
}

// EnsurePaddr demand-allocates and zero-fills a frame for page if it doesn't
// already have one, composing the packed TLB-low word (frame number plus
// VALID, and DIRTY if page.Flags is writable). Idempotent once a frame is
// present. Frame-pool exhaustion is fatal: the core assumes a sufficiently
// provisioned pool and does not implement eviction.
func (ft *FrameTable) EnsurePaddr(page *PageEntry) {
	if page.hasFrame() {
		return
	}

	tok := ft.hw.Raise()
	frame, ok := ft.hw.AllocFrame()
	if !ok {
		ft.hw.Restore(tok)
		panic("addrspace: frame allocator exhausted")
	}
	ft.refcount[frame] = 1
	ft.hw.Restore(tok)

	ft.hw.ZeroFrame(frame)

	low := (frame << 12) & tlbloPPage
	if page.Flags&FlagW != 0 {
		low |= tlbloDirty
	}
	low |= tlbloValid
	page.PAddrTLB = low
}

// breakCOW resolves a copy-on-write fault on page. If the frame's refcount
// is exactly 1, the caller already has sole ownership (fast path); otherwise
// it allocates a private copy and drops the shared reference. The whole
// decision-and-mutation happens under one raised section so it can't race
// with another CPU breaking the same frame.
func (ft *FrameTable) breakCOW(page *PageEntry) {
	tok := ft.hw.Raise()
	defer ft.hw.Restore(tok)

	oldFrame := page.frame()
	if ft.refcount[oldFrame] == 1 {
		page.COW = false
		if page.Flags&FlagW != 0 {
			page.PAddrTLB |= tlbloDirty
		}
		return
	}

	newFrame, ok := ft.hw.AllocFrame()
	if !ok {
		panic("addrspace: frame allocator exhausted")
	}
	ft.refcount[newFrame] = 1
	ft.hw.ZeroFrame(newFrame)
	ft.hw.CopyFrame(newFrame, oldFrame)

	low := (newFrame << 12) & tlbloPPage
	if page.Flags&FlagW != 0 {
		low |= tlbloDirty
	}
	low |= tlbloValid
	page.PAddrTLB = low
	page.COW = false

	ft.refcount[oldFrame]--
	if ft.refcount[oldFrame] == 0 {
		ft.hw.FreeFrame(oldFrame)
	}
}
