// Package addrspace implements the virtual-memory core: a reference-counted
// frame table, a two-level forward-mapped page table, a region list, the
// address-space lifecycle (create/copy/destroy/activate), the TLB-refill
// fault handler, and the sbrk heap primitive. It is the software side of a
// 4 KiB-page, 32-bit, software-refilled-TLB architecture; all interaction
// with the host (frame allocation, the TLB, interrupt priority, the kernel
// heap) goes through the hal package.
package addrspace

import "dumbvm/internal/verr"

// Layout constants for the two-level page table and the address space this
// package manages. These mirror the dumbvm/OS-161 MIPS constants the design
// was distilled from.
const (
	PageSize = 4096

	// pageFrameMask keeps the top 20 bits of a 32-bit address, i.e. the
	// page-aligned base (PAGE_FRAME in the original).
	pageFrameMask = ^uint32(PageSize - 1)

	NumRootEntries      = 1024
	NumSecondaryEntries = 1024

	// userSpaceTop is also the paddr sentinel meaning "no frame", per
	// spec: the sentinel is the top-of-userspace constant.
	userSpaceTop = 0x80000000
	userStack    = userSpaceTop

	// UserStackSize is the fixed size of the stack region define_stack
	// hands the loader.
	UserStackSize = 16 * PageSize

	// SbrkMaxDelta bounds the magnitude of a single sbrk call.
	SbrkMaxDelta = 1 << 29

	sentinelPAddr = userSpaceTop
)

// Flags is the permission bitmask carried on a page entry, derived from the
// ELF program-header bits. FlagUndefined marks a table slot that was never
// defined.
type Flags int32

const (
	FlagX Flags = 1 << iota
	FlagW
	FlagR

	// FlagUndefined is the sentinel meaning "defined slot exists but the
	// page was never defined".
	FlagUndefined Flags = -1
)

func flagsFrom(r, w, x bool) Flags {
	var f Flags
	if r {
		f |= FlagR
	}
	if w {
		f |= FlagW
	}
	if x {
		f |= FlagX
	}
	return f
}

// TLB-low word bits. DIRTY means "writable" on this architecture, not
// "modified" (see glossary).
const (
	tlbloDirty = 1 << 10
	tlbloValid = 1 << 9
	tlbloPPage = ^uint32(PageSize - 1)
)

// PageEntry is one 4 KiB virtual page's worth of translation state.
type PageEntry struct {
	// VAddrPage is the virtual page number; set once at secondary-table
	// construction time and never changed.
	VAddrPage uint32

	// PAddrTLB is the packed TLB-low word: physical frame number plus
	// VALID/DIRTY, or sentinelPAddr when no frame is backing this page.
	PAddrTLB uint32

	// Flags holds the logical r/w/x permission bits, or FlagUndefined.
	Flags Flags

	// COW is true while this page shares its frame with another address
	// space and must break on the next write.
	COW bool
}

func (p *PageEntry) hasFrame() bool { return p.PAddrTLB != sentinelPAddr }

func (p *PageEntry) frame() uint32 { return (p.PAddrTLB & tlbloPPage) >> 12 }

type secondaryTable [NumSecondaryEntries]PageEntry

type rootEntry struct {
	// index is the root entry's own slot number, stashed for the
	// self-check the original performs on every lookup.
	index  int
	target *secondaryTable
}

// regionNode records one defined virtual page and the flags it carried
// before the most recent prepare_load, forming a LIFO stack.
type regionNode struct {
	vbase    uint32
	oldFlags Flags
	next     *regionNode
}

// Approximate kernel-heap costs charged against hal.KHeap: a ~4 KiB
// secondary table and a ~12-byte region node.
const (
	secondaryTableHeapCost = 4096
	regionNodeHeapCost     = 12
)

// nomem is panicked by kernel-heap-backed allocations (secondary tables)
// when the simulated heap is exhausted. Most callers let it propagate as a
// genuine panic: the core assumes a sufficiently provisioned pool. Copy is
// the one operation allowed to fail this way, so AddressSpace.Copy recovers
// it and reports NOMEM instead.
type nomem struct{ err error }

func nomemError(op, msg string) error { return verr.New(op, verr.KindNomem, msg) }

// FaultKind is the trap type the fault handler dispatches on.
type FaultKind int

const (
	FaultRead FaultKind = iota
	FaultWrite
	FaultReadOnly
)
