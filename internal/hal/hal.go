// Package hal defines the narrow, host-supplied contracts the VM core
// depends on: frame allocation, the software TLB, interrupt-priority
// discipline, and the kernel heap used for page-table and region-node
// bookkeeping. None of these exist in a userspace Go process, so this
// package also provides Sim, an in-memory stand-in used by tests and the
// CLI.
package hal

// FrameAllocator hands out and reclaims page-aligned physical frames. It
// corresponds to the frame allocator primitive the fault handler treats as
// an external collaborator.
type FrameAllocator interface {
	// AllocFrame reserves one page-aligned physical frame and returns its
	// frame number. ok is false if the pool is exhausted.
	AllocFrame() (frame uint32, ok bool)

	// FreeFrame releases a frame previously returned by AllocFrame.
	FreeFrame(frame uint32)

	// ZeroFrame fills the frame's contents with zero bytes.
	ZeroFrame(frame uint32)

	// CopyFrame copies the contents of src into dst.
	CopyFrame(dst, src uint32)
}

// TLB models the software-refilled translation-lookaside buffer: the
// write/random/probe trio a refill handler needs.
type TLB interface {
	// NumEntries returns the number of hardware TLB slots.
	NumEntries() int

	// Write installs (high, low) into the given slot.
	Write(index int, high, low uint32)

	// Random installs (high, low) into an implementation-chosen slot,
	// used to refill after a resolved fault.
	Random(high, low uint32)

	// Probe returns the slot currently holding high's virtual page, or
	// -1 if no slot matches.
	Probe(high uint32) int

	// InvalidHigh and InvalidLow return the sentinel high/low words
	// written to invalidate a slot (TLBHI_INVALID / TLBLO_INVALID in the
	// original).
	InvalidHigh(index int) uint32
	InvalidLow() uint32
}

// Interrupts models the per-CPU interrupt-priority raise/restore pair. The
// VM core brackets every frame-table refcount update and every TLB write
// with a Raise/Restore pair, matching the "raise IPL" discipline a
// preemptible kernel needs around this bookkeeping.
type Interrupts interface {
	// Raise disables interrupt delivery on the current CPU and returns a
	// token that Restore uses to put the prior level back.
	Raise() Token

	// Restore reinstates the interrupt level Raise saved.
	Restore(Token)
}

// Token is an opaque previous-interrupt-level marker.
type Token int

// KHeap models the kernel heap used to allocate ~4KiB secondary page
// tables and ~12-byte region nodes. A real kernel heap can fail under
// memory pressure; Sim's KHeap supports an artificial quota so tests can
// exercise the resulting NOMEM/FAULT error paths.
type KHeap interface {
	// Alloc reserves n bytes of kernel heap. ok is false if the heap is
	// exhausted (quota reached, in Sim's case).
	Alloc(n int) (ok bool)

	// Free releases n bytes previously reserved by Alloc.
	Free(n int)
}

// Hardware aggregates the four contracts the VM core needs from its host.
type Hardware interface {
	FrameAllocator
	TLB
	Interrupts
	KHeap
}
