package hal

import "sync"

// pageSize matches addrspace.PageSize but is duplicated here (as a literal) so
// this package has no dependency on the VM core it serves.
const pageSize = 4096

// Sim is an in-memory stand-in for the hardware this module would otherwise
// need: physical RAM, a fixed-size TLB, and a kernel heap with an optional
// quota. It implements Hardware and is used by both the unit tests and the
// CLI's demo/monitor commands.
//
// Sim keeps two locks deliberately separate. iplMu is what Raise/Restore
// acquire: it models "interrupts disabled on the current CPU" and is held
// across a caller's whole critical section, possibly spanning several Sim
// method calls. dataMu guards the slices backing frames/TLB/heap so those
// methods stay safe to call either inside or outside an IPL section without
// the two ever deadlocking each other.
type Sim struct {
	iplMu  sync.Mutex
	dataMu sync.Mutex

	frames []physFrame
	free   []uint32 // stack of free frame numbers

	tlb     []tlbSlot
	nextTLB int // round-robin cursor used by Random

	heapQuota     int // remaining kernel-heap bytes; -1 means unlimited
	heapUnlimited bool
}

type physFrame [pageSize]byte

type tlbSlot struct {
	high, low uint32
	valid     bool
}

// NewSim builds a simulated machine with numFrames physical frames,
// tlbSlots TLB entries, and heapQuota bytes of kernel heap (negative means
// unlimited).
func NewSim(numFrames, tlbSlots, heapQuota int) *Sim {
	s := &Sim{
		frames:        make([]physFrame, numFrames),
		free:          make([]uint32, numFrames),
		tlb:           make([]tlbSlot, tlbSlots),
		heapQuota:     heapQuota,
		heapUnlimited: heapQuota < 0,
	}
	for i := range s.free {
		s.free[i] = uint32(numFrames - 1 - i)
	}
	for i := range s.tlb {
		s.tlb[i] = tlbSlot{high: s.InvalidHigh(i), low: s.InvalidLow()}
	}
	return s
}

// AllocFrame implements FrameAllocator.
func (s *Sim) AllocFrame() (uint32, bool) {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	if len(s.free) == 0 {
		return 0, false
	}
	n := len(s.free) - 1
	frame := s.free[n]
	s.free = s.free[:n]
	return frame, true
}

// FreeFrame implements FrameAllocator.
func (s *Sim) FreeFrame(frame uint32) {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	s.free = append(s.free, frame)
}

// ZeroFrame implements FrameAllocator.
func (s *Sim) ZeroFrame(frame uint32) {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	f := &s.frames[frame]
	for i := range f {
		f[i] = 0
	}
}

// CopyFrame implements FrameAllocator.
func (s *Sim) CopyFrame(dst, src uint32) {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	copy(s.frames[dst][:], s.frames[src][:])
}

// Frame exposes a frame's contents read-only, for tests asserting
// demand-zero / copy-on-write behaviour.
func (s *Sim) Frame(frame uint32) [pageSize]byte {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	return s.frames[frame]
}

// NumEntries implements TLB.
func (s *Sim) NumEntries() int { return len(s.tlb) }

// Write implements TLB.
func (s *Sim) Write(index int, high, low uint32) {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	s.tlb[index] = tlbSlot{high: high, low: low, valid: low != s.InvalidLow()}
}

// Random implements TLB. Sim uses round-robin selection rather than true
// randomness so tests remain deterministic; a refill just needs some slot,
// not a specific distribution.
func (s *Sim) Random(high, low uint32) {
	s.dataMu.Lock()
	index := s.nextTLB
	s.nextTLB = (s.nextTLB + 1) % len(s.tlb)
	s.tlb[index] = tlbSlot{high: high, low: low, valid: true}
	s.dataMu.Unlock()
}

// Probe implements TLB.
func (s *Sim) Probe(high uint32) int {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	for i, slot := range s.tlb {
		if slot.valid && slot.high == high {
			return i
		}
	}
	return -1
}

// InvalidHigh implements TLB. Each index gets a distinct sentinel so
// invalidated slots never collide with a real virtual page or each other.
func (s *Sim) InvalidHigh(index int) uint32 { return 0x80000000 | uint32(index) }

// InvalidLow implements TLB.
func (s *Sim) InvalidLow() uint32 { return 0 }

// Raise implements Interrupts. It locks iplMu, not dataMu, so a caller
// holding a raised section can still call AllocFrame/FreeFrame/TLB methods
// without deadlocking against itself.
func (s *Sim) Raise() Token {
	s.iplMu.Lock()
	return 0
}

// Restore implements Interrupts.
func (s *Sim) Restore(Token) {
	s.iplMu.Unlock()
}

// Alloc implements KHeap.
func (s *Sim) Alloc(n int) bool {
	if s.heapUnlimited {
		return true
	}
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	if s.heapQuota < n {
		return false
	}
	s.heapQuota -= n
	return true
}

// Free implements KHeap.
func (s *Sim) Free(n int) {
	if s.heapUnlimited {
		return
	}
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	s.heapQuota += n
}

var _ Hardware = (*Sim)(nil)
