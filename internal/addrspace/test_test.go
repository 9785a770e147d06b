package addrspace

import (
	"testing"

	"dumbvm/internal/hal"
)

// testHarness pairs a simulated machine with the frame table sized for it,
// so each test gets isolated hardware state.
type testHarness struct {
	*testing.T
	hw     *hal.Sim
	frames *FrameTable
}

// NewTestHarness builds a harness with numFrames physical frames, a
// tlbSlots-entry TLB, and the given kernel-heap quota (negative means
// unlimited).
func NewTestHarness(t *testing.T, numFrames, tlbSlots, heapQuota int) *testHarness {
	t.Parallel()
	hw := hal.NewSim(numFrames, tlbSlots, heapQuota)
	return &testHarness{T: t, hw: hw, frames: Bootstrap(hw, numFrames)}
}

// New returns a freshly created, empty address space sharing this
// harness's frame table.
func (h *testHarness) New() *AddressSpace {
	return Create(h.frames)
}
