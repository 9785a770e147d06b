package addrspace

import (
	"errors"
	"testing"

	"dumbvm/internal/verr"
)

// TestFaultDemandZeroRead covers scenario S1: a read fault on a defined but
// never-touched page demand-allocates a zeroed frame and refills the TLB.
func TestFaultDemandZeroRead(t *testing.T) {
	h := NewTestHarness(t, 4, 4, -1)
	as := h.New()
	if err := as.DefineRegionNoHeap(0x1000, PageSize, true, true, false); err != nil {
		t.Fatalf("DefineRegionNoHeap() error = %v", err)
	}

	if err := as.Fault(FaultRead, 0x1000); err != nil {
		t.Fatalf("Fault() error = %v", err)
	}

	page := as.getPage(0x1000)
	if !page.hasFrame() {
		t.Fatalf("Fault() did not back the page with a frame")
	}
	contents := h.hw.Frame(page.frame())
	for i, b := range contents {
		if b != 0 {
			t.Fatalf("frame byte %d = %#x, want 0 (demand-zero)", i, b)
		}
	}
	if idx := h.hw.Probe(0x1000); idx < 0 {
		t.Errorf("TLB has no entry for 0x1000 after fault resolution")
	}
}

// TestFaultCOWBreakSlowPathWhenSharedCoversS2 covers scenario S2: a write
// fault on a COW page still shared with another address space copies the
// frame rather than reusing it, and the original owner keeps its frame.
func TestFaultCOWBreakSlowPathWhenSharedCoversS2(t *testing.T) {
	h := NewTestHarness(t, 4, 4, -1)
	src := h.New()
	if err := src.DefineRegionNoHeap(0x1000, PageSize, true, true, false); err != nil {
		t.Fatalf("DefineRegionNoHeap() error = %v", err)
	}
	if err := src.Fault(FaultRead, 0x1000); err != nil {
		t.Fatalf("Fault() on src error = %v", err)
	}
	srcFrame := src.getPage(0x1000).frame()

	dst, err := src.Copy()
	if err != nil {
		t.Fatalf("Copy() error = %v", err)
	}

	if err := dst.Fault(FaultWrite, 0x1000); err != nil {
		t.Fatalf("Fault(FaultWrite) on dst error = %v", err)
	}

	dstPage := dst.getPage(0x1000)
	if dstPage.COW {
		t.Errorf("dst page still marked COW after break")
	}
	if dstPage.frame() == srcFrame {
		t.Errorf("slow-path break should give dst a private frame, still on %d", srcFrame)
	}
	if got := h.frames.Refcount(src.getPage(0x1000).PAddrTLB); got != 1 {
		t.Errorf("src frame refcount after dst's break = %d, want 1", got)
	}
}

// TestFaultCOWBreakFastPathWhenSoleOwnerCoversS3 covers scenario S3: once
// the sibling address space is destroyed, the surviving owner's write fault
// reuses its own frame instead of copying.
func TestFaultCOWBreakFastPathWhenSoleOwnerCoversS3(t *testing.T) {
	h := NewTestHarness(t, 4, 4, -1)
	src := h.New()
	if err := src.DefineRegionNoHeap(0x1000, PageSize, true, true, false); err != nil {
		t.Fatalf("DefineRegionNoHeap() error = %v", err)
	}
	if err := src.Fault(FaultRead, 0x1000); err != nil {
		t.Fatalf("Fault() on src error = %v", err)
	}

	dst, err := src.Copy()
	if err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	frameBefore := dst.getPage(0x1000).frame()

	src.Destroy()

	if err := dst.Fault(FaultWrite, 0x1000); err != nil {
		t.Fatalf("Fault(FaultWrite) on dst error = %v", err)
	}

	dstPage := dst.getPage(0x1000)
	if dstPage.COW {
		t.Errorf("dst page still marked COW after sole-owner break")
	}
	if dstPage.frame() != frameBefore {
		t.Errorf("fast-path break reallocated the frame: %d -> %d", frameBefore, dstPage.frame())
	}
}

// TestFaultOnUndefinedAddressCoversS5 covers scenario S5: a fault on an
// address never defined in this address space is a FAULT error.
func TestFaultOnUndefinedAddressCoversS5(t *testing.T) {
	h := NewTestHarness(t, 4, 4, -1)
	as := h.New()

	err := as.Fault(FaultRead, 0x40000)
	if err == nil {
		t.Fatalf("Fault() on undefined address returned nil, want FAULT error")
	}
	if !errors.Is(err, verr.Fault) {
		t.Errorf("Fault() error = %v, want verr.Fault", err)
	}
}

// TestFaultWriteToReadOnlyPageCoversS6 covers scenario S6: a write-protect
// fault on a page that isn't copy-on-write is a FAULT error, and the page
// is never marked DIRTY.
func TestFaultWriteToReadOnlyPageCoversS6(t *testing.T) {
	h := NewTestHarness(t, 4, 4, -1)
	as := h.New()
	if err := as.DefineRegionNoHeap(0x1000, PageSize, true, false, false); err != nil {
		t.Fatalf("DefineRegionNoHeap() error = %v", err)
	}
	if err := as.Fault(FaultRead, 0x1000); err != nil {
		t.Fatalf("Fault(FaultRead) error = %v", err)
	}

	err := as.Fault(FaultReadOnly, 0x1000)
	if err == nil {
		t.Fatalf("Fault(FaultReadOnly) on a non-COW read-only page returned nil, want FAULT error")
	}
	if !errors.Is(err, verr.Fault) {
		t.Errorf("Fault() error = %v, want verr.Fault", err)
	}

	page := as.getPage(0x1000)
	if page.PAddrTLB&tlbloDirty != 0 {
		t.Errorf("read-only page was marked DIRTY after a rejected write fault")
	}
}

func TestFaultUnknownKindIsInval(t *testing.T) {
	h := NewTestHarness(t, 2, 2, -1)
	as := h.New()

	err := as.Fault(FaultKind(99), 0x1000)
	if !errors.Is(err, verr.Inval) {
		t.Errorf("Fault() with an unknown kind = %v, want verr.Inval", err)
	}
}
