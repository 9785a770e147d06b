package addrspace

import (
	"log/slog"

	"dumbvm/internal/verr"
)

// Fault is the TLB-refill / write-to-read-only fault handler (component E).
// It validates the fault, breaks copy-on-write sharing if needed, demand-
// allocates a frame if needed, and refills the TLB.
func (as *AddressSpace) Fault(kind FaultKind, faultAddress uint32) error {
	page := as.getPage(faultAddress)

	switch kind {
	case FaultReadOnly:
		if page == nil || !page.COW {
			return verr.New("Fault", verr.KindFault, "write to a read-only page that is not copy-on-write")
		}
	case FaultRead, FaultWrite:
		// fall through to the defined-page check below
	default:
		return verr.New("Fault", verr.KindInval, "unknown fault type")
	}

	if page == nil || page.Flags == FlagUndefined {
		return verr.New("Fault", verr.KindFault, "address not defined in this address space")
	}

	if page.COW && (kind == FaultWrite || kind == FaultReadOnly) {
		as.frames.breakCOW(page)
		as.invalidateTLBForPage(page)
	} else {
		as.frames.EnsurePaddr(page)
	}

	tok := as.hw.Raise()
	as.hw.Random(page.VAddrPage<<12, page.PAddrTLB)
	as.hw.Restore(tok)

	as.log.Debug("fault resolved",
		slog.Int("kind", int(kind)),
		slog.Uint64("addr", uint64(faultAddress)),
		slog.Bool("cow", page.COW),
	)

	return nil
}
