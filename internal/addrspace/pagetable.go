package addrspace

// addPage (component B "add"): ensures a secondary table exists for vaddr's
// root index and sets that page's flags. Does not allocate a frame. Unlike
// getPage, it does not bounds-check the root index. Callers only ever
// reach here through region/stack/heap definitions whose addresses are
// already below userSpaceTop, matching the source's own asymmetry between
// add_single_vaddr_page and get_page.
func (as *AddressSpace) addPage(vaddr uint32, flags Flags) *PageEntry {
	vpn := vaddr / PageSize
	prefix := vpn >> 10
	secIdx := vpn & (NumSecondaryEntries - 1)

	if as.root[prefix].index != int(prefix) {
		panic("addrspace: root page table corrupt")
	}
	if as.root[prefix].target == nil {
		as.createSecondaryTable(int(prefix))
	}

	entry := &as.root[prefix].target[secIdx]
	entry.Flags = flags
	return entry
}

// getPage (component B "get"): returns the page entry for vaddr, or nil if
// the root index is out of range or its secondary table hasn't been
// allocated. A non-nil entry with Flags == FlagUndefined means "slot exists
// but was never defined", the same outcome as undefined for fault
// handling.
func (as *AddressSpace) getPage(vaddr uint32) *PageEntry {
	vpn := vaddr / PageSize
	prefix := vpn >> 10
	secIdx := vpn & (NumSecondaryEntries - 1)

	if prefix >= NumRootEntries {
		return nil
	}
	if as.root[prefix].index != int(prefix) {
		panic("addrspace: root page table corrupt")
	}
	if as.root[prefix].target == nil {
		return nil
	}
	return &as.root[prefix].target[secIdx]
}

// createSecondaryTable allocates and initialises the secondary table for
// root index prefix: every entry gets its permanent VAddrPage, the paddr
// sentinel, and FlagUndefined.
func (as *AddressSpace) createSecondaryTable(prefix int) {
	if as.root[prefix].target != nil {
		panic("addrspace: secondary table already allocated")
	}
	if ok := as.hw.Alloc(secondaryTableHeapCost); !ok {
		panic(nomem{err: nomemError("createSecondaryTable", "kernel heap exhausted allocating secondary page table")})
	}

	tbl := new(secondaryTable)
	for i := range tbl {
		tbl[i] = PageEntry{
			VAddrPage: uint32(prefix)<<10 | uint32(i),
			PAddrTLB:  sentinelPAddr,
			Flags:     FlagUndefined,
		}
	}
	as.root[prefix].target = tbl
}
