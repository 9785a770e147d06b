package addrspace

import "dumbvm/internal/hal"

// Bootstrap (component G) builds a frame table for a machine with numFrames
// physical frames, with every refcount zeroed. Nothing else needs
// initialising at boot: address spaces are created on demand by the loader.
func Bootstrap(hw hal.Hardware, numFrames int) *FrameTable {
	return NewFrameTable(hw, numFrames)
}
