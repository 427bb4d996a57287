package inventory

import "voxelcraft.ai/storagenet/internal/sim/network/model"

// Inventory is the slotted container contract adjacent blocks expose.
// Implementations own their slot geometry and stacking limits.
type Inventory interface {
	Slots() int
	Peek(slot int) model.Stack
	// Insert returns the part of s the slot did not accept.
	Insert(slot int, s model.Stack, simulate bool) model.Stack
	// Extract returns up to max items from slot.
	Extract(slot int, max int, simulate bool) model.Stack
}

// InsertStacked spreads s over inv: slots already holding a stackable stack
// are topped up first, then empty slots are filled. It returns the remainder.
func InsertStacked(inv Inventory, s model.Stack, simulate bool) model.Stack {
	if inv == nil || s.IsEmpty() {
		return s
	}
	n := inv.Slots()
	for slot := 0; slot < n && !s.IsEmpty(); slot++ {
		if model.CanStack(inv.Peek(slot), s) {
			s = inv.Insert(slot, s, simulate)
		}
	}
	for slot := 0; slot < n && !s.IsEmpty(); slot++ {
		if inv.Peek(slot).IsEmpty() {
			s = inv.Insert(slot, s, simulate)
		}
	}
	return s
}
