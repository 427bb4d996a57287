package link

import (
	"encoding/json"

	"voxelcraft.ai/storagenet/internal/sim/network/filter"
	"voxelcraft.ai/storagenet/internal/sim/network/inventory"
	"voxelcraft.ai/storagenet/internal/sim/network/model"
)

// Inventories resolves the inventory exposed at pos on the given side.
// Lookups happen per call; links never hold inventory handles.
type Inventories interface {
	InventoryAt(pos model.DimPos, side model.Face) (inventory.Inventory, bool)
}

// Operation is the pending-operation record of a link. It is persisted and
// re-emitted unchanged; nothing in the network reads it.
type Operation struct {
	Stack         json.RawMessage
	Limit         int
	MustBeSmaller bool
}

// Link binds one network endpoint to the inventory on one of its faces.
type Link struct {
	pos  model.DimPos
	invs Inventories

	Filter    filter.Filter
	Direction model.Direction
	Prio      int
	Face      model.Face
	Operation Operation
}

// New returns an unattached link: BOTH direction, empty blacklist, no face.
func New(pos model.DimPos, invs Inventories) *Link {
	return &Link{
		pos:       pos,
		invs:      invs,
		Direction: model.DirBoth,
		Face:      model.FaceNone,
		Operation: Operation{MustBeSmaller: true},
	}
}

func (l *Link) Pos() model.DimPos { return l.pos }

// Bind attaches the inventory lookup, e.g. after decoding a record.
func (l *Link) Bind(invs Inventories) { l.invs = invs }

func (l *Link) Priority() int { return l.Prio }

func (l *Link) TransferDirection() model.Direction { return l.Direction }

// Target is the position of the attached inventory, if a face is set.
func (l *Link) Target() (model.DimPos, bool) {
	if !l.Face.Valid() {
		return model.DimPos{}, false
	}
	return l.pos.Offset(l.Face), true
}

func (l *Link) inventory() inventory.Inventory {
	if l.invs == nil || !l.Face.Valid() {
		return nil
	}
	inv, ok := l.invs.InventoryAt(l.pos.Offset(l.Face), l.Face.Opposite())
	if !ok {
		return nil
	}
	return inv
}

// List returns copies of the stored stacks that pass the filter.
func (l *Link) List() []model.Stack {
	inv := l.inventory()
	if inv == nil {
		return nil
	}
	var out []model.Stack
	for slot := 0; slot < inv.Slots(); slot++ {
		s := inv.Peek(slot)
		if s.IsEmpty() || l.Filter.Filtered(s) {
			continue
		}
		out = append(out, s.Copy())
	}
	return out
}

// Insert offers s to the attached inventory and returns what was not accepted.
func (l *Link) Insert(s model.Stack, simulate bool) model.Stack {
	if s.IsEmpty() {
		return model.Empty
	}
	if !l.Direction.AllowsLinkTransfer() || l.Filter.Filtered(s) {
		return s
	}
	inv := l.inventory()
	if inv == nil {
		return s
	}
	return inventory.InsertStacked(inv, s, simulate)
}

// Extract pulls up to size items accepted by m. The first accepted slot pins
// the identity; later slots must stack with it.
func (l *Link) Extract(m model.Matcher, size int, simulate bool) model.Stack {
	if size <= 0 || m == nil || !l.Direction.AllowsLinkTransfer() {
		return model.Empty
	}
	inv := l.inventory()
	if inv == nil {
		return model.Empty
	}

	template := model.Empty
	remaining := size
	for slot := 0; slot < inv.Slots(); slot++ {
		// Always simulated: inventories may hide a slot, and a real pull here could dupe.
		peek := inv.Extract(slot, remaining, true)
		if peek.IsEmpty() || l.Filter.Filtered(peek) {
			continue
		}
		if template.IsEmpty() {
			if !m.Match(peek) {
				continue
			}
			template = peek.Copy()
		} else if !model.CanStack(template, peek) {
			continue
		}
		taken := inv.Extract(slot, min(peek.Count, remaining), simulate)
		remaining -= taken.Count
		if remaining <= 0 {
			break
		}
	}
	return template.WithCount(size - remaining)
}

// EmptySlotCount counts empty slots of the attached inventory.
func (l *Link) EmptySlotCount() int {
	if !l.Direction.AllowsLinkTransfer() {
		return 0
	}
	inv := l.inventory()
	if inv == nil {
		return 0
	}
	n := 0
	for slot := 0; slot < inv.Slots(); slot++ {
		if inv.Peek(slot).IsEmpty() {
			n++
		}
	}
	return n
}
