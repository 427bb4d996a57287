package world

import (
	"voxelcraft.ai/storagenet/internal/sim/network/controller"
	"voxelcraft.ai/storagenet/internal/sim/network/inventory"
	"voxelcraft.ai/storagenet/internal/sim/network/link"
	"voxelcraft.ai/storagenet/internal/sim/network/membership"
	"voxelcraft.ai/storagenet/internal/sim/network/model"
)

func (w *World) LoadChunk(dim string, cx, cz int) {
	w.loaded[chunkKey{Dim: dim, CX: cx, CZ: cz}] = struct{}{}
	w.refreshAll()
}

func (w *World) UnloadChunk(dim string, cx, cz int) {
	delete(w.loaded, chunkKey{Dim: dim, CX: cx, CZ: cz})
	w.refreshAll()
}

// LoadChunkAt loads the chunk holding p.
func (w *World) LoadChunkAt(p model.DimPos) {
	k := w.chunkOf(p)
	w.LoadChunk(k.Dim, k.CX, k.CZ)
}

func (w *World) placeable(p model.DimPos) error {
	if !w.Loaded(p) {
		return ErrChunkNotLoaded
	}
	if n := w.BlockName(p); n != "" {
		return ErrOccupied
	}
	return nil
}

// PlaceBlock puts a plain block such as cable or stone at p.
func (w *World) PlaceBlock(p model.DimPos, name string) error {
	switch name {
	case "", BlockAir:
		return ErrBadBlock
	case BlockLink, BlockChest, BlockController:
		return ErrBadBlock
	}
	if err := w.placeable(p); err != nil {
		return err
	}
	w.blocks[p] = name
	if name == BlockCable {
		w.refreshAll()
	}
	return nil
}

// PlaceChest puts an empty chest at p. slots <= 0 uses the configured size.
func (w *World) PlaceChest(p model.DimPos, slots int) (*inventory.Slotted, error) {
	if err := w.placeable(p); err != nil {
		return nil, err
	}
	if slots <= 0 {
		slots = w.cfg.ChestSlots
	}
	c := inventory.NewSlotted(slots, w.cfg.StackLimit)
	w.blocks[p] = BlockChest
	w.chests[p] = c
	return c, nil
}

// PlaceLink puts a link at p attached to the inventory on face.
func (w *World) PlaceLink(p model.DimPos, face model.Face) (*link.Link, error) {
	if err := w.placeable(p); err != nil {
		return nil, err
	}
	l := link.New(p, w)
	l.Face = face
	w.blocks[p] = BlockLink
	w.links[p] = l
	w.refreshAll()
	return l, nil
}

// ConfigureLink applies fn to the link at p.
func (w *World) ConfigureLink(p model.DimPos, fn func(*link.Link)) error {
	l, ok := w.links[p]
	if !ok {
		return ErrNoLink
	}
	if !w.Loaded(p) {
		return ErrChunkNotLoaded
	}
	fn(l)
	return nil
}

// PlaceController places a network root at p. Placement is refused when a
// neighbour already belongs to a network, or when the network the new
// controller would span reaches an existing controller or member. The
// controller item is dropped at p instead.
func (w *World) PlaceController(p model.DimPos, placer string) (PlaceResult, error) {
	if err := w.placeable(p); err != nil {
		return PlaceResult{}, err
	}
	existing := w.Controllers()
	for _, n := range p.Neighbours() {
		for _, cp := range existing {
			if w.controllers[cp].Contains(n) {
				return w.rejectController(p, placer, cp, "neighbour already in network", n), nil
			}
		}
	}
	// Span the candidate network as if the controller were already there.
	// Truncated networks leave connectables unclaimed next to their members.
	span := membership.Members(w, p, w.cfg.MemberCap)
	for _, q := range span.Sorted() {
		for _, cp := range existing {
			if q == cp || w.controllers[cp].Contains(q) {
				return w.rejectController(p, placer, cp, "network overlaps existing network", q), nil
			}
		}
	}

	w.blocks[p] = BlockController
	w.controllers[p] = controller.New(p, w, w.cfg.MemberCap)
	w.refreshAll()
	w.audit(placer, "PLACE_CONTROLLER", p, "", map[string]any{"members": w.controllers[p].MemberCount()})
	return PlaceResult{Placed: true}, nil
}

func (w *World) rejectController(p model.DimPos, placer string, conflict model.DimPos, reason string, at model.DimPos) PlaceResult {
	drop := ItemDrop{Pos: p, Stack: model.Stack{Item: BlockController, Count: 1}}
	w.drops = append(w.drops, drop)
	w.audit(placer, "PLACE_CONTROLLER", p, reason, map[string]any{
		"network": conflict.String(),
		"at":      at.String(),
	})
	return PlaceResult{Conflict: conflict, Drop: &drop}
}

// BreakBlock removes whatever is at p. The block item and any chest contents
// are dropped at p.
func (w *World) BreakBlock(p model.DimPos, actor string) ([]ItemDrop, error) {
	if !w.Loaded(p) {
		return nil, ErrChunkNotLoaded
	}
	name := w.BlockName(p)
	if name == "" {
		return nil, nil
	}
	drops := []ItemDrop{{Pos: p, Stack: model.Stack{Item: name, Count: 1}}}
	if c, ok := w.chests[p]; ok {
		for _, s := range c.Contents() {
			if !s.IsEmpty() {
				drops = append(drops, ItemDrop{Pos: p, Stack: s})
			}
		}
	}
	delete(w.blocks, p)
	delete(w.chests, p)
	delete(w.links, p)
	delete(w.controllers, p)
	w.drops = append(w.drops, drops...)
	w.refreshAll()
	w.audit(actor, "BREAK_BLOCK", p, "", map[string]any{"block": name})
	return drops, nil
}
