package world

import (
	"fmt"
	"sort"

	"voxelcraft.ai/storagenet/internal/persistence/snapshot"
	"voxelcraft.ai/storagenet/internal/sim/network/controller"
	"voxelcraft.ai/storagenet/internal/sim/network/inventory"
	"voxelcraft.ai/storagenet/internal/sim/network/link"
	"voxelcraft.ai/storagenet/internal/sim/network/model"
)

func toSnapPos(p model.DimPos) snapshot.Pos {
	return snapshot.Pos{Dim: p.Dim, X: p.X, Y: p.Y, Z: p.Z}
}

func fromSnapPos(p snapshot.Pos) model.DimPos {
	return model.DimPos{Dim: p.Dim, X: p.X, Y: p.Y, Z: p.Z}
}

func toSnapStack(s model.Stack) snapshot.StackV1 {
	if s.IsEmpty() {
		return snapshot.StackV1{}
	}
	return snapshot.StackV1{Item: s.Item, Meta: s.Meta, Tag: s.Tag, Count: s.Count}
}

func fromSnapStack(s snapshot.StackV1) model.Stack {
	return model.Stack{Item: s.Item, Meta: s.Meta, Tag: s.Tag, Count: s.Count}.WithCount(s.Count)
}

func sortedPositions[V any](m map[model.DimPos]V) []model.DimPos {
	out := make([]model.DimPos, 0, len(m))
	for p := range m {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// ExportSnapshot captures the world as of nowTick. Output order is stable so
// equal worlds produce equal snapshots.
func (w *World) ExportSnapshot(nowTick uint64) snapshot.SnapshotV1 {
	s := snapshot.SnapshotV1{
		Header:    snapshot.Header{Version: snapshot.Version, WorldID: w.cfg.ID, Tick: nowTick},
		TickRate:  w.cfg.TickRateHz,
		MemberCap: w.cfg.MemberCap,
		ChunkSize: w.cfg.ChunkSize,
	}

	chunks := make([]chunkKey, 0, len(w.loaded))
	for k := range w.loaded {
		chunks = append(chunks, k)
	}
	sort.Slice(chunks, func(i, j int) bool {
		a, b := chunks[i], chunks[j]
		if a.Dim != b.Dim {
			return a.Dim < b.Dim
		}
		if a.CX != b.CX {
			return a.CX < b.CX
		}
		return a.CZ < b.CZ
	})
	for _, k := range chunks {
		s.Chunks = append(s.Chunks, snapshot.ChunkV1{Dim: k.Dim, CX: k.CX, CZ: k.CZ})
	}

	for _, p := range sortedPositions(w.blocks) {
		if w.blocks[p] == BlockAir {
			continue
		}
		s.Blocks = append(s.Blocks, snapshot.BlockV1{Pos: toSnapPos(p), Name: w.blocks[p]})
	}
	for _, p := range sortedPositions(w.chests) {
		c := w.chests[p]
		cv := snapshot.ChestV1{Pos: toSnapPos(p), Limit: c.Limit()}
		for _, st := range c.Contents() {
			cv.Slots = append(cv.Slots, toSnapStack(st))
		}
		s.Chests = append(s.Chests, cv)
	}
	for _, p := range sortedPositions(w.links) {
		b, err := w.links[p].MarshalRecord()
		if err != nil {
			continue
		}
		s.Links = append(s.Links, snapshot.LinkV1{Pos: toSnapPos(p), Record: b})
	}
	for _, p := range sortedPositions(w.controllers) {
		s.Controllers = append(s.Controllers, snapshot.ControllerV1{Pos: toSnapPos(p)})
	}
	for _, d := range w.drops {
		s.Drops = append(s.Drops, snapshot.DropV1{Pos: toSnapPos(d.Pos), Stack: toSnapStack(d.Stack)})
	}
	return s
}

// ImportSnapshot replaces the current in-memory world state with the snapshot.
// It sets the world's tick to snapshotTick+1 (the next tick to simulate).
// Link records that needed fallbacks are reported to the audit logger.
//
// This must be called only when the world is stopped or from the world loop goroutine.
func (w *World) ImportSnapshot(s snapshot.SnapshotV1) error {
	if s.Header.Version != snapshot.Version {
		return fmt.Errorf("snapshot version %d unsupported", s.Header.Version)
	}
	if s.ChunkSize > 0 {
		w.cfg.ChunkSize = s.ChunkSize
	}
	if s.MemberCap > 0 {
		w.cfg.MemberCap = s.MemberCap
	}
	w.reset()
	w.tick.Store(s.Header.Tick + 1)

	for _, c := range s.Chunks {
		w.loaded[chunkKey{Dim: c.Dim, CX: c.CX, CZ: c.CZ}] = struct{}{}
	}
	for _, b := range s.Blocks {
		w.blocks[fromSnapPos(b.Pos)] = b.Name
	}
	for _, cv := range s.Chests {
		p := fromSnapPos(cv.Pos)
		c := inventory.NewSlotted(len(cv.Slots), cv.Limit)
		stacks := make([]model.Stack, len(cv.Slots))
		for i, st := range cv.Slots {
			stacks[i] = fromSnapStack(st)
		}
		c.Restore(stacks)
		w.chests[p] = c
		w.blocks[p] = BlockChest
	}
	for _, lv := range s.Links {
		p := fromSnapPos(lv.Pos)
		if err := link.ValidateRecord(lv.Record); err != nil {
			w.audit("WORLD", "LINK_RECORD_INVALID", p, err.Error(), nil)
		}
		l, notes := link.Decode(p, w, lv.Record)
		for _, n := range notes {
			w.audit("WORLD", "LINK_RECORD_FALLBACK", p, n, nil)
		}
		w.links[p] = l
		w.blocks[p] = BlockLink
	}
	for _, cv := range s.Controllers {
		p := fromSnapPos(cv.Pos)
		w.controllers[p] = controller.New(p, w, w.cfg.MemberCap)
		w.blocks[p] = BlockController
	}
	for _, d := range s.Drops {
		w.drops = append(w.drops, ItemDrop{Pos: fromSnapPos(d.Pos), Stack: fromSnapStack(d.Stack)})
	}
	w.refreshAll()
	return nil
}
