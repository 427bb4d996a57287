package world

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"voxelcraft.ai/storagenet/internal/persistence/snapshot"
	"voxelcraft.ai/storagenet/internal/sim/network/controller"
	"voxelcraft.ai/storagenet/internal/sim/network/inventory"
	"voxelcraft.ai/storagenet/internal/sim/network/link"
	"voxelcraft.ai/storagenet/internal/sim/network/membership"
	"voxelcraft.ai/storagenet/internal/sim/network/model"
)

type chunkKey struct {
	Dim string
	CX  int
	CZ  int
}

// World is the reference host for storage networks. Every method except the
// Request* helpers must be called from the loop goroutine or while Run is not
// running.
type World struct {
	cfg WorldConfig

	tick atomic.Uint64

	blocks      map[model.DimPos]string
	loaded      map[chunkKey]struct{}
	chests      map[model.DimPos]*inventory.Slotted
	links       map[model.DimPos]*link.Link
	controllers map[model.DimPos]*controller.Controller
	drops       []ItemDrop

	requests chan netReq
	stop     chan struct{}
	stopOnce sync.Once

	tickLogger   TickLogger
	auditLogger  AuditLogger
	snapshotSink chan<- snapshot.SnapshotV1
}

func New(cfg WorldConfig) (*World, error) {
	if cfg.TickRateHz <= 0 {
		return nil, fmt.Errorf("tick rate must be > 0, got %d", cfg.TickRateHz)
	}
	if cfg.MemberCap <= 0 {
		cfg.MemberCap = membership.DefaultCap
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 16
	}
	if cfg.ChestSlots <= 0 {
		cfg.ChestSlots = 27
	}
	if cfg.StackLimit <= 0 {
		cfg.StackLimit = inventory.DefaultStackLimit
	}
	w := &World{
		cfg:      cfg,
		requests: make(chan netReq, 1024),
		stop:     make(chan struct{}),
	}
	w.reset()
	return w, nil
}

func (w *World) reset() {
	w.blocks = map[model.DimPos]string{}
	w.loaded = map[chunkKey]struct{}{}
	w.chests = map[model.DimPos]*inventory.Slotted{}
	w.links = map[model.DimPos]*link.Link{}
	w.controllers = map[model.DimPos]*controller.Controller{}
	w.drops = nil
}

func (w *World) ID() string          { return w.cfg.ID }
func (w *World) Config() WorldConfig { return w.cfg }
func (w *World) CurrentTick() uint64 { return w.tick.Load() }

func (w *World) SetTickLogger(l TickLogger)                    { w.tickLogger = l }
func (w *World) SetAuditLogger(l AuditLogger)                  { w.auditLogger = l }
func (w *World) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { w.snapshotSink = ch }

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func (w *World) chunkOf(p model.DimPos) chunkKey {
	return chunkKey{Dim: p.Dim, CX: floorDiv(p.X, w.cfg.ChunkSize), CZ: floorDiv(p.Z, w.cfg.ChunkSize)}
}

func (w *World) Loaded(p model.DimPos) bool {
	_, ok := w.loaded[w.chunkOf(p)]
	return ok
}

// Connectable reports whether p holds a network block in a loaded chunk.
func (w *World) Connectable(p model.DimPos) bool {
	if !w.Loaded(p) {
		return false
	}
	switch w.blocks[p] {
	case BlockCable, BlockLink, BlockController:
		return true
	}
	return false
}

// InventoryAt exposes chests. Every side of a chest exposes the same slots.
func (w *World) InventoryAt(p model.DimPos, _ model.Face) (inventory.Inventory, bool) {
	if !w.Loaded(p) {
		return nil, false
	}
	c, ok := w.chests[p]
	if !ok {
		return nil, false
	}
	return c, true
}

func (w *World) LinkAt(p model.DimPos) (*link.Link, bool) {
	if !w.Loaded(p) {
		return nil, false
	}
	l, ok := w.links[p]
	return l, ok
}

// BlockName returns the block at p, or "" for air and unknown cells.
func (w *World) BlockName(p model.DimPos) string {
	n := w.blocks[p]
	if n == BlockAir {
		return ""
	}
	return n
}

// Chest returns the chest at p regardless of chunk state.
func (w *World) Chest(p model.DimPos) (*inventory.Slotted, bool) {
	c, ok := w.chests[p]
	return c, ok
}

// Controllers returns controller positions in DimPos order.
func (w *World) Controllers() []model.DimPos {
	out := make([]model.DimPos, 0, len(w.controllers))
	for p := range w.controllers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Drops returns every item spawned so far.
func (w *World) Drops() []ItemDrop {
	return append([]ItemDrop(nil), w.drops...)
}

// refreshAll recomputes every controller's members. Called after any event
// that can change connectivity.
func (w *World) refreshAll() {
	for _, p := range w.Controllers() {
		w.controllers[p].Refresh()
	}
}

// Summaries describes every network, in controller order.
func (w *World) Summaries() []NetworkSummary {
	var out []NetworkSummary
	for _, p := range w.Controllers() {
		c := w.controllers[p]
		out = append(out, NetworkSummary{
			Controller: p.String(),
			Members:    c.MemberCount(),
			Links:      len(c.Links()),
			Truncated:  c.Truncated(),
		})
	}
	return out
}

func (w *World) audit(actor, action string, pos model.DimPos, reason string, details map[string]any) {
	if w.auditLogger == nil {
		return
	}
	_ = w.auditLogger.WriteAudit(AuditEntry{
		Tick:    w.tick.Load(),
		Actor:   actor,
		Action:  action,
		Pos:     pos.String(),
		Reason:  reason,
		Details: details,
	})
}
