package world

import (
	"voxelcraft.ai/storagenet/internal/protocol"
	"voxelcraft.ai/storagenet/internal/sim/network/controller"
	"voxelcraft.ai/storagenet/internal/sim/network/model"
)

func (w *World) controllerAt(p model.DimPos) (*controller.Controller, error) {
	c, ok := w.controllers[p]
	if !ok {
		return nil, ErrNoController
	}
	if !w.Loaded(p) {
		return nil, ErrChunkNotLoaded
	}
	return c, nil
}

func (w *World) List(p model.DimPos) ([]model.Stack, error) {
	c, err := w.controllerAt(p)
	if err != nil {
		return nil, err
	}
	return c.ListAll(), nil
}

// Insert routes s into the network rooted at p and returns what did not fit.
func (w *World) Insert(actor string, p model.DimPos, s model.Stack, simulate bool) (model.Stack, error) {
	c, err := w.controllerAt(p)
	if err != nil {
		return s, err
	}
	rem := c.Insert(s, simulate)
	if moved := s.Count - rem.Count; !simulate && !s.IsEmpty() && moved > 0 {
		w.audit(actor, "NET_INSERT", p, "", map[string]any{"item": s.Item, "meta": s.Meta, "count": moved})
	}
	return rem, nil
}

func (w *World) Extract(actor string, p model.DimPos, q ExtractQuery, simulate bool) (model.Stack, error) {
	c, err := w.controllerAt(p)
	if err != nil {
		return model.Empty, err
	}
	got := c.Extract(q.matcher(), q.Count, simulate)
	if !simulate && !got.IsEmpty() {
		w.audit(actor, "NET_EXTRACT", p, "", map[string]any{"item": got.Item, "meta": got.Meta, "count": got.Count})
	}
	return got, nil
}

func (w *World) Refresh(actor string, p model.DimPos) (members int, truncated bool, err error) {
	c, err := w.controllerAt(p)
	if err != nil {
		return 0, false, err
	}
	c.Refresh()
	w.audit(actor, "NET_REFRESH", p, "", map[string]any{"members": c.MemberCount(), "truncated": c.Truncated()})
	return c.MemberCount(), c.Truncated(), nil
}

// Report is what activating the controller at p shows: a census of member
// blocks plus the links in routing order.
func (w *World) Report(p model.DimPos) (protocol.NetworkReport, error) {
	c, err := w.controllerAt(p)
	if err != nil {
		return protocol.NetworkReport{}, err
	}
	r := c.Report(w.BlockName)
	out := protocol.NetworkReport{
		Controller: r.Controller,
		Members:    r.Members,
		Truncated:  r.Truncated,
		EmptySlots: r.EmptySlots,
		Blocks:     make([]protocol.BlockCount, 0, len(r.Blocks)),
		Links:      []protocol.LinkSummary{},
	}
	for _, b := range r.Blocks {
		out.Blocks = append(out.Blocks, protocol.BlockCount{Name: b.Name, Count: b.Count})
	}
	for _, l := range c.Links() {
		out.Links = append(out.Links, protocol.LinkSummary{
			Pos:       l.Pos().String(),
			Priority:  l.Priority(),
			Direction: l.TransferDirection().String(),
			Face:      l.Face.String(),
		})
	}
	return out, nil
}
