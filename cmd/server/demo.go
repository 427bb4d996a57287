package main

import (
	"voxelcraft.ai/storagenet/internal/sim/network/link"
	"voxelcraft.ai/storagenet/internal/sim/network/model"
	"voxelcraft.ai/storagenet/internal/sim/world"
)

// seedDemo builds one network in chunk (0,0): a controller, a short cable run
// and two linked chests. The OUT chest only accepts cobblestone and outranks
// the BOTH chest, so cobblestone lands there first.
func seedDemo(w *world.World) error {
	at := func(x, y, z int) model.DimPos { return model.DimPos{Dim: "overworld", X: x, Y: y, Z: z} }
	w.LoadChunk("overworld", 0, 0)

	if _, err := w.PlaceController(at(0, 64, 0), "demo"); err != nil {
		return err
	}
	for x := 1; x <= 3; x++ {
		if err := w.PlaceBlock(at(x, 64, 0), world.BlockCable); err != nil {
			return err
		}
	}
	if _, err := w.PlaceLink(at(4, 64, 0), model.FaceUp); err != nil {
		return err
	}
	store, err := w.PlaceChest(at(4, 65, 0), 0)
	if err != nil {
		return err
	}
	if _, err := w.PlaceLink(at(3, 64, 1), model.FaceUp); err != nil {
		return err
	}
	if _, err := w.PlaceChest(at(3, 65, 1), 0); err != nil {
		return err
	}
	if err := w.ConfigureLink(at(3, 64, 1), func(l *link.Link) {
		l.Direction = model.DirOut
		l.Prio = 10
		l.Filter.Whitelist = true
		l.Filter.Set(0, model.Stack{Item: "COBBLESTONE", Count: 1})
	}); err != nil {
		return err
	}
	store.Restore([]model.Stack{
		{Item: "IRON_INGOT", Count: 32},
		{Item: "WOOL", Meta: 14, Count: 16},
		{Item: "WOOL", Meta: 3, Count: 8},
	})
	return nil
}
