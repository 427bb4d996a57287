package controller

import (
	"sort"

	"voxelcraft.ai/storagenet/internal/sim/network/model"
)

type BlockCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Report summarises a network for display when the controller is activated.
type Report struct {
	Controller string       `json:"controller"`
	Members    int          `json:"members"`
	Truncated  bool         `json:"truncated,omitempty"`
	Links      int          `json:"links"`
	EmptySlots int          `json:"empty_slots"`
	Blocks     []BlockCount `json:"blocks"`
}

// Report counts members per block name, most common first. names resolves a
// member position to its block name; unnamed members are skipped.
func (c *Controller) Report(names func(model.DimPos) string) Report {
	counts := map[string]int{}
	for _, p := range c.members.Sorted() {
		n := ""
		if names != nil {
			n = names(p)
		}
		if n == "" {
			continue
		}
		counts[n]++
	}
	blocks := make([]BlockCount, 0, len(counts))
	for n, k := range counts {
		blocks = append(blocks, BlockCount{Name: n, Count: k})
	}
	sort.Slice(blocks, func(i, j int) bool {
		if blocks[i].Count != blocks[j].Count {
			return blocks[i].Count > blocks[j].Count
		}
		return blocks[i].Name < blocks[j].Name
	})
	return Report{
		Controller: c.pos.String(),
		Members:    c.members.Len(),
		Truncated:  c.members.Truncated,
		Links:      len(c.Links()),
		EmptySlots: c.EmptySlotCount(),
		Blocks:     blocks,
	}
}
