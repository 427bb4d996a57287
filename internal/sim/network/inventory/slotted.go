package inventory

import "voxelcraft.ai/storagenet/internal/sim/network/model"

const DefaultStackLimit = 64

// Slotted is a chest-like inventory: a fixed slot count and a per-slot
// stack limit.
type Slotted struct {
	slots []model.Stack
	limit int
}

func NewSlotted(slots, limit int) *Slotted {
	if slots < 0 {
		slots = 0
	}
	if limit <= 0 {
		limit = DefaultStackLimit
	}
	return &Slotted{slots: make([]model.Stack, slots), limit: limit}
}

func (s *Slotted) Slots() int { return len(s.slots) }

func (s *Slotted) Limit() int { return s.limit }

func (s *Slotted) Peek(slot int) model.Stack {
	if slot < 0 || slot >= len(s.slots) {
		return model.Empty
	}
	return s.slots[slot].Copy()
}

func (s *Slotted) Insert(slot int, in model.Stack, simulate bool) model.Stack {
	if in.IsEmpty() || slot < 0 || slot >= len(s.slots) {
		return in
	}
	cur := s.slots[slot]
	if !cur.IsEmpty() && !model.CanStack(cur, in) {
		return in
	}
	room := s.limit - cur.Count
	if cur.IsEmpty() {
		room = s.limit
	}
	if room <= 0 {
		return in
	}
	n := min(room, in.Count)
	if !simulate {
		if cur.IsEmpty() {
			s.slots[slot] = in.WithCount(n)
		} else {
			s.slots[slot].Count += n
		}
	}
	return in.WithCount(in.Count - n)
}

func (s *Slotted) Extract(slot int, max int, simulate bool) model.Stack {
	if max <= 0 || slot < 0 || slot >= len(s.slots) {
		return model.Empty
	}
	cur := s.slots[slot]
	if cur.IsEmpty() {
		return model.Empty
	}
	n := min(max, cur.Count)
	if !simulate {
		s.slots[slot] = cur.WithCount(cur.Count - n)
	}
	return cur.WithCount(n)
}

// Contents returns a copy of every slot, empty slots included.
func (s *Slotted) Contents() []model.Stack {
	out := make([]model.Stack, len(s.slots))
	copy(out, s.slots)
	return out
}

// Restore replaces slot contents; extra stacks are dropped and counts are
// clamped to the limit.
func (s *Slotted) Restore(stacks []model.Stack) {
	for i := range s.slots {
		s.slots[i] = model.Empty
		if i < len(stacks) {
			s.slots[i] = stacks[i].WithCount(min(stacks[i].Count, s.limit))
		}
	}
}

// Total counts items of the given identity across all slots.
func (s *Slotted) Total(key model.StackKey) int {
	n := 0
	for _, st := range s.slots {
		if !st.IsEmpty() && st.Key() == key {
			n += st.Count
		}
	}
	return n
}
