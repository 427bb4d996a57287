package controller

import (
	"sort"

	"voxelcraft.ai/storagenet/internal/sim/network/link"
	"voxelcraft.ai/storagenet/internal/sim/network/membership"
	"voxelcraft.ai/storagenet/internal/sim/network/model"
)

// Env is the host view a controller needs: connectivity plus link lookup.
type Env interface {
	membership.Env
	LinkAt(pos model.DimPos) (*link.Link, bool)
}

// Controller is the root of one storage network. It stores positions only;
// links are resolved through Env on every operation.
type Controller struct {
	pos     model.DimPos
	env     Env
	cap     int
	members membership.Result
}

func New(pos model.DimPos, env Env, maxMembers int) *Controller {
	c := &Controller{pos: pos, env: env, cap: maxMembers}
	c.members = membership.Result{Set: map[model.DimPos]struct{}{pos: {}}}
	return c
}

func (c *Controller) Pos() model.DimPos { return c.pos }

// Refresh recomputes the member set.
func (c *Controller) Refresh() {
	c.members = membership.Members(c.env, c.pos, c.cap)
}

func (c *Controller) Members() []model.DimPos { return c.members.Sorted() }

func (c *Controller) MemberCount() int { return c.members.Len() }

func (c *Controller) Contains(p model.DimPos) bool { return c.members.Contains(p) }

// Truncated reports whether the last refresh hit the member cap.
func (c *Controller) Truncated() bool { return c.members.Truncated }

// Links returns the links among the members in routing order: descending
// priority, ties broken by position. When several links face the same
// inventory only the first in routing order is kept, so the inventory is
// listed and routed once.
func (c *Controller) Links() []*link.Link {
	if c.env == nil {
		return nil
	}
	var out []*link.Link
	for _, p := range c.members.Sorted() {
		if l, ok := c.env.LinkAt(p); ok && l != nil {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority() != out[j].Priority() {
			return out[i].Priority() > out[j].Priority()
		}
		return out[i].Pos().Less(out[j].Pos())
	})
	targets := make(map[model.DimPos]struct{}, len(out))
	kept := out[:0]
	for _, l := range out {
		if t, ok := l.Target(); ok {
			if _, dup := targets[t]; dup {
				continue
			}
			targets[t] = struct{}{}
		}
		kept = append(kept, l)
	}
	return kept
}

// ListAll aggregates the stacks visible through every non-IN link. Stacks of
// one identity are merged; order follows first occurrence.
func (c *Controller) ListAll() []model.Stack {
	var out []model.Stack
	index := map[model.StackKey]int{}
	for _, l := range c.Links() {
		if l.TransferDirection() == model.DirIn {
			continue
		}
		for _, s := range l.List() {
			if s.IsEmpty() {
				continue
			}
			if i, ok := index[s.Key()]; ok {
				out[i].Count += s.Count
				continue
			}
			index[s.Key()] = len(out)
			out = append(out, s.Copy())
		}
	}
	return out
}

// Insert offers s to links in routing order and returns the remainder.
func (c *Controller) Insert(s model.Stack, simulate bool) model.Stack {
	if s.IsEmpty() {
		return model.Empty
	}
	for _, l := range c.Links() {
		if !l.TransferDirection().AcceptsInsert() {
			continue
		}
		s = l.Insert(s, simulate)
		if s.IsEmpty() {
			return model.Empty
		}
	}
	return s
}

// Extract collects up to size items of a single identity accepted by m.
// Once a link contributes, later links are asked only for stacks that can
// stack with that contribution.
func (c *Controller) Extract(m model.Matcher, size int, simulate bool) model.Stack {
	if m == nil || size <= 0 {
		return model.Empty
	}
	template := model.Empty
	remaining := size
	for _, l := range c.Links() {
		if !l.TransferDirection().AcceptsExtract() {
			continue
		}
		want := m
		if !template.IsEmpty() {
			want = model.PinnedMatcher(template)
		}
		got := l.Extract(want, remaining, simulate)
		if got.IsEmpty() {
			continue
		}
		if template.IsEmpty() {
			template = got.Copy()
		} else if !model.CanStack(template, got) {
			continue
		}
		remaining -= got.Count
		if remaining <= 0 {
			break
		}
	}
	return template.WithCount(size - remaining)
}

// EmptySlotCount sums empty slots over links that accept inserts.
func (c *Controller) EmptySlotCount() int {
	n := 0
	for _, l := range c.Links() {
		if !l.TransferDirection().AcceptsInsert() {
			continue
		}
		n += l.EmptySlotCount()
	}
	return n
}
