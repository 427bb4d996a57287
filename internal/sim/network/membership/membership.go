package membership

import (
	"sort"

	"voxelcraft.ai/storagenet/internal/sim/network/model"
)

// DefaultCap bounds a network when no explicit cap is configured.
const DefaultCap = 512

// Env answers the one world question membership needs. Cells in unloaded
// chunks must report false.
type Env interface {
	Connectable(pos model.DimPos) bool
}

type Result struct {
	Set map[model.DimPos]struct{}
	// Truncated is set when a connectable neighbour was left out because the
	// cap was reached.
	Truncated bool
}

func (r Result) Len() int { return len(r.Set) }

func (r Result) Contains(p model.DimPos) bool {
	_, ok := r.Set[p]
	return ok
}

// Sorted returns the members in DimPos.Less order.
func (r Result) Sorted() []model.DimPos {
	out := make([]model.DimPos, 0, len(r.Set))
	for p := range r.Set {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Members computes the connected component of root over face neighbours that
// the env reports connectable, bounded by maxNodes.
func Members(env Env, root model.DimPos, maxNodes int) Result {
	if maxNodes <= 0 {
		maxNodes = DefaultCap
	}
	res := Result{Set: map[model.DimPos]struct{}{root: {}}}
	if env == nil {
		return res
	}

	q := []model.DimPos{root}
	for len(q) > 0 {
		p := q[0]
		q = q[1:]
		for _, np := range p.Neighbours() {
			if _, seen := res.Set[np]; seen {
				continue
			}
			if !env.Connectable(np) {
				continue
			}
			if len(res.Set) >= maxNodes {
				res.Truncated = true
				return res
			}
			res.Set[np] = struct{}{}
			q = append(q, np)
		}
	}
	return res
}
