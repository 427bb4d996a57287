package filter

import (
	"encoding/json"

	"voxelcraft.ai/storagenet/internal/sim/network/model"
)

// MaxSlots is the number of pattern slots a filter carries.
const MaxSlots = 18

// Filter decides which stacks a link accepts. A zero Filter is an empty
// blacklist and accepts everything.
type Filter struct {
	Items         [MaxSlots]model.Stack
	Whitelist     bool
	MetaSensitive bool
}

// Filtered reports whether s is rejected.
func (f *Filter) Filtered(s model.Stack) bool {
	matched := false
	for _, p := range f.Items {
		if model.MatchPattern(p, s, f.MetaSensitive) {
			matched = true
			break
		}
	}
	if f.Whitelist {
		return !matched
	}
	return matched
}

// Set stores a pattern (count is normalised to 1). Out-of-range slots are ignored.
func (f *Filter) Set(slot int, s model.Stack) {
	if slot < 0 || slot >= MaxSlots {
		return
	}
	f.Items[slot] = s.WithCount(1)
}

func (f *Filter) Clear() { f.Items = [MaxSlots]model.Stack{} }

// Patterns returns the non-empty pattern slots in slot order.
func (f *Filter) Patterns() []model.Stack {
	out := make([]model.Stack, 0, MaxSlots)
	for _, p := range f.Items {
		if !p.IsEmpty() {
			out = append(out, p)
		}
	}
	return out
}

type slotJSON struct {
	Slot  int         `json:"slot"`
	Stack model.Stack `json:"stack"`
}

type filterJSON struct {
	Items     []slotJSON `json:"items"`
	Whitelist bool       `json:"whitelist"`
	Meta      bool       `json:"meta"`
}

func (f Filter) MarshalJSON() ([]byte, error) {
	out := filterJSON{Items: []slotJSON{}, Whitelist: f.Whitelist, Meta: f.MetaSensitive}
	for i, p := range f.Items {
		if p.IsEmpty() {
			continue
		}
		out.Items = append(out.Items, slotJSON{Slot: i, Stack: p})
	}
	return json.Marshal(out)
}

// UnmarshalJSON never fails: a malformed blob leaves the default filter and
// malformed slots are dropped.
func (f *Filter) UnmarshalJSON(b []byte) error {
	*f = Filter{}
	var in filterJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return nil
	}
	f.Whitelist = in.Whitelist
	f.MetaSensitive = in.Meta
	for _, s := range in.Items {
		f.Set(s.Slot, s.Stack)
	}
	return nil
}
