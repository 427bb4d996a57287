package main

import (
	"strings"
	"testing"

	"voxelcraft.ai/storagenet/internal/sim/network/model"
	"voxelcraft.ai/storagenet/internal/sim/world"
)

func TestSeedDemo_RoutesCobblestoneToFilteredChest(t *testing.T) {
	w, err := world.New(world.WorldConfig{ID: "demo", TickRateHz: 20})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := seedDemo(w); err != nil {
		t.Fatalf("seed: %v", err)
	}
	ctrl := model.DimPos{Dim: "overworld", X: 0, Y: 64, Z: 0}
	if rem, err := w.Insert("t", ctrl, model.Stack{Item: "COBBLESTONE", Count: 5}, false); err != nil || !rem.IsEmpty() {
		t.Fatalf("insert rem=%v err=%v", rem, err)
	}
	filtered, ok := w.Chest(model.DimPos{Dim: "overworld", X: 3, Y: 65, Z: 1})
	if !ok {
		t.Fatalf("filtered chest missing")
	}
	if n := filtered.Total(model.Stack{Item: "COBBLESTONE", Count: 1}.Key()); n != 5 {
		t.Fatalf("filtered chest cobblestone=%d, want 5", n)
	}
	list, err := w.List(ctrl)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 4 {
		t.Fatalf("list=%v, want 3 seeded stacks plus cobblestone", list)
	}
	// Extraction skips OUT links, so the filtered chest keeps its cobblestone.
	got, err := w.Extract("t", ctrl, world.ExtractQuery{Pattern: model.Stack{Item: "COBBLESTONE", Count: 1}, Count: 5}, false)
	if err != nil || !got.IsEmpty() {
		t.Fatalf("extract=%v err=%v, want empty", got, err)
	}
}

func TestOpenRuntimeIndex(t *testing.T) {
	idx, err := openRuntimeIndex(t.TempDir(), true)
	if err != nil || idx != nil {
		t.Fatalf("disabled idx=%v err=%v", idx, err)
	}

	t.Setenv("SN_INDEX_BACKEND", "bogus")
	if _, err := openRuntimeIndex(t.TempDir(), false); err == nil {
		t.Fatalf("expected unsupported backend error")
	}

	t.Setenv("SN_INDEX_BACKEND", "")
	idx, err = openRuntimeIndex(t.TempDir(), false)
	if err != nil || idx == nil {
		t.Fatalf("sqlite idx=%v err=%v", idx, err)
	}
	defer idx.Close()

	w, err := world.New(world.WorldConfig{ID: "m", TickRateHz: 20})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	var sb strings.Builder
	writeMetrics(&sb, "m", w, idx)
	for _, want := range []string{`storagenet_world_tick{world="m"} 0`, `storagenet_index_dropped_total{world="m",kind="audit"} 0`} {
		if !strings.Contains(sb.String(), want) {
			t.Fatalf("metrics missing %q:\n%s", want, sb.String())
		}
	}
}

func TestMultiLoggers_TolerateNil(t *testing.T) {
	if err := (multiTickLogger{}).WriteTick(world.TickLogEntry{Tick: 1}); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if err := (multiAuditLogger{}).WriteAudit(world.AuditEntry{Tick: 1}); err != nil {
		t.Fatalf("audit: %v", err)
	}
}
