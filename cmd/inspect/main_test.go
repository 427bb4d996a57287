package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	persistlog "voxelcraft.ai/storagenet/internal/persistence/log"
	"voxelcraft.ai/storagenet/internal/sim/network/model"
	"voxelcraft.ai/storagenet/internal/sim/world"
)

func at(x, y, z int) model.DimPos { return model.DimPos{Dim: "overworld", X: x, Y: y, Z: z} }

func TestWriteReports_FromSnapshot(t *testing.T) {
	w, err := world.New(world.WorldConfig{ID: "w", TickRateHz: 20})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	w.LoadChunk("overworld", 0, 0)
	if res, err := w.PlaceController(at(0, 64, 0), "t"); err != nil || !res.Placed {
		t.Fatalf("controller: res=%+v err=%v", res, err)
	}
	if _, err := w.PlaceLink(at(1, 64, 0), model.FaceUp); err != nil {
		t.Fatalf("link: %v", err)
	}
	if _, err := w.PlaceChest(at(1, 65, 0), 0); err != nil {
		t.Fatalf("chest: %v", err)
	}
	if rem, _ := w.Insert("t", at(0, 64, 0), model.Stack{Item: "APPLE", Count: 7}, false); !rem.IsEmpty() {
		t.Fatalf("rem=%v", rem)
	}

	w2, err := worldFromSnapshot(w.ExportSnapshot(3))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	var buf bytes.Buffer
	if err := writeReports(&buf, w2, false); err != nil {
		t.Fatalf("report: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"controller overworld@0,64,0 members=2", "link  overworld@1,64,0 prio=0 dir=BOTH face=up", "item  APPLE:0 x7"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := writeReports(&buf, w2, true); err != nil {
		t.Fatalf("json report: %v", err)
	}
	if !strings.Contains(buf.String(), `"members": 2`) {
		t.Fatalf("json output:\n%s", buf.String())
	}
}

func TestTallyRequests(t *testing.T) {
	dir := t.TempDir()
	tl := persistlog.NewTickLogger(dir)
	entries := []world.TickLogEntry{
		{Tick: 1, Requests: []world.RecordedRequest{{Kind: "INSERT", OK: true}, {Kind: "LIST", OK: true}}},
		{Tick: 2, Requests: []world.RecordedRequest{{Kind: "INSERT", OK: false}}},
	}
	for _, e := range entries {
		if err := tl.WriteTick(e); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := tl.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, err := listEventFiles(filepath.Join(dir, "events"))
	if err != nil || len(files) != 1 {
		t.Fatalf("files=%v err=%v", files, err)
	}
	counts, err := tallyRequests(files)
	if err != nil {
		t.Fatalf("tally: %v", err)
	}
	if got := *counts["INSERT"]; got != [2]int{1, 1} {
		t.Fatalf("INSERT=%v, want [1 1]", got)
	}
	var buf bytes.Buffer
	writeTally(&buf, counts)
	if want := "requests INSERT   ok=1 failed=1\nrequests LIST     ok=1 failed=0\n"; buf.String() != want {
		t.Fatalf("tally=%q, want %q", buf.String(), want)
	}
}
