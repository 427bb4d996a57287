package world

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"voxelcraft.ai/storagenet/internal/persistence/snapshot"
	"voxelcraft.ai/storagenet/internal/sim/network/link"
	"voxelcraft.ai/storagenet/internal/sim/network/model"
)

func TestRun_ServesRequests(t *testing.T) {
	w := newTestWorld(t)
	ctrl := buildNet(t, w)
	aud := &memAudit{}
	w.SetAuditLogger(aud)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	rem, err := w.RequestInsert(ctx, "bot", ctrl, apple(10), false)
	if err != nil || !rem.IsEmpty() {
		t.Fatalf("insert rem=%v err=%v", rem, err)
	}
	list, err := w.RequestList(ctx, ctrl)
	if err != nil || len(list) != 1 || list[0] != apple(10) {
		t.Fatalf("list=%v err=%v", list, err)
	}
	got, err := w.RequestExtract(ctx, "bot", ctrl, ExtractQuery{Pattern: apple(1), Count: 3}, false)
	if err != nil || got != apple(3) {
		t.Fatalf("extract=%v err=%v", got, err)
	}
	members, truncated, err := w.RequestRefresh(ctx, "bot", ctrl)
	if err != nil || members != 3 || truncated {
		t.Fatalf("refresh members=%d truncated=%v err=%v", members, truncated, err)
	}
	rep, err := w.RequestReport(ctx, ctrl)
	if err != nil || rep.Members != 3 {
		t.Fatalf("report=%+v err=%v", rep, err)
	}
	if _, err := w.RequestList(ctx, at(9, 9, 9)); !errors.Is(err, ErrNoController) {
		t.Fatalf("err=%v, want ErrNoController", err)
	}
	snap, err := w.RequestSnapshot(ctx)
	if err != nil || len(snap.Controllers) != 1 || len(snap.Chests) != 1 {
		t.Fatalf("snapshot controllers=%d chests=%d err=%v", len(snap.Controllers), len(snap.Chests), err)
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("run err=%v, want canceled", err)
	}
	if w.CurrentTick() == 0 {
		t.Fatalf("tick did not advance")
	}
	for _, action := range []string{"NET_INSERT", "NET_EXTRACT", "NET_REFRESH"} {
		if aud.count(action) != 1 {
			t.Fatalf("%s audits=%d, want 1", action, aud.count(action))
		}
	}
}

func TestRequest_ContextCanceled(t *testing.T) {
	w := newTestWorld(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := w.RequestList(ctx, at(0, 64, 0)); !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v, want canceled", err)
	}
}

func TestStep_TickLogAndSnapshotSink(t *testing.T) {
	w, err := New(WorldConfig{ID: "test", TickRateHz: 20, SnapshotEveryTicks: 2, SummaryEveryTicks: 1})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	w.LoadChunk("overworld", 0, 0)
	buildNet(t, w)
	ticks := &memTicks{}
	w.SetTickLogger(ticks)
	sink := make(chan snapshot.SnapshotV1, 1)
	w.SetSnapshotSink(sink)

	for i := 0; i < 3; i++ {
		w.step(nil)
	}
	if len(ticks.entries) != 3 {
		t.Fatalf("tick entries=%d, want 3", len(ticks.entries))
	}
	for i, e := range ticks.entries {
		if e.Tick != uint64(i) || len(e.Networks) != 1 || e.Networks[0].Members != 3 {
			t.Fatalf("entry %d=%+v", i, e)
		}
	}
	select {
	case s := <-sink:
		if s.Header.Tick != 2 || len(s.Controllers) != 1 {
			t.Fatalf("snapshot header=%+v controllers=%d", s.Header, len(s.Controllers))
		}
	default:
		t.Fatalf("no snapshot emitted")
	}
}

func TestSnapshot_RoundTrip(t *testing.T) {
	w := newTestWorld(t)
	ctrl := buildNet(t, w)
	if err := w.ConfigureLink(at(2, 64, 0), func(l *link.Link) {
		l.Prio = 5
		l.Direction = model.DirOut
		l.Filter.Whitelist = true
		l.Filter.Set(0, apple(1))
	}); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if rem, _ := w.Insert("alice", ctrl, apple(10), false); !rem.IsEmpty() {
		t.Fatalf("rem=%v", rem)
	}
	snap := w.ExportSnapshot(7)

	w2, err := New(w.Config())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := w2.ImportSnapshot(snap); err != nil {
		t.Fatalf("import: %v", err)
	}
	if w2.CurrentTick() != 8 {
		t.Fatalf("tick=%d, want 8", w2.CurrentTick())
	}
	if diff := cmp.Diff(snap, w2.ExportSnapshot(7)); diff != "" {
		t.Fatalf("re-export (-want +got):\n%s", diff)
	}
	r1, _ := w.Report(ctrl)
	r2, err := w2.Report(ctrl)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if diff := cmp.Diff(r1, r2); diff != "" {
		t.Fatalf("report (-want +got):\n%s", diff)
	}
	l, ok := w2.LinkAt(at(2, 64, 0))
	if !ok || l.Prio != 5 || l.Direction != model.DirOut || !l.Filter.Whitelist {
		t.Fatalf("link=%+v", l)
	}
	if list, _ := w2.List(ctrl); len(list) != 1 || list[0] != apple(10) {
		t.Fatalf("list=%v", list)
	}
}

func TestImportSnapshot_LinkRecordFallbacks(t *testing.T) {
	w := newTestWorld(t)
	aud := &memAudit{}
	w.SetAuditLogger(aud)
	pos := func(x, y, z int) snapshot.Pos { return snapshot.Pos{Dim: "overworld", X: x, Y: y, Z: z} }
	snap := snapshot.SnapshotV1{
		Header:      snapshot.Header{Version: snapshot.Version, WorldID: "test", Tick: 1},
		Chunks:      []snapshot.ChunkV1{{Dim: "overworld"}},
		Controllers: []snapshot.ControllerV1{{Pos: pos(0, 64, 0)}},
		Links:       []snapshot.LinkV1{{Pos: pos(1, 64, 0), Record: []byte(`{"prio":"high","way":"SIDEWAYS","inventoryFace":"up"}`)}},
		Chests:      []snapshot.ChestV1{{Pos: pos(1, 65, 0), Limit: 64, Slots: []snapshot.StackV1{{Item: "APPLE", Count: 2}, {}, {}}}},
	}
	if err := w.ImportSnapshot(snap); err != nil {
		t.Fatalf("import: %v", err)
	}
	if aud.count("LINK_RECORD_INVALID") != 1 {
		t.Fatalf("invalid audits=%d, want 1", aud.count("LINK_RECORD_INVALID"))
	}
	if aud.count("LINK_RECORD_FALLBACK") != 2 {
		t.Fatalf("fallback audits=%d, want 2", aud.count("LINK_RECORD_FALLBACK"))
	}
	l, ok := w.LinkAt(at(1, 64, 0))
	if !ok || l.Direction != model.DirBoth || l.Prio != 0 || l.Face != model.FaceUp {
		t.Fatalf("link=%+v", l)
	}
	if list, _ := w.List(at(0, 64, 0)); len(list) != 1 || list[0] != apple(2) {
		t.Fatalf("list=%v", list)
	}

	snap.Header.Version = 2
	if err := w.ImportSnapshot(snap); err == nil {
		t.Fatalf("expected version error")
	}
}

func TestStop_Idempotent(t *testing.T) {
	w := newTestWorld(t)
	done := make(chan error, 1)
	go func() { done <- w.Run(context.Background()) }()
	w.Stop()
	w.Stop()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run err=%v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("run did not stop")
	}
}
