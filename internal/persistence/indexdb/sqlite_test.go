package indexdb

import (
	"database/sql"
	"path/filepath"
	"testing"

	"voxelcraft.ai/storagenet/internal/persistence/snapshot"
	"voxelcraft.ai/storagenet/internal/sim/world"
)

func TestSQLiteIndex_RecordsNetworkActivity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index", "world.sqlite")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	_ = idx.WriteTick(world.TickLogEntry{
		Tick: 5,
		Requests: []world.RecordedRequest{
			{Actor: "bot", Kind: "INSERT", Controller: "overworld@0,64,0", OK: true},
			{Actor: "bot", Kind: "LIST", Controller: "overworld@9,9,9"},
		},
		Networks: []world.NetworkSummary{{Controller: "overworld@0,64,0", Members: 3, Links: 1}},
	})
	_ = idx.WriteTick(world.TickLogEntry{
		Tick:     6,
		Networks: []world.NetworkSummary{{Controller: "overworld@0,64,0", Members: 4, Links: 2, Truncated: true}},
	})
	_ = idx.WriteAudit(world.AuditEntry{Tick: 5, Actor: "bot", Action: "NET_INSERT", Pos: "overworld@0,64,0"})
	_ = idx.WriteAudit(world.AuditEntry{Tick: 5, Actor: "bot", Action: "NET_EXTRACT", Pos: "overworld@0,64,0"})
	idx.RecordSnapshot("/data/6.snap.zst", snapshot.SnapshotV1{
		Header:      snapshot.Header{Version: snapshot.Version, Tick: 6},
		Controllers: []snapshot.ControllerV1{{}},
		Links: []snapshot.LinkV1{
			{Pos: snapshot.Pos{Dim: "overworld", X: 2, Y: 64}, Record: []byte(`{"prio":1}`)},
		},
	})
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	count := func(q string, args ...any) int {
		t.Helper()
		var n int
		if err := db.QueryRow(q, args...).Scan(&n); err != nil {
			t.Fatalf("%s: %v", q, err)
		}
		return n
	}
	if n := count(`SELECT COUNT(*) FROM ticks`); n != 2 {
		t.Fatalf("ticks=%d, want 2", n)
	}
	if n := count(`SELECT COUNT(*) FROM requests WHERE ok=1`); n != 1 {
		t.Fatalf("ok requests=%d, want 1", n)
	}
	if n := count(`SELECT members FROM networks WHERE controller=?`, "overworld@0,64,0"); n != 4 {
		t.Fatalf("members=%d, want 4 (latest summary)", n)
	}
	if n := count(`SELECT COUNT(*) FROM audits WHERE dim='overworld' AND y=64`); n != 2 {
		t.Fatalf("audits=%d, want 2", n)
	}
	if n := count(`SELECT MAX(seq) FROM audits WHERE tick=5`); n != 1 {
		t.Fatalf("max seq=%d, want 1", n)
	}
	if n := count(`SELECT links FROM snapshots WHERE tick=6`); n != 1 {
		t.Fatalf("snapshot links=%d, want 1", n)
	}
	var rec string
	if err := db.QueryRow(`SELECT record_json FROM links WHERE pos=?`, "overworld@2,64,0").Scan(&rec); err != nil || rec != `{"prio":1}` {
		t.Fatalf("link record=%q err=%v", rec, err)
	}
}

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}
	s.ch <- req{kind: reqTick, tick: world.TickLogEntry{Tick: 1}}

	_ = s.WriteTick(world.TickLogEntry{Tick: 2})
	_ = s.WriteAudit(world.AuditEntry{Tick: 2})
	s.RecordSnapshot("/tmp/2.snap.zst", snapshot.SnapshotV1{})

	st := s.Stats()
	if st.DropTickTotal != 1 || st.DropAuditTotal != 1 || st.DropSnapshotTotal != 1 {
		t.Fatalf("drops=%+v, want one of each", st)
	}
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue stats mismatch: depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	if _, err := OpenSQLite(""); err == nil {
		t.Fatalf("expected error")
	}
}
