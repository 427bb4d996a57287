package main

import (
	"bytes"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"voxelcraft.ai/storagenet/internal/persistence/indexdb"
	"voxelcraft.ai/storagenet/internal/persistence/snapshot"
	"voxelcraft.ai/storagenet/internal/sim/world"
)

func seededIndex(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "world.sqlite")
	idx, err := indexdb.OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_ = idx.WriteTick(world.TickLogEntry{
		Tick: 3,
		Requests: []world.RecordedRequest{
			{Actor: "alice", Kind: "INSERT", Controller: "overworld@0,64,0", OK: true},
			{Actor: "bob", Kind: "EXTRACT", Controller: "overworld@0,64,0", OK: true},
		},
		Networks: []world.NetworkSummary{{Controller: "overworld@0,64,0", Members: 5, Links: 2}},
	})
	_ = idx.WriteAudit(world.AuditEntry{Tick: 3, Actor: "alice", Action: "NET_INSERT", Pos: "overworld@0,64,0"})
	_ = idx.WriteAudit(world.AuditEntry{Tick: 4, Actor: "bob", Action: "PLACE_CONTROLLER", Pos: "overworld@3,64,0", Reason: "adjacent network"})
	idx.RecordSnapshot("/data/4.snap.zst", snapshot.SnapshotV1{
		Header: snapshot.Header{Version: snapshot.Version, Tick: 4},
		Links:  []snapshot.LinkV1{{Pos: snapshot.Pos{Dim: "overworld", X: 2, Y: 64}, Record: []byte(`{"prio":3}`)}},
	})
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRunQuery(t *testing.T) {
	db := seededIndex(t)
	cases := []struct {
		q    string
		opts queryOpts
		want []string
		rows int
	}{
		{q: "snapshots", want: []string{`"tick":4`, `"path":"/data/4.snap.zst"`}, rows: 1},
		{q: "networks", want: []string{`"members":5`, `"links":2`}, rows: 1},
		{q: "requests", rows: 2},
		{q: "requests", opts: queryOpts{Actor: "bob"}, want: []string{`"kind":"EXTRACT"`}, rows: 1},
		{q: "audits", opts: queryOpts{Action: "PLACE_CONTROLLER"}, want: []string{`"reason":"adjacent network"`, `"x":3`}, rows: 1},
		{q: "links", want: []string{`"pos":"overworld@2,64,0"`, `"record":{"prio":3}`}, rows: 1},
	}
	for _, tc := range cases {
		var buf bytes.Buffer
		if err := runQuery(&buf, db, tc.q, tc.opts); err != nil {
			t.Fatalf("%s: %v", tc.q, err)
		}
		out := buf.String()
		if n := strings.Count(out, "\n"); n != tc.rows {
			t.Fatalf("%s %+v rows=%d, want %d:\n%s", tc.q, tc.opts, n, tc.rows, out)
		}
		for _, w := range tc.want {
			if !strings.Contains(out, w) {
				t.Fatalf("%s output missing %s:\n%s", tc.q, w, out)
			}
		}
	}

	if err := runQuery(&bytes.Buffer{}, db, "agents", queryOpts{}); err == nil {
		t.Fatalf("expected unknown query error")
	}
}
