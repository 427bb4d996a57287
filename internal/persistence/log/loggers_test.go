package log

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"voxelcraft.ai/storagenet/internal/sim/world"
)

func TestJSONLZstdWriter_RotatesHourly(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONLZstdWriter(dir, "audit")
	now := time.Date(2024, 5, 1, 10, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		if err := w.Write(world.AuditEntry{Tick: uint64(i), Action: "NET_INSERT"}); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	now = now.Add(2 * time.Minute)
	if err := w.Write(world.AuditEntry{Tick: 2, Action: "NET_EXTRACT"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	first := filepath.Join(dir, "audit-2024-05-01-10.jsonl.zst")
	second := filepath.Join(dir, "audit-2024-05-01-11.jsonl.zst")
	for _, p := range []string{first, second} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("missing %s: %v", p, err)
		}
	}

	var got []world.AuditEntry
	if err := ReadJSONL(first, func(line []byte) error {
		var e world.AuditEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return err
		}
		got = append(got, e)
		return nil
	}); err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 2 || got[0].Tick != 0 || got[1].Tick != 1 {
		t.Fatalf("entries=%+v", got)
	}
}

func TestJSONLZstdWriter_ReopenAppendsFrames(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		w := NewJSONLZstdWriter(dir, "events")
		w.now = func() time.Time { return now }
		if err := w.Write(world.TickLogEntry{Tick: uint64(i)}); err != nil {
			t.Fatalf("write: %v", err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}
	n := 0
	if err := ReadJSONL(filepath.Join(dir, "events-2024-05-01-10.jsonl.zst"), func([]byte) error {
		n++
		return nil
	}); err != nil {
		t.Fatalf("read: %v", err)
	}
	if n != 2 {
		t.Fatalf("lines=%d, want 2", n)
	}
}

func TestAuditLogger_WritesUnderWorldDir(t *testing.T) {
	dir := t.TempDir()
	l := NewAuditLogger(dir)
	if err := l.WriteAudit(world.AuditEntry{Action: "NET_REFRESH"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "audit", "audit-*.jsonl.zst"))
	if len(matches) != 1 {
		t.Fatalf("files=%v", matches)
	}
}
