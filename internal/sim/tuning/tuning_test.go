package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(p, []byte("tick_rate_hz: 5\nnetwork:\n  member_cap: 4\n  stack_limit: -1\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.TickRateHz != 5 || got.Network.MemberCap != 4 {
		t.Fatalf("tick=%d cap=%d", got.TickRateHz, got.Network.MemberCap)
	}
	d := Defaults()
	if got.Network.StackLimit != d.Network.StackLimit || got.Network.ChestSlots != d.Network.ChestSlots {
		t.Fatalf("defaults not applied: %+v", got.Network)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !os.IsNotExist(err) {
		t.Fatalf("err=%v, want not-exist", err)
	}
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(p, []byte("network: [1, 2"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(p); err == nil {
		t.Fatalf("expected yaml error")
	}
}
