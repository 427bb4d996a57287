package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickRateHz         int `yaml:"tick_rate_hz"`
	SnapshotEveryTicks int `yaml:"snapshot_every_ticks"`
	SummaryEveryTicks  int `yaml:"summary_every_ticks"`

	Network NetworkTuning `yaml:"network"`
}

type NetworkTuning struct {
	// MemberCap bounds the member set of one controller.
	MemberCap int `yaml:"member_cap"`
	// ChestSlots and StackLimit shape chests placed by the reference world.
	ChestSlots int `yaml:"chest_slots"`
	StackLimit int `yaml:"stack_limit"`
	// ChunkSize is the width of a load unit along x and z.
	ChunkSize int `yaml:"chunk_size"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:    "1.0",
		TickRateHz:         20,
		SnapshotEveryTicks: 6000,
		SummaryEveryTicks:  100,
		Network: NetworkTuning{
			MemberCap:  512,
			ChestSlots: 27,
			StackLimit: 64,
			ChunkSize:  16,
		},
	}
}

// Normalize replaces non-positive values with defaults.
func (t *Tuning) Normalize() {
	d := Defaults()
	if t.ProtocolVersion == "" {
		t.ProtocolVersion = d.ProtocolVersion
	}
	if t.TickRateHz <= 0 {
		t.TickRateHz = d.TickRateHz
	}
	if t.SnapshotEveryTicks < 0 {
		t.SnapshotEveryTicks = 0
	}
	if t.SummaryEveryTicks <= 0 {
		t.SummaryEveryTicks = d.SummaryEveryTicks
	}
	if t.Network.MemberCap <= 0 {
		t.Network.MemberCap = d.Network.MemberCap
	}
	if t.Network.ChestSlots <= 0 {
		t.Network.ChestSlots = d.Network.ChestSlots
	}
	if t.Network.StackLimit <= 0 {
		t.Network.StackLimit = d.Network.StackLimit
	}
	if t.Network.ChunkSize <= 0 {
		t.Network.ChunkSize = d.Network.ChunkSize
	}
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.Normalize()
	return t, nil
}
