package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
)

const Version = 1

type Header struct {
	Version int    `json:"version"`
	WorldID string `json:"world_id"`
	Tick    uint64 `json:"tick"`
}

type SnapshotV1 struct {
	Header Header `json:"header"`

	TickRate  int `json:"tick_rate_hz"`
	MemberCap int `json:"member_cap"`
	ChunkSize int `json:"chunk_size"`

	Chunks      []ChunkV1      `json:"chunks"`
	Blocks      []BlockV1      `json:"blocks"`
	Chests      []ChestV1      `json:"chests"`
	Links       []LinkV1       `json:"links"`
	Controllers []ControllerV1 `json:"controllers"`
	Drops       []DropV1       `json:"drops,omitempty"`
}

// Pos mirrors a dimension-qualified block position.
type Pos struct {
	Dim string `json:"dim"`
	X   int    `json:"x"`
	Y   int    `json:"y"`
	Z   int    `json:"z"`
}

type ChunkV1 struct {
	Dim string `json:"dim"`
	CX  int    `json:"cx"`
	CZ  int    `json:"cz"`
}

type BlockV1 struct {
	Pos  Pos    `json:"pos"`
	Name string `json:"name"`
}

type StackV1 struct {
	Item  string `json:"item"`
	Meta  int    `json:"meta,omitempty"`
	Tag   string `json:"tag,omitempty"`
	Count int    `json:"count"`
}

type ChestV1 struct {
	Pos   Pos       `json:"pos"`
	Limit int       `json:"limit"`
	Slots []StackV1 `json:"slots"`
}

// LinkV1 stores the persisted link record verbatim so that decoding
// applies the same fallbacks as loading a chunk.
type LinkV1 struct {
	Pos    Pos    `json:"pos"`
	Record []byte `json:"record"`
}

type ControllerV1 struct {
	Pos Pos `json:"pos"`
}

type DropV1 struct {
	Pos   Pos     `json:"pos"`
	Stack StackV1 `json:"stack"`
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 64*1024)
	defer bw.Flush()

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 64*1024)
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, fmt.Errorf("snapshot header: %w", err)
	}
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	if snap.Header.Version != Version {
		return snap, fmt.Errorf("snapshot version %d unsupported", snap.Header.Version)
	}
	return snap, nil
}

// ReadHeader decodes only the leading JSON header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("snapshot header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("snapshot header: %w", err)
	}
	return h, nil
}

// Path returns <dir>/<tick>.snap.zst.
func Path(dir string, tick uint64) string {
	return filepath.Join(dir, fmt.Sprintf("%d.snap.zst", tick))
}

// Latest returns the highest-tick snapshot in dir, or "" when there is none.
func Latest(dir string) string {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestTick uint64
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		tick, err := strconv.ParseUint(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
		if err != nil {
			continue
		}
		if best == "" || tick > bestTick {
			bestTick = tick
			best = filepath.Join(dir, name)
		}
	}
	return best
}
