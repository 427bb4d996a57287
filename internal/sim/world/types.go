package world

import (
	"errors"

	"voxelcraft.ai/storagenet/internal/sim/network/model"
)

// Block names known to the reference world.
const (
	BlockAir        = "AIR"
	BlockStone      = "STONE"
	BlockCable      = "CABLE"
	BlockLink       = "LINK"
	BlockController = "CONTROLLER"
	BlockChest      = "CHEST"
)

var (
	ErrChunkNotLoaded = errors.New("chunk not loaded")
	ErrOccupied       = errors.New("position occupied")
	ErrNoController   = errors.New("no controller at position")
	ErrNoLink         = errors.New("no link at position")
	ErrBadBlock       = errors.New("block needs its dedicated placement call")
)

type WorldConfig struct {
	ID                 string
	TickRateHz         int
	MemberCap          int
	ChunkSize          int
	ChestSlots         int
	StackLimit         int
	SnapshotEveryTicks int
	SummaryEveryTicks  int
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

type AuditLogger interface {
	WriteAudit(entry AuditEntry) error
}

type TickLogEntry struct {
	Tick     uint64            `json:"tick"`
	Requests []RecordedRequest `json:"requests,omitempty"`
	Networks []NetworkSummary  `json:"networks,omitempty"`
}

type RecordedRequest struct {
	Actor      string `json:"actor"`
	Kind       string `json:"kind"`
	Controller string `json:"controller"`
	Simulate   bool   `json:"simulate,omitempty"`
	OK         bool   `json:"ok"`
}

type NetworkSummary struct {
	Controller string `json:"controller"`
	Members    int    `json:"members"`
	Links      int    `json:"links"`
	Truncated  bool   `json:"truncated,omitempty"`
}

type AuditEntry struct {
	Tick    uint64         `json:"tick"`
	Actor   string         `json:"actor"`
	Action  string         `json:"action"` // e.g. "NET_INSERT"
	Pos     string         `json:"pos"`
	Reason  string         `json:"reason,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// ItemDrop is an item spawned into the world at Pos.
type ItemDrop struct {
	Pos   model.DimPos `json:"pos"`
	Stack model.Stack  `json:"stack"`
}

// PlaceResult reports the outcome of placing a controller.
type PlaceResult struct {
	Placed bool
	// Conflict is the controller already owning a neighbouring member.
	Conflict model.DimPos
	Drop     *ItemDrop
}

// ExtractQuery describes what a network extract should pull.
type ExtractQuery struct {
	Pattern    model.Stack
	IgnoreMeta bool
	Count      int
}

func (q ExtractQuery) matcher() model.Matcher {
	// An untagged pattern matches any tag.
	return model.StackMatcher{Pattern: q.Pattern, IgnoreMeta: q.IgnoreMeta, IgnoreTag: q.Pattern.Tag == ""}
}
