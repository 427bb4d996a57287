package link

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"voxelcraft.ai/storagenet/internal/sim/network/filter"
	"voxelcraft.ai/storagenet/internal/sim/network/model"
)

// Record is the persisted form of a link.
type Record struct {
	Filters       json.RawMessage `json:"filters"`
	Prio          int             `json:"prio"`
	InventoryFace string          `json:"inventoryFace,omitempty"`
	Way           string          `json:"way"`
	Operation     OperationRecord `json:"operation"`
}

type OperationRecord struct {
	Stack         json.RawMessage `json:"stack,omitempty"`
	MustBeSmaller bool            `json:"mustBeSmaller"`
	Limit         int             `json:"limit"`
}

// Record captures the link state for persistence.
func (l *Link) Record() Record {
	fb, err := json.Marshal(l.Filter)
	if err != nil {
		fb = []byte(`{}`)
	}
	r := Record{
		Filters: fb,
		Prio:    l.Prio,
		Way:     l.Direction.String(),
		Operation: OperationRecord{
			Stack:         cloneRaw(l.Operation.Stack),
			MustBeSmaller: l.Operation.MustBeSmaller,
			Limit:         l.Operation.Limit,
		},
	}
	if l.Face.Valid() {
		r.InventoryFace = l.Face.String()
	}
	return r
}

func (l *Link) MarshalRecord() ([]byte, error) { return json.Marshal(l.Record()) }

// ApplyRecord restores state from raw record bytes. Every field falls back to
// its default on its own: a bad face leaves the link inert, a bad way means
// BOTH, a missing stack is empty. It never fails; the returned notes describe
// what was replaced by defaults.
func (l *Link) ApplyRecord(raw []byte) []string {
	var notes []string
	l.Filter = filter.Filter{}
	l.Direction = model.DirBoth
	l.Prio = 0
	l.Face = model.FaceNone
	l.Operation = Operation{}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return append(notes, fmt.Sprintf("record: %v", err))
	}

	if b, ok := fields["filters"]; ok {
		_ = l.Filter.UnmarshalJSON(b)
	}
	if b, ok := fields["prio"]; ok {
		if err := json.Unmarshal(b, &l.Prio); err != nil {
			notes = append(notes, "prio: not an integer")
			l.Prio = 0
		}
	}
	if b, ok := fields["inventoryFace"]; ok {
		var name string
		_ = json.Unmarshal(b, &name)
		if f, ok := model.ParseFace(name); ok {
			l.Face = f
		} else {
			notes = append(notes, fmt.Sprintf("inventoryFace: unknown face %s", strings.TrimSpace(string(b))))
		}
	}
	var way string
	if b, ok := fields["way"]; ok {
		_ = json.Unmarshal(b, &way)
	}
	if d, ok := model.ParseDirection(way); ok {
		l.Direction = d
	} else if way != "" {
		notes = append(notes, fmt.Sprintf("way: unknown direction %q", way))
	}

	if b, ok := fields["operation"]; ok {
		var op map[string]json.RawMessage
		if err := json.Unmarshal(b, &op); err != nil {
			notes = append(notes, "operation: not an object")
		} else {
			_ = json.Unmarshal(op["limit"], &l.Operation.Limit)
			_ = json.Unmarshal(op["mustBeSmaller"], &l.Operation.MustBeSmaller)
			if s := op["stack"]; len(s) > 0 && !bytes.Equal(bytes.TrimSpace(s), []byte("null")) {
				l.Operation.Stack = cloneRaw(s)
			}
		}
	}
	return notes
}

// Decode builds a link at pos from raw record bytes.
func Decode(pos model.DimPos, invs Inventories, raw []byte) (*Link, []string) {
	l := New(pos, invs)
	notes := l.ApplyRecord(raw)
	return l, notes
}

func cloneRaw(b json.RawMessage) json.RawMessage {
	if len(b) == 0 {
		return nil
	}
	out := make(json.RawMessage, len(b))
	copy(out, b)
	return out
}

// RecordSchema describes a well-formed link record.
const RecordSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["filters", "prio", "way", "operation"],
  "properties": {
    "filters": {
      "type": "object",
      "properties": {
        "items": {
          "type": "array",
          "maxItems": 18,
          "items": {
            "type": "object",
            "required": ["slot", "stack"],
            "properties": {
              "slot": {"type": "integer", "minimum": 0, "maximum": 17},
              "stack": {"type": "object", "required": ["item"]}
            }
          }
        },
        "whitelist": {"type": "boolean"},
        "meta": {"type": "boolean"}
      }
    },
    "prio": {"type": "integer"},
    "inventoryFace": {"enum": ["down", "up", "north", "south", "west", "east"]},
    "way": {"enum": ["IN", "OUT", "BOTH"]},
    "operation": {
      "type": "object",
      "properties": {
        "stack": {"type": "object"},
        "mustBeSmaller": {"type": "boolean"},
        "limit": {"type": "integer"}
      }
    }
  }
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func recordSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString("link_record.schema.json", RecordSchema)
	})
	return schema, schemaErr
}

// ValidateRecord checks raw against RecordSchema. A violation is informative
// only: ApplyRecord still decodes the record with per-field defaults.
func ValidateRecord(raw []byte) error {
	s, err := recordSchema()
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("link record: %w", err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("link record: %w", err)
	}
	return nil
}
