package protocol

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const requestSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["type", "protocol_version", "id", "controller"],
  "properties": {
    "type": {"enum": ["LIST", "INSERT", "EXTRACT", "REFRESH", "REPORT"]},
    "protocol_version": {"type": "string"},
    "id": {"type": "string", "minLength": 1, "maxLength": 128},
    "controller": {"type": "string", "pattern": "^[^@]+@-?[0-9]+,-?[0-9]+,-?[0-9]+$"},
    "stack": {
      "type": "object",
      "required": ["item", "count"],
      "properties": {
        "item": {"type": "string", "minLength": 1},
        "meta": {"type": "integer"},
        "tag": {"type": "string"},
        "count": {"type": "integer", "minimum": 1}
      }
    },
    "item": {"type": "string"},
    "meta": {"type": "integer"},
    "ignore_meta": {"type": "boolean"},
    "count": {"type": "integer", "minimum": 0},
    "simulate": {"type": "boolean"}
  },
  "allOf": [
    {
      "if": {"properties": {"type": {"const": "INSERT"}}},
      "then": {"required": ["stack"]}
    },
    {
      "if": {"properties": {"type": {"const": "EXTRACT"}}},
      "then": {"required": ["item", "count"], "properties": {"item": {"minLength": 1}, "count": {"minimum": 1}}}
    }
  ]
}`

var (
	reqSchemaOnce sync.Once
	reqSchema     *jsonschema.Schema
	reqSchemaErr  error
)

// DecodeRequest validates b against the request schema and decodes it.
func DecodeRequest(b []byte) (RequestMsg, error) {
	var req RequestMsg
	reqSchemaOnce.Do(func() {
		reqSchema, reqSchemaErr = jsonschema.CompileString("request.schema.json", requestSchema)
	})
	if reqSchemaErr != nil {
		return req, reqSchemaErr
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return req, err
	}
	if err := reqSchema.Validate(v); err != nil {
		return req, fmt.Errorf("request: %w", err)
	}
	if err := json.Unmarshal(b, &req); err != nil {
		return req, err
	}
	return req, nil
}
