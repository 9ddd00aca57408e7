// Package moves implements the two-stage move validation of spec.md
// §4.5: a JSON-Schema structural pre-validation pass, then per-command
// semantic validate-and-apply.
package moves

import (
	"encoding/json"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// moveSchemaDoc is the embedded structural schema for one envelope in
// the block's "moves" array. It checks only the envelope's shape (a
// non-empty "owner" and a "move") and tolerates unknown fields/commands
// so a malformed or unrecognised command is a semantic no-op rather
// than a structural rejection of the whole batch. The boundedInt
// definition is not referenced by any property, so the shared "≤10^9"
// integer bound (spec.md §6) is not checked by this schema.
const moveSchemaDoc = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "$defs": {
    "boundedInt": {"type": "integer", "minimum": -1000000000, "maximum": 1000000000}
  },
  "type": "object",
  "required": ["owner", "move"],
  "properties": {
    "owner": {"type": "string", "minLength": 1},
    "move": {
      "type": "object",
      "required": ["g"],
      "properties": {
        "g": {
          "type": "object",
          "required": ["chainrealm"],
          "properties": {
            "chainrealm": {"type": "object"}
          }
        }
      }
    }
  }
}`

var moveSchema *jsonschema.Schema

func init() {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("move.json", strings.NewReader(moveSchemaDoc)); err != nil {
		panic("moves: invalid embedded schema: " + err.Error())
	}
	s, err := compiler.Compile("move.json")
	if err != nil {
		panic("moves: schema compile failed: " + err.Error())
	}
	moveSchema = s
}

// ValidateStructure runs the structural pre-validation pass on one raw
// move envelope. A structurally invalid move is rejected before any
// semantic code runs.
func ValidateStructure(raw json.RawMessage) (accepted bool, reason string) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false, "malformed json: " + err.Error()
	}
	if err := moveSchema.Validate(v); err != nil {
		return false, "schema: " + err.Error()
	}
	return true, ""
}
