package settings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// schemaDocument is the JSON Schema for the wire format in spec.md §6.3.
// It is intentionally permissive about unknown keys (additionalProperties
// defaults to true) since those must round-trip untouched.
const schemaDocument = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "$id": "https://typls.app/schema/settings-v1.json",
  "type": "object",
  "required": ["trigger", "confirm", "variables", "expansions"],
  "properties": {
    "trigger": {
      "type": "object",
      "required": ["string"],
      "properties": { "string": { "type": "string" } }
    },
    "confirm": {
      "type": "object",
      "required": ["chars", "keyEnter", "keyRightArrow", "append", "auto"],
      "properties": {
        "chars": { "type": "array", "items": { "type": "string" } },
        "keyEnter": { "type": "boolean" },
        "keyRightArrow": { "type": "boolean" },
        "append": { "type": "boolean" },
        "auto": { "type": "boolean" }
      }
    },
    "variables": {
      "type": "object",
      "required": ["separator"],
      "properties": { "separator": { "type": "string", "minLength": 1 } }
    },
    "expansions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "abbr", "text"],
        "properties": {
          "id": { "type": "string" },
          "abbr": { "type": "string" },
          "text": { "type": "string" },
          "group": { "type": "string" }
        }
      }
    },
    "groups": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "name", "apps"],
        "properties": {
          "id": { "type": "string" },
          "name": { "type": "string" },
          "apps": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["path", "os"],
              "properties": {
                "path": { "type": "string" },
                "os": { "type": "string" }
              }
            }
          }
        }
      }
    },
    "activeGroup": { "type": "string" }
  }
}`

var (
	compileOnce sync.Once
	schema      *jsonschema.Schema
	schemaErr   error
)

func compiledSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaDocument, bytes.NewReader([]byte(schemaDocument))); err != nil {
			schemaErr = fmt.Errorf("settings: add schema resource: %w", err)
			return
		}
		s, err := compiler.Compile(schemaDocument)
		if err != nil {
			schemaErr = fmt.Errorf("settings: compile schema: %w", err)
			return
		}
		schema = s
	})
	return schema, schemaErr
}

// ValidateDocument checks raw settings JSON against the schema in §6.3
// before it is ever decoded into a Settings value. Structural problems
// (missing required fields, wrong types, an empty variables.separator)
// are caught here; a Settings value that reaches the engines without
// passing through this check is still guarded there, e.g. the expansion
// engine drops signals under an empty separator per spec.md §7 kind 4.
func ValidateDocument(data []byte) error {
	s, err := compiledSchema()
	if err != nil {
		return err
	}

	var instance interface{}
	if err := json.Unmarshal(data, &instance); err != nil {
		return fmt.Errorf("settings: invalid JSON: %w", err)
	}

	if err := s.Validate(instance); err != nil {
		return fmt.Errorf("settings: schema validation failed: %w", err)
	}
	return nil
}
