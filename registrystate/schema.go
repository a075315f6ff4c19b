package registrystate

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ErrInvalidSnapshot is returned when a registry file on disk does not
// conform to the expected agents/frequency_rank shape.
var ErrInvalidSnapshot = errors.New("registrystate: invalid snapshot format")

// snapshotSchemaJSON fixes the on-disk shape of a registry file: a top
// level "agents" object whose values carry a non-negative
// frequency_rank and an optional tract string. Guards against a hand-
// edited or foreign-format file being loaded silently.
const snapshotSchemaJSON = `{
	"type": "object",
	"required": ["agents"],
	"properties": {
		"agents": {
			"type": "object",
			"additionalProperties": {
				"type": "object",
				"required": ["frequency_rank"],
				"properties": {
					"frequency_rank": {"type": "integer", "minimum": 0},
					"tract": {"type": "string"}
				}
			}
		}
	}
}`

func validateSnapshotJSON(data []byte) error {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("registrystate: unmarshal for validation: %w", err)
	}

	var schemaDoc any
	if err := json.Unmarshal([]byte(snapshotSchemaJSON), &schemaDoc); err != nil {
		return fmt.Errorf("registrystate: unmarshal schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("registry-snapshot.json", schemaDoc); err != nil {
		return fmt.Errorf("registrystate: add schema resource: %w", err)
	}
	schema, err := c.Compile("registry-snapshot.json")
	if err != nil {
		return fmt.Errorf("registrystate: compile schema: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("registrystate: %w: %w", ErrInvalidSnapshot, err)
	}
	return nil
}
