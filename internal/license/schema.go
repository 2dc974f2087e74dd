package license

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// configSchema constrains user-supplied classification config files. Only
// shape is enforced; tier and severity vocabularies are open so that
// deployments can define their own labels.
const configSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "aliases": {
      "type": "object",
      "additionalProperties": {"type": "string"}
    },
    "license_tiers": {
      "type": "object",
      "additionalProperties": {
        "type": "array",
        "items": {"type": "string"}
      }
    },
    "license_overrides": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "properties": {
          "license": {"type": "string"},
          "tier": {"type": "string"},
          "note": {"type": "string"}
        },
        "required": ["license", "tier"],
        "additionalProperties": false
      }
    },
    "severity_map": {
      "type": "object",
      "additionalProperties": {"type": "string"}
    },
    "dev_severity_reduction": {
      "type": "object",
      "additionalProperties": {"type": "string"}
    }
  },
  "additionalProperties": false
}`

// ValidateConfig checks raw config JSON against the embedded schema.
func ValidateConfig(data []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(configSchema)
	docLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var msgs []string
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	return fmt.Errorf("schema violations: %s", strings.Join(msgs, "; "))
}
