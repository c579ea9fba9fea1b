package cosem

import (
	"bytes"
	"encoding/json"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// groupPayloadSchema describes the shape of a multiscale group attribute
// payload.  It gates typed decoding: payloads that fail it are rejected
// before any cross-field validation runs, with field-level errors from the
// schema compiler.
const groupPayloadSchema = `
{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["axes", "units", "scales", "pixelResolution", "multiscales"],
	"properties": {
		"axes": {
			"type": "array",
			"items": {"type": "string"}
		},
		"units": {
			"type": "array",
			"items": {"type": "string"}
		},
		"scales": {
			"type": "array",
			"items": {
				"type": "array",
				"items": {"type": "integer", "minimum": 1}
			}
		},
		"pixelResolution": {
			"type": "object",
			"required": ["dimensions", "unit"],
			"properties": {
				"dimensions": {
					"type": "array",
					"items": {"type": "number"}
				},
				"unit": {"type": "string"}
			}
		},
		"multiscales": {
			"type": "array",
			"minItems": 1,
			"maxItems": 1,
			"items": {
				"type": "object",
				"required": ["datasets"],
				"properties": {
					"name": {"type": ["string", "null"]},
					"datasets": {
						"type": "array",
						"items": {
							"type": "object",
							"required": ["path", "transform"],
							"properties": {
								"path": {"type": "string", "pattern": "^s[0-9]+$"},
								"transform": {
									"type": "object",
									"required": ["axes", "units", "scale", "translate"],
									"properties": {
										"order": {"enum": ["C", "F"]},
										"axes": {"type": "array", "items": {"type": "string"}},
										"units": {"type": "array", "items": {"type": "string"}},
										"scale": {"type": "array", "items": {"type": "number"}},
										"translate": {"type": "array", "items": {"type": "number"}}
									}
								}
							}
						}
					}
				}
			}
		}
	}
}`

var compiledGroupSchema = jsonschema.MustCompileString("cosem-group.json", groupPayloadSchema)

// ValidateGroupPayload checks a raw group attribute document against the
// multiscale group schema.
func ValidateGroupPayload(payload []byte) error {
	var doc interface{}
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return err
	}
	return compiledGroupSchema.Validate(doc)
}
