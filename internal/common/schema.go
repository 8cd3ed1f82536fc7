package common

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildAutomationConfigSchema returns the JSON-Schema (draft 2020-12
// subset) an automation-job config document must satisfy before a job is
// accepted.
func BuildAutomationConfigSchema() map[string]any {
	crawlProps := map[string]any{
		"max_products":       map[string]any{"type": "integer", "minimum": 1, "maximum": 100000},
		"full_shop_scan":     map[string]any{"type": "boolean"},
		"follow_pagination":  map[string]any{"type": "boolean"},
		"screenshot_quality": map[string]any{"type": "integer", "minimum": 1, "maximum": 100},
	}
	props := map[string]any{
		"shop_url":    map[string]any{"type": "string", "minLength": 1, "pattern": `^https?://`},
		"template_id": map[string]any{"type": "string"},
		"crawl": map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"properties":           crawlProps,
		},
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             []string{"shop_url"},
	}
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

// ValidateAutomationConfigJSON checks a raw config document against the
// automation schema, wrapping failures as invalid input.
func ValidateAutomationConfigJSON(data []byte) error {
	if err := ValidateJSONAgainstSchema(BuildAutomationConfigSchema(), data); err != nil {
		return NewAppError("CONFIG_SCHEMA", err.Error(), ErrInvalidInput)
	}
	return nil
}
