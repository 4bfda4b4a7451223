package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"sensiboost/models"
)

func sensitivityProp() map[string]any {
	return map[string]any{"type": "integer", "minimum": models.MinSensitivity, "maximum": models.MaxSensitivity}
}

// buildGuideSchema describes the JSON the generation provider is asked for.
// Extra keys are tolerated; providers like to add commentary fields.
func buildGuideSchema() map[string]any {
	values := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"general":      sensitivityProp(),
			"red_dot":      sensitivityProp(),
			"scope_2x":     sensitivityProp(),
			"scope_4x":     sensitivityProp(),
			"sniper_scope": sensitivityProp(),
			"free_look":    sensitivityProp(),
			"fire_button":  sensitivityProp(),
			"dpi":          map[string]any{"type": "integer", "enum": models.AllowedDPI},
		},
		"required": []string{"general", "red_dot", "scope_2x", "scope_4x", "sniper_scope", "free_look", "fire_button", "dpi"},
	}
	stringList := map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"values":  values,
			"steps":   stringList,
			"tips":    stringList,
			"sources": stringList,
		},
		"required": []string{"values", "steps"},
	}
}

var guideSchema = mustCompileSchema("guide.json", buildGuideSchema())

func mustCompileSchema(name string, schemaMap map[string]any) *jsonschema.Schema {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		panic(fmt.Sprintf("marshal schema: %v", err))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(b)); err != nil {
		panic(fmt.Sprintf("add schema: %v", err))
	}
	return compiler.MustCompile(name)
}

// ValidateGuide checks a decoded JSON document against the guide schema.
func ValidateGuide(doc any) error {
	if err := guideSchema.Validate(doc); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

// stripCodeFence removes a surrounding ```json ... ``` block, which chat
// models add even when told not to.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
