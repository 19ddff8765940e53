package registrar

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/azure-connectors/arm-mcp-server/internal/schemagen"
)

// buildJSONSchema turns a component-D ParamSpecs map into a draft-4 JSON
// Schema document that gojsonschema can validate against.
func buildJSONSchema(specs *schemagen.ParamSpecs) map[string]interface{} {
	properties := map[string]interface{}{}
	var required []string

	for _, name := range specs.Names() {
		spec, _ := specs.Get(name)
		properties[name] = jsonSchemaForSpec(spec)
		if spec.Required {
			required = append(required, name)
		}
	}

	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func jsonSchemaForSpec(spec schemagen.ParamSpec) map[string]interface{} {
	prop := map[string]interface{}{}
	switch spec.Kind {
	case schemagen.KindString:
		prop["type"] = "string"
	case schemagen.KindInteger:
		prop["type"] = "integer"
	case schemagen.KindNumber:
		prop["type"] = "number"
	case schemagen.KindBoolean:
		prop["type"] = "boolean"
	case schemagen.KindArray:
		prop["type"] = "array"
	case schemagen.KindObject:
		prop["type"] = "object"
	case schemagen.KindEnum:
		prop["type"] = "string"
		prop["enum"] = spec.EnumValues
	}
	if spec.Description != "" {
		prop["description"] = spec.Description
	}
	if spec.Default != nil {
		prop["default"] = spec.Default
	}
	return prop
}

// Validate checks params against the ParamSpec map generated for a tool,
// returning a *ValidationError naming every failing constraint.
func Validate(toolName string, specs *schemagen.ParamSpecs, params map[string]interface{}) error {
	schemaLoader := gojsonschema.NewGoLoader(buildJSONSchema(specs))
	documentLoader := gojsonschema.NewGoLoader(params)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("registrar: building validator for %s: %w", toolName, err)
	}
	if result.Valid() {
		return nil
	}

	issues := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		issues = append(issues, e.String())
	}
	return &ValidationError{ToolName: toolName, Issues: issues}
}
