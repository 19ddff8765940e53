package schemagen

import "github.com/azure-connectors/arm-mcp-server/internal/swagger"

// Generate implements component D: it flattens a parsed operation into an
// insertion-ordered map of sanitized parameter name to ParamSpec.
func Generate(op swagger.ParsedOperation) *ParamSpecs {
	specs := NewParamSpecs()

	for _, p := range op.Parameters {
		if p.Name == "connectionId" {
			continue
		}
		key := sanitize(p.Name)
		specs.Set(key, paramSpecFromParameter(p))
	}

	if op.RequestBody != nil {
		for _, name := range op.RequestBody.Names {
			prop := op.RequestBody.Properties[name]
			if prop.Format == "binary" {
				continue
			}
			key := sanitize(name)
			if specs.Has(key) {
				key = "body_" + key
			}
			specs.Set(key, paramSpecFromBodyProperty(prop))
		}
	}

	return specs
}

func paramSpecFromParameter(p swagger.ParsedParameter) ParamSpec {
	spec := ParamSpec{Required: p.Required, Default: p.Default, Description: p.Description}
	switch {
	case p.Type == "integer":
		spec.Kind = KindInteger
	case p.Type == "boolean":
		spec.Kind = KindBoolean
	case p.Type == "array":
		spec.Kind = KindArray
	case p.Type == "string" && len(p.Enum) > 0:
		spec.Kind = KindEnum
		spec.EnumValues = p.Enum
	default:
		spec.Kind = KindString
	}
	return spec
}

func paramSpecFromBodyProperty(prop swagger.BodyProperty) ParamSpec {
	spec := ParamSpec{Required: prop.Required, Default: prop.Default, Description: prop.Description}
	switch {
	case prop.Type == "integer" || prop.Type == "number":
		spec.Kind = KindNumber
	case prop.Type == "boolean":
		spec.Kind = KindBoolean
	case prop.Type == "array":
		spec.Kind = KindArray
	case prop.Type == "object" || prop.Type == "string (JSON)":
		spec.Kind = KindObject
	case prop.Type == "string" && len(prop.Enum) > 0:
		spec.Kind = KindEnum
		spec.EnumValues = prop.Enum
	default:
		spec.Kind = KindString
	}
	return spec
}
