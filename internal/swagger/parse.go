package swagger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

var allowedMethods = map[string]bool{
	"get": true, "post": true, "put": true, "patch": true, "delete": true,
}

// responseSchemaMaxDepth caps recursive expansion of the informational
// response schema so a self-referential connector definition (a "Message"
// that threads to another "Message") cannot recurse indefinitely.
const responseSchemaMaxDepth = 4

// rawDoc is the subset of a Swagger 2.0 document's top level we need.
type rawDoc struct {
	Swagger     string                     `json:"swagger"`
	PathsRaw    json.RawMessage            `json:"paths"`
	Definitions map[string]json.RawMessage `json:"definitions"`
	ParamDefs   map[string]json.RawMessage `json:"parameters"`
}

type rawOperation struct {
	OperationID string                     `json:"operationId"`
	Summary     string                     `json:"summary"`
	Description string                     `json:"description"`
	Deprecated  bool                       `json:"deprecated"`
	Parameters  []json.RawMessage          `json:"parameters"`
	Responses   map[string]rawResponseBody `json:"responses"`
}

type rawResponseBody struct {
	Schema json.RawMessage `json:"schema"`
}

type rawParameter struct {
	Ref         string          `json:"$ref"`
	Name        string          `json:"name"`
	In          string          `json:"in"`
	Type        string          `json:"type"`
	Format      string          `json:"format"`
	Required    bool            `json:"required"`
	Description string          `json:"description"`
	Default     interface{}     `json:"default"`
	Enum        []interface{}   `json:"enum"`
	Schema      json.RawMessage `json:"schema"`
}

type rawSchema struct {
	Ref         string          `json:"$ref"`
	Type        string          `json:"type"`
	Format      string          `json:"format"`
	Description string          `json:"description"`
	Properties  json.RawMessage `json:"properties"`
	Required    []string        `json:"required"`
	Enum        []interface{}   `json:"enum"`
	Default     interface{}     `json:"default"`
	Items       json.RawMessage `json:"items"`
}

type rawDynamicValues struct {
	OperationID     string                 `json:"operationId"`
	ValueCollection string                 `json:"value-collection"`
	ValuePath       string                 `json:"value-path"`
	ValueTitle      string                 `json:"value-title"`
	Parameters      map[string]interface{} `json:"parameters"`
}

type rawAPIAnnotation struct {
	Family   string `json:"family"`
	Revision int    `json:"revision"`
	Status   string `json:"status"`
}

// Parse walks every (path, method) pair in a Swagger 2.0 managed-API
// document and compiles it into a ParsedOperation. apiName is a display
// label only; it does not affect parsing.
func Parse(raw []byte, apiName string) ([]ParsedOperation, error) {
	var doc rawDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("swagger: decoding document for %s: %w", apiName, err)
	}

	pathKeys, pathVals, err := decodeOrderedObject(doc.PathsRaw)
	if err != nil {
		return nil, fmt.Errorf("swagger: decoding paths for %s: %w", apiName, err)
	}

	var ops []ParsedOperation
	for _, path := range pathKeys {
		methodKeys, methodVals, err := decodeOrderedObject(pathVals[path])
		if err != nil {
			continue // not an object of methods; skip defensively
		}
		for _, method := range methodKeys {
			methodLower := strings.ToLower(method)
			if !allowedMethods[methodLower] {
				continue
			}
			var rawOp rawOperation
			if err := json.Unmarshal(methodVals[method], &rawOp); err != nil {
				continue
			}
			var extensions map[string]json.RawMessage
			_ = json.Unmarshal(methodVals[method], &extensions)

			op, err := buildOperation(&doc, path, methodLower, rawOp, extensions)
			if err != nil {
				return nil, fmt.Errorf("swagger: %s %s: %w", methodLower, path, err)
			}
			ops = append(ops, op)
		}
	}
	return ops, nil
}

func buildOperation(doc *rawDoc, path, method string, rawOp rawOperation, extensions map[string]json.RawMessage) (ParsedOperation, error) {
	op := ParsedOperation{
		OperationID: rawOp.OperationID,
		Method:      method,
		Path:        path,
		Summary:     rawOp.Summary,
		Description: rawOp.Description,
		Deprecated:  rawOp.Deprecated,
		Visibility:  VisibilityNone,
	}
	if op.OperationID == "" {
		op.OperationID = fmt.Sprintf("%s_%s", method, path)
	}

	if raw, ok := extensions["x-ms-visibility"]; ok {
		var v string
		if json.Unmarshal(raw, &v) == nil && v != "" {
			op.Visibility = Visibility(v)
		}
	}
	if raw, ok := extensions["x-ms-trigger"]; ok && len(raw) > 0 && string(raw) != "null" {
		op.IsTrigger = true
	}
	if raw, ok := extensions["x-ms-api-annotation"]; ok {
		var ann rawAPIAnnotation
		if json.Unmarshal(raw, &ann) == nil {
			op.APIAnnotation = &APIAnnotation{Family: ann.Family, Revision: ann.Revision, Status: ann.Status}
		}
	}

	var bodyRaw json.RawMessage
	for _, paramRaw := range rawOp.Parameters {
		resolved, err := resolveParameterRef(doc, paramRaw)
		if err != nil {
			return op, err
		}
		var p rawParameter
		if err := json.Unmarshal(resolved, &p); err != nil {
			return op, fmt.Errorf("decoding parameter: %w", err)
		}
		if p.In == "body" {
			bodyRaw = p.Schema
			continue
		}

		var extMap map[string]json.RawMessage
		_ = json.Unmarshal(resolved, &extMap)

		parsed := ParsedParameter{
			Name:        p.Name,
			In:          ParamLocation(p.In),
			Type:        p.Type,
			Format:      p.Format,
			Required:    p.Required,
			Description: p.Description,
			Default:     p.Default,
			Enum:        p.Enum,
		}
		if raw, ok := extMap["x-ms-dynamic-values"]; ok {
			var dv rawDynamicValues
			if json.Unmarshal(raw, &dv) == nil {
				parsed.DynamicValues = &DynamicValues{
					OperationID:     dv.OperationID,
					ValueCollection: dv.ValueCollection,
					ValuePath:       dv.ValuePath,
					ValueTitle:      dv.ValueTitle,
					Parameters:      dv.Parameters,
				}
			}
		}
		op.Parameters = append(op.Parameters, parsed)
	}

	if len(bodyRaw) > 0 {
		body, err := flattenRequestBody(doc, bodyRaw)
		if err != nil {
			return op, err
		}
		op.RequestBody = body
	}

	if schemaRaw := pickResponseSchema(rawOp.Responses); len(schemaRaw) > 0 {
		schema, _, err := resolveSchemaRaw(doc, schemaRaw)
		if err == nil {
			op.ResponseSchema = buildResponseSchema(doc, schema, 0)
		}
	}

	return op, nil
}

func pickResponseSchema(responses map[string]rawResponseBody) json.RawMessage {
	if r, ok := responses["200"]; ok && len(r.Schema) > 0 {
		return r.Schema
	}
	if r, ok := responses["201"]; ok && len(r.Schema) > 0 {
		return r.Schema
	}
	return nil
}

// resolveParameterRef resolves a #/parameters/<name> reference against the
// document's shared parameters section. Non-ref parameters pass through
// unchanged.
func resolveParameterRef(doc *rawDoc, raw json.RawMessage) (json.RawMessage, error) {
	var ref struct {
		Ref string `json:"$ref"`
	}
	if err := json.Unmarshal(raw, &ref); err != nil {
		return raw, nil
	}
	if ref.Ref == "" {
		return raw, nil
	}
	const prefix = "#/parameters/"
	if !strings.HasPrefix(ref.Ref, prefix) {
		return raw, nil
	}
	name := strings.TrimPrefix(ref.Ref, prefix)
	resolved, ok := doc.ParamDefs[name]
	if !ok {
		return raw, nil
	}
	return deepCopyRaw(resolved), nil
}

// resolveRef walks #/definitions/<segment>/... against the document's
// definitions tree, one path segment at a time, and returns a deep copy of
// whatever it finds so later mutation of the resolved value cannot corrupt
// the shared definitions map.
func resolveRef(doc *rawDoc, ref string) (json.RawMessage, bool) {
	const prefix = "#/definitions/"
	if !strings.HasPrefix(ref, prefix) {
		return nil, false
	}
	segments := strings.Split(strings.TrimPrefix(ref, prefix), "/")
	if len(segments) == 0 || segments[0] == "" {
		return nil, false
	}
	current, ok := doc.Definitions[segments[0]]
	if !ok {
		return nil, false
	}
	for _, seg := range segments[1:] {
		var m map[string]json.RawMessage
		if err := json.Unmarshal(current, &m); err != nil {
			return nil, false
		}
		next, ok := m[seg]
		if !ok {
			return nil, false
		}
		current = next
	}
	return deepCopyRaw(current), true
}

func deepCopyRaw(raw json.RawMessage) json.RawMessage {
	cloned := make([]byte, len(raw))
	copy(cloned, raw)
	return cloned
}

// resolveSchemaRaw decodes a schema fragment, following a single $ref hop
// against the definitions tree if present. Unresolvable refs fall back to
// the original (mostly empty) schema rather than failing the whole parse.
func resolveSchemaRaw(doc *rawDoc, raw json.RawMessage) (rawSchema, json.RawMessage, error) {
	var s rawSchema
	if err := json.Unmarshal(raw, &s); err != nil {
		return s, raw, err
	}
	if s.Ref == "" {
		return s, raw, nil
	}
	resolved, ok := resolveRef(doc, s.Ref)
	if !ok {
		return s, raw, nil
	}
	var rs rawSchema
	if err := json.Unmarshal(resolved, &rs); err != nil {
		return s, raw, nil
	}
	return rs, resolved, nil
}

// flattenRequestBody implements component B step 3: it records only the
// top-level body properties, converting nested objects into the synthetic
// "string (JSON)" kind rather than recursing into their own properties.
func flattenRequestBody(doc *rawDoc, bodyRaw json.RawMessage) (*RequestBody, error) {
	schema, _, err := resolveSchemaRaw(doc, bodyRaw)
	if err != nil {
		return nil, fmt.Errorf("resolving request body schema: %w", err)
	}

	required := map[string]bool{}
	for _, name := range schema.Required {
		required[name] = true
	}

	body := &RequestBody{
		Required:       len(schema.Required) > 0,
		RequiredFields: schema.Required,
		Properties:     map[string]BodyProperty{},
	}

	keys, values, err := decodeOrderedObject(schema.Properties)
	if err != nil {
		return body, nil // no properties is a valid (empty) body
	}

	const topLevelDepth = 1
	for _, name := range keys {
		propSchema, _, err := resolveSchemaRaw(doc, values[name])
		if err != nil {
			continue
		}
		if propSchema.Format == "binary" {
			continue // the transport cannot carry raw binary
		}

		propType := propSchema.Type
		hasProps, _, _ := decodeOrderedObject(propSchema.Properties)
		if propType == "object" && len(hasProps) > 0 && topLevelDepth < 2 {
			propType = "string (JSON)"
		}

		body.Properties[name] = BodyProperty{
			Name:        name,
			Type:        propType,
			Format:      propSchema.Format,
			Description: propSchema.Description,
			Required:    required[name],
			Visibility:  VisibilityNone,
			Enum:        propSchema.Enum,
			Default:     propSchema.Default,
		}
		body.Names = append(body.Names, name)
	}
	return body, nil
}

// buildResponseSchema recursively converts a resolved rawSchema into
// kin-openapi's typed Schema, capping depth to guard against
// self-referential connector definitions.
func buildResponseSchema(doc *rawDoc, s rawSchema, depth int) *openapi3.Schema {
	out := &openapi3.Schema{
		Format:      s.Format,
		Description: s.Description,
		Enum:        s.Enum,
		Default:     s.Default,
	}
	if s.Type != "" {
		types := openapi3.Types([]string{s.Type})
		out.Type = &types
	}
	if depth >= responseSchemaMaxDepth {
		return out
	}
	if s.Type == "object" {
		keys, values, err := decodeOrderedObject(s.Properties)
		if err == nil && len(keys) > 0 {
			out.Properties = openapi3.Schemas{}
			out.Required = s.Required
			for _, key := range keys {
				child, _, err := resolveSchemaRaw(doc, values[key])
				if err != nil {
					continue
				}
				out.Properties[key] = &openapi3.SchemaRef{Value: buildResponseSchema(doc, child, depth+1)}
			}
		}
	}
	if s.Type == "array" && len(s.Items) > 0 {
		item, _, err := resolveSchemaRaw(doc, s.Items)
		if err == nil {
			out.Items = &openapi3.SchemaRef{Value: buildResponseSchema(doc, item, depth+1)}
		}
	}
	return out
}

// decodeOrderedObject streams a JSON object's keys in document order,
// since encoding/json's map decoding does not preserve it.
func decodeOrderedObject(raw json.RawMessage) ([]string, map[string]json.RawMessage, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, map[string]json.RawMessage{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '{' {
		return nil, nil, fmt.Errorf("decodeOrderedObject: expected object, got %v", tok)
	}

	var keys []string
	values := map[string]json.RawMessage{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("decodeOrderedObject: expected string key, got %v", keyTok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, nil, err
		}
		keys = append(keys, key)
		values[key] = value
	}
	return keys, values, nil
}
