// Package swagger implements the OpenAPI parser (component B) and the
// operation filter/family-deduplicator (component C): it walks a Swagger
// 2.0 managed-API document exported by ARM and compiles each (path,
// method) into a ParsedOperation, then keeps only the operations a client
// should actually see.
package swagger

import "github.com/getkin/kin-openapi/openapi3"

// Visibility mirrors the x-ms-visibility extension on an operation.
type Visibility string

const (
	VisibilityNone      Visibility = "none"
	VisibilityImportant Visibility = "important"
	VisibilityAdvanced  Visibility = "advanced"
	VisibilityInternal  Visibility = "internal"
)

// ParamLocation is where a non-body parameter is carried.
type ParamLocation string

const (
	InPath   ParamLocation = "path"
	InQuery  ParamLocation = "query"
	InHeader ParamLocation = "header"
)

// APIAnnotation is the x-ms-api-annotation extension that groups evolving
// revisions of the same logical operation.
type APIAnnotation struct {
	Family   string
	Revision int
	Status   string
}

// DynamicValues is the Microsoft dynamic-values hint on a parameter: the
// operation to call to populate a picker, plus how to read its result.
type DynamicValues struct {
	OperationID    string
	ValueCollection string
	ValuePath      string
	ValueTitle     string
	Parameters     map[string]interface{}
}

// ParsedParameter is a non-body operation parameter.
type ParsedParameter struct {
	Name          string
	In            ParamLocation
	Type          string
	Format        string
	Required      bool
	Description   string
	Default       interface{}
	Enum          []interface{}
	DynamicValues *DynamicValues
}

// BodyProperty is one top-level property of a flattened request body.
type BodyProperty struct {
	Name        string
	Type        string // "string (JSON)" is the synthetic flattened-object marker.
	Format      string
	Description string
	Required    bool
	Visibility  Visibility
	Enum        []interface{}
	Default     interface{}
}

// RequestBody is the flattened shape of an operation's single body
// parameter.
type RequestBody struct {
	Required      bool
	RequiredFields []string
	// Properties is keyed by property name; Names records the document
	// order of those keys, since Go maps are unordered.
	Properties map[string]BodyProperty
	Names      []string
}

// ParsedOperation is the result of compiling one (path, method) pair from a
// Swagger 2.0 document.
type ParsedOperation struct {
	OperationID   string
	Method        string // get, post, put, patch, delete
	Path          string // templated, begins with /{connectionId}
	Summary       string
	Description   string
	Deprecated    bool
	Visibility    Visibility
	IsTrigger     bool
	APIAnnotation *APIAnnotation

	Parameters  []ParsedParameter
	RequestBody *RequestBody

	// ResponseSchema is informational only: the resolved JSON Schema of
	// the 200/201 response, represented with kin-openapi's openapi3.Schema
	// type after our own $ref resolver has walked the definitions tree.
	ResponseSchema *openapi3.Schema
}

// SummaryOrDescription returns whichever of Summary/Description is
// non-empty, preferring Summary, per the description-composition rule in
// component E.
func (p ParsedOperation) SummaryOrDescription() string {
	if p.Summary != "" {
		return p.Summary
	}
	return p.Description
}
