// Package schemagen implements component D: it flattens a parsed operation
// into an insertion-ordered map of sanitized parameter names to ParamSpec
// descriptors, ready for a tool registrar to turn into a validator.
package schemagen

// Kind is the abstract shape of a tool input, independent of any particular
// JSON Schema dialect.
type Kind string

const (
	KindString  Kind = "string"
	KindInteger Kind = "integer"
	KindNumber  Kind = "number"
	KindBoolean Kind = "boolean"
	KindArray   Kind = "array"
	KindObject  Kind = "object"
	KindEnum    Kind = "enum"
)

// ParamSpec is the abstract input descriptor consumed by the registrar to
// build a validator for one named parameter.
type ParamSpec struct {
	Kind        Kind
	Required    bool
	Default     interface{}
	EnumValues  []interface{}
	Description string
}

// ParamSpecs is an insertion-ordered map of sanitized name to ParamSpec.
// Names preserves insertion order; Go maps alone cannot.
type ParamSpecs struct {
	byName map[string]ParamSpec
	names  []string
}

// NewParamSpecs returns an empty ordered map.
func NewParamSpecs() *ParamSpecs {
	return &ParamSpecs{byName: map[string]ParamSpec{}}
}

// Has reports whether name is already present.
func (p *ParamSpecs) Has(name string) bool {
	_, ok := p.byName[name]
	return ok
}

// Get returns the spec for name, if present.
func (p *ParamSpecs) Get(name string) (ParamSpec, bool) {
	spec, ok := p.byName[name]
	return spec, ok
}

// Set inserts or overwrites name, recording insertion order on first
// insertion only.
func (p *ParamSpecs) Set(name string, spec ParamSpec) {
	if _, exists := p.byName[name]; !exists {
		p.names = append(p.names, name)
	}
	p.byName[name] = spec
}

// Names returns the sanitized keys in insertion order.
func (p *ParamSpecs) Names() []string {
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}

// Len reports how many parameters are present.
func (p *ParamSpecs) Len() int {
	return len(p.names)
}

// Map returns a plain map snapshot, e.g. for handing to a registrar whose
// contract does not care about order.
func (p *ParamSpecs) Map() map[string]ParamSpec {
	out := make(map[string]ParamSpec, len(p.byName))
	for k, v := range p.byName {
		out[k] = v
	}
	return out
}
