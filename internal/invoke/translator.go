// Package invoke implements component G: it turns a ParsedOperation plus a
// validated parameter map into the ARM dynamicInvoke request envelope, and
// unwraps the envelope's response back into tool output.
package invoke

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cast"
	"github.com/yosida95/uritemplate/v3"

	"github.com/azure-connectors/arm-mcp-server/internal/armcontext"
	"github.com/azure-connectors/arm-mcp-server/internal/schemagen"
	"github.com/azure-connectors/arm-mcp-server/internal/swagger"
)

// InvocationError wraps any failure that occurs while building or
// interpreting a dynamicInvoke envelope. The tool transport is expected to
// surface it as a single error content block, never let it escape as a raw
// panic or exception.
type InvocationError struct {
	APIName     string
	OperationID string
	Cause       error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("Error invoking %s/%s: %s", e.APIName, e.OperationID, e.Cause)
}

func (e *InvocationError) Unwrap() error { return e.Cause }

// Request is the ARM dynamicInvoke envelope's inner "request" object.
type Request struct {
	Method  string            `json:"method"`
	Path    string            `json:"path"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    map[string]interface{} `json:"body,omitempty"`
	Queries map[string]string `json:"queries,omitempty"`
}

// Envelope is the full ARM dynamicInvoke request body.
type Envelope struct {
	Request Request `json:"request"`
}

// Translate builds the dynamicInvoke envelope for op, given the connection
// it targets and a validated parameter map keyed by sanitized name.
func Translate(conn armcontext.ConnectionInfo, op swagger.ParsedOperation, params map[string]interface{}) (*Envelope, error) {
	path, err := substitutePath(op, params)
	if err != nil {
		return nil, &InvocationError{APIName: conn.APIName, OperationID: op.OperationID, Cause: err}
	}

	req := Request{
		Method: strings.ToUpper(op.Method),
		Path:   path,
	}

	queries := buildQueries(op, params)
	if len(queries) > 0 {
		req.Queries = queries
	}

	if op.RequestBody != nil {
		body := buildBody(op, params)
		if len(body) > 0 {
			req.Body = body
			req.Headers = map[string]string{"Content-Type": "application/json"}
		}
	}

	return &Envelope{Request: req}, nil
}

// invocationPath strips the leading "/{connectionId}" segment from op.Path
// exactly once.
func invocationPath(opPath string) string {
	const prefix = "/{connectionId}"
	if strings.HasPrefix(opPath, prefix) {
		return strings.TrimPrefix(opPath, prefix)
	}
	return opPath
}

// substitutePath expands every path parameter (other than connectionId)
// into the templated invocation path using RFC 6570 simple-string
// expansion, which matches Swagger 2.0's "{name}" path segment syntax.
func substitutePath(op swagger.ParsedOperation, params map[string]interface{}) (string, error) {
	raw := invocationPath(op.Path)
	tmpl, err := uritemplate.New(raw)
	if err != nil {
		// Not every managed-API path is a valid RFC 6570 template (stray
		// braces, etc). Fall back to literal substitution so a malformed
		// template never blocks an otherwise-valid invocation.
		return literalSubstitute(raw, op, params), nil
	}

	values := uritemplate.Values{}
	for _, p := range op.Parameters {
		if p.Name == "connectionId" || p.In != swagger.InPath {
			continue
		}
		key := sanitizeName(p.Name)
		if v, ok := params[key]; ok {
			values.Set(p.Name, uritemplate.String(cast.ToString(v)))
		}
	}
	expanded, err := tmpl.Expand(values)
	if err != nil {
		return literalSubstitute(raw, op, params), nil
	}
	return expanded, nil
}

func literalSubstitute(path string, op swagger.ParsedOperation, params map[string]interface{}) string {
	out := path
	for _, p := range op.Parameters {
		if p.Name == "connectionId" || p.In != swagger.InPath {
			continue
		}
		key := sanitizeName(p.Name)
		if v, ok := params[key]; ok {
			out = strings.ReplaceAll(out, "{"+p.Name+"}", cast.ToString(v))
		}
	}
	return out
}

// buildQueries assembles the queries map from every query parameter present
// in params, keyed by its original (pre-sanitization) name.
func buildQueries(op swagger.ParsedOperation, params map[string]interface{}) map[string]string {
	queries := map[string]string{}
	for _, p := range op.Parameters {
		if p.In != swagger.InQuery {
			continue
		}
		key := sanitizeName(p.Name)
		if v, ok := params[key]; ok {
			queries[p.Name] = cast.ToString(v)
		}
	}
	return queries
}

// buildBody assembles the body map in document order, reading each property
// by its sanitized key (falling back to the body_-prefixed form on name
// collision) and inserting under the original property name. Values
// declared object/"string (JSON)" that arrive as strings are opportunistically
// parsed as JSON.
func buildBody(op swagger.ParsedOperation, params map[string]interface{}) map[string]interface{} {
	body := map[string]interface{}{}
	for _, name := range op.RequestBody.Names {
		prop := op.RequestBody.Properties[name]
		key := sanitizeName(name)
		v, ok := params[key]
		if !ok {
			key = "body_" + key
			v, ok = params[key]
		}
		if !ok {
			continue
		}
		if (prop.Type == "object" || prop.Type == "string (JSON)") {
			if s, isString := v.(string); isString {
				var parsed interface{}
				if err := json.Unmarshal([]byte(s), &parsed); err == nil {
					v = parsed
				}
			}
		}
		body[name] = v
	}
	return body
}

// sanitizeName mirrors component D's key sanitization so the translator can
// look params up by the same keys the registry generated.
func sanitizeName(name string) string {
	return schemagen.Sanitize(name)
}

// ExtractResult unwraps a dynamicInvoke response: ARM nests the connector's
// own response under result.response.body; if that shape isn't present the
// whole result is returned as-is.
func ExtractResult(result map[string]interface{}) interface{} {
	response, ok := result["response"].(map[string]interface{})
	if !ok {
		return result
	}
	if body, ok := response["body"]; ok {
		return body
	}
	return result
}
