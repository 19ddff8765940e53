package registrar

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/azure-connectors/arm-mcp-server/internal/schemagen"
)

// rpcRequest is one line of the line-oriented JSON-RPC-style protocol the
// tool transport speaks.
type rpcRequest struct {
	ID     json.RawMessage `json:"id,omitempty"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

type rpcResponse struct {
	ID     json.RawMessage `json:"id,omitempty"`
	Result interface{}     `json:"result,omitempty"`
	Error  *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcNotification struct {
	Method string      `json:"method"`
	Params interface{} `json:"params,omitempty"`
}

type callParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type callResult struct {
	Content []contentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

type toolDescriptor struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema interface{} `json:"inputSchema"`
}

// StdioTransport drives a *Server over stdin/stdout, one JSON-RPC object
// per line. It never lets a handler error propagate past a single response;
// only decode failures on the wire itself are logged and skipped.
type StdioTransport struct {
	server *Server
	in     *bufio.Scanner
	out    io.Writer

	writeMu sync.Mutex
}

// NewStdioTransport wires server to r/w and subscribes it to
// notifications/tools/list_changed so registration events during the run
// loop surface to the client immediately.
func NewStdioTransport(server *Server, r io.Reader, w io.Writer) *StdioTransport {
	t := &StdioTransport{server: server, in: bufio.NewScanner(r), out: w}
	t.in.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	server.OnListChanged(func() {
		t.writeLine(rpcNotification{Method: "notifications/tools/list_changed"})
	})
	return t
}

// Run reads requests until EOF or ctx is cancelled, dispatching each to
// completion before reading the next line, matching the single-logical-
// control-thread scheduling model: no request overlaps another.
func (t *StdioTransport) Run(ctx context.Context) error {
	for t.in.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := t.in.Bytes()
		if len(line) == 0 {
			continue
		}
		var req rpcRequest
		if err := json.Unmarshal(line, &req); err != nil {
			log.Printf("registrar: skipping malformed request: %v", err)
			continue
		}
		t.dispatch(ctx, req)
	}
	return t.in.Err()
}

func (t *StdioTransport) dispatch(ctx context.Context, req rpcRequest) {
	switch req.Method {
	case "initialize":
		t.writeLine(rpcResponse{ID: req.ID, Result: map[string]interface{}{
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{"listChanged": true},
			},
		}})
	case "tools/list":
		t.writeLine(rpcResponse{ID: req.ID, Result: map[string]interface{}{"tools": t.listTools()}})
	case "tools/call":
		t.handleCall(ctx, req)
	default:
		t.writeLine(rpcResponse{ID: req.ID, Error: &rpcError{Code: -32601, Message: "method not found: " + req.Method}})
	}
}

func (t *StdioTransport) listTools() []toolDescriptor {
	names := t.server.ToolNames()
	out := make([]toolDescriptor, 0, len(names))
	for _, name := range names {
		desc, schema, ok := t.server.Describe(name)
		if !ok {
			continue
		}
		out = append(out, toolDescriptor{Name: name, Description: desc, InputSchema: inputSchemaJSON(schema)})
	}
	return out
}

func (t *StdioTransport) handleCall(ctx context.Context, req rpcRequest) {
	var params callParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		t.writeLine(rpcResponse{ID: req.ID, Error: &rpcError{Code: -32602, Message: "invalid params: " + err.Error()}})
		return
	}

	result, err := t.server.Invoke(ctx, params.Name, params.Arguments)
	if err != nil {
		t.writeLine(rpcResponse{ID: req.ID, Result: callResult{
			Content: []contentBlock{{Type: "text", Text: err.Error()}},
			IsError: true,
		}})
		return
	}
	t.writeLine(rpcResponse{ID: req.ID, Result: callResult{
		Content: []contentBlock{{Type: "text", Text: result.Text}},
		IsError: result.IsError,
	}})
}

func (t *StdioTransport) writeLine(v interface{}) {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	encoded, err := json.Marshal(v)
	if err != nil {
		log.Printf("registrar: encoding response: %v", err)
		return
	}
	if _, err := fmt.Fprintf(t.out, "%s\n", encoded); err != nil {
		log.Printf("registrar: writing response: %v", err)
	}
}

// inputSchemaJSON renders a ParamSpecs map as the JSON Schema object the
// wire protocol expects a tool's inputSchema to be.
func inputSchemaJSON(specs *schemagen.ParamSpecs) map[string]interface{} {
	if specs == nil {
		return map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
	}
	return buildJSONSchema(specs)
}
