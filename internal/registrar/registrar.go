// Package registrar implements the external "tool registrar" contract: a
// process registers named, typed, invocable tools and the registrar
// validates client-supplied parameters before calling the registered
// handler. This package also provides a self-contained stdio line-oriented
// transport that speaks the tool protocol directly, since the wider
// ecosystem client library this codebase would otherwise depend on is not
// available to this module in a buildable form.
package registrar

import (
	"context"
	"fmt"
	"sync"

	"github.com/azure-connectors/arm-mcp-server/internal/schemagen"
)

// Result is the single text content block a handler returns. IsError marks
// it for the transport to surface as a tool-level error rather than a
// successful result.
type Result struct {
	Text    string
	IsError bool
}

// TextResult is a convenience constructor for a successful result.
func TextResult(text string) Result { return Result{Text: text} }

// ErrorResult is a convenience constructor for an error result.
func ErrorResult(text string) Result { return Result{Text: text, IsError: true} }

// Handler is what register() binds a tool name to.
type Handler func(ctx context.Context, params map[string]interface{}) Result

// Registrar is the external tool registrar contract every exposed tool goes
// through, whether it's one of the six static tools or a dynamically
// generated one.
type Registrar interface {
	Register(name, description string, inputSchema *schemagen.ParamSpecs, handler Handler) error
	NotifyListChanged()
}

type registeredTool struct {
	description string
	inputSchema *schemagen.ParamSpecs
	handler     Handler
}

// Server is the in-process Registrar implementation: it owns the name ->
// tool map and the list of list_changed subscribers, and can
// drive either the stdio transport in transport.go or a debug REPL.
type Server struct {
	mu    sync.RWMutex
	tools map[string]registeredTool

	notifyMu  sync.Mutex
	notifyFns []func()
}

// NewServer returns an empty Server.
func NewServer() *Server {
	return &Server{tools: map[string]registeredTool{}}
}

// Register implements Registrar.
func (s *Server) Register(name, description string, inputSchema *schemagen.ParamSpecs, handler Handler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tools[name]; exists {
		return ErrAlreadyRegistered
	}
	s.tools[name] = registeredTool{description: description, inputSchema: inputSchema, handler: handler}
	return nil
}

// OnListChanged subscribes a callback to be invoked whenever
// NotifyListChanged fires (the stdio transport uses this to write the
// notification line; the debug REPL ignores it).
func (s *Server) OnListChanged(fn func()) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	s.notifyFns = append(s.notifyFns, fn)
}

// NotifyListChanged implements Registrar: it emits
// notifications/tools/list_changed to every subscriber.
func (s *Server) NotifyListChanged() {
	s.notifyMu.Lock()
	fns := make([]func(), len(s.notifyFns))
	copy(fns, s.notifyFns)
	s.notifyMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Invoke runs the named tool's handler after validating params against its
// registered ParamSpec map. It never panics outward: any handler error is
// itself a property of Result, not a Go error return, except for the
// not-found/validation cases below.
func (s *Server) Invoke(ctx context.Context, name string, params map[string]interface{}) (Result, error) {
	s.mu.RLock()
	tool, ok := s.tools[name]
	s.mu.RUnlock()
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	if err := Validate(name, tool.inputSchema, params); err != nil {
		return Result{}, err
	}
	return tool.handler(ctx, params), nil
}

// ToolNames returns every registered tool name, for building a
// tools/list response.
func (s *Server) ToolNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.tools))
	for name := range s.tools {
		names = append(names, name)
	}
	return names
}

// Describe returns a tool's description and input schema, for building a
// tools/list response.
func (s *Server) Describe(name string) (description string, schema *schemagen.ParamSpecs, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tool, ok := s.tools[name]
	if !ok {
		return "", nil, false
	}
	return tool.description, tool.inputSchema, true
}
