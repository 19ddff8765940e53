package toolregistry

import (
	"fmt"
	"strings"
	"sync"

	"github.com/azure-connectors/arm-mcp-server/internal/armcontext"
	"github.com/azure-connectors/arm-mcp-server/internal/schemagen"
	"github.com/azure-connectors/arm-mcp-server/internal/swagger"
)

// Entry is what the registry stores per tool name: enough to rebuild the
// invocation envelope without re-parsing the owning managed-API document.
type Entry struct {
	ToolName    string
	Description string
	InputSchema *schemagen.ParamSpecs
	Connection  armcontext.ConnectionInfo
	Operation   swagger.ParsedOperation
}

// ErrDuplicateTool is returned by Put when toolName is already present; the
// lifecycle coordinator counts this as "skipped" rather than an error.
var ErrDuplicateTool = fmt.Errorf("toolregistry: tool name already registered")

// Registry is the process-scoped, append-mostly dynamic tool registry of
// component E. The single control thread (see the concurrency model) is the
// only writer in normal operation; the mutex guards the map against
// concurrent access. In cmd/arm-mcp-server the startup scan finishes before
// the debug REPL or the stdio transport starts, and each of those handles
// one call at a time.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{entries: map[string]Entry{}}
}

// HasPrefix reports whether any tool name begins with "<apiName>_", used to
// short-circuit incremental registration for an already-registered API.
func (r *Registry) HasPrefix(apiName string) bool {
	prefix := apiName + "_"
	r.mu.RLock()
	defer r.mu.RUnlock()
	for name := range r.entries {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// Put inserts a new tool entry, failing with ErrDuplicateTool if toolName is
// already present.
func (r *Registry) Put(toolName string, entry Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[toolName]; exists {
		return ErrDuplicateTool
	}
	entry.ToolName = toolName
	r.entries[toolName] = entry
	return nil
}

// Snapshot returns an iterable copy of the registry, for list_dynamic_tools.
func (r *Registry) Snapshot() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	return out
}

// Get looks up a single tool by name, for dispatching an invocation.
func (r *Registry) Get(toolName string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[toolName]
	return e, ok
}

// Len reports how many tools are registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// ClearAll empties the registry. Only the refresh path is specified to call
// this, and the current refresh design intentionally does not: it is kept
// for completeness of the component E contract and for tests.
func (r *Registry) ClearAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = map[string]Entry{}
}

// BuildToolName exposes the naming rule to callers outside this package
// (the lifecycle coordinator).
func BuildToolName(apiName, operationID string) string {
	return buildToolName(apiName, operationID)
}

// BuildDescription exposes the description-composition rule to callers
// outside this package.
func BuildDescription(displayName, summaryOrDescription, status string) string {
	return buildDescription(displayName, summaryOrDescription, status)
}
