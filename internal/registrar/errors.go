package registrar

import "fmt"

// ValidationError is surfaced when a client-supplied params object fails
// the ParamSpec map a tool was registered with.
type ValidationError struct {
	ToolName string
	Issues   []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %v", e.ToolName, e.Issues)
}

var (
	// ErrToolNotFound is returned when a client invokes an unregistered
	// tool name.
	ErrToolNotFound = fmt.Errorf("registrar: tool not found")
	// ErrAlreadyRegistered mirrors the registry's duplicate-name rejection
	// at the registrar boundary.
	ErrAlreadyRegistered = fmt.Errorf("registrar: tool already registered")
)
