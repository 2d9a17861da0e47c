package tool

import "fmt"

// DuplicateToolError is returned when registering a tool whose name is taken.
type DuplicateToolError struct {
	Name string
}

func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("tool %q is already registered", e.Name)
}

// UnknownToolError is returned when looking up a tool that was never registered.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool %q", e.Name)
}

// InvalidSpecError is returned when a tool declaration fails validation at
// registration time.
type InvalidSpecError struct {
	Name   string
	Reason string
}

func (e *InvalidSpecError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("invalid tool spec: %s", e.Reason)
	}
	return fmt.Sprintf("invalid tool spec %q: %s", e.Name, e.Reason)
}
