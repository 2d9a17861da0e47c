package tool

import (
	"context"
	"strings"
	"time"
)

// Category groups tools for display and prompt building.
type Category string

const (
	CategoryRetrieval     Category = "retrieval"
	CategoryStorage       Category = "storage"
	CategorySearch        Category = "search"
	CategoryGeneration    Category = "generation"
	CategoryCommunication Category = "communication"
	CategoryCombined      Category = "combined"
	CategoryShell         Category = "shell"
	CategoryUtility       Category = "utility"
)

// AllCategories returns the valid tool categories.
func AllCategories() []Category {
	return []Category{
		CategoryRetrieval,
		CategoryStorage,
		CategorySearch,
		CategoryGeneration,
		CategoryCommunication,
		CategoryCombined,
		CategoryShell,
		CategoryUtility,
	}
}

// IsValidCategory checks if a category is valid.
func IsValidCategory(category string) bool {
	cat := Category(strings.ToLower(category))
	for _, valid := range AllCategories() {
		if cat == valid {
			return true
		}
	}
	return false
}

// Handler is the function signature for tool execution. It receives the
// validated arguments and returns a result value or an execution error.
type Handler func(ctx context.Context, args map[string]interface{}) (interface{}, error)

// Param declares a single named parameter of a tool.
type Param struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Description string      `json:"description"`
	Required    bool        `json:"required"`
	Enum        []string    `json:"enum,omitempty"`
	Default     interface{} `json:"default,omitempty"`
}

// Spec describes a registered tool: identity, parameter contract, and the
// handler capability. Specs are registered once at startup and immutable
// thereafter.
type Spec struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
	Params      []Param  `json:"params"`
	Handler     Handler  `json:"-"`
}

// Summary is the provider-facing view of a tool: name, description, and a
// JSON-Schema input contract. It carries no handler.
type Summary struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

// CallRequest is a single tool invocation emitted by the model. The ID
// correlates the request to its Result within one turn.
type CallRequest struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// Status classifies the outcome of a dispatch.
type Status string

const (
	StatusOK              Status = "ok"
	StatusValidationError Status = "validation_error"
	StatusExecutionError  Status = "execution_error"
	StatusTimeout         Status = "timeout"
)

// Result is the normalized outcome of one dispatched call. Never mutated
// after creation.
type Result struct {
	CallID   string        `json:"call_id"`
	Status   Status        `json:"status"`
	Payload  interface{}   `json:"payload,omitempty"`
	Err      string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// OK reports whether the dispatch succeeded.
func (r Result) OK() bool {
	return r.Status == StatusOK
}

// Content renders the result as text suitable for a tool-role message.
func (r Result) Content() string {
	if r.OK() {
		return stringify(r.Payload)
	}
	return r.Err
}

func stringify(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return strings.TrimSpace(formatValue(v))
}

// inputSchema builds the JSON-Schema object for the spec's parameters.
// Unknown keys are rejected via additionalProperties.
func (s Spec) inputSchema() map[string]interface{} {
	properties := make(map[string]interface{}, len(s.Params))
	required := []string{}

	for _, param := range s.Params {
		paramSchema := map[string]interface{}{
			"type":        param.Type,
			"description": param.Description,
		}
		if len(param.Enum) > 0 {
			enum := make([]interface{}, len(param.Enum))
			for i, v := range param.Enum {
				enum[i] = v
			}
			paramSchema["enum"] = enum
		}
		if param.Default != nil {
			paramSchema["default"] = param.Default
		}
		properties[param.Name] = paramSchema
		if param.Required {
			required = append(required, param.Name)
		}
	}

	schema := map[string]interface{}{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// Summary returns the provider-facing view of the spec.
func (s Spec) Summary() Summary {
	return Summary{
		Name:        s.Name,
		Description: s.Description,
		InputSchema: s.inputSchema(),
	}
}
