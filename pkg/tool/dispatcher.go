package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"

	"github.com/golemcli/golem/internal/observability"
)

// DefaultTimeout bounds a single handler invocation when no timeout is
// configured.
const DefaultTimeout = 10 * time.Second

// Dispatcher validates and executes tool calls against a Registry. All
// failure is encoded in the returned Result; Dispatch never panics and the
// orchestration loop never crashes because a tool failed.
type Dispatcher struct {
	registry *Registry
	timeout  time.Duration
}

// NewDispatcher creates a Dispatcher bound to a registry. A non-positive
// timeout falls back to DefaultTimeout.
func NewDispatcher(registry *Registry, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{
		registry: registry,
		timeout:  timeout,
	}
}

// Dispatch executes one tool call. The handler runs under the configured
// wall-clock timeout; side effects committed before a timeout are not rolled
// back. Handlers are expected to be safely abandonable.
func (d *Dispatcher) Dispatch(ctx context.Context, req CallRequest) Result {
	start := time.Now()

	spec, err := d.registry.Get(req.Name)
	if err != nil {
		log.Error().Str("tool", req.Name).Str("call_id", req.ID).Msg("Unknown tool requested")
		return d.finish(req, Result{
			CallID: req.ID,
			Status: StatusExecutionError,
			Err:    fmt.Sprintf("unknown tool %q", req.Name),
		}, start)
	}

	args := req.Arguments
	if args == nil {
		args = map[string]interface{}{}
	}

	if violation := d.validate(spec, args); violation != "" {
		log.Debug().Str("tool", req.Name).Str("violation", violation).Msg("Argument validation failed")
		return d.finish(req, Result{
			CallID: req.ID,
			Status: StatusValidationError,
			Err:    violation,
		}, start)
	}

	log.Debug().Str("tool", req.Name).Str("call_id", req.ID).Msg("Executing tool")

	timeoutCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	resultCh := make(chan interface{}, 1)
	errCh := make(chan error, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				errCh <- fmt.Errorf("tool panicked: %v", rec)
			}
		}()
		payload, err := spec.Handler(timeoutCtx, args)
		if err != nil {
			errCh <- err
		} else {
			resultCh <- payload
		}
	}()

	select {
	case payload := <-resultCh:
		return d.finish(req, Result{
			CallID:  req.ID,
			Status:  StatusOK,
			Payload: payload,
		}, start)

	case err := <-errCh:
		log.Error().Str("tool", req.Name).Err(err).Msg("Tool execution failed")
		return d.finish(req, Result{
			CallID: req.ID,
			Status: StatusExecutionError,
			Err:    err.Error(),
		}, start)

	case <-timeoutCtx.Done():
		log.Error().Str("tool", req.Name).Dur("timeout", d.timeout).Msg("Tool execution timeout")
		return d.finish(req, Result{
			CallID: req.ID,
			Status: StatusTimeout,
			Err:    fmt.Sprintf("tool %q timed out after %v", req.Name, d.timeout),
		}, start)
	}
}

func (d *Dispatcher) finish(req CallRequest, res Result, start time.Time) Result {
	res.Duration = time.Since(start)
	observability.RecordToolExecution(req.Name, string(res.Status), res.Duration)
	return res
}

// validate checks args against the spec's schema and, on failure, names the
// first violated constraint in schema-declaration order.
func (d *Dispatcher) validate(spec *Spec, args map[string]interface{}) string {
	schema := d.registry.schema(spec.Name)
	if schema == nil {
		return ""
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return fmt.Sprintf("arguments are not a valid object: %v", err)
	}
	if result.Valid() {
		return ""
	}

	// Walk declared parameters in order so the reported violation is
	// deterministic regardless of schema library internals.
	for _, param := range spec.Params {
		value, present := args[param.Name]
		if !present {
			if param.Required {
				return fmt.Sprintf("missing required parameter %q", param.Name)
			}
			continue
		}
		if !matchesType(param.Type, value) {
			return fmt.Sprintf("parameter %q: expected %s, got %s", param.Name, param.Type, jsonTypeOf(value))
		}
		if len(param.Enum) > 0 {
			if s, ok := value.(string); !ok || !containsString(param.Enum, s) {
				return fmt.Sprintf("parameter %q: value must be one of %v", param.Name, param.Enum)
			}
		}
	}

	if unknown := unknownKeys(spec, args); len(unknown) > 0 {
		return fmt.Sprintf("unexpected parameter %q", unknown[0])
	}

	// Schema rejected the arguments for a reason the walk above could not
	// name; fall back to the schema library's first error.
	for _, schemaErr := range result.Errors() {
		return schemaErr.String()
	}
	return "arguments do not satisfy the tool schema"
}

func unknownKeys(spec *Spec, args map[string]interface{}) []string {
	declared := make(map[string]bool, len(spec.Params))
	for _, param := range spec.Params {
		declared[param.Name] = true
	}
	var unknown []string
	for key := range args {
		if !declared[key] {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	return unknown
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

// matchesType checks a Go value against a JSON-Schema primitive type name.
func matchesType(declared string, value interface{}) bool {
	switch declared {
	case "string":
		_, ok := value.(string)
		return ok
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "number":
		return isNumeric(value)
	case "integer":
		switch v := value.(type) {
		case int, int32, int64:
			return true
		case float64:
			return v == math.Trunc(v)
		case json.Number:
			_, err := v.Int64()
			return err == nil
		default:
			return false
		}
	case "array":
		_, ok := value.([]interface{})
		return ok
	case "object":
		_, ok := value.(map[string]interface{})
		return ok
	default:
		return true
	}
}

func isNumeric(value interface{}) bool {
	switch value.(type) {
	case int, int32, int64, float32, float64, json.Number:
		return true
	default:
		return false
	}
}

func jsonTypeOf(value interface{}) string {
	switch value.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case []interface{}:
		return "array"
	case map[string]interface{}:
		return "object"
	default:
		if isNumeric(value) {
			return "number"
		}
		return fmt.Sprintf("%T", value)
	}
}

func formatValue(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
