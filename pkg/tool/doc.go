// Package tool registers and dispatches structured tools for the agent.
//
// Invariants:
// - Tool names are unique within a Registry.
// - Arguments are schema-validated before a handler runs; unknown keys are rejected.
// - Dispatch never panics and never returns an error: every failure mode is
//   encoded in the returned Result status.
//
// Usage:
//
//	reg := tool.NewRegistry()
//	_ = reg.Register(tool.Spec{
//		Name:        "echo",
//		Description: "Echo input",
//		Category:    tool.CategoryUtility,
//		Params:      []tool.Param{{Name: "text", Type: "string", Description: "text", Required: true}},
//		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
//			return args["text"], nil
//		},
//	})
//	disp := tool.NewDispatcher(reg, 10*time.Second)
//	res := disp.Dispatch(ctx, tool.CallRequest{ID: "1", Name: "echo", Arguments: map[string]interface{}{"text": "hi"}})
package tool
