package tool

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDispatcher(t *testing.T, specs ...Spec) *Dispatcher {
	r := NewRegistry()
	for _, spec := range specs {
		require.NoError(t, r.Register(spec))
	}
	return NewDispatcher(r, 2*time.Second)
}

func TestDispatcher_Dispatch_Success(t *testing.T) {
	d := newTestDispatcher(t, Spec{
		Name:        "echo",
		Description: "Echoes the message back",
		Category:    CategoryUtility,
		Params: []Param{
			{Name: "message", Type: "string", Description: "Message to echo", Required: true},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return args["message"], nil
		},
	})

	res := d.Dispatch(context.Background(), CallRequest{
		ID:        "call-1",
		Name:      "echo",
		Arguments: map[string]interface{}{"message": "hello"},
	})

	assert.Equal(t, StatusOK, res.Status)
	assert.True(t, res.OK())
	assert.Equal(t, "call-1", res.CallID)
	assert.Equal(t, "hello", res.Payload)
	assert.Empty(t, res.Err)
	assert.Greater(t, res.Duration, time.Duration(0))
}

func TestDispatcher_Dispatch_UnknownTool(t *testing.T) {
	d := newTestDispatcher(t)

	res := d.Dispatch(context.Background(), CallRequest{ID: "call-1", Name: "nonexistent"})

	assert.Equal(t, StatusExecutionError, res.Status)
	assert.Contains(t, res.Err, `unknown tool "nonexistent"`)
}

func TestDispatcher_Dispatch_ExecutionError(t *testing.T) {
	d := newTestDispatcher(t, Spec{
		Name:        "failing",
		Description: "Always fails",
		Category:    CategoryUtility,
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return nil, errors.New("disk full")
		},
	})

	res := d.Dispatch(context.Background(), CallRequest{ID: "call-1", Name: "failing"})

	assert.Equal(t, StatusExecutionError, res.Status)
	assert.Contains(t, res.Err, "disk full")
}

func TestDispatcher_Dispatch_PanicRecovery(t *testing.T) {
	d := newTestDispatcher(t, Spec{
		Name:        "panicking",
		Description: "Always panics",
		Category:    CategoryUtility,
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			panic("boom")
		},
	})

	res := d.Dispatch(context.Background(), CallRequest{ID: "call-1", Name: "panicking"})

	assert.Equal(t, StatusExecutionError, res.Status)
	assert.Contains(t, res.Err, "boom")
}

func TestDispatcher_Dispatch_Timeout(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Spec{
		Name:        "slow",
		Description: "Sleeps past the deadline",
		Category:    CategoryUtility,
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			select {
			case <-time.After(5 * time.Second):
				return "done", nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	}))
	d := NewDispatcher(r, 50*time.Millisecond)

	start := time.Now()
	res := d.Dispatch(context.Background(), CallRequest{ID: "call-1", Name: "slow"})

	assert.Equal(t, StatusTimeout, res.Status)
	assert.Contains(t, res.Err, "timed out")
	assert.Less(t, time.Since(start), time.Second)
}

func TestDispatcher_Dispatch_NilArguments(t *testing.T) {
	d := newTestDispatcher(t, Spec{
		Name:        "no_args",
		Description: "Takes no arguments",
		Category:    CategoryUtility,
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			assert.NotNil(t, args)
			return "ok", nil
		},
	})

	res := d.Dispatch(context.Background(), CallRequest{ID: "call-1", Name: "no_args"})
	assert.Equal(t, StatusOK, res.Status)
}

func TestDispatcher_Validation(t *testing.T) {
	spec := Spec{
		Name:        "search",
		Description: "Searches the workspace",
		Category:    CategorySearch,
		Params: []Param{
			{Name: "query", Type: "string", Description: "Search query", Required: true},
			{Name: "limit", Type: "integer", Description: "Max results"},
			{Name: "mode", Type: "string", Description: "Search mode", Enum: []string{"exact", "fuzzy"}},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			t.Fatal("handler must not run on validation failure")
			return nil, nil
		},
	}
	d := newTestDispatcher(t, spec)

	tests := []struct {
		name      string
		args      map[string]interface{}
		violation string
	}{
		{
			name:      "missing required parameter",
			args:      map[string]interface{}{"limit": 3},
			violation: `missing required parameter "query"`,
		},
		{
			name:      "wrong type",
			args:      map[string]interface{}{"query": 42},
			violation: `parameter "query": expected string, got number`,
		},
		{
			name:      "non-integral number for integer",
			args:      map[string]interface{}{"query": "x", "limit": 2.5},
			violation: `parameter "limit": expected integer, got number`,
		},
		{
			name:      "enum violation",
			args:      map[string]interface{}{"query": "x", "mode": "regex"},
			violation: "must be one of",
		},
		{
			name:      "unknown parameter",
			args:      map[string]interface{}{"query": "x", "bogus": true},
			violation: `unexpected parameter "bogus"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := d.Dispatch(context.Background(), CallRequest{ID: "call-1", Name: "search", Arguments: tt.args})
			assert.Equal(t, StatusValidationError, res.Status)
			assert.Contains(t, res.Err, tt.violation)
		})
	}
}

func TestDispatcher_Validation_FirstViolationInDeclarationOrder(t *testing.T) {
	d := newTestDispatcher(t, Spec{
		Name:        "multi",
		Description: "Has several required parameters",
		Category:    CategoryUtility,
		Params: []Param{
			{Name: "first", Type: "string", Description: "First", Required: true},
			{Name: "second", Type: "string", Description: "Second", Required: true},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return nil, nil
		},
	})

	// Both parameters are missing; the report must name the first one.
	res := d.Dispatch(context.Background(), CallRequest{ID: "call-1", Name: "multi"})
	assert.Equal(t, StatusValidationError, res.Status)
	assert.Contains(t, res.Err, `missing required parameter "first"`)
}

func TestResult_Content(t *testing.T) {
	t.Run("should return payload for success", func(t *testing.T) {
		res := Result{Status: StatusOK, Payload: "plain text"}
		assert.Equal(t, "plain text", res.Content())
	})

	t.Run("should serialize structured payloads", func(t *testing.T) {
		res := Result{Status: StatusOK, Payload: map[string]interface{}{"count": 3}}
		assert.Contains(t, res.Content(), `"count":3`)
	})

	t.Run("should describe failures", func(t *testing.T) {
		res := Result{Status: StatusTimeout, Err: "tool timed out"}
		assert.Contains(t, res.Content(), "tool timed out")
	})
}
