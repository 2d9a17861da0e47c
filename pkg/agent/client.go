package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golemcli/golem/pkg/conversation"
	"github.com/golemcli/golem/pkg/tool"
)

// ModelClient is the capability the runner needs from an LLM backend: given
// the transcript and the available tools, produce the next assistant message.
// The wire protocol is the client's concern.
type ModelClient interface {
	Complete(ctx context.Context, messages []conversation.Message, tools []tool.Summary) (conversation.Message, error)

	// Provider returns the backend name for logging and metrics.
	Provider() string
}

// BackendError wraps a transport-level failure: the backend is unreachable,
// timed out, or returned a server error. Turns failing with a BackendError
// may be retried by the caller with the same user message.
type BackendError struct {
	Provider string
	Err      error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s backend unavailable: %v", e.Provider, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// MalformedResponseError signals that the backend answered but the response
// could not be interpreted.
type MalformedResponseError struct {
	Provider string
	Reason   string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s returned a malformed response: %s", e.Provider, e.Reason)
}

// IsRetryable reports whether an error is worth retrying at the model-client
// layer. Validation and malformed-response failures are permanent.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var backend *BackendError
	if errors.As(err, &backend) {
		return true
	}
	var malformed *MalformedResponseError
	if errors.As(err, &malformed) {
		return false
	}

	msg := err.Error()
	if strings.Contains(msg, "connection refused") || strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out") {
		return true
	}
	if strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") {
		return true
	}
	for _, code := range []string{"500", "502", "503", "504"} {
		if strings.Contains(msg, code) {
			return true
		}
	}
	return false
}
