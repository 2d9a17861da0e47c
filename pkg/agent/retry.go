package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/golemcli/golem/internal/observability"
	"github.com/golemcli/golem/pkg/conversation"
	"github.com/golemcli/golem/pkg/tool"
)

// RetryClient decorates a ModelClient with bounded exponential backoff.
// Retrying lives here, outside the Runner, so the turn loop itself stays
// single-shot per model request.
type RetryClient struct {
	inner      ModelClient
	maxRetries int
	baseDelay  time.Duration
	logger     zerolog.Logger
}

// NewRetryClient wraps inner with up to maxRetries additional attempts.
func NewRetryClient(inner ModelClient, maxRetries int, logger zerolog.Logger) *RetryClient {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &RetryClient{
		inner:      inner,
		maxRetries: maxRetries,
		baseDelay:  time.Second,
		logger:     logger,
	}
}

func (c *RetryClient) Provider() string {
	return c.inner.Provider()
}

// Complete forwards to the wrapped client, retrying transient failures with
// exponential backoff. Non-retryable errors and context cancellation abort
// immediately.
func (c *RetryClient) Complete(ctx context.Context, messages []conversation.Message, tools []tool.Summary) (conversation.Message, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.baseDelay * time.Duration(1<<uint(attempt-1))
			c.logger.Warn().
				Err(lastErr).
				Int("attempt", attempt).
				Dur("delay", delay).
				Str("provider", c.inner.Provider()).
				Msg("Retrying model request")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return conversation.Message{}, ctx.Err()
			}
		}

		start := time.Now()
		reply, err := c.inner.Complete(ctx, messages, tools)
		observability.RecordModelRequest(c.inner.Provider(), time.Since(start), err == nil)
		if err == nil {
			return reply, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return conversation.Message{}, ctx.Err()
		}
		if !IsRetryable(err) {
			return conversation.Message{}, err
		}
	}

	return conversation.Message{}, fmt.Errorf("model request failed after %d attempts: %w", c.maxRetries+1, lastErr)
}
