package agent

import (
	"context"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"github.com/golemcli/golem/internal/observability"
	"github.com/golemcli/golem/pkg/conversation"
	"github.com/golemcli/golem/pkg/tool"
)

// Phase names a state of the turn state machine. A turn always starts in
// PhaseModelRequested (the user message has been appended) and terminates in
// PhaseFinalAnswer.
type Phase string

const (
	PhaseModelRequested   Phase = "model_requested"
	PhaseToolCallsPending Phase = "tool_calls_pending"
	PhaseToolsExecuting   Phase = "tools_executing"
	PhaseFinalAnswer      Phase = "final_answer"
)

// Config holds runner dependencies, injected at construction.
type Config struct {
	Client     ModelClient
	Registry   *tool.Registry
	Dispatcher *tool.Dispatcher
	Logger     zerolog.Logger
}

// Runner executes conversation turns. It owns the Conversation State for the
// duration of a turn; a single Runner must not process two turns of the same
// state concurrently.
type Runner struct {
	client     ModelClient
	registry   *tool.Registry
	dispatcher *tool.Dispatcher
	logger     zerolog.Logger
}

// NewRunner creates a Runner from injected collaborators.
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("model client is required")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("tool registry is required")
	}
	if cfg.Dispatcher == nil {
		return nil, fmt.Errorf("tool dispatcher is required")
	}
	return &Runner{
		client:     cfg.Client,
		registry:   cfg.Registry,
		dispatcher: cfg.Dispatcher,
		logger:     cfg.Logger,
	}, nil
}

// TurnResult is the outcome of one completed turn.
type TurnResult struct {
	Answer    string
	ToolCalls []tool.CallRequest
	Results   []tool.Result
	Phases    []Phase
}

// Turn runs one user turn to completion: append the input, loop between the
// model and the dispatcher, and return the final answer. Tool failures are
// absorbed into tool results and fed back to the model; only a model-client
// failure aborts the turn, leaving the user message in place so a retry can
// reuse it.
func (r *Runner) Turn(ctx context.Context, state *conversation.State, input string) (TurnResult, error) {
	logger := r.logger.With().Str("session_id", state.SessionID()).Logger()

	r.ensureSystemPrompt(state)
	state.ResetTurnCounters()
	state.Append(conversation.Message{
		Role:    conversation.RoleUser,
		Content: input,
	})

	result := TurnResult{Phases: []Phase{PhaseModelRequested}}

	for {
		reply, err := r.client.Complete(ctx, state.History(0), r.registry.Summaries())
		if err != nil {
			logger.Error().Err(err).Msg("Model completion failed")
			observability.RecordTurn("error", len(result.ToolCalls))
			return result, fmt.Errorf("model completion failed: %w", err)
		}

		if len(reply.ToolCalls) == 0 {
			state.Append(conversation.Message{
				Role:    conversation.RoleAssistant,
				Content: reply.Content,
			})
			result.Answer = reply.Content
			result.Phases = append(result.Phases, PhaseFinalAnswer)
			observability.RecordTurn("answered", len(result.ToolCalls))
			logger.Debug().Int("tool_calls", len(result.ToolCalls)).Msg("Turn completed")
			return result, nil
		}

		calls := normalizeCallIDs(reply.ToolCalls)

		// Never silently drop calls: if honoring this batch would blow the
		// budget, close the turn with a diagnostic answer instead.
		if state.ToolCallsThisTurn()+len(calls) > state.MaxToolCalls() {
			answer := fmt.Sprintf(
				"I stopped before completing the request: the tool call budget of %d per turn is exhausted. Partial results above may still be useful.",
				state.MaxToolCalls(),
			)
			state.Append(conversation.Message{
				Role:    conversation.RoleAssistant,
				Content: answer,
			})
			result.Answer = answer
			result.Phases = append(result.Phases, PhaseFinalAnswer)
			observability.RecordTurn("budget_exhausted", len(result.ToolCalls))
			logger.Warn().
				Int("pending", len(calls)).
				Int("used", state.ToolCallsThisTurn()).
				Msg("Tool budget exhausted, forcing final answer")
			return result, nil
		}

		result.Phases = append(result.Phases, PhaseToolCallsPending)
		state.Append(conversation.Message{
			Role:      conversation.RoleAssistant,
			Content:   reply.Content,
			ToolCalls: calls,
		})

		// Calls within one assistant turn run sequentially, in emitted
		// order: a later call may depend on an earlier call's side effects.
		result.Phases = append(result.Phases, PhaseToolsExecuting)
		for _, call := range calls {
			if err := state.IncrementToolCalls(); err != nil {
				return result, err
			}
			logger.Info().Str("tool", call.Name).Str("call_id", call.ID).Msg("Dispatching tool call")

			res := r.dispatcher.Dispatch(ctx, call)
			result.ToolCalls = append(result.ToolCalls, call)
			result.Results = append(result.Results, res)

			state.Append(conversation.Message{
				Role:       conversation.RoleTool,
				Content:    res.Content(),
				ToolCallID: res.CallID,
			})
		}

		result.Phases = append(result.Phases, PhaseModelRequested)
	}
}

// ensureSystemPrompt pins the system instructions as the first message of a
// fresh transcript.
func (r *Runner) ensureSystemPrompt(state *conversation.State) {
	for _, msg := range state.History(0) {
		if msg.Role == conversation.RoleSystem {
			return
		}
	}
	state.Append(conversation.Message{
		Role:    conversation.RoleSystem,
		Content: BuildSystemPrompt(r.registry),
		Pinned:  true,
	})
}

// normalizeCallIDs guarantees every call carries a unique id so tool results
// can be correlated even when the backend omits or repeats ids.
func normalizeCallIDs(calls []tool.CallRequest) []tool.CallRequest {
	out := make([]tool.CallRequest, len(calls))
	seen := make(map[string]bool, len(calls))
	for i, call := range calls {
		if call.ID == "" || seen[call.ID] {
			id, err := gonanoid.New()
			if err != nil {
				id = fmt.Sprintf("call-%d", i)
			}
			call.ID = id
		}
		seen[call.ID] = true
		out[i] = call
	}
	return out
}
