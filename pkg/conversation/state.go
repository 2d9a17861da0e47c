// Package conversation holds the ordered transcript of one conversation and
// its per-turn bookkeeping.
package conversation

import (
	"fmt"
	"time"

	"github.com/golemcli/golem/pkg/tool"
)

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry of the transcript. Assistant messages may carry tool
// calls; tool messages carry the call id they answer. Insertion order is the
// dialogue history sent to the model.
type Message struct {
	Role       Role               `json:"role"`
	Content    string             `json:"content"`
	ToolCalls  []tool.CallRequest `json:"tool_calls,omitempty"`
	ToolCallID string             `json:"tool_call_id,omitempty"`
	Pinned     bool               `json:"pinned,omitempty"`
	Timestamp  time.Time          `json:"timestamp"`
}

// BudgetExceededError signals that a turn has used up its tool-call budget.
type BudgetExceededError struct {
	Limit int
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("tool call budget of %d exceeded for this turn", e.Limit)
}

// State is the ordered transcript plus turn counters. It is owned by a single
// turn at a time; there is no concurrent mutation of one State.
type State struct {
	sessionID    string
	maxHistory   int
	maxToolCalls int

	messages  []Message
	toolCalls int
}

// NewState creates a State bounded by maxHistory messages and maxToolCalls
// tool invocations per turn.
func NewState(sessionID string, maxHistory, maxToolCalls int) *State {
	if maxHistory < 1 {
		maxHistory = 1
	}
	if maxToolCalls < 0 {
		maxToolCalls = 0
	}
	return &State{
		sessionID:    sessionID,
		maxHistory:   maxHistory,
		maxToolCalls: maxToolCalls,
	}
}

// SessionID returns the session this state belongs to.
func (s *State) SessionID() string {
	return s.sessionID
}

// Append adds a message, stamping it if needed, and evicts the oldest
// non-pinned message while the transcript exceeds the history bound. Pinned
// messages (system instructions) are never evicted.
func (s *State) Append(msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	s.messages = append(s.messages, msg)

	for len(s.messages) > s.maxHistory {
		victim := -1
		for i, m := range s.messages {
			if !m.Pinned {
				victim = i
				break
			}
		}
		if victim < 0 {
			break
		}
		s.messages = append(s.messages[:victim], s.messages[victim+1:]...)
	}
}

// History returns up to limit messages in chronological order; limit <= 0
// returns the full transcript. The slice is a copy.
func (s *State) History(limit int) []Message {
	msgs := s.messages
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}

// Len returns the number of messages currently held.
func (s *State) Len() int {
	return len(s.messages)
}

// ResetTurnCounters clears the per-turn tool-call count. Called at the start
// of each user turn.
func (s *State) ResetTurnCounters() {
	s.toolCalls = 0
}

// IncrementToolCalls consumes one unit of the turn's tool budget. It fails
// with BudgetExceededError once the budget would be exceeded, leaving the
// count unchanged.
func (s *State) IncrementToolCalls() error {
	if s.toolCalls+1 > s.maxToolCalls {
		return &BudgetExceededError{Limit: s.maxToolCalls}
	}
	s.toolCalls++
	return nil
}

// ToolCallsThisTurn returns the number of tool calls consumed this turn.
func (s *State) ToolCallsThisTurn() int {
	return s.toolCalls
}

// RemainingToolCalls returns how many tool calls the turn may still make.
func (s *State) RemainingToolCalls() int {
	return s.maxToolCalls - s.toolCalls
}

// MaxToolCalls returns the per-turn tool budget.
func (s *State) MaxToolCalls() int {
	return s.maxToolCalls
}

// Restore replaces the transcript with previously persisted messages,
// re-applying the history bound.
func (s *State) Restore(messages []Message) {
	s.messages = nil
	for _, msg := range messages {
		s.Append(msg)
	}
}
