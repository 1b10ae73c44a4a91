// Package agentstate implements the shared mutable agent record (spec
// §4.3): message history with a bounded window, pending background tasks,
// and stored plans, all guarded by a single mutex. Streaming accumulators
// recognize <think>…</think> spans and route their content to a separate
// buffer so it never surfaces as assistant-visible output.
package agentstate

import (
	"context"
	"strings"
	"sync"
)

// Message is a single conversation turn.
type Message struct {
	Role    string
	Content string
}

// DefaultMaxHistory is the history bound used when none is configured.
const DefaultMaxHistory = 200

// PendingTask tracks a delegated background task's bookkeeping entry —
// cancellation itself is owned by the orchestrator's token map; the store
// only tracks which task ids are outstanding and which were cancelled.
type PendingTask struct {
	ID        string
	Cancelled bool
}

// Store is the agent's shared mutable state, guarded by a single mutex per
// spec §4.3.
type Store struct {
	mu sync.Mutex

	maxHistory int
	messages   []Message

	pendingTasks map[string]*PendingTask
	plans        map[string]*Plan

	thinkBuffer strings.Builder
	inThink     bool
}

// New creates a Store with the given history bound. maxHistory ≤ 0 uses
// DefaultMaxHistory.
func New(maxHistory int) *Store {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &Store{
		maxHistory:   maxHistory,
		pendingTasks: make(map[string]*PendingTask),
		plans:        make(map[string]*Plan),
	}
}

// AddMessage appends msg, evicting the earliest non-system message once
// len(messages) >= maxHistory. If every message is system, eviction stops
// (the store never drops a system message to make room).
func (s *Store) AddMessage(_ context.Context, msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages, msg)
	for len(s.messages) > s.maxHistory {
		idx := firstNonSystemIndex(s.messages)
		if idx < 0 {
			break
		}
		s.messages = append(s.messages[:idx], s.messages[idx+1:]...)
	}
}

func firstNonSystemIndex(messages []Message) int {
	for i, m := range messages {
		if m.Role != "system" {
			return i
		}
	}
	return -1
}

// ClearHistory removes all non-system messages, retaining system messages.
func (s *Store) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()

	retained := s.messages[:0]
	for _, m := range s.messages {
		if m.Role == "system" {
			retained = append(retained, m)
		}
	}
	s.messages = retained
}

// GetContextMessages returns the last n non-system messages in chronological
// order. n ≤ 0 returns all non-system messages.
func (s *Store) GetContextMessages(n int) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	nonSystem := make([]Message, 0, len(s.messages))
	for _, m := range s.messages {
		if m.Role != "system" {
			nonSystem = append(nonSystem, m)
		}
	}
	if n <= 0 || n >= len(nonSystem) {
		return nonSystem
	}
	return nonSystem[len(nonSystem)-n:]
}

// AddPendingTask registers a newly delegated background task.
func (s *Store) AddPendingTask(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingTasks[id] = &PendingTask{ID: id}
}

// CancelTask marks a pending task cancelled. It is a no-op if id is not
// outstanding (idempotent, matching the orchestrator's cancellation-token
// removal semantics).
func (s *Store) CancelTask(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.pendingTasks[id]; ok {
		t.Cancelled = true
	}
}

// CleanupTasks drops every cancelled task from the pending set.
func (s *Store) CleanupTasks() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.pendingTasks {
		if t.Cancelled {
			delete(s.pendingTasks, id)
		}
	}
}

// PendingTaskIDs returns the ids of all currently tracked tasks.
func (s *Store) PendingTaskIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.pendingTasks))
	for id := range s.pendingTasks {
		ids = append(ids, id)
	}
	return ids
}

// StorePlan stores or replaces a plan by id.
func (s *Store) StorePlan(plan *Plan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[plan.ID] = plan
}

// GetPlan returns the stored plan pointer for the given id. It is the live
// plan, not a copy; callers that only read it must not mutate it.
func (s *Store) GetPlan(id string) (*Plan, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[id]
	return p, ok
}

// GetPlanMut returns the live plan pointer for in-place mutation by the
// planning engine, which already serializes its own access to a single
// plan's tasks.
func (s *Store) GetPlanMut(id string) (*Plan, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[id]
	return p, ok
}

// RemovePlan deletes a plan by id.
func (s *Store) RemovePlan(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.plans, id)
}

const (
	thinkOpenTag  = "<think>"
	thinkCloseTag = "</think>"
)

// AppendStreamFragment feeds a streamed content fragment into the
// accumulator, recognizing <think>…</think> spans and routing their
// content into the think buffer instead of the returned visible fragment.
// It returns the portion of fragment that should be surfaced as assistant
// output.
func (s *Store) AppendStreamFragment(fragment string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var visible strings.Builder
	remaining := fragment
	for len(remaining) > 0 {
		if s.inThink {
			if idx := strings.Index(remaining, thinkCloseTag); idx >= 0 {
				s.thinkBuffer.WriteString(remaining[:idx])
				remaining = remaining[idx+len(thinkCloseTag):]
				s.inThink = false
				continue
			}
			s.thinkBuffer.WriteString(remaining)
			break
		}
		if idx := strings.Index(remaining, thinkOpenTag); idx >= 0 {
			visible.WriteString(remaining[:idx])
			remaining = remaining[idx+len(thinkOpenTag):]
			s.inThink = true
			continue
		}
		visible.WriteString(remaining)
		break
	}
	return visible.String()
}

// ThinkContent returns everything accumulated inside <think> spans so far.
func (s *Store) ThinkContent() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.thinkBuffer.String()
}

// ResetStream clears the think accumulator state between turns.
func (s *Store) ResetStream() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.thinkBuffer.Reset()
	s.inThink = false
}
