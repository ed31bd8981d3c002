package workflow

import (
	"sync"
	"time"

	"github.com/curatedhealth/vitalflow/internal/types"
)

// ExecutionState is the single mutable record threaded through a compiled
// graph at run time. It is created once per execution and mutated in
// place by each node handler invocation.
//
// ExecutionPath and Messages use append-only merge semantics: if the
// execution substrate ever runs adjacent steps concurrently, partial
// updates to these fields concatenate rather than overwrite. That is the
// one concurrency-relevant invariant on the data model itself.
type ExecutionState struct {
	ExecutionID     string           `json:"execution_id"`
	WorkflowID      string           `json:"workflow_id"`
	TenantID        string           `json:"tenant_id"`
	UserID          string           `json:"user_id"`
	StartedAt       time.Time        `json:"started_at"`
	CompletedAt     *time.Time       `json:"completed_at,omitempty"`
	CurrentNodeID   string           `json:"current_node_id"`
	ExecutionPath   []string         `json:"execution_path"`
	Input           map[string]any   `json:"input"`
	Output          map[string]any   `json:"output,omitempty"`
	Messages        []map[string]any `json:"messages"`
	Context         map[string]any   `json:"context"`
	Error           string           `json:"error,omitempty"`
	ConditionResult bool             `json:"condition_result"`
	TotalTokens     int              `json:"total_tokens"`

	mu sync.Mutex
}

// NewExecutionState creates the state record for one execution, with a
// fresh execution ID.
func NewExecutionState(workflowID, tenantID, userID string, input map[string]any) *ExecutionState {
	if input == nil {
		input = map[string]any{}
	}
	return &ExecutionState{
		ExecutionID:   types.NewID().String(),
		WorkflowID:    workflowID,
		TenantID:      tenantID,
		UserID:        userID,
		StartedAt:     time.Now().UTC(),
		ExecutionPath: []string{},
		Input:         input,
		Messages:      []map[string]any{},
		Context:       map[string]any{},
	}
}

// BeginNode records that a node is about to execute: it appends the node
// ID to the execution path and marks it current. Recording happens
// strictly before the corresponding handler runs.
func (s *ExecutionState) BeginNode(nodeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ExecutionPath = append(s.ExecutionPath, nodeID)
	s.CurrentNodeID = nodeID
}

// AppendMessage appends one opaque message record.
func (s *ExecutionState) AppendMessage(msg map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Messages = append(s.Messages, msg)
}

// SetError records a node failure into the state without aborting the
// execution.
func (s *ExecutionState) SetError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Error = msg
}

// Complete marks the execution finished.
func (s *ExecutionState) Complete() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	s.CompletedAt = &now
}

// Merge folds a partial state update into the receiver. List-valued
// fields (ExecutionPath, Messages) are concatenated; map-valued fields
// are merged key-wise with the update winning; scalar fields take the
// update's value when it is non-zero. ConditionResult always takes the
// update's value, so a condition-computing handler can set it to false.
func (s *ExecutionState) Merge(update *ExecutionState) {
	if update == nil || update == s {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.ExecutionPath = append(s.ExecutionPath, update.ExecutionPath...)
	s.Messages = append(s.Messages, update.Messages...)

	s.Context = mergeMap(s.Context, update.Context)
	if update.Output != nil {
		s.Output = mergeMap(s.Output, update.Output)
	}

	if update.CurrentNodeID != "" {
		s.CurrentNodeID = update.CurrentNodeID
	}
	if update.Error != "" {
		s.Error = update.Error
	}
	if update.CompletedAt != nil {
		s.CompletedAt = update.CompletedAt
	}
	s.ConditionResult = update.ConditionResult
	s.TotalTokens += update.TotalTokens
}

// Clone returns a deep copy of the state, safe to serialize or hand to a
// checkpoint store while the original keeps mutating.
func (s *ExecutionState) Clone() *ExecutionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := &ExecutionState{
		ExecutionID:     s.ExecutionID,
		WorkflowID:      s.WorkflowID,
		TenantID:        s.TenantID,
		UserID:          s.UserID,
		StartedAt:       s.StartedAt,
		CurrentNodeID:   s.CurrentNodeID,
		ExecutionPath:   append([]string{}, s.ExecutionPath...),
		Input:           copyMap(s.Input),
		Context:         copyMap(s.Context),
		Error:           s.Error,
		ConditionResult: s.ConditionResult,
		TotalTokens:     s.TotalTokens,
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		clone.CompletedAt = &t
	}
	if s.Output != nil {
		clone.Output = copyMap(s.Output)
	}
	clone.Messages = make([]map[string]any, 0, len(s.Messages))
	for _, m := range s.Messages {
		clone.Messages = append(clone.Messages, copyMap(m))
	}
	return clone
}

// mergeMap merges src into dst key-wise, allocating dst if needed.
func mergeMap(dst, src map[string]any) map[string]any {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// copyMap returns a shallow copy of m.
func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
