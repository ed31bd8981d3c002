// Package checkpoint provides implementations of the workflow checkpoint
// substrate: state persistence between execution steps, keyed by
// execution ID.
package checkpoint

import (
	"context"
	"fmt"
	"sync"

	"github.com/curatedhealth/vitalflow/internal/workflow"
)

var _ workflow.CheckpointStore = (*Memory)(nil)

// Memory is an in-process checkpoint store for tests and ephemeral runs.
// It is safe for concurrent use.
type Memory struct {
	mu     sync.RWMutex
	states map[string]*workflow.ExecutionState
}

// NewMemory creates an empty in-memory checkpoint store.
func NewMemory() *Memory {
	return &Memory{
		states: make(map[string]*workflow.ExecutionState),
	}
}

// Save stores a snapshot of the state under the execution ID,
// overwriting any previous checkpoint for that execution.
func (m *Memory) Save(_ context.Context, executionID string, state *workflow.ExecutionState) error {
	if executionID == "" {
		return fmt.Errorf("execution id cannot be empty")
	}
	if state == nil {
		return fmt.Errorf("state cannot be nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[executionID] = state.Clone()
	return nil
}

// Load returns a copy of the latest checkpoint for an execution.
func (m *Memory) Load(_ context.Context, executionID string) (*workflow.ExecutionState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.states[executionID]
	if !ok {
		return nil, fmt.Errorf("no checkpoint for execution %q", executionID)
	}
	return state.Clone(), nil
}

// List returns the execution IDs checkpointed for a workflow.
func (m *Memory) List(_ context.Context, workflowID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ids []string
	for id, state := range m.states {
		if state.WorkflowID == workflowID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Delete removes an execution's checkpoint. Deleting an unknown
// execution is not an error.
func (m *Memory) Delete(_ context.Context, executionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, executionID)
	return nil
}
