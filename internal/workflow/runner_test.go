package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-test checkpoint store keeping the latest snapshot
// per execution.
type memStore struct {
	mu     sync.Mutex
	states map[string]*ExecutionState
	saves  int
}

func newMemStore() *memStore {
	return &memStore{states: make(map[string]*ExecutionState)}
}

func (s *memStore) Save(_ context.Context, executionID string, state *ExecutionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[executionID] = state
	s.saves++
	return nil
}

func (s *memStore) Load(_ context.Context, executionID string) (*ExecutionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[executionID]
	if !ok {
		return nil, fmt.Errorf("no checkpoint for %q", executionID)
	}
	return state, nil
}

func (s *memStore) List(_ context.Context, workflowID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, state := range s.states {
		if state.WorkflowID == workflowID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *memStore) Delete(_ context.Context, executionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, executionID)
	return nil
}

func compileForRun(t *testing.T, reg *Registry, w *Workflow, opts ...CompilerOption) *CompiledGraph {
	t.Helper()

	result, err := NewCompiler(reg, opts...).Compile(w, false)
	require.NoError(t, err)
	require.NotNil(t, result.Graph)
	return result.Graph
}

func TestRunner_RunLinearWorkflow(t *testing.T) {
	graph := compileForRun(t, testRegistry(t), linearWorkflow())
	state := NewExecutionState("wf-1", "tenant-1", "user-1", map[string]any{"q": "hello"})

	out, err := NewRunner().Run(context.Background(), graph, state)

	require.NoError(t, err)
	assert.Same(t, state, out)
	assert.Equal(t, []string{"n1", "n2", "n3"}, out.ExecutionPath)
	assert.Equal(t, "n3", out.CurrentNodeID)
	require.NotNil(t, out.CompletedAt)
	assert.Empty(t, out.Error)
}

func TestRunner_RouterStopsAtTerminalMarker(t *testing.T) {
	graph := compileForRun(t, routerRegistry(t), routerWorkflow())
	state := NewExecutionState("wf-router", "tenant-1", "user-1", nil)

	out, err := NewRunner().Run(context.Background(), graph, state)

	require.NoError(t, err)
	// The router's targets resolve to the terminal marker, so the run
	// stops after the router itself.
	assert.Equal(t, []string{"n1", "n2"}, out.ExecutionPath)
	require.NotNil(t, out.CompletedAt)
}

func TestRunner_HandlerFailureDoesNotAbortRun(t *testing.T) {
	reg := testRegistry(t, "start", "end", "task")
	reg.RegisterHandler("broken", func(context.Context, *ExecutionState, map[string]any) (*ExecutionState, error) {
		return nil, errors.New("upstream timeout")
	}, nil)

	w := linearWorkflow()
	w.Nodes[1].Type = "broken"

	graph := compileForRun(t, reg, w)
	state := NewExecutionState("wf-1", "tenant-1", "user-1", nil)

	out, err := NewRunner().Run(context.Background(), graph, state)

	require.NoError(t, err)
	assert.Equal(t, "upstream timeout", out.Error)
	// The failing node stays on the path and the run continues past it.
	assert.Equal(t, []string{"n1", "n2", "n3"}, out.ExecutionPath)
	require.NotNil(t, out.CompletedAt)
}

func TestRunner_CheckpointsAfterEveryStep(t *testing.T) {
	store := newMemStore()
	graph := compileForRun(t, testRegistry(t), linearWorkflow(), WithCheckpointStore(store))
	state := NewExecutionState("wf-1", "tenant-1", "user-1", nil)

	_, err := NewRunner().Run(context.Background(), graph, state)

	require.NoError(t, err)
	assert.Equal(t, 3, store.saves)

	saved, err := store.Load(context.Background(), state.ExecutionID)
	require.NoError(t, err)
	// Snapshots are clones, not aliases of the live state.
	assert.NotSame(t, state, saved)
	assert.Equal(t, state.ExecutionPath, saved.ExecutionPath)
}

func TestRunner_Resume(t *testing.T) {
	store := newMemStore()
	graph := compileForRun(t, testRegistry(t), linearWorkflow(), WithCheckpointStore(store))

	// Snapshot of an execution interrupted right after n2 ran.
	checkpoint := NewExecutionState("wf-1", "tenant-1", "user-1", nil)
	checkpoint.BeginNode("n1")
	checkpoint.BeginNode("n2")
	require.NoError(t, store.Save(context.Background(), checkpoint.ExecutionID, checkpoint))

	out, err := NewRunner().Resume(context.Background(), graph, checkpoint.ExecutionID)

	require.NoError(t, err)
	// n2 already ran; the run picks up at its route and does not repeat it.
	assert.Equal(t, []string{"n1", "n2", "n3"}, out.ExecutionPath)
	require.NotNil(t, out.CompletedAt)
}

func TestRunner_ResumeWithoutStore(t *testing.T) {
	graph := compileForRun(t, testRegistry(t), linearWorkflow())

	_, err := NewRunner().Resume(context.Background(), graph, "exec-1")

	var execErr *ExecutionError
	require.True(t, errors.As(err, &execErr))
}

func TestRunner_ResumeUnknownExecution(t *testing.T) {
	store := newMemStore()
	graph := compileForRun(t, testRegistry(t), linearWorkflow(), WithCheckpointStore(store))

	_, err := NewRunner().Resume(context.Background(), graph, "never-saved")

	var execErr *ExecutionError
	require.True(t, errors.As(err, &execErr))
}

func TestRunner_StepBudget(t *testing.T) {
	w := linearWorkflow()
	// n1 -> n2 -> n1 loops forever.
	w.Edges = []Edge{
		{ID: "e1", Source: "n1", Target: "n2"},
		{ID: "e2", Source: "n2", Target: "n1"},
	}

	graph := compileForRun(t, testRegistry(t), w)
	state := NewExecutionState("wf-1", "tenant-1", "user-1", nil)

	_, err := NewRunner(WithMaxSteps(5)).Run(context.Background(), graph, state)

	var execErr *ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Len(t, state.ExecutionPath, 5)
	assert.Nil(t, state.CompletedAt)
}

func TestRunner_ContextCancellation(t *testing.T) {
	graph := compileForRun(t, testRegistry(t), linearWorkflow())
	state := NewExecutionState("wf-1", "tenant-1", "user-1", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRunner().Run(ctx, graph, state)

	var execErr *ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, state.ExecutionPath)
}

func TestRunner_RouteToUnknownNode(t *testing.T) {
	w := linearWorkflow()
	graph := compileForRun(t, testRegistry(t), w)
	// Simulate a stale route by removing the target handler.
	delete(graph.nodes, "n3")

	state := NewExecutionState("wf-1", "tenant-1", "user-1", nil)
	_, err := NewRunner().Run(context.Background(), graph, state)

	var execErr *ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, "n3", execErr.NodeID)
}
