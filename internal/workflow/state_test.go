package workflow

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExecutionState(t *testing.T) {
	state := NewExecutionState("wf-1", "tenant-1", "user-1", map[string]any{"q": "hello"})

	assert.NotEmpty(t, state.ExecutionID)
	assert.Equal(t, "wf-1", state.WorkflowID)
	assert.Equal(t, "tenant-1", state.TenantID)
	assert.Equal(t, "user-1", state.UserID)
	assert.False(t, state.StartedAt.IsZero())
	assert.Nil(t, state.CompletedAt)
	assert.Empty(t, state.ExecutionPath)
	assert.Equal(t, "hello", state.Input["q"])
	assert.NotNil(t, state.Context)
	assert.NotNil(t, state.Messages)
}

func TestExecutionState_BeginNode(t *testing.T) {
	state := NewExecutionState("wf-1", "t", "u", nil)

	state.BeginNode("n1")
	state.BeginNode("n2")

	assert.Equal(t, []string{"n1", "n2"}, state.ExecutionPath)
	assert.Equal(t, "n2", state.CurrentNodeID)
}

func TestExecutionState_Merge_AppendsLists(t *testing.T) {
	state := NewExecutionState("wf-1", "t", "u", nil)
	state.BeginNode("n1")
	state.AppendMessage(map[string]any{"role": "system", "text": "one"})

	update := &ExecutionState{
		ExecutionPath: []string{"n2"},
		Messages:      []map[string]any{{"role": "assistant", "text": "two"}},
	}
	state.Merge(update)

	// List-valued fields concatenate, never overwrite.
	assert.Equal(t, []string{"n1", "n2"}, state.ExecutionPath)
	require.Len(t, state.Messages, 2)
	assert.Equal(t, "one", state.Messages[0]["text"])
	assert.Equal(t, "two", state.Messages[1]["text"])
}

func TestExecutionState_Merge_MapsAndScalars(t *testing.T) {
	state := NewExecutionState("wf-1", "t", "u", nil)
	state.Context["kept"] = "original"
	state.Context["replaced"] = "original"

	update := &ExecutionState{
		CurrentNodeID: "n5",
		Context:       map[string]any{"replaced": "updated", "added": "new"},
		Output:        map[string]any{"answer": 42},
		Error:         "boom",
		TotalTokens:   30,
	}
	state.Merge(update)

	assert.Equal(t, "original", state.Context["kept"])
	assert.Equal(t, "updated", state.Context["replaced"])
	assert.Equal(t, "new", state.Context["added"])
	assert.Equal(t, 42, state.Output["answer"])
	assert.Equal(t, "n5", state.CurrentNodeID)
	assert.Equal(t, "boom", state.Error)
	assert.Equal(t, 30, state.TotalTokens)

	// Token counts accumulate across merges.
	state.Merge(&ExecutionState{TotalTokens: 12})
	assert.Equal(t, 42, state.TotalTokens)
}

func TestExecutionState_Merge_SelfAndNilAreNoOps(t *testing.T) {
	state := NewExecutionState("wf-1", "t", "u", nil)
	state.BeginNode("n1")

	state.Merge(nil)
	state.Merge(state)

	assert.Equal(t, []string{"n1"}, state.ExecutionPath)
}

func TestExecutionState_Clone_IsIndependent(t *testing.T) {
	state := NewExecutionState("wf-1", "t", "u", map[string]any{"q": "x"})
	state.BeginNode("n1")
	state.AppendMessage(map[string]any{"text": "hello"})
	state.Context["k"] = "v"

	clone := state.Clone()
	require.Equal(t, state.ExecutionPath, clone.ExecutionPath)
	require.Equal(t, state.ExecutionID, clone.ExecutionID)

	// Mutating the original must not leak into the clone.
	state.BeginNode("n2")
	state.AppendMessage(map[string]any{"text": "later"})
	state.Context["k"] = "changed"
	state.Messages[0]["text"] = "rewritten"

	assert.Equal(t, []string{"n1"}, clone.ExecutionPath)
	assert.Len(t, clone.Messages, 1)
	assert.Equal(t, "hello", clone.Messages[0]["text"])
	assert.Equal(t, "v", clone.Context["k"])
}

func TestExecutionState_ConcurrentAppends(t *testing.T) {
	state := NewExecutionState("wf-1", "t", "u", nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			state.BeginNode("n")
		}()
		go func() {
			defer wg.Done()
			state.AppendMessage(map[string]any{"i": 1})
		}()
	}
	wg.Wait()

	// Concurrent partial updates concatenate rather than clobber.
	assert.Len(t, state.ExecutionPath, 20)
	assert.Len(t, state.Messages, 20)
}
