package checkpoint

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestSQLite(t *testing.T) *SQLite {
	t.Helper()

	store, err := OpenSQLite(filepath.Join(t.TempDir(), "checkpoints.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})
	return store
}

func TestSQLite_SaveAndLoad(t *testing.T) {
	store := openTestSQLite(t)
	ctx := context.Background()
	state := sampleState("wf-1")
	state.Context["citations"] = []any{"doc-1"}
	state.TotalTokens = 128

	require.NoError(t, store.Save(ctx, state.ExecutionID, state))

	loaded, err := store.Load(ctx, state.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, state.ExecutionID, loaded.ExecutionID)
	assert.Equal(t, state.WorkflowID, loaded.WorkflowID)
	assert.Equal(t, state.TenantID, loaded.TenantID)
	assert.Equal(t, []string{"n1"}, loaded.ExecutionPath)
	assert.Equal(t, 128, loaded.TotalTokens)
	assert.Equal(t, map[string]any{"q": "hello"}, loaded.Input)
}

func TestSQLite_SaveValidation(t *testing.T) {
	store := openTestSQLite(t)
	ctx := context.Background()

	assert.Error(t, store.Save(ctx, "", sampleState("wf-1")))
	assert.Error(t, store.Save(ctx, "exec-1", nil))
}

func TestSQLite_SaveUpserts(t *testing.T) {
	store := openTestSQLite(t)
	ctx := context.Background()
	state := sampleState("wf-1")

	require.NoError(t, store.Save(ctx, state.ExecutionID, state))
	state.BeginNode("n2")
	require.NoError(t, store.Save(ctx, state.ExecutionID, state))

	loaded, err := store.Load(ctx, state.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, []string{"n1", "n2"}, loaded.ExecutionPath)

	ids, err := store.List(ctx, "wf-1")
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestSQLite_LoadUnknown(t *testing.T) {
	store := openTestSQLite(t)

	_, err := store.Load(context.Background(), "missing")
	assert.Error(t, err)
}

func TestSQLite_List(t *testing.T) {
	store := openTestSQLite(t)
	ctx := context.Background()

	first := sampleState("wf-1")
	second := sampleState("wf-1")
	other := sampleState("wf-2")
	require.NoError(t, store.Save(ctx, first.ExecutionID, first))
	require.NoError(t, store.Save(ctx, second.ExecutionID, second))
	require.NoError(t, store.Save(ctx, other.ExecutionID, other))

	ids, err := store.List(ctx, "wf-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{first.ExecutionID, second.ExecutionID}, ids)

	ids, err = store.List(ctx, "wf-3")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestSQLite_Delete(t *testing.T) {
	store := openTestSQLite(t)
	ctx := context.Background()
	state := sampleState("wf-1")

	require.NoError(t, store.Save(ctx, state.ExecutionID, state))
	require.NoError(t, store.Delete(ctx, state.ExecutionID))

	_, err := store.Load(ctx, state.ExecutionID)
	assert.Error(t, err)

	assert.NoError(t, store.Delete(ctx, "missing"))
}

func TestSQLite_ReopenPersists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "checkpoints.db")
	ctx := context.Background()
	state := sampleState("wf-1")

	store, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, state.ExecutionID, state))
	require.NoError(t, store.Close())

	reopened, err := OpenSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()

	loaded, err := reopened.Load(ctx, state.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, []string{"n1"}, loaded.ExecutionPath)
}
