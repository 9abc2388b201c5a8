package state

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deployworks/deployctl/pkg/state/backend/local"
)

func newTestStore(t *testing.T) *SwitchStore {
	t.Helper()
	b, err := local.NewBackend(map[string]string{"path": t.TempDir()})
	require.NoError(t, err)
	return NewSwitchStore(b)
}

func TestSelections_EmptyWhenMissing(t *testing.T) {
	store := newTestStore(t)

	collection, err := store.Selections(context.Background())
	require.NoError(t, err)
	assert.Empty(t, collection)
}

func TestSetAndGetSelection(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetSelection(ctx, "ws1", "target1", "opt-a"))

	optionID, ok, err := store.Selection(ctx, "ws1", "target1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "opt-a", optionID)
}

func TestSelection_MissingEntries(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetSelection(ctx, "ws1", "target1", "opt-a"))

	_, ok, err := store.Selection(ctx, "ws1", "other-target")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = store.Selection(ctx, "other-ws", "target1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetSelection_OverwritesPrevious(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetSelection(ctx, "ws1", "target1", "opt-a"))
	require.NoError(t, store.SetSelection(ctx, "ws1", "target1", "opt-b"))

	optionID, ok, err := store.Selection(ctx, "ws1", "target1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "opt-b", optionID)
}

func TestSelections_IsolatedPerWorkspace(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetSelection(ctx, "ws1", "t", "a"))
	require.NoError(t, store.SetSelection(ctx, "ws2", "t", "b"))

	collection, err := store.Selections(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", collection["ws1"]["t"])
	assert.Equal(t, "b", collection["ws2"]["t"])
}
