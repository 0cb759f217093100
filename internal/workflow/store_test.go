package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activeState(docID string) *State {
	now := time.Now()
	return &State{
		WorkflowID:   "test-approval",
		DocumentID:   docID,
		CurrentStage: "draft",
		Status:       StatusActive,
		StartedAt:    now,
		UpdatedAt:    now,
		Data:         map[string]any{},
	}
}

func TestMemoryStateStoreVersionCheck(t *testing.T) {
	store := NewMemoryStateStore()
	ctx := context.Background()

	state := activeState("doc-1")
	require.NoError(t, store.CreateState(ctx, state))
	assert.Equal(t, int64(1), state.Version)

	assert.ErrorIs(t, store.CreateState(ctx, activeState("doc-1")), ErrDuplicate)

	// Two readers pick up version 1; only the first write lands.
	first, err := store.GetState(ctx, "doc-1")
	require.NoError(t, err)
	second, err := store.GetState(ctx, "doc-1")
	require.NoError(t, err)

	first.CurrentStage = "review"
	require.NoError(t, store.UpdateState(ctx, first))
	assert.Equal(t, int64(2), first.Version)

	second.CurrentStage = "approved"
	assert.ErrorIs(t, store.UpdateState(ctx, second), ErrConflict)

	stored, err := store.GetState(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "review", stored.CurrentStage)
	assert.Equal(t, int64(2), stored.Version)
}

func TestMemoryStateStoreGetReturnsCopy(t *testing.T) {
	store := NewMemoryStateStore()
	ctx := context.Background()
	require.NoError(t, store.CreateState(ctx, activeState("doc-1")))

	got, err := store.GetState(ctx, "doc-1")
	require.NoError(t, err)
	got.CurrentStage = "mutated"
	got.Data["rogue"] = true

	stored, err := store.GetState(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "draft", stored.CurrentStage)
	assert.NotContains(t, stored.Data, "rogue")
}

func TestMemoryStateStoreMissingState(t *testing.T) {
	store := NewMemoryStateStore()
	ctx := context.Background()

	got, err := store.GetState(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.ErrorIs(t, store.UpdateState(ctx, activeState("nope")), ErrNotFound)
	assert.ErrorIs(t, store.DeleteState(ctx, "nope"), ErrNotFound)
}

func TestMemoryStateStoreListing(t *testing.T) {
	store := NewMemoryStateStore()
	ctx := context.Background()

	a := activeState("doc-a")
	require.NoError(t, store.CreateState(ctx, a))

	b := activeState("doc-b")
	b.CurrentStage = "review"
	require.NoError(t, store.CreateState(ctx, b))

	c := activeState("doc-c")
	c.WorkflowID = "other"
	c.Status = StatusSuspended
	require.NoError(t, store.CreateState(ctx, c))

	byWorkflow, err := store.ListByWorkflow(ctx, "test-approval")
	require.NoError(t, err)
	assert.Len(t, byWorkflow, 2)

	byStatus, err := store.ListByStatus(ctx, StatusSuspended)
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, "doc-c", byStatus[0].DocumentID)

	byStage, err := store.ListByStage(ctx, "test-approval", "review")
	require.NoError(t, err)
	require.Len(t, byStage, 1)
	assert.Equal(t, "doc-b", byStage[0].DocumentID)
}

func TestMemoryStateStoreCleanupStale(t *testing.T) {
	store := NewMemoryStateStore()
	ctx := context.Background()

	done := activeState("doc-done")
	require.NoError(t, store.CreateState(ctx, done))
	done, _ = store.GetState(ctx, "doc-done")
	now := time.Now()
	completed := now.Add(-48 * time.Hour)
	done.Status = StatusCompleted
	done.CompletedAt = &completed
	done.UpdatedAt = completed
	require.NoError(t, store.UpdateState(ctx, done))

	live := activeState("doc-live")
	require.NoError(t, store.CreateState(ctx, live))

	removed, err := store.CleanupStale(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	gone, err := store.GetState(ctx, "doc-done")
	require.NoError(t, err)
	assert.Nil(t, gone)

	kept, err := store.GetState(ctx, "doc-live")
	require.NoError(t, err)
	assert.NotNil(t, kept)
}

func TestMemoryStateStoreStatistics(t *testing.T) {
	store := NewMemoryStateStore()
	ctx := context.Background()

	a := activeState("doc-a")
	require.NoError(t, store.CreateState(ctx, a))

	b := activeState("doc-b")
	require.NoError(t, store.CreateState(ctx, b))
	b, _ = store.GetState(ctx, "doc-b")
	b.Status = StatusCompleted
	b.CurrentStage = "approved"
	completedAt := b.StartedAt.Add(2 * time.Hour)
	b.CompletedAt = &completedAt
	require.NoError(t, store.UpdateState(ctx, b))

	stats, err := store.Statistics(ctx, "test-approval")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.ByStatus[StatusActive])
	assert.Equal(t, 1, stats.ByStatus[StatusCompleted])
	assert.Equal(t, 1, stats.ByStage["draft"])
	assert.Equal(t, 1, stats.ByStage["approved"])
	assert.InDelta(t, float64(2*time.Hour), float64(stats.AverageCompletionTime), float64(time.Minute))
}
