package agentstate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddMessageEvictsEarliestNonSystem(t *testing.T) {
	store := New(2)
	ctx := context.Background()

	store.AddMessage(ctx, Message{Role: "system", Content: "sys"})
	store.AddMessage(ctx, Message{Role: "user", Content: "first"})
	store.AddMessage(ctx, Message{Role: "user", Content: "second"})

	messages := store.GetContextMessages(0)
	require.Len(t, messages, 1)
	assert.Equal(t, "second", messages[0].Content)
}

func TestAddMessageStopsEvictingWhenOnlySystemRemains(t *testing.T) {
	store := New(1)
	ctx := context.Background()

	store.AddMessage(ctx, Message{Role: "system", Content: "sys-1"})
	store.AddMessage(ctx, Message{Role: "system", Content: "sys-2"})

	assert.Empty(t, store.GetContextMessages(0))
}

func TestClearHistoryRetainsSystem(t *testing.T) {
	store := New(10)
	ctx := context.Background()
	store.AddMessage(ctx, Message{Role: "system", Content: "sys"})
	store.AddMessage(ctx, Message{Role: "user", Content: "hi"})

	store.ClearHistory()

	assert.Empty(t, store.GetContextMessages(0))
}

func TestCancelTaskIsIdempotent(t *testing.T) {
	store := New(10)
	store.AddPendingTask("task-1")
	store.CancelTask("task-1")
	store.CancelTask("task-1") // second cancel must not panic or error

	store.CleanupTasks()
	assert.Empty(t, store.PendingTaskIDs())
}

func TestAppendStreamFragmentSeparatesThinkSpan(t *testing.T) {
	store := New(10)

	visible := store.AppendStreamFragment("before <think>reasoning here</think> after")
	assert.Equal(t, "before  after", visible)
	assert.Equal(t, "reasoning here", store.ThinkContent())
}

func TestAppendStreamFragmentAcrossChunkBoundary(t *testing.T) {
	store := New(10)

	v1 := store.AppendStreamFragment("visible <think>partial")
	v2 := store.AppendStreamFragment(" reasoning</think> tail")

	assert.Equal(t, "visible ", v1)
	assert.Equal(t, " tail", v2)
	assert.Equal(t, "partial reasoning", store.ThinkContent())
}

func TestStorePlanAndGetPlan(t *testing.T) {
	store := New(10)
	store.StorePlan(&Plan{ID: "p1", Goal: "analyze repo"})

	plan, ok := store.GetPlan("p1")
	require.True(t, ok)
	assert.Equal(t, "analyze repo", plan.Goal)

	store.RemovePlan("p1")
	_, ok = store.GetPlan("p1")
	assert.False(t, ok)
}
