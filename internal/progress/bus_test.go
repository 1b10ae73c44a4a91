package progress

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitDoesNotBlockWhenFull(t *testing.T) {
	bus := NewBus(1)
	ctx := context.Background()

	bus.Status(ctx, "first")
	// Channel is now full (capacity 1); this must not block.
	done := make(chan struct{})
	go func() {
		bus.Status(ctx, "dropped")
		close(done)
	}()
	select {
	case <-done:
	default:
	}
	<-done

	event := <-bus.Events()
	assert.Equal(t, "first", event.Text)
}

func TestTaskProgressFieldsRoundTrip(t *testing.T) {
	bus := NewBus(4)
	ctx := context.Background()

	bus.TaskProgress(ctx, 1, 3, "list the repository", "started")

	event := <-bus.Events()
	require.Equal(t, KindTaskProgress, event.Kind)
	assert.Equal(t, 1, event.TaskIndex)
	assert.Equal(t, 3, event.TaskTotal)
	assert.Equal(t, "started", event.TaskStatus)
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "executing_tool", StageExecutingTool.String())
}
