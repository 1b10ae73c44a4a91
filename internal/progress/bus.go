// Package progress implements the uniform event envelope (spec §4.11)
// delivered to the UI collaborator: a single bounded, typed channel that
// producers never block on. Progress is advisory, not source-of-truth, so
// a full channel drops the event rather than stalling the caller.
package progress

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// Stage enumerates the Progress event's stage field.
type Stage int

const (
	StageClassifying Stage = iota
	StageSearchingContext
	StageExecutingTool
	StageGenerating
	StageComplete
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageClassifying:
		return "classifying"
	case StageSearchingContext:
		return "searching_context"
	case StageExecutingTool:
		return "executing_tool"
	case StageGenerating:
		return "generating"
	case StageComplete:
		return "complete"
	case StageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Kind is the closed set of event envelope variants.
type Kind int

const (
	KindStatus Kind = iota
	KindProgress
	KindChunk
	KindStreamEnd
	KindTaskProgress
	KindResponse
	KindError
	KindRaptorStatus
	KindRaptorProgress
	KindRaptorComplete
)

// Event is the uniform envelope delivered on the bus. Fields are populated
// according to Kind; zero-valued fields for irrelevant kinds are expected.
type Event struct {
	Kind Kind

	// Status / Error / Response
	Text string

	// Progress
	Stage     Stage
	Message   string
	ElapsedMS int64

	// SearchingContext / ExecutingTool
	ChunkCount int
	ToolName   string

	// Chunk
	ChunkText string

	// TaskProgress
	TaskIndex       int
	TaskTotal       int
	TaskDescription string
	TaskStatus      string

	// RaptorProgress
	RaptorStage   string
	RaptorCurrent int
	RaptorTotal   int
	RaptorDetail  string

	// SpanContext, if set, lets a consumer correlate this event with the
	// span active when it was produced.
	SpanContext trace.SpanContext
}

// Bus is a bounded, non-blocking event channel.
type Bus struct {
	events chan Event
}

// DefaultCapacity is the channel buffer size used when none is configured.
const DefaultCapacity = 256

// NewBus creates a Bus with the given buffer capacity. A capacity ≤ 0 uses
// DefaultCapacity.
func NewBus(capacity int) *Bus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Bus{events: make(chan Event, capacity)}
}

// Events returns the receive side of the bus for the UI collaborator to
// range over.
func (b *Bus) Events() <-chan Event {
	return b.events
}

// Emit attempts to send event without blocking. If the channel is full the
// event is dropped silently, per spec: progress is advisory.
func (b *Bus) Emit(ctx context.Context, event Event) {
	if span := trace.SpanContextFromContext(ctx); span.IsValid() {
		event.SpanContext = span
	}
	select {
	case b.events <- event:
	default:
	}
}

// Close closes the bus. Callers must not Emit after calling Close.
func (b *Bus) Close() {
	close(b.events)
}

// Status emits a Status(text) event.
func (b *Bus) Status(ctx context.Context, text string) {
	b.Emit(ctx, Event{Kind: KindStatus, Text: text})
}

// Progress emits a Progress{stage, message, elapsed_ms} event.
func (b *Bus) Progress(ctx context.Context, stage Stage, message string, elapsedMS int64) {
	b.Emit(ctx, Event{Kind: KindProgress, Stage: stage, Message: message, ElapsedMS: elapsedMS})
}

// Chunk emits a streamed content fragment.
func (b *Bus) Chunk(ctx context.Context, text string) {
	b.Emit(ctx, Event{Kind: KindChunk, ChunkText: text})
}

// StreamEnd marks the end of a streamed response.
func (b *Bus) StreamEnd(ctx context.Context) {
	b.Emit(ctx, Event{Kind: KindStreamEnd})
}

// TaskProgress emits a planner task state transition.
func (b *Bus) TaskProgress(ctx context.Context, index, total int, description, status string) {
	b.Emit(ctx, Event{
		Kind: KindTaskProgress, TaskIndex: index, TaskTotal: total,
		TaskDescription: description, TaskStatus: status,
	})
}

// Response emits the final user-visible result.
func (b *Bus) Response(ctx context.Context, text string) {
	b.Emit(ctx, Event{Kind: KindResponse, Text: text})
}

// Error emits an error event.
func (b *Bus) Error(ctx context.Context, text string) {
	b.Emit(ctx, Event{Kind: KindError, Text: text})
}

// RaptorStatus emits a status-only RAPTOR lifecycle event.
func (b *Bus) RaptorStatus(ctx context.Context, text string) {
	b.Emit(ctx, Event{Kind: KindRaptorStatus, Text: text})
}

// RaptorProgress emits a RAPTOR build-progress event.
func (b *Bus) RaptorProgress(ctx context.Context, stage string, current, total int, detail string) {
	b.Emit(ctx, Event{
		Kind: KindRaptorProgress, RaptorStage: stage,
		RaptorCurrent: current, RaptorTotal: total, RaptorDetail: detail,
	})
}

// RaptorComplete marks RAPTOR indexing as finished.
func (b *Bus) RaptorComplete(ctx context.Context) {
	b.Emit(ctx, Event{Kind: KindRaptorComplete})
}
