package orchestrator

import (
	"context"
	"fmt"
	"time"

	"neuro/internal/llmprovider"

	"github.com/google/uuid"
)

// DelegateHeavyTask mints a task id, registers its cancellation token,
// and spawns a background worker that runs a timeout-bounded heavy-model
// call under the task's cancellable context, sending a HeavyTaskResult on
// the result channel. Returns RespDelegated immediately (spec §4.8).
func (o *Orchestrator) DelegateHeavyTask(ctx context.Context, description, prompt string, estimatedSecs int) Response {
	taskID := uuid.NewString()

	taskCtx, cancel := context.WithCancel(o.globalCtx)
	o.mu.Lock()
	o.tokens[taskID] = cancel
	o.mu.Unlock()

	go o.runHeavyTask(taskCtx, taskID, prompt)

	return Delegated(taskID, description, estimatedSecs)
}

func (o *Orchestrator) runHeavyTask(ctx context.Context, taskID, prompt string) {
	start := time.Now()
	if err := o.sem.Acquire(ctx, 1); err != nil {
		o.sendResult(HeavyTaskResult{TaskID: taskID, Success: false, Content: "Task cancelled by user", Model: o.heavy.Model()})
		o.removeToken(taskID)
		o.observeHeavyTask(false, start)
		return
	}
	defer o.sem.Release(1)

	timeoutCtx, cancelTimeout := context.WithTimeout(ctx, o.config.HeavyTimeout)
	defer cancelTimeout()

	type completion struct {
		content string
		err     error
	}
	done := make(chan completion, 1)

	go func() {
		resp, err := o.heavy.Complete(timeoutCtx, llmprovider.Request{
			Messages:  []llmprovider.Message{{Role: "user", Content: prompt}},
			MaxTokens: 4096,
		})
		if err != nil {
			done <- completion{err: err}
			return
		}
		done <- completion{content: resp.Content}
	}()

	var result HeavyTaskResult
	result.TaskID = taskID
	result.Model = o.heavy.Model()

	// The underlying provider call is itself context-bound (it issues the
	// HTTP request with timeoutCtx), so waiting on done alone is enough to
	// observe both cancellation and the timeout deadline — no separate
	// select arm is needed and none would resolve the race deterministically
	// when both the token and the deadline fire at once.
	c := <-done
	switch {
	case c.err == nil:
		result.Success = true
		result.Content = c.content
	case ctx.Err() != nil:
		result.Success = false
		result.Content = "Task cancelled by user"
	case timeoutCtx.Err() != nil:
		result.Success = false
		result.Content = fmt.Sprintf("Task timed out after %d seconds", int(o.config.HeavyTimeout.Seconds()))
	default:
		result.Success = false
		result.Content = c.err.Error()
	}

	o.sendResult(result)
	o.removeToken(taskID)
	o.observeHeavyTask(result.Success, start)
}

func (o *Orchestrator) observeHeavyTask(success bool, start time.Time) {
	if o.m == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	o.m.HeavyTasks.WithLabelValues(outcome).Inc()
	o.m.HeavyDuration.Observe(time.Since(start).Seconds())
}

func (o *Orchestrator) sendResult(result HeavyTaskResult) {
	select {
	case o.results <- result:
	default:
		o.logger.Warn("orchestrator result channel full, dropping result for task %q", result.TaskID)
	}
}

func (o *Orchestrator) removeToken(taskID string) {
	o.mu.Lock()
	delete(o.tokens, taskID)
	o.mu.Unlock()
}

// TryRecvResult is a non-blocking poll of the result channel.
func (o *Orchestrator) TryRecvResult() (HeavyTaskResult, bool) {
	select {
	case r := <-o.results:
		return r, true
	default:
		return HeavyTaskResult{}, false
	}
}

// CancelTask fires the cancellation token for id, if outstanding.
func (o *Orchestrator) CancelTask(id string) {
	o.mu.Lock()
	cancel, ok := o.tokens[id]
	o.mu.Unlock()
	if ok {
		cancel()
	}
}

// CancelAllTasks fires every outstanding cancellation token.
func (o *Orchestrator) CancelAllTasks() {
	o.mu.Lock()
	tokens := make([]context.CancelFunc, 0, len(o.tokens))
	for _, cancel := range o.tokens {
		tokens = append(tokens, cancel)
	}
	o.mu.Unlock()
	for _, cancel := range tokens {
		cancel()
	}
}

// CallHeavyModelDirect is a synchronous helper used by the planner for
// plan generation and final synthesis: uses the heavy timeout and never
// invokes tools (spec §4.8).
func (o *Orchestrator) CallHeavyModelDirect(ctx context.Context, prompt string) (string, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, o.config.HeavyTimeout)
	defer cancel()

	resp, err := o.heavy.Complete(timeoutCtx, llmprovider.Request{
		Messages:  []llmprovider.Message{{Role: "user", Content: prompt}},
		MaxTokens: 4096,
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// Shutdown cancels every outstanding heavy task.
func (o *Orchestrator) Shutdown() {
	o.cancelAll()
}
