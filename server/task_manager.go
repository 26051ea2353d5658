// Copyright 2025 The OpenClaw A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package server implements the server side of the task-exchange
// protocol: the task store and lifecycle engine, the JSON-RPC
// dispatcher, the REST convenience surface, and the SSE streaming
// bridge.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	a2a "github.com/swoelffel/OpenClaw-a2a"
)

// TaskHandler turns the most recent task message into an agent reply and
// optional artifacts. It is the externally supplied work function; an
// error return fails the task rather than the RPC that created it.
type TaskHandler func(ctx context.Context, message a2a.Message) (*a2a.Message, []a2a.Artifact, error)

// subscriberBuffer is the event channel capacity per subscriber. A slow
// consumer that falls further behind than this loses events.
const subscriberBuffer = 16

// TaskManager owns all task records and drives their lifecycle. Tasks
// are kept in memory, keyed by id, with a side index preserving
// insertion order for pagination. All mutations go through the manager;
// callers only ever receive deep copies.
type TaskManager struct {
	mu      sync.RWMutex
	tasks   map[string]*a2a.Task
	order   []string
	handler TaskHandler

	subMu       sync.Mutex
	subscribers map[string][]chan a2a.TaskEvent

	logger *slog.Logger
	tracer trace.Tracer
}

// NewTaskManager creates an empty TaskManager.
func NewTaskManager() *TaskManager {
	return &TaskManager{
		tasks:       make(map[string]*a2a.Task),
		subscribers: make(map[string][]chan a2a.TaskEvent),
		logger:      slog.Default(),
		tracer:      otel.GetTracerProvider().Tracer("github.com/swoelffel/OpenClaw-a2a/server/task_manager"),
	}
}

// WithLogger sets the logger for the TaskManager.
func (tm *TaskManager) WithLogger(logger *slog.Logger) *TaskManager {
	tm.logger = logger
	return tm
}

// WithTracer sets the tracer for the TaskManager.
func (tm *TaskManager) WithTracer(tracer trace.Tracer) *TaskManager {
	tm.tracer = tracer
	return tm
}

// SetHandler registers the task handler. Most recent wins: re-setting
// replaces the prior registration and affects every execution that has
// not yet fetched the handler.
func (tm *TaskManager) SetHandler(handler TaskHandler) {
	tm.mu.Lock()
	tm.handler = handler
	tm.mu.Unlock()
}

// CreateTask constructs a task in the submitted state, stores it, and
// starts execution in the background. It returns a snapshot of the
// freshly created task; the caller learns the outcome of execution by
// polling or subscribing, never from this call. Submitting an id that
// already exists re-initializes the record in place.
func (tm *TaskManager) CreateTask(ctx context.Context, params a2a.TaskSendParams) (*a2a.Task, error) {
	ctx, span := tm.tracer.Start(ctx, "a2a.task_manager.CreateTask",
		trace.WithAttributes(attribute.String("a2a.task_id", params.ID)))
	defer span.End()

	if params.ID == "" {
		return nil, fmt.Errorf("task ID cannot be empty")
	}

	task := a2a.NewTask(params.ID, params.SessionID, params.Message)
	task.Metadata = params.Metadata

	tm.mu.Lock()
	if _, exists := tm.tasks[task.ID]; !exists {
		tm.order = append(tm.order, task.ID)
	}
	tm.tasks[task.ID] = task
	snapshot := task.Clone()
	tm.mu.Unlock()

	// Execution must outlive the request that submitted the task. The
	// live record belongs to execute from here on; only the snapshot
	// taken under the lock is safe to read.
	go tm.execute(context.WithoutCancel(ctx), task.ID)

	tm.logger.InfoContext(ctx, "task created",
		"task_id", snapshot.ID, "session_id", snapshot.SessionID, "state", snapshot.Status.State)
	return snapshot, nil
}

// execute runs the registered handler for the task and applies the
// outcome. Every failure path, panics included, is absorbed into the
// task's own failed state; nothing propagates to the submitter.
func (tm *TaskManager) execute(ctx context.Context, taskID string) {
	defer func() {
		if r := recover(); r != nil {
			tm.logger.ErrorContext(ctx, "task execution panicked", "task_id", taskID, "panic", r)
			tm.failTask(ctx, taskID, fmt.Sprintf("task execution panicked: %v", r))
		}
	}()

	ctx, span := tm.tracer.Start(ctx, "a2a.task_manager.execute",
		trace.WithAttributes(attribute.String("a2a.task_id", taskID)))
	defer span.End()

	// The handler is fetched at the moment execution starts, so a
	// replacement that lands before this point changes behavior.
	tm.mu.RLock()
	handler := tm.handler
	tm.mu.RUnlock()

	if handler == nil {
		// No handler registered: the task stays submitted.
		tm.logger.WarnContext(ctx, "no task handler registered", "task_id", taskID)
		return
	}

	tm.mu.Lock()
	task, ok := tm.tasks[taskID]
	if !ok {
		tm.mu.Unlock()
		return
	}
	task.Status = a2a.TaskStatus{State: a2a.TaskStateWorking, Timestamp: time.Now().UTC()}
	working := task.Clone()
	tm.mu.Unlock()

	tm.publish(ctx, a2a.TaskEvent{Type: a2a.TaskEventStatus, Task: *working})

	if len(working.History) == 0 {
		tm.failTask(ctx, taskID, "task has no input message")
		return
	}
	input := working.History[len(working.History)-1]

	reply, artifacts, err := handler(ctx, input)
	if err != nil {
		msg := err.Error()
		if msg == "" {
			msg = "task handler failed"
		}
		tm.failTask(ctx, taskID, msg)
		return
	}
	if reply == nil {
		tm.failTask(ctx, taskID, "task handler returned no response message")
		return
	}

	tm.mu.Lock()
	task, ok = tm.tasks[taskID]
	if !ok {
		// Removed by a cleanup sweep while the handler ran.
		tm.mu.Unlock()
		return
	}
	task.History = append(task.History, reply.Clone())
	if len(artifacts) > 0 {
		task.Artifacts = slices.Clone(artifacts)
	}
	// Last write wins: a completion landing after a cancel overwrites
	// the canceled status.
	task.Status = a2a.TaskStatus{State: a2a.TaskStateCompleted, Timestamp: time.Now().UTC()}
	done := task.Clone()
	tm.mu.Unlock()

	tm.publish(ctx, a2a.TaskEvent{Type: a2a.TaskEventMessage, Task: *done, Message: reply})
	for i := range artifacts {
		artifact := artifacts[i].Clone()
		tm.publish(ctx, a2a.TaskEvent{Type: a2a.TaskEventArtifact, Task: *done, Artifact: &artifact})
	}
	tm.publish(ctx, a2a.TaskEvent{Type: a2a.TaskEventStatus, Task: *done})

	tm.logger.InfoContext(ctx, "task completed", "task_id", taskID, "artifacts", len(artifacts))
}

// failTask moves the task to the failed state with the given status
// message and publishes the status event.
func (tm *TaskManager) failTask(ctx context.Context, taskID, message string) {
	tm.mu.Lock()
	task, ok := tm.tasks[taskID]
	if !ok {
		tm.mu.Unlock()
		return
	}
	task.Status = a2a.TaskStatus{
		State:     a2a.TaskStateFailed,
		Timestamp: time.Now().UTC(),
		Message:   message,
	}
	snapshot := task.Clone()
	tm.mu.Unlock()

	tm.publish(ctx, a2a.TaskEvent{Type: a2a.TaskEventStatus, Task: *snapshot})
	tm.logger.WarnContext(ctx, "task failed", "task_id", taskID, "reason", message)
}

// GetTask returns a snapshot of the task, or [a2a.TaskNotFoundError].
func (tm *TaskManager) GetTask(ctx context.Context, taskID string) (*a2a.Task, error) {
	_, span := tm.tracer.Start(ctx, "a2a.task_manager.GetTask",
		trace.WithAttributes(attribute.String("a2a.task_id", taskID)))
	defer span.End()

	tm.mu.RLock()
	task, ok := tm.tasks[taskID]
	if !ok {
		tm.mu.RUnlock()
		return nil, a2a.TaskNotFoundError{TaskID: taskID}
	}
	snapshot := task.Clone()
	tm.mu.RUnlock()

	return snapshot, nil
}

// CancelTask marks the task canceled and publishes the status event.
// Tasks already completed or failed cannot be canceled; the returned
// [a2a.TaskNotCancelableError] carries the conflicting state.
// Cancellation is advisory: it does not interrupt an in-flight handler.
func (tm *TaskManager) CancelTask(ctx context.Context, taskID string) (*a2a.Task, error) {
	ctx, span := tm.tracer.Start(ctx, "a2a.task_manager.CancelTask",
		trace.WithAttributes(attribute.String("a2a.task_id", taskID)))
	defer span.End()

	tm.mu.Lock()
	task, ok := tm.tasks[taskID]
	if !ok {
		tm.mu.Unlock()
		return nil, a2a.TaskNotFoundError{TaskID: taskID}
	}
	if state := task.Status.State; state == a2a.TaskStateCompleted || state == a2a.TaskStateFailed {
		tm.mu.Unlock()
		return nil, a2a.TaskNotCancelableError{TaskID: taskID, State: state}
	}
	task.Status = a2a.TaskStatus{State: a2a.TaskStateCanceled, Timestamp: time.Now().UTC()}
	snapshot := task.Clone()
	tm.mu.Unlock()

	tm.publish(ctx, a2a.TaskEvent{Type: a2a.TaskEventStatus, Task: *snapshot})

	tm.logger.InfoContext(ctx, "task canceled", "task_id", taskID)
	return snapshot, nil
}

// GetAllTasks returns snapshots of every stored task, in no particular
// order.
func (tm *TaskManager) GetAllTasks(ctx context.Context) []*a2a.Task {
	_, span := tm.tracer.Start(ctx, "a2a.task_manager.GetAllTasks")
	defer span.End()

	tm.mu.RLock()
	defer tm.mu.RUnlock()

	tasks := make([]*a2a.Task, 0, len(tm.tasks))
	for _, task := range tm.tasks {
		tasks = append(tasks, task.Clone())
	}
	return tasks
}

// ListTasks returns one page of tasks in insertion order, starting
// strictly after the cursor. An unknown cursor starts from the
// beginning. The state filter narrows the returned tasks but never the
// positions the cursor addresses.
func (tm *TaskManager) ListTasks(ctx context.Context, params a2a.TaskListParams) (*a2a.TaskList, error) {
	_, span := tm.tracer.Start(ctx, "a2a.task_manager.ListTasks")
	defer span.End()

	if params.Limit < 0 {
		return nil, fmt.Errorf("limit cannot be negative")
	}
	limit := params.Limit
	if limit == 0 {
		limit = a2a.DefaultListLimit
	}
	if limit > a2a.MaxListLimit {
		limit = a2a.MaxListLimit
	}

	tm.mu.RLock()
	defer tm.mu.RUnlock()

	start := 0
	if params.Cursor != "" {
		if idx := slices.Index(tm.order, params.Cursor); idx >= 0 {
			start = idx + 1
		}
	}

	list := &a2a.TaskList{Tasks: []*a2a.Task{}}
	for _, id := range tm.order[start:] {
		task := tm.tasks[id]
		if params.State != "" && task.Status.State != params.State {
			continue
		}
		if len(list.Tasks) == limit {
			list.HasMore = true
			break
		}
		list.Tasks = append(list.Tasks, task.Clone())
	}
	if list.HasMore && len(list.Tasks) > 0 {
		list.NextCursor = list.Tasks[len(list.Tasks)-1].ID
	}

	return list, nil
}

// Cleanup removes every task whose status timestamp is older than
// maxAge, regardless of state, and returns the number removed.
func (tm *TaskManager) Cleanup(ctx context.Context, maxAge time.Duration) int {
	ctx, span := tm.tracer.Start(ctx, "a2a.task_manager.Cleanup")
	defer span.End()

	cutoff := time.Now().Add(-maxAge)

	tm.mu.Lock()
	removed := 0
	kept := tm.order[:0]
	for _, id := range tm.order {
		task := tm.tasks[id]
		if !task.Status.Timestamp.After(cutoff) {
			delete(tm.tasks, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	tm.order = kept
	tm.mu.Unlock()

	if removed > 0 {
		tm.logger.InfoContext(ctx, "task cleanup sweep", "removed", removed, "max_age", maxAge)
	}
	return removed
}

// Subscribe registers interest in the lifecycle events of one task and
// returns the channel they are delivered on, in emission order.
func (tm *TaskManager) Subscribe(taskID string) <-chan a2a.TaskEvent {
	ch := make(chan a2a.TaskEvent, subscriberBuffer)

	tm.subMu.Lock()
	tm.subscribers[taskID] = append(tm.subscribers[taskID], ch)
	tm.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscriber channel and closes it. Removing a
// channel that is already gone is a no-op, so the terminal-event and
// disconnect paths may race freely.
func (tm *TaskManager) Unsubscribe(taskID string, ch <-chan a2a.TaskEvent) {
	tm.subMu.Lock()
	defer tm.subMu.Unlock()

	subs, ok := tm.subscribers[taskID]
	if !ok {
		return
	}
	for i, sub := range subs {
		if ch == sub {
			tm.subscribers[taskID] = slices.Delete(subs, i, i+1)
			close(sub)
			break
		}
	}
	if len(tm.subscribers[taskID]) == 0 {
		delete(tm.subscribers, taskID)
	}
}

// publish delivers an event to every subscriber of the event's task.
// Delivery is synchronous and non-blocking so that per-task emission
// order is preserved; a full subscriber channel drops the event.
func (tm *TaskManager) publish(ctx context.Context, event a2a.TaskEvent) {
	tm.subMu.Lock()
	defer tm.subMu.Unlock()

	for _, sub := range tm.subscribers[event.Task.ID] {
		select {
		case sub <- event:
		default:
			tm.logger.WarnContext(ctx, "subscriber channel full, dropping event",
				"task_id", event.Task.ID, "event_type", event.Type)
		}
	}
}
