// Copyright 2025 The OpenClaw A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"time"

	"github.com/google/uuid"
)

// TaskState represents the lifecycle state of a Task.
type TaskState string

const (
	// TaskStateSubmitted indicates the task has been accepted but
	// execution has not started.
	TaskStateSubmitted TaskState = "submitted"

	// TaskStateWorking indicates the task handler is running.
	TaskStateWorking TaskState = "working"

	// TaskStateCompleted indicates the handler finished successfully.
	TaskStateCompleted TaskState = "completed"

	// TaskStateFailed indicates the handler reported an error.
	TaskStateFailed TaskState = "failed"

	// TaskStateCanceled indicates the task was canceled by the caller.
	TaskStateCanceled TaskState = "canceled"
)

// Terminal reports whether no further transition is permitted from the
// state, short of explicit cleanup.
func (s TaskState) Terminal() bool {
	return s == TaskStateCompleted || s == TaskStateFailed || s == TaskStateCanceled
}

// TaskStatus is the current lifecycle position of a task. Message is set
// only when the task failed.
type TaskStatus struct {
	State     TaskState `json:"state"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message,omitzero"`
}

// Task is a unit of work submitted by a caller, tracked through a status
// lifecycle. Identity is ID; SessionID correlates related tasks and is
// opaque to the lifecycle engine.
type Task struct {
	ID        string         `json:"id"`
	SessionID string         `json:"sessionId"`
	Status    TaskStatus     `json:"status"`
	Artifacts []Artifact     `json:"artifacts"`
	History   []Message      `json:"history"`
	Metadata  map[string]any `json:"metadata,omitzero"`
}

// NewTask creates a Task in the submitted state with the originating
// message as the first history entry. A session id is generated when the
// caller supplies none.
func NewTask(id, sessionID string, message Message) *Task {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	return &Task{
		ID:        id,
		SessionID: sessionID,
		Status: TaskStatus{
			State:     TaskStateSubmitted,
			Timestamp: time.Now().UTC(),
		},
		Artifacts: []Artifact{},
		History:   []Message{message},
	}
}

// Clone returns a deep copy of the task. Consumers of the task store
// receive clones; the store retains exclusive ownership of its records.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}

	c := &Task{
		ID:        t.ID,
		SessionID: t.SessionID,
		Status:    t.Status,
		Artifacts: make([]Artifact, len(t.Artifacts)),
		History:   make([]Message, len(t.History)),
	}
	for i, a := range t.Artifacts {
		c.Artifacts[i] = a.Clone()
	}
	for i, m := range t.History {
		c.History[i] = m.Clone()
	}
	if t.Metadata != nil {
		c.Metadata = make(map[string]any, len(t.Metadata))
		for k, v := range t.Metadata {
			c.Metadata[k] = v
		}
	}
	return c
}

// TaskEventType discriminates the lifecycle events published for a task.
type TaskEventType string

// Valid task event types.
const (
	TaskEventStatus   TaskEventType = "status"
	TaskEventArtifact TaskEventType = "artifact"
	TaskEventMessage  TaskEventType = "message"
)

// TaskEvent is a lifecycle notification carrying a snapshot of the task
// at emission time. Artifact is set iff Type is [TaskEventArtifact];
// Message is set iff Type is [TaskEventMessage].
type TaskEvent struct {
	Type     TaskEventType `json:"type"`
	Task     Task          `json:"task"`
	Artifact *Artifact     `json:"artifact,omitzero"`
	Message  *Message      `json:"message,omitzero"`
}

// Final reports whether the event ends a task's stream: a status event
// for a terminal state.
func (e TaskEvent) Final() bool {
	return e.Type == TaskEventStatus && e.Task.Status.State.Terminal()
}
