// Copyright 2025 The OpenClaw A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import "fmt"

// Error is implemented by protocol errors that map to a fixed JSON-RPC
// error code.
type Error interface {
	error
	Code() int
}

// TaskNotFoundError reports that no task exists with the requested id.
type TaskNotFoundError struct {
	TaskID string
}

var _ Error = TaskNotFoundError{}

// Error implements error.
func (e TaskNotFoundError) Error() string {
	return fmt.Sprintf("task not found: %s", e.TaskID)
}

// Code implements [Error].
func (e TaskNotFoundError) Code() int {
	return ErrorCodeTaskNotFound
}

// TaskNotCancelableError reports a cancel request against a task already
// in a terminal state. State carries the conflicting state.
type TaskNotCancelableError struct {
	TaskID string
	State  TaskState
}

var _ Error = TaskNotCancelableError{}

// Error implements error.
func (e TaskNotCancelableError) Error() string {
	return fmt.Sprintf("task %s cannot be canceled: already in state %s", e.TaskID, e.State)
}

// Code implements [Error].
func (e TaskNotCancelableError) Code() int {
	return ErrorCodeTaskNotCancelable
}
