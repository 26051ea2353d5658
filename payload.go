// Copyright 2025 The OpenClaw A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import "fmt"

// List pagination bounds.
const (
	// DefaultListLimit is the page size used when the caller omits one.
	DefaultListLimit = 50
	// MaxListLimit is the largest accepted page size.
	MaxListLimit = 100
)

// ValidationIssue is a machine-readable description of a single
// parameter-validation failure, attached to the error data of an
// invalid-params response.
type ValidationIssue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// TaskSendParams are the parameters of tasks/send and tasks/sendSubscribe.
type TaskSendParams struct {
	ID        string         `json:"id"`
	SessionID string         `json:"sessionId,omitzero"`
	Message   Message        `json:"message"`
	Metadata  map[string]any `json:"metadata,omitzero"`
}

// Validate returns the validation issues of the params, or nil.
func (p TaskSendParams) Validate() []ValidationIssue {
	var issues []ValidationIssue
	if p.ID == "" {
		issues = append(issues, ValidationIssue{Field: "id", Reason: "must not be empty"})
	}
	if err := p.Message.Validate(); err != nil {
		issues = append(issues, ValidationIssue{Field: "message", Reason: err.Error()})
	}
	return issues
}

// TaskQueryParams are the parameters of tasks/get.
type TaskQueryParams struct {
	ID string `json:"id"`
}

// Validate returns the validation issues of the params, or nil.
func (p TaskQueryParams) Validate() []ValidationIssue {
	if p.ID == "" {
		return []ValidationIssue{{Field: "id", Reason: "must not be empty"}}
	}
	return nil
}

// TaskIDParams are the parameters of tasks/cancel.
type TaskIDParams struct {
	ID string `json:"id"`
}

// Validate returns the validation issues of the params, or nil.
func (p TaskIDParams) Validate() []ValidationIssue {
	if p.ID == "" {
		return []ValidationIssue{{Field: "id", Reason: "must not be empty"}}
	}
	return nil
}

// TaskListParams are the parameters of tasks/list. The cursor addresses
// a position in the full insertion order, not the filtered view.
type TaskListParams struct {
	Limit  int       `json:"limit,omitzero"`
	Cursor string    `json:"cursor,omitzero"`
	State  TaskState `json:"state,omitzero"`
}

// Validate returns the validation issues of the params, or nil.
func (p TaskListParams) Validate() []ValidationIssue {
	var issues []ValidationIssue
	if p.Limit < 0 {
		issues = append(issues, ValidationIssue{Field: "limit", Reason: "must not be negative"})
	}
	if p.State != "" {
		switch p.State {
		case TaskStateSubmitted, TaskStateWorking, TaskStateCompleted, TaskStateFailed, TaskStateCanceled:
		default:
			issues = append(issues, ValidationIssue{
				Field:  "state",
				Reason: fmt.Sprintf("unknown task state %q", p.State),
			})
		}
	}
	return issues
}

// TaskList is one page of tasks in insertion order. NextCursor is the id
// of the last returned task and is set only when more tasks remain.
type TaskList struct {
	Tasks      []*Task `json:"tasks"`
	NextCursor string  `json:"nextCursor,omitzero"`
	HasMore    bool    `json:"hasMore"`
}
