// Copyright 2025 The OpenClaw A2A Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/bytedance/sonic"

	a2a "github.com/swoelffel/OpenClaw-a2a"
)

// restError is the JSON error body of the REST surface. Code carries the
// same protocol error codes as the JSON-RPC endpoint.
type restError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (s *Server) sendRESTJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := sonic.ConfigDefault.NewEncoder(w).Encode(body); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// sendRESTError maps a lifecycle-engine error onto an HTTP status while
// preserving the protocol error code in the body.
func (s *Server) sendRESTError(w http.ResponseWriter, err error) {
	rpcErr := taskErrorToRPC(err)

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &a2a.TaskNotFoundError{}):
		status = http.StatusNotFound
	case errors.As(err, &a2a.TaskNotCancelableError{}):
		status = http.StatusConflict
	}

	s.sendRESTJSON(w, status, restError{Code: rpcErr.Code, Message: rpcErr.Message, Data: rpcErr.Data})
}

// handleListTasksREST handles GET /tasks with limit, cursor, and state
// query parameters.
func (s *Server) handleListTasksREST(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	params := a2a.TaskListParams{
		Cursor: query.Get("cursor"),
		State:  a2a.TaskState(query.Get("state")),
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			s.sendRESTJSON(w, http.StatusBadRequest, restError{
				Code:    a2a.ErrorCodeInvalidParams,
				Message: "Invalid parameters",
				Data:    []a2a.ValidationIssue{{Field: "limit", Reason: "must be an integer"}},
			})
			return
		}
		params.Limit = limit
	}
	if issues := params.Validate(); len(issues) > 0 {
		s.sendRESTJSON(w, http.StatusBadRequest, restError{
			Code:    a2a.ErrorCodeInvalidParams,
			Message: "Invalid parameters",
			Data:    issues,
		})
		return
	}

	list, err := s.taskManager.ListTasks(r.Context(), params)
	if err != nil {
		s.sendRESTError(w, err)
		return
	}
	s.sendRESTJSON(w, http.StatusOK, list)
}

// handleGetTaskREST handles GET /tasks/{id}.
func (s *Server) handleGetTaskREST(w http.ResponseWriter, r *http.Request) {
	task, err := s.taskManager.GetTask(r.Context(), r.PathValue("id"))
	if err != nil {
		s.sendRESTError(w, err)
		return
	}
	s.sendRESTJSON(w, http.StatusOK, task)
}

// handleCancelTaskREST handles POST /tasks/{id}/cancel.
func (s *Server) handleCancelTaskREST(w http.ResponseWriter, r *http.Request) {
	task, err := s.taskManager.CancelTask(r.Context(), r.PathValue("id"))
	if err != nil {
		s.sendRESTError(w, err)
		return
	}
	s.sendRESTJSON(w, http.StatusOK, task)
}
