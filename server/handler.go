// Copyright 2025 The OpenClaw A2A Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/bytedance/sonic"
	"go.opentelemetry.io/otel/attribute"

	a2a "github.com/swoelffel/OpenClaw-a2a"
)

// handleRPCRequest validates the inbound envelope and routes by method.
// An unparsable payload and an envelope shape failure are both answered
// with a null id, since no caller id is trustworthy at that point.
func (s *Server) handleRPCRequest(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.tracer.Start(r.Context(), "a2a.server.handleRPCRequest")
	defer span.End()
	r = r.WithContext(ctx)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.sendError(w, a2a.ID{}, a2a.NewParseError())
		return
	}
	defer r.Body.Close()

	var req a2a.Request
	if err := sonic.ConfigDefault.Unmarshal(body, &req); err != nil {
		if !json.Valid(body) {
			s.sendError(w, a2a.ID{}, a2a.NewParseError())
			return
		}
		s.sendError(w, a2a.ID{}, a2a.NewInvalidRequestError().WithData(err.Error()))
		return
	}
	if err := req.Validate(); err != nil {
		s.sendError(w, a2a.ID{}, a2a.NewInvalidRequestError().WithData(err.Error()))
		return
	}

	span.SetAttributes(attribute.String("a2a.method", req.Method))

	switch req.Method {
	case a2a.MethodTasksSend:
		s.handleTasksSend(w, r, req)
	case a2a.MethodTasksGet:
		s.handleTasksGet(w, r, req)
	case a2a.MethodTasksCancel:
		s.handleTasksCancel(w, r, req)
	case a2a.MethodTasksList:
		s.handleTasksList(w, r, req)
	case a2a.MethodTasksSendSubscribe:
		s.handleTasksSendSubscribe(w, r, req)
	default:
		s.sendError(w, req.ID, a2a.NewMethodNotFoundError())
	}
}

// decodeParams unmarshals req.Params into params, reporting the failure
// as a validation issue on the outgoing error.
func decodeParams(req a2a.Request, params any) *a2a.JSONRPCError {
	if err := sonic.ConfigDefault.Unmarshal(req.Params, params); err != nil {
		return a2a.NewInvalidParamsError().WithData([]a2a.ValidationIssue{
			{Field: "params", Reason: err.Error()},
		})
	}
	return nil
}

// taskErrorToRPC maps lifecycle-engine errors onto the fixed protocol
// error codes. Anything unrecognized is an internal error; details never
// leak to the caller.
func taskErrorToRPC(err error) *a2a.JSONRPCError {
	var notFound a2a.TaskNotFoundError
	if errors.As(err, &notFound) {
		return a2a.NewTaskNotFoundError().WithData(map[string]any{"id": notFound.TaskID})
	}

	var notCancelable a2a.TaskNotCancelableError
	if errors.As(err, &notCancelable) {
		return a2a.NewTaskNotCancelableError().WithData(map[string]any{
			"id":    notCancelable.TaskID,
			"state": notCancelable.State,
		})
	}

	return a2a.NewInternalError()
}

// handleTasksSend handles the tasks/send method. The response always
// carries the freshly created task; the outcome of execution is reported
// later through tasks/get or a subscription, never here.
func (s *Server) handleTasksSend(w http.ResponseWriter, r *http.Request, req a2a.Request) {
	var params a2a.TaskSendParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		s.sendError(w, req.ID, rpcErr)
		return
	}
	if issues := params.Validate(); len(issues) > 0 {
		s.sendError(w, req.ID, a2a.NewInvalidParamsError().WithData(issues))
		return
	}

	task, err := s.taskManager.CreateTask(r.Context(), params)
	if err != nil {
		s.sendError(w, req.ID, taskErrorToRPC(err))
		return
	}
	s.sendResponse(w, a2a.NewResponse(req.ID, task))
}

// handleTasksGet handles the tasks/get method.
func (s *Server) handleTasksGet(w http.ResponseWriter, r *http.Request, req a2a.Request) {
	var params a2a.TaskQueryParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		s.sendError(w, req.ID, rpcErr)
		return
	}
	if issues := params.Validate(); len(issues) > 0 {
		s.sendError(w, req.ID, a2a.NewInvalidParamsError().WithData(issues))
		return
	}

	task, err := s.taskManager.GetTask(r.Context(), params.ID)
	if err != nil {
		s.sendError(w, req.ID, taskErrorToRPC(err))
		return
	}
	s.sendResponse(w, a2a.NewResponse(req.ID, task))
}

// handleTasksCancel handles the tasks/cancel method.
func (s *Server) handleTasksCancel(w http.ResponseWriter, r *http.Request, req a2a.Request) {
	var params a2a.TaskIDParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		s.sendError(w, req.ID, rpcErr)
		return
	}
	if issues := params.Validate(); len(issues) > 0 {
		s.sendError(w, req.ID, a2a.NewInvalidParamsError().WithData(issues))
		return
	}

	task, err := s.taskManager.CancelTask(r.Context(), params.ID)
	if err != nil {
		s.sendError(w, req.ID, taskErrorToRPC(err))
		return
	}
	s.sendResponse(w, a2a.NewResponse(req.ID, task))
}

// handleTasksList handles the tasks/list method.
func (s *Server) handleTasksList(w http.ResponseWriter, r *http.Request, req a2a.Request) {
	var params a2a.TaskListParams
	if len(req.Params) > 0 {
		if rpcErr := decodeParams(req, &params); rpcErr != nil {
			s.sendError(w, req.ID, rpcErr)
			return
		}
	}
	if issues := params.Validate(); len(issues) > 0 {
		s.sendError(w, req.ID, a2a.NewInvalidParamsError().WithData(issues))
		return
	}

	list, err := s.taskManager.ListTasks(r.Context(), params)
	if err != nil {
		s.sendError(w, req.ID, taskErrorToRPC(err))
		return
	}
	s.sendResponse(w, a2a.NewResponse(req.ID, list))
}
