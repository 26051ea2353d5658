// Copyright 2025 The OpenClaw A2A Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"fmt"
	"net/http"

	"github.com/bytedance/sonic"

	a2a "github.com/swoelffel/OpenClaw-a2a"
)

// Stream frames task events onto a Server-Sent Events connection. One
// frame per event, named by the event type.
type Stream struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// newStream prepares an SSE connection, returning false when the
// underlying writer cannot flush.
func newStream(w http.ResponseWriter) (*Stream, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // For Nginx proxy

	return &Stream{w: w, flusher: flusher}, true
}

// Send writes one event frame and flushes it.
func (st *Stream) Send(event a2a.TaskEvent) error {
	data, err := sonic.ConfigDefault.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal task event: %w", err)
	}

	if _, err := fmt.Fprintf(st.w, "event: %s\ndata: %s\n\n", event.Type, data); err != nil {
		return fmt.Errorf("write task event: %w", err)
	}
	st.flusher.Flush()

	return nil
}

// handleTasksSendSubscribe handles the tasks/sendSubscribe method: it
// creates the task exactly like tasks/send, then holds the connection
// open as an event stream. The subscription is registered before the
// task is created so no lifecycle event can be missed, and it is
// dropped exactly once, whether the task reaches a terminal state or
// the client disconnects first.
func (s *Server) handleTasksSendSubscribe(w http.ResponseWriter, r *http.Request, req a2a.Request) {
	var params a2a.TaskSendParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		s.sendError(w, req.ID, rpcErr)
		return
	}
	if issues := params.Validate(); len(issues) > 0 {
		s.sendError(w, req.ID, a2a.NewInvalidParamsError().WithData(issues))
		return
	}

	stream, ok := newStream(w)
	if !ok {
		s.sendError(w, req.ID, a2a.NewInternalError().WithData("streaming is not supported by the connection"))
		return
	}

	events := s.taskManager.Subscribe(params.ID)
	defer s.taskManager.Unsubscribe(params.ID, events)

	task, err := s.taskManager.CreateTask(r.Context(), params)
	if err != nil {
		s.sendError(w, req.ID, taskErrorToRPC(err))
		return
	}

	// The submitted snapshot opens the stream; execution events follow.
	if err := stream.Send(a2a.TaskEvent{Type: a2a.TaskEventStatus, Task: *task}); err != nil {
		s.logger.WarnContext(r.Context(), "stream write failed", "task_id", task.ID, "error", err)
		return
	}

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := stream.Send(event); err != nil {
				s.logger.WarnContext(r.Context(), "stream write failed", "task_id", task.ID, "error", err)
				return
			}
			if event.Final() {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}
