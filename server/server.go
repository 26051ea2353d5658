// Copyright 2025 The OpenClaw A2A Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/bytedance/sonic"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	a2a "github.com/swoelffel/OpenClaw-a2a"
	"github.com/swoelffel/OpenClaw-a2a/auth"
)

// Server exposes the task lifecycle engine over HTTP: one JSON-RPC
// endpoint, the agent card at the well-known path, and a thin REST
// surface over the same store operations.
type Server struct {
	taskManager   *TaskManager
	mux           *http.ServeMux
	agentCard     *a2a.AgentCard
	authenticator auth.Authenticator
	logger        *slog.Logger
	tracer        trace.Tracer
}

var _ http.Handler = (*Server)(nil)

// NewServer creates a Server for the given agent card and task manager.
func NewServer(card *a2a.AgentCard, taskManager *TaskManager, opts ...Option) (*Server, error) {
	if card == nil {
		return nil, fmt.Errorf("agent card is required")
	}
	if taskManager == nil {
		return nil, fmt.Errorf("task manager is required")
	}

	s := &Server{
		taskManager:   taskManager,
		mux:           http.NewServeMux(),
		agentCard:     card,
		authenticator: auth.NoopAuthenticator{},
		logger:        slog.Default(),
		tracer:        otel.GetTracerProvider().Tracer("github.com/swoelffel/OpenClaw-a2a/server"),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.registerHandlers()
	return s, nil
}

// ServeHTTP implements http.Handler. The bearer-token check, when
// configured, short-circuits here; a rejected request never reaches the
// dispatcher.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if _, err := s.authenticator.Authenticate(r); err != nil {
		s.logger.InfoContext(r.Context(), "request rejected", "reason", err)
		w.Header().Set("WWW-Authenticate", "Bearer")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	s.mux.ServeHTTP(w, r)
}

// registerHandlers sets up all HTTP routes.
func (s *Server) registerHandlers() {
	s.mux.HandleFunc("GET "+a2a.AgentCardWellKnownPath, s.handleAgentCard)
	s.mux.HandleFunc("POST /{$}", s.handleRPCRequest)

	// REST convenience surface over the same store operations.
	s.mux.HandleFunc("GET /tasks", s.handleListTasksREST)
	s.mux.HandleFunc("GET /tasks/{id}", s.handleGetTaskREST)
	s.mux.HandleFunc("POST /tasks/{id}/cancel", s.handleCancelTaskREST)
}

// handleAgentCard serves the discovery document.
func (s *Server) handleAgentCard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := sonic.ConfigDefault.NewEncoder(w).Encode(s.agentCard); err != nil {
		http.Error(w, "Failed to encode agent card", http.StatusInternalServerError)
	}
}

// sendResponse writes a JSON-RPC response.
func (s *Server) sendResponse(w http.ResponseWriter, resp *a2a.Response) {
	w.Header().Set("Content-Type", "application/json")
	if err := sonic.ConfigDefault.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// sendError writes a JSON-RPC error response correlated to id.
func (s *Server) sendError(w http.ResponseWriter, id a2a.ID, rpcErr *a2a.JSONRPCError) {
	s.sendResponse(w, a2a.NewErrorResponse(id, rpcErr))
}
