// Copyright 2025 The OpenClaw A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Command example runs a task-exchange server with an echo handler.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	a2a "github.com/swoelffel/OpenClaw-a2a"
	"github.com/swoelffel/OpenClaw-a2a/auth"
	"github.com/swoelffel/OpenClaw-a2a/internal/config"
	"github.com/swoelffel/OpenClaw-a2a/server"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	taskManager := server.NewTaskManager().WithLogger(logger)
	taskManager.SetHandler(func(ctx context.Context, message a2a.Message) (*a2a.Message, []a2a.Artifact, error) {
		reply := a2a.NewAgentTextMessage("echo: " + message.TextContent())
		return &reply, nil, nil
	})

	card := &a2a.AgentCard{
		Name:        cfg.AgentName,
		Description: cfg.AgentDescription,
		URL:         cfg.AgentURL,
		Version:     cfg.AgentVersion,
		Capabilities: a2a.AgentCapabilities{
			Streaming: true,
		},
		Skills: []a2a.AgentSkill{
			{ID: "echo", Name: "Echo", Description: "Echoes the text of the request message."},
		},
	}

	opts := []server.Option{server.WithLogger(logger)}
	if cfg.AuthToken != "" {
		opts = append(opts, server.WithAuthenticator(auth.NewBearerTokenAuthenticator(cfg.AuthToken)))
	}

	srv, err := server.NewServer(card, taskManager, opts...)
	if err != nil {
		logger.Error("create server", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.CleanupInterval > 0 {
		go func() {
			ticker := time.NewTicker(cfg.CleanupInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					taskManager.Cleanup(ctx, cfg.CleanupMaxAge)
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: srv,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", "error", err)
		}
	}()

	logger.Info("server listening", "addr", cfg.Addr, "agent", cfg.AgentName)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("serve", "error", err)
		os.Exit(1)
	}
}
