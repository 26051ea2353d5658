// Copyright 2025 The OpenClaw A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package a2a provides the protocol data model for the OpenClaw
// agent-to-agent task exchange: messages, tasks, artifacts, lifecycle
// events, and the JSON-RPC envelopes that carry them.
package a2a

// Version is the current version of the protocol implementation.
const Version = "0.1.0"

// AgentCapabilities describes the optional protocol features an agent
// supports. It is served as part of the agent card.
type AgentCapabilities struct {
	Streaming              bool `json:"streaming"`
	PushNotifications      bool `json:"pushNotifications"`
	StateTransitionHistory bool `json:"stateTransitionHistory"`
}

// AgentSkill describes a unit of capability an agent can perform.
type AgentSkill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Examples    []string `json:"examples,omitempty"`
}

// AgentCard is the discovery document describing an agent: its identity,
// endpoint, capability flags, and supported skills. Servers publish it at
// the well-known path.
type AgentCard struct {
	Name         string            `json:"name"`
	Description  string            `json:"description,omitempty"`
	URL          string            `json:"url"`
	Version      string            `json:"version"`
	Capabilities AgentCapabilities `json:"capabilities"`
	Skills       []AgentSkill      `json:"skills,omitempty"`
}

// AgentCardWellKnownPath is the HTTP path where the agent card is served.
const AgentCardWellKnownPath = "/.well-known/agent.json"
