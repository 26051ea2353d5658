// Copyright 2025 The OpenClaw A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"fmt"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// Role identifies the sender of a message.
type Role string

// Valid message roles.
const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Message is a single conversational turn: an ordered sequence of parts
// from either the user or the agent.
type Message struct {
	Role     Role           `json:"role"`
	Parts    []Part         `json:"parts"`
	Metadata map[string]any `json:"metadata,omitzero"`
}

// Validate ensures the Message is well formed.
func (m Message) Validate() error {
	if m.Role != RoleUser && m.Role != RoleAgent {
		return fmt.Errorf("invalid message role: %q", m.Role)
	}
	if len(m.Parts) == 0 {
		return fmt.Errorf("message must contain at least one part")
	}
	for i, part := range m.Parts {
		if part == nil {
			return fmt.Errorf("message part at index %d cannot be nil", i)
		}
		if err := part.Validate(); err != nil {
			return fmt.Errorf("message part at index %d: %w", i, err)
		}
	}
	return nil
}

// UnmarshalJSON decodes the message, resolving the part union.
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role     Role             `json:"role"`
		Parts    []jsontext.Value `json:"parts"`
		Metadata map[string]any   `json:"metadata"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	parts, err := unmarshalParts(raw.Parts)
	if err != nil {
		return err
	}

	m.Role = raw.Role
	m.Parts = parts
	m.Metadata = raw.Metadata
	return nil
}

// Clone returns a copy of the message that shares no mutable state with
// the original, part metadata included.
func (m Message) Clone() Message {
	c := Message{
		Role:  m.Role,
		Parts: make([]Part, len(m.Parts)),
	}
	for i, part := range m.Parts {
		c.Parts[i] = clonePart(part)
	}
	if m.Metadata != nil {
		c.Metadata = make(map[string]any, len(m.Metadata))
		for k, v := range m.Metadata {
			c.Metadata[k] = v
		}
	}
	return c
}

// NewUserTextMessage creates a user message containing a single text part.
func NewUserTextMessage(text string) Message {
	return Message{
		Role:  RoleUser,
		Parts: []Part{NewTextPart(text)},
	}
}

// NewAgentTextMessage creates an agent message containing a single text part.
func NewAgentTextMessage(text string) Message {
	return Message{
		Role:  RoleAgent,
		Parts: []Part{NewTextPart(text)},
	}
}

// TextContent concatenates the text of all text parts of the message,
// separated by newlines. Non-text parts are skipped.
func (m Message) TextContent() string {
	var out string
	for _, part := range m.Parts {
		tp, ok := part.(TextPart)
		if !ok {
			continue
		}
		if out != "" {
			out += "\n"
		}
		out += tp.Text
	}
	return out
}
