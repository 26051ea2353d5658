// Copyright 2025 The OpenClaw A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"fmt"
	"maps"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// Part type tags used on the wire.
const (
	PartTypeText = "text"
	PartTypeFile = "file"
)

// Part is a tagged union over the content variants of a message or
// artifact. Concrete types are [TextPart] and [FilePart], discriminated
// by the "type" field on the wire.
type Part interface {
	// PartType returns the wire tag of the part.
	PartType() string

	// Validate ensures the part is well formed.
	Validate() error
}

// TextPart is a plain text segment.
type TextPart struct {
	Type     string         `json:"type"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitzero"`
}

var _ Part = (*TextPart)(nil)

// NewTextPart creates a TextPart with the correct wire tag.
func NewTextPart(text string) TextPart {
	return TextPart{Type: PartTypeText, Text: text}
}

// PartType implements [Part].
func (p TextPart) PartType() string { return PartTypeText }

// Validate implements [Part].
func (p TextPart) Validate() error {
	if p.Type != PartTypeText {
		return fmt.Errorf("text part type must be %q, got %q", PartTypeText, p.Type)
	}
	return nil
}

// FileContent holds the payload of a file part. Exactly one of Bytes
// (base64 payload) or URI must be set.
type FileContent struct {
	Name     string `json:"name,omitzero"`
	MimeType string `json:"mimeType,omitzero"`
	Bytes    string `json:"bytes,omitzero"`
	URI      string `json:"uri,omitzero"`
}

// Validate ensures the FileContent carries exactly one payload variant.
func (f FileContent) Validate() error {
	switch {
	case f.Bytes == "" && f.URI == "":
		return fmt.Errorf("file content must set either bytes or uri")
	case f.Bytes != "" && f.URI != "":
		return fmt.Errorf("file content cannot set both bytes and uri")
	}
	return nil
}

// FilePart is a file segment, carried inline as base64 bytes or by
// reference as a URI.
type FilePart struct {
	Type     string         `json:"type"`
	File     FileContent    `json:"file"`
	Metadata map[string]any `json:"metadata,omitzero"`
}

var _ Part = (*FilePart)(nil)

// NewFilePart creates a FilePart with the correct wire tag.
func NewFilePart(file FileContent) FilePart {
	return FilePart{Type: PartTypeFile, File: file}
}

// PartType implements [Part].
func (p FilePart) PartType() string { return PartTypeFile }

// Validate implements [Part].
func (p FilePart) Validate() error {
	if p.Type != PartTypeFile {
		return fmt.Errorf("file part type must be %q, got %q", PartTypeFile, p.Type)
	}
	return p.File.Validate()
}

// UnmarshalPart decodes a single part, dispatching on the "type" tag.
func UnmarshalPart(data []byte) (Part, error) {
	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, fmt.Errorf("unmarshal part type tag: %w", err)
	}

	switch tag.Type {
	case PartTypeText:
		var p TextPart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("unmarshal text part: %w", err)
		}
		return p, nil

	case PartTypeFile:
		var p FilePart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("unmarshal file part: %w", err)
		}
		return p, nil

	default:
		return nil, fmt.Errorf("unknown part type: %q", tag.Type)
	}
}

func unmarshalParts(raw []jsontext.Value) ([]Part, error) {
	parts := make([]Part, 0, len(raw))
	for i, rp := range raw {
		part, err := UnmarshalPart(rp)
		if err != nil {
			return nil, fmt.Errorf("part at index %d: %w", i, err)
		}
		parts = append(parts, part)
	}
	return parts, nil
}

// clonePart copies a part, detaching its metadata map from the
// original.
func clonePart(p Part) Part {
	switch p := p.(type) {
	case TextPart:
		p.Metadata = maps.Clone(p.Metadata)
		return p
	case FilePart:
		p.Metadata = maps.Clone(p.Metadata)
		return p
	default:
		return p
	}
}

// Artifact is a structured output produced by a task handler, separate
// from the conversational reply.
type Artifact struct {
	Parts    []Part         `json:"parts"`
	Index    int            `json:"index"`
	Metadata map[string]any `json:"metadata,omitzero"`
}

// Validate ensures the Artifact is well formed.
func (a Artifact) Validate() error {
	if len(a.Parts) == 0 {
		return fmt.Errorf("artifact must contain at least one part")
	}
	for i, part := range a.Parts {
		if part == nil {
			return fmt.Errorf("artifact part at index %d cannot be nil", i)
		}
		if err := part.Validate(); err != nil {
			return fmt.Errorf("artifact part at index %d: %w", i, err)
		}
	}
	return nil
}

// UnmarshalJSON decodes the artifact, resolving the part union.
func (a *Artifact) UnmarshalJSON(data []byte) error {
	var raw struct {
		Parts    []jsontext.Value `json:"parts"`
		Index    int              `json:"index"`
		Metadata map[string]any   `json:"metadata"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	parts, err := unmarshalParts(raw.Parts)
	if err != nil {
		return err
	}

	a.Parts = parts
	a.Index = raw.Index
	a.Metadata = raw.Metadata
	return nil
}

// Clone returns a copy of the artifact that shares no mutable state with
// the original, part metadata included.
func (a Artifact) Clone() Artifact {
	c := Artifact{
		Parts: make([]Part, len(a.Parts)),
		Index: a.Index,
	}
	for i, part := range a.Parts {
		c.Parts[i] = clonePart(part)
	}
	if a.Metadata != nil {
		c.Metadata = make(map[string]any, len(a.Metadata))
		for k, v := range a.Metadata {
			c.Metadata[k] = v
		}
	}
	return c
}
