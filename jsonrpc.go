// Copyright 2025 The OpenClaw A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// RPC method names.
const (
	// MethodTasksSend is the method name for submitting a task.
	MethodTasksSend = "tasks/send"
	// MethodTasksGet is the method name for retrieving a task.
	MethodTasksGet = "tasks/get"
	// MethodTasksCancel is the method name for canceling a task.
	MethodTasksCancel = "tasks/cancel"
	// MethodTasksList is the method name for listing tasks.
	MethodTasksList = "tasks/list"
	// MethodTasksSendSubscribe is the method name for submitting a task
	// and subscribing to its lifecycle events.
	MethodTasksSendSubscribe = "tasks/sendSubscribe"
)

// Standard JSON-RPC 2.0 error codes.
const (
	// ErrorCodeParse indicates an invalid JSON payload.
	ErrorCodeParse = -32700
	// ErrorCodeInvalidRequest indicates an envelope validation failure.
	ErrorCodeInvalidRequest = -32600
	// ErrorCodeMethodNotFound indicates the method does not exist.
	ErrorCodeMethodNotFound = -32601
	// ErrorCodeInvalidParams indicates invalid method parameters.
	ErrorCodeInvalidParams = -32602
	// ErrorCodeInternal indicates an internal server error.
	ErrorCodeInternal = -32603
)

// Protocol-specific error codes.
const (
	// ErrorCodeTaskNotFound indicates the requested task id was not found.
	ErrorCodeTaskNotFound = -32001
	// ErrorCodeTaskNotCancelable indicates the task is in a terminal
	// state and cannot be canceled.
	ErrorCodeTaskNotCancelable = -32002
)

// ID is a JSON-RPC request identifier: a string or a number. The zero
// value is the absent id and serializes to null.
type ID struct {
	value any
}

// NewID creates an ID from a string or a number.
func NewID(v any) ID {
	return ID{value: v}
}

// IsValid reports whether the id carries a string or number value.
func (id ID) IsValid() bool {
	switch id.value.(type) {
	case string, float64, int, int64:
		return true
	}
	return false
}

// String renders the id for logging.
func (id ID) String() string {
	switch v := id.value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return "<nil>"
	}
}

// MarshalJSON implements json.Marshaler.
func (id ID) MarshalJSON() ([]byte, error) {
	if !id.IsValid() {
		return []byte("null"), nil
	}
	return json.Marshal(id.value)
}

// UnmarshalJSON implements json.Unmarshaler. Only strings, numbers, and
// null are accepted; anything else leaves the id invalid.
func (id *ID) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch v.(type) {
	case string, float64, nil:
		id.value = v
		return nil
	default:
		id.value = nil
		return fmt.Errorf("request id must be a string or a number, got %T", v)
	}
}

// Request is a JSON-RPC 2.0 request envelope.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      ID              `json:"id"`
}

// Validate checks the fixed envelope shape: version "2.0", a non-empty
// method, and a string or number id.
func (r Request) Validate() error {
	if r.JSONRPC != "2.0" {
		return fmt.Errorf("jsonrpc version must be %q, got %q", "2.0", r.JSONRPC)
	}
	if r.Method == "" {
		return fmt.Errorf("method cannot be empty")
	}
	if !r.ID.IsValid() {
		return fmt.Errorf("request id must be a string or a number")
	}
	return nil
}

// JSONRPCError is the error member of a JSON-RPC 2.0 response.
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Error implements error.
func (e *JSONRPCError) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// WithData attaches machine-readable detail to the error and returns it.
func (e *JSONRPCError) WithData(data any) *JSONRPCError {
	e.Data = data
	return e
}

// Response is a JSON-RPC 2.0 response envelope. Exactly one of Result
// and Error is set.
type Response struct {
	JSONRPC string        `json:"jsonrpc"`
	Result  any           `json:"result,omitempty"`
	Error   *JSONRPCError `json:"error,omitempty"`
	ID      ID            `json:"id"`
}

// NewResponse creates a success response carrying result.
func NewResponse(id ID, result any) *Response {
	return &Response{JSONRPC: "2.0", Result: result, ID: id}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(id ID, rpcErr *JSONRPCError) *Response {
	return &Response{JSONRPC: "2.0", Error: rpcErr, ID: id}
}

// NewParseError creates the error for an unparsable payload.
func NewParseError() *JSONRPCError {
	return &JSONRPCError{Code: ErrorCodeParse, Message: "Invalid JSON payload"}
}

// NewInvalidRequestError creates the error for an envelope shape failure.
func NewInvalidRequestError() *JSONRPCError {
	return &JSONRPCError{Code: ErrorCodeInvalidRequest, Message: "Request payload validation error"}
}

// NewMethodNotFoundError creates the error for an unknown method.
func NewMethodNotFoundError() *JSONRPCError {
	return &JSONRPCError{Code: ErrorCodeMethodNotFound, Message: "Method not found"}
}

// NewInvalidParamsError creates the error for invalid method parameters.
func NewInvalidParamsError() *JSONRPCError {
	return &JSONRPCError{Code: ErrorCodeInvalidParams, Message: "Invalid parameters"}
}

// NewInternalError creates the error for an unexpected server failure.
func NewInternalError() *JSONRPCError {
	return &JSONRPCError{Code: ErrorCodeInternal, Message: "Internal error"}
}

// NewTaskNotFoundError creates the error for an unknown task id.
func NewTaskNotFoundError() *JSONRPCError {
	return &JSONRPCError{Code: ErrorCodeTaskNotFound, Message: "Task not found"}
}

// NewTaskNotCancelableError creates the error for a cancel request
// against a terminal task.
func NewTaskNotCancelableError() *JSONRPCError {
	return &JSONRPCError{Code: ErrorCodeTaskNotCancelable, Message: "Task cannot be canceled"}
}
