// Copyright 2025 The OpenClaw A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package auth provides the transport-level authentication used in front
// of the task-exchange dispatcher: a static bearer-token check, plus the
// user abstractions requests are annotated with.
package auth

// User represents an authenticated or unauthenticated caller.
type User interface {
	// IsAuthenticated returns true if the user is authenticated.
	IsAuthenticated() bool

	// UserName returns the username of the user. For unauthenticated
	// users, this returns an empty string.
	UserName() string
}

// UnauthenticatedUser is the null-object User for callers that carry no
// credentials. It is safe to use as a zero value and is immutable.
type UnauthenticatedUser struct{}

var _ User = UnauthenticatedUser{}

// IsAuthenticated always returns false.
func (UnauthenticatedUser) IsAuthenticated() bool { return false }

// UserName always returns an empty string.
func (UnauthenticatedUser) UserName() string { return "" }

// TokenUser is a caller authenticated by a bearer token.
type TokenUser struct {
	Name string
}

var _ User = TokenUser{}

// IsAuthenticated always returns true.
func (TokenUser) IsAuthenticated() bool { return true }

// UserName returns the configured name of the token holder.
func (u TokenUser) UserName() string { return u.Name }
