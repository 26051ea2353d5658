// Copyright 2025 The OpenClaw A2A Authors
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
)

// Authenticator authenticates an inbound HTTP request before it reaches
// the dispatcher.
type Authenticator interface {
	// Authenticate returns the caller identity, or an error when the
	// request must be rejected.
	Authenticate(r *http.Request) (User, error)
}

// NoopAuthenticator accepts every request as unauthenticated. It is the
// default when no token is configured.
type NoopAuthenticator struct{}

var _ Authenticator = NoopAuthenticator{}

// Authenticate implements [Authenticator].
func (NoopAuthenticator) Authenticate(*http.Request) (User, error) {
	return UnauthenticatedUser{}, nil
}

// BearerTokenAuthenticator checks the Authorization header against a
// single static token using a constant-time comparison.
type BearerTokenAuthenticator struct {
	token []byte
}

var _ Authenticator = (*BearerTokenAuthenticator)(nil)

// NewBearerTokenAuthenticator creates an authenticator for the given token.
func NewBearerTokenAuthenticator(token string) *BearerTokenAuthenticator {
	return &BearerTokenAuthenticator{token: []byte(token)}
}

// Authenticate implements [Authenticator].
func (a *BearerTokenAuthenticator) Authenticate(r *http.Request) (User, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, fmt.Errorf("missing Authorization header")
	}

	scheme, credential, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return nil, fmt.Errorf("Authorization header is not a bearer token")
	}

	if subtle.ConstantTimeCompare([]byte(credential), a.token) != 1 {
		return nil, fmt.Errorf("invalid bearer token")
	}

	return TokenUser{Name: "bearer"}, nil
}
