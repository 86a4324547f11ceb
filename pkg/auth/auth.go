// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package auth defines how JournAI identifies the caller of a request.
//
// # Description
//
// AuthProvider turns a bearer token into an AuthInfo. TokenIssuer mints the
// tokens handed out at login. JWTProvider implements both with HS256 tokens
// whose signing key is held in a memguard enclave.
//
// # Thread Safety
//
// All implementations must be safe for concurrent use.
package auth

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when a token is missing or invalid.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrExpiredToken is returned for a well-formed token past its expiry.
	// It wraps ErrUnauthorized.
	ErrExpiredToken = fmt.Errorf("%w: token has expired", ErrUnauthorized)
)

// AuthInfo is the identity attached to an authenticated request.
type AuthInfo struct {
	// UserID is the account id. Never empty.
	UserID string

	// Username is the login name at the time the token was issued.
	Username string
}

// AuthProvider validates bearer tokens.
type AuthProvider interface {
	// Validate checks the token and returns the caller's identity.
	//
	// Returns ErrUnauthorized (or an error wrapping it) for a bad token.
	Validate(ctx context.Context, token string) (*AuthInfo, error)
}

// TokenIssuer mints tokens for authenticated accounts.
type TokenIssuer interface {
	Issue(userID, username string) (string, error)
}
