// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestProvider(t *testing.T) *JWTProvider {
	t.Helper()
	p, err := NewJWTProvider(JWTConfig{Secret: testSecret, Issuer: "journai-test", TTL: time.Hour})
	require.NoError(t, err)
	return p
}

func TestIssueAndValidate(t *testing.T) {
	p := newTestProvider(t)

	token, err := p.Issue("acct-1", "alex")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(token, "."))

	info, err := p.Validate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "acct-1", info.UserID)
	assert.Equal(t, "alex", info.Username)
}

func TestValidate_Expired(t *testing.T) {
	p := newTestProvider(t)
	issuedAt := time.Now().Add(-2 * time.Hour)
	p.now = func() time.Time { return issuedAt }
	token, err := p.Issue("acct-1", "alex")
	require.NoError(t, err)

	p.now = time.Now
	_, err = p.Validate(context.Background(), token)
	assert.ErrorIs(t, err, ErrExpiredToken)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestValidate_WrongSecret(t *testing.T) {
	token, err := newTestProvider(t).Issue("acct-1", "alex")
	require.NoError(t, err)

	other, err := NewJWTProvider(JWTConfig{Secret: strings.Repeat("z", 32), Issuer: "journai-test"})
	require.NoError(t, err)
	_, err = other.Validate(context.Background(), token)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestValidate_WrongIssuer(t *testing.T) {
	token, err := newTestProvider(t).Issue("acct-1", "alex")
	require.NoError(t, err)

	other, err := NewJWTProvider(JWTConfig{Secret: testSecret, Issuer: "someone-else"})
	require.NoError(t, err)
	_, err = other.Validate(context.Background(), token)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestValidate_RejectsNoneAlgorithm(t *testing.T) {
	p := newTestProvider(t)
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "acct-1",
		Issuer:    "journai-test",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = p.Validate(context.Background(), token)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestValidate_Garbage(t *testing.T) {
	p := newTestProvider(t)
	for _, token := range []string{"", "not-a-token", "a.b.c"} {
		_, err := p.Validate(context.Background(), token)
		assert.ErrorIs(t, err, ErrUnauthorized, token)
	}
}

func TestNewJWTProvider_ShortSecret(t *testing.T) {
	_, err := NewJWTProvider(JWTConfig{Secret: "short"})
	assert.Error(t, err)
}

func TestNewJWTProvider_RandomKey(t *testing.T) {
	p, err := NewJWTProvider(JWTConfig{})
	require.NoError(t, err)

	token, err := p.Issue("acct-1", "alex")
	require.NoError(t, err)
	info, err := p.Validate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "acct-1", info.UserID)
}

func TestIssue_RequiresUserID(t *testing.T) {
	_, err := newTestProvider(t).Issue("", "alex")
	assert.Error(t, err)
}
