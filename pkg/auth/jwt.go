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
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/awnumar/memguard"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Compile-time interface implementation checks.
var (
	_ AuthProvider = (*JWTProvider)(nil)
	_ TokenIssuer  = (*JWTProvider)(nil)
)

// minSecretBytes is the shortest HS256 secret accepted from configuration.
const minSecretBytes = 32

// Claims are the JWT claims JournAI issues. The subject is the account id.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// JWTConfig configures a JWTProvider.
type JWTConfig struct {
	// Secret is the HS256 signing secret. When empty a random key is
	// generated and tokens do not survive a restart.
	Secret string `yaml:"secret"`

	// Issuer is written to and required in every token.
	Issuer string `yaml:"issuer"`

	// TTL is the token lifetime.
	TTL time.Duration `yaml:"ttl"`
}

// JWTProvider issues and validates HS256 tokens.
//
// # Description
//
// The signing key lives in a memguard Enclave: it is encrypted at rest in
// process memory and only decrypted into a locked buffer for the duration of
// a sign or verify call.
//
// # Thread Safety
//
// Safe for concurrent use.
type JWTProvider struct {
	key    *memguard.Enclave
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTProvider seals the secret and returns a provider.
//
// # Inputs
//
//   - cfg: Secret may be empty (random key). A non-empty secret shorter
//     than 32 bytes is rejected.
//
// # Outputs
//
//   - *JWTProvider: ready to use.
//   - error: Non-nil if the secret is too short.
func NewJWTProvider(cfg JWTConfig) (*JWTProvider, error) {
	if cfg.TTL <= 0 {
		cfg.TTL = 7 * 24 * time.Hour
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "journai"
	}

	var key *memguard.Enclave
	if cfg.Secret == "" {
		slog.Warn("No JWT secret configured; using a random key, tokens will not survive a restart")
		key = memguard.NewEnclaveRandom(minSecretBytes)
	} else {
		if len(cfg.Secret) < minSecretBytes {
			return nil, fmt.Errorf("JWT secret must be at least %d bytes", minSecretBytes)
		}
		// NewEnclave wipes the slice it is given.
		key = memguard.NewEnclave([]byte(cfg.Secret))
	}

	return &JWTProvider{
		key:    key,
		issuer: cfg.Issuer,
		ttl:    cfg.TTL,
		now:    time.Now,
	}, nil
}

// Issue returns a signed token for the account.
func (p *JWTProvider) Issue(userID, username string) (string, error) {
	if userID == "" {
		return "", errors.New("user id is required")
	}
	now := p.now()
	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    p.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
			ID:        uuid.NewString(),
		},
	}

	var signed string
	err := p.withKey(func(key []byte) error {
		var err error
		signed, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies token.
func (p *JWTProvider) Validate(_ context.Context, token string) (*AuthInfo, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}

	var claims Claims
	err := p.withKey(func(key []byte) error {
		_, err := jwt.ParseWithClaims(token, &claims,
			func(*jwt.Token) (interface{}, error) { return key, nil },
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(p.issuer),
			jwt.WithExpirationRequired(),
			jwt.WithTimeFunc(p.now),
		)
		return err
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	case claims.Subject == "":
		return nil, fmt.Errorf("%w: token has no subject", ErrUnauthorized)
	}
	return &AuthInfo{UserID: claims.Subject, Username: claims.Username}, nil
}

// withKey opens the enclave for the duration of fn.
func (p *JWTProvider) withKey(fn func(key []byte) error) error {
	buf, err := p.key.Open()
	if err != nil {
		return fmt.Errorf("open signing key: %w", err)
	}
	defer buf.Destroy()
	return fn(buf.Bytes())
}
