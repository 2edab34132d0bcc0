// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package auth provides JWT issuance/verification and password hashing for
// the user directory and the per-service auth middleware.
//
// Tokens carry the user id in the standard "sub" claim plus a "type" claim
// ("access" or "refresh"). Verification rejects tokens of the wrong type, so
// a refresh token can never be used to call an API. The signing key is
// symmetric (HS256) and shared by all services via JWT_SECRET_KEY.
package auth

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token type claims.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// ErrUnauthorized is returned for any token that fails validation: bad
// signature, expired, wrong type, or missing subject. Callers should not
// distinguish further; the reason is logged server-side only.
var ErrUnauthorized = errors.New("unauthorized")

// Claims is the JWT payload used by all Viva services.
type Claims struct {
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies the service-wide JWTs.
type TokenIssuer struct {
	secret          []byte
	accessLifetime  time.Duration
	refreshLifetime time.Duration
}

// NewTokenIssuer builds a TokenIssuer with the given lifetimes. The signing
// secret is read from JWT_SECRET_KEY.
func NewTokenIssuer(accessLifetime, refreshLifetime time.Duration) (*TokenIssuer, error) {
	secret := os.Getenv("JWT_SECRET_KEY")
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable not set")
	}
	return &TokenIssuer{
		secret:          []byte(secret),
		accessLifetime:  accessLifetime,
		refreshLifetime: refreshLifetime,
	}, nil
}

// IssueAccessToken returns a signed access token for userID.
func (t *TokenIssuer) IssueAccessToken(userID string) (string, error) {
	return t.issue(userID, TokenTypeAccess, t.accessLifetime)
}

// IssueRefreshToken returns a signed refresh token for userID.
func (t *TokenIssuer) IssueRefreshToken(userID string) (string, error) {
	return t.issue(userID, TokenTypeRefresh, t.refreshLifetime)
}

func (t *TokenIssuer) issue(userID, tokenType string, lifetime time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", tokenType, err)
	}
	return signed, nil
}

// VerifyAccessToken validates an access token and returns the user id.
//
// Any failure — malformed token, bad signature, expiry, refresh token where
// an access token is required — yields ErrUnauthorized.
func (t *TokenIssuer) VerifyAccessToken(tokenString string) (string, error) {
	return t.verify(tokenString, TokenTypeAccess)
}

// VerifyRefreshToken validates a refresh token and returns the user id.
func (t *TokenIssuer) VerifyRefreshToken(tokenString string) (string, error) {
	return t.verify(tokenString, TokenTypeRefresh)
}

func (t *TokenIssuer) verify(tokenString, wantType string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrUnauthorized
	}
	if claims.TokenType != wantType || claims.Subject == "" {
		return "", ErrUnauthorized
	}
	return claims.Subject, nil
}
