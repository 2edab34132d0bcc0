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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIssuer(t *testing.T, accessLifetime time.Duration) *TokenIssuer {
	t.Helper()
	t.Setenv("JWT_SECRET_KEY", "test-secret-key")
	issuer, err := NewTokenIssuer(accessLifetime, 24*time.Hour)
	require.NoError(t, err)
	return issuer
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := newTestIssuer(t, time.Minute)

	token, err := issuer.IssueAccessToken("user-42")
	require.NoError(t, err)

	userID, err := issuer.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", userID)
}

func TestTokenIssuer_RejectsWrongType(t *testing.T) {
	issuer := newTestIssuer(t, time.Minute)

	refresh, err := issuer.IssueRefreshToken("user-42")
	require.NoError(t, err)

	_, err = issuer.VerifyAccessToken(refresh)
	assert.ErrorIs(t, err, ErrUnauthorized, "refresh token must not pass as access token")

	userID, err := issuer.VerifyRefreshToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, "user-42", userID)
}

func TestTokenIssuer_RejectsExpired(t *testing.T) {
	issuer := newTestIssuer(t, -time.Minute)

	token, err := issuer.IssueAccessToken("user-42")
	require.NoError(t, err)

	_, err = issuer.VerifyAccessToken(token)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestTokenIssuer_RejectsGarbage(t *testing.T) {
	issuer := newTestIssuer(t, time.Minute)

	for _, tok := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := issuer.VerifyAccessToken(tok)
		assert.ErrorIs(t, err, ErrUnauthorized, "token %q", tok)
	}
}

func TestNewTokenIssuer_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "")
	_, err := NewTokenIssuer(time.Minute, time.Hour)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", hash)

	assert.True(t, CheckPassword(hash, "hunter2"))
	assert.False(t, CheckPassword(hash, "hunter3"))
	assert.False(t, CheckPassword("", "hunter2"))
}
