// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vivalabs/viva/pkg/auth"
)

func newAuthRouter(t *testing.T) (*gin.Engine, *auth.TokenIssuer) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("JWT_SECRET_KEY", "test-secret")

	issuer, err := auth.NewTokenIssuer(time.Minute, time.Hour)
	require.NoError(t, err)

	router := gin.New()
	router.GET("/protected", AuthMiddleware(issuer), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": UserID(c)})
	})
	return router, issuer
}

func get(router *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	router, issuer := newAuthRouter(t)

	token, err := issuer.IssueAccessToken("user-7")
	require.NoError(t, err)

	w := get(router, "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "user-7")
}

func TestAuthMiddleware_CaseInsensitiveScheme(t *testing.T) {
	router, issuer := newAuthRouter(t)

	token, err := issuer.IssueAccessToken("user-7")
	require.NoError(t, err)

	w := get(router, "bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	router, issuer := newAuthRouter(t)

	refresh, err := issuer.IssueRefreshToken("user-7")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic dXNlcjpwYXNz"},
		{"garbage token", "Bearer not-a-jwt"},
		{"refresh token", "Bearer " + refresh},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := get(router, tc.header)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestUserID_UnauthenticatedIsEmpty(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, "", UserID(c))
}
