// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package user

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vivalabs/viva/pkg/auth"
)

// The handlers below are exercised only up to the validation and auth
// boundary; paths that need a live Postgres are covered by integration
// tests outside this package.

func newTestUserAPI(t *testing.T) (*gin.Engine, *auth.TokenIssuer) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("JWT_SECRET_KEY", "test-secret")

	issuer, err := auth.NewTokenIssuer(time.Minute, time.Hour)
	require.NoError(t, err)

	api := NewAPI(&Service{}, issuer)
	router := gin.New()
	api.Register(router.Group("/"))
	return router, issuer
}

func send(t *testing.T, router *gin.Engine, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestUserAPI_RegisterValidation(t *testing.T) {
	router, _ := newTestUserAPI(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing fields", `{}`},
		{"short username", `{"username":"ab","email":"a@b.com","password":"longenough"}`},
		{"bad email", `{"username":"alice","email":"not-an-email","password":"longenough"}`},
		{"short password", `{"username":"alice","email":"a@b.com","password":"short"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := send(t, router, http.MethodPost, "/users/register", tc.body, "")
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestUserAPI_LoginValidation(t *testing.T) {
	router, _ := newTestUserAPI(t)

	w := send(t, router, http.MethodPost, "/users/login", `{"username":"alice"}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUserAPI_RefreshRejectsBadToken(t *testing.T) {
	router, issuer := newTestUserAPI(t)

	w := send(t, router, http.MethodPost, "/users/refresh",
		`{"refresh_token":"garbage"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// An access token must not pass as a refresh token.
	access, err := issuer.IssueAccessToken("u1")
	require.NoError(t, err)
	w = send(t, router, http.MethodPost, "/users/refresh",
		`{"refresh_token":"`+access+`"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUserAPI_ProtectedRoutesRequireToken(t *testing.T) {
	router, _ := newTestUserAPI(t)

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/users/me"},
		{http.MethodGet, "/users/me/sessions"},
		{http.MethodPost, "/users/me/sessions"},
		{http.MethodDelete, "/users/me/sessions/s1"},
	} {
		w := send(t, router, route.method, route.path, `{}`, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", route.method, route.path)

		w = send(t, router, route.method, route.path, `{}`, "bogus-token")
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s with bad token", route.method, route.path)
	}
}

func TestUserAPI_AddSessionValidation(t *testing.T) {
	router, issuer := newTestUserAPI(t)

	access, err := issuer.IssueAccessToken("u1")
	require.NoError(t, err)

	w := send(t, router, http.MethodPost, "/users/me/sessions", `{}`, access)
	assert.Equal(t, http.StatusBadRequest, w.Code, "session_id is required")
}
