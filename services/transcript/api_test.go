// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package transcript

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*gin.Engine, *MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := NewMemoryStore()
	api := NewAPI(store)

	router := gin.New()
	api.Register(router.Group("/"))
	router.GET("/health", api.HealthCheck)
	return router, store
}

func do(t *testing.T, router *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var parsed map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed))
	}
	return w, parsed
}

func TestTranscriptAPI_AppendAndRead(t *testing.T) {
	router, _ := newTestRouter(t)

	w, resp := do(t, router, http.MethodPost, "/transcript/s1/message",
		`{"user_id":"u1","role":"user","content":"hello"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotEmpty(t, resp["message_id"])

	do(t, router, http.MethodPost, "/transcript/s1/message",
		`{"user_id":"u1","role":"assistant","content":"hi there"}`)

	w, resp = do(t, router, http.MethodGet, "/transcript/s1/messages", "")
	require.Equal(t, http.StatusOK, w.Code)
	msgs := resp["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hello", msgs[0].(map[string]any)["content"])
	assert.Equal(t, "hi there", msgs[1].(map[string]any)["content"])
}

func TestTranscriptAPI_Count(t *testing.T) {
	router, _ := newTestRouter(t)

	w, resp := do(t, router, http.MethodGet, "/transcript/s1/count", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), resp["count"])

	do(t, router, http.MethodPost, "/transcript/s1/message",
		`{"user_id":"u1","role":"user","content":"hello"}`)

	w, resp = do(t, router, http.MethodGet, "/transcript/s1/count", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), resp["count"])
}

func TestTranscriptAPI_AppendValidation(t *testing.T) {
	router, _ := newTestRouter(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing user", `{"role":"user","content":"hi"}`},
		{"bad role", `{"user_id":"u1","role":"tool","content":"hi"}`},
		{"missing content", `{"user_id":"u1","role":"user"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w, _ := do(t, router, http.MethodPost, "/transcript/s1/message", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestTranscriptAPI_SummaryLifecycle(t *testing.T) {
	router, _ := newTestRouter(t)

	w, resp := do(t, router, http.MethodGet, "/transcript/s1/summary", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, resp["exists"])

	w, _ = do(t, router, http.MethodPut, "/transcript/s1/summary",
		`{"user_id":"u1","summary":"talked about gardens","message_count":8}`)
	require.Equal(t, http.StatusOK, w.Code)

	w, resp = do(t, router, http.MethodGet, "/transcript/s1/summary", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp["exists"])
	assert.Equal(t, "talked about gardens", resp["summary"])
	assert.Equal(t, float64(8), resp["message_count"])
}

func TestTranscriptAPI_DeleteSession(t *testing.T) {
	router, _ := newTestRouter(t)

	do(t, router, http.MethodPost, "/transcript/s1/message",
		`{"user_id":"u1","role":"user","content":"hello"}`)
	do(t, router, http.MethodPut, "/transcript/s1/summary",
		`{"user_id":"u1","summary":"brief","message_count":1}`)

	w, _ := do(t, router, http.MethodDelete, "/transcript/s1", "")
	require.Equal(t, http.StatusOK, w.Code)

	_, resp := do(t, router, http.MethodGet, "/transcript/s1/messages", "")
	assert.Empty(t, resp["messages"])

	_, resp = do(t, router, http.MethodGet, "/transcript/s1/summary", "")
	assert.Equal(t, false, resp["exists"])
}

func TestTranscriptAPI_Health(t *testing.T) {
	router, _ := newTestRouter(t)

	w, resp := do(t, router, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", resp["status"])
}
