// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package cache

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

func newTestAPI(t *testing.T, messageLimit int) (*gin.Engine, *miniStoreFixture) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, mr := newTestStore(t)
	api := NewAPI(store, messageLimit)

	router := gin.New()
	api.Register(router.Group("/"))
	router.GET("/health", api.HealthCheck)

	return router, &miniStoreFixture{store: store, mr: mr}
}

type miniStoreFixture struct {
	store *RedisStore
	mr    interface{ Close() }
}

func doJSON(t *testing.T, router *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var parsed map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed))
	}
	return w, parsed
}

func TestAPI_AddMessageReportsThreshold(t *testing.T) {
	router, _ := newTestAPI(t, 3)

	for i, wantFlag := range []bool{false, false, true, true} {
		w, resp := doJSON(t, router, http.MethodPost, "/cache/s1/message",
			`{"role":"user","content":"hello"}`)
		require.Equal(t, http.StatusCreated, w.Code, "message %d", i)
		assert.Equal(t, float64(i+1), resp["length"])
		assert.Equal(t, wantFlag, resp["needs_summarization"], "message %d", i)
	}
}

func TestAPI_AddMessageValidation(t *testing.T) {
	router, _ := newTestAPI(t, 10)

	tests := []struct {
		name string
		body string
	}{
		{"missing role", `{"content":"hi"}`},
		{"bad role", `{"role":"system","content":"hi"}`},
		{"missing content", `{"role":"user"}`},
		{"not json", `hello`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w, _ := doJSON(t, router, http.MethodPost, "/cache/s1/message", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestAPI_GetMessagesWithLimit(t *testing.T) {
	router, _ := newTestAPI(t, 10)

	for _, content := range []string{"one", "two", "three"} {
		doJSON(t, router, http.MethodPost, "/cache/s1/message",
			`{"role":"user","content":"`+content+`"}`)
	}

	w, resp := doJSON(t, router, http.MethodGet, "/cache/s1/messages?limit=2", "")
	require.Equal(t, http.StatusOK, w.Code)

	msgs := resp["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "two", msgs[0].(map[string]any)["content"])
	assert.Equal(t, "three", msgs[1].(map[string]any)["content"])

	w, _ = doJSON(t, router, http.MethodGet, "/cache/s1/messages?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAPI_SummaryRoundTrip(t *testing.T) {
	router, _ := newTestAPI(t, 10)

	w, resp := doJSON(t, router, http.MethodGet, "/cache/s1/summary", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, resp["exists"])

	w, _ = doJSON(t, router, http.MethodPost, "/cache/s1/summary",
		`{"summary":"we discussed travel plans"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w, resp = doJSON(t, router, http.MethodGet, "/cache/s1/summary", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp["exists"])
	assert.Equal(t, "we discussed travel plans", resp["summary"])
}

func TestAPI_TrimAndExists(t *testing.T) {
	router, _ := newTestAPI(t, 10)

	for i := 0; i < 5; i++ {
		doJSON(t, router, http.MethodPost, "/cache/s1/message",
			`{"role":"user","content":"m"}`)
	}

	w, resp := doJSON(t, router, http.MethodDelete, "/cache/s1/trim?keep_last=2", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp["trimmed"])

	w, resp = doJSON(t, router, http.MethodGet, "/cache/s1/exists", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp["exists"])
	assert.Equal(t, float64(2), resp["length"])

	w, resp = doJSON(t, router, http.MethodGet, "/cache/s2/exists", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, resp["exists"])
}

func TestAPI_ClearSession(t *testing.T) {
	router, _ := newTestAPI(t, 10)

	doJSON(t, router, http.MethodPost, "/cache/s1/message", `{"role":"user","content":"hi"}`)
	doJSON(t, router, http.MethodPost, "/cache/s1/summary", `{"summary":"brief"}`)

	w, _ := doJSON(t, router, http.MethodDelete, "/cache/s1", "")
	require.Equal(t, http.StatusOK, w.Code)

	_, resp := doJSON(t, router, http.MethodGet, "/cache/s1/exists", "")
	assert.Equal(t, false, resp["exists"])
}

func TestAPI_UnavailableStoreIs503(t *testing.T) {
	router, fx := newTestAPI(t, 10)
	fx.mr.Close()

	w, _ := doJSON(t, router, http.MethodPost, "/cache/s1/message",
		`{"role":"user","content":"hi"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w, _ = doJSON(t, router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
