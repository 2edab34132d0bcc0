// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vivalabs/viva/pkg/auth"
	"github.com/vivalabs/viva/pkg/config"
	"github.com/vivalabs/viva/services/cache"
	"github.com/vivalabs/viva/services/llm"
	"github.com/vivalabs/viva/services/orchestrator/coordinator"
	"github.com/vivalabs/viva/services/orchestrator/services"
	"github.com/vivalabs/viva/services/transcript"
)

type echoLLM struct{}

func (echoLLM) Generate(ctx context.Context, prompt string, params llm.GenerationParams) (string, error) {
	return "summary", nil
}

func (echoLLM) Chat(ctx context.Context, messages []llm.ChatMessage, params llm.GenerationParams) (string, error) {
	return "echo reply", nil
}

func newTestServer(t *testing.T) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("JWT_SECRET_KEY", "test-secret")

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := transcript.NewMemoryStore()
	window := cache.NewRedisStoreFromClient(client)
	summarizer := coordinator.NewSummarizer(echoLLM{}, "{current_summary}{conversation}")
	coord := coordinator.New(store, window, summarizer, coordinator.Config{MessageLimit: 100}, nil)

	chat := services.NewChatService(coord, echoLLM{}, nil,
		config.PromptsConfig{SystemTemplate: "You are {chatbot_name}."},
		config.AssistantConfig{ChatbotName: "Viva"})

	issuer, err := auth.NewTokenIssuer(time.Minute, time.Hour)
	require.NoError(t, err)
	token, err := issuer.IssueAccessToken("u1")
	require.NoError(t, err)

	router := gin.New()
	SetupRoutes(router, Deps{Coordinator: coord, Chat: chat, Issuer: issuer})
	return router, token
}

func call(t *testing.T, router *gin.Engine, method, path, body, token string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var parsed map[string]any
	if w.Body.Len() > 0 && json.Valid(w.Body.Bytes()) {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed))
	}
	return w, parsed
}

func TestRoutes_HealthIsPublic(t *testing.T) {
	router, _ := newTestServer(t)

	w, _ := call(t, router, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRoutes_V1RequiresAuth(t *testing.T) {
	router, _ := newTestServer(t)

	w, _ := call(t, router, http.MethodPost, "/v1/chat",
		`{"session_id":"s1","message":"hi"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRoutes_ChatTurn(t *testing.T) {
	router, token := newTestServer(t)

	w, resp := call(t, router, http.MethodPost, "/v1/chat",
		`{"session_id":"s1","message":"hi"}`, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "echo reply", resp["reply"])
	assert.Equal(t, "s1", resp["session_id"])

	// Both turns landed in the durable history.
	w, resp = call(t, router, http.MethodGet, "/v1/sessions/s1/history", "", token)
	require.Equal(t, http.StatusOK, w.Code)
	msgs := resp["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "assistant", msgs[1].(map[string]any)["role"])
}

func TestRoutes_ChatValidation(t *testing.T) {
	router, token := newTestServer(t)

	w, _ := call(t, router, http.MethodPost, "/v1/chat", `{"message":"hi"}`, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = call(t, router, http.MethodPost, "/v1/chat", `{"session_id":"s1"}`, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRoutes_ContextAndRecord(t *testing.T) {
	router, token := newTestServer(t)

	w, _ := call(t, router, http.MethodPost, "/v1/sessions/s1/messages",
		`{"role":"user","content":"manual entry"}`, token)
	require.Equal(t, http.StatusCreated, w.Code)

	w, resp := call(t, router, http.MethodGet, "/v1/sessions/s1/context", "", token)
	require.Equal(t, http.StatusOK, w.Code)
	msgs := resp["messages"].([]any)
	require.Len(t, msgs, 1)
	assert.Equal(t, "manual entry", msgs[0].(map[string]any)["content"])
}

func TestRoutes_DeleteSession(t *testing.T) {
	router, token := newTestServer(t)

	call(t, router, http.MethodPost, "/v1/sessions/s1/messages",
		`{"role":"user","content":"hello"}`, token)

	w, _ := call(t, router, http.MethodDelete, "/v1/sessions/s1", "", token)
	require.Equal(t, http.StatusOK, w.Code)

	_, resp := call(t, router, http.MethodGet, "/v1/sessions/s1/history", "", token)
	assert.Empty(t, resp["messages"])
}
