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
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// =============================================================================
// HTTP API
// =============================================================================

// addMessageRequest is the POST /cache/:sessionId/message body.
type addMessageRequest struct {
	Role      string `json:"role" binding:"required,oneof=user assistant"`
	Content   string `json:"content" binding:"required"`
	Timestamp int64  `json:"timestamp"` // Unix millis, optional
}

// setSummaryRequest is the POST /cache/:sessionId/summary body.
type setSummaryRequest struct {
	Summary string `json:"summary" binding:"required"`
}

// API exposes the hot-window store over HTTP for the orchestrator and for
// operational tooling. MessageLimit is echoed back on append so callers can
// react to a threshold crossing without a second round-trip.
type API struct {
	store        HotWindowStore
	messageLimit int
}

// NewAPI builds the cache HTTP API.
func NewAPI(store HotWindowStore, messageLimit int) *API {
	return &API{store: store, messageLimit: messageLimit}
}

// Register wires the cache routes onto the given router group.
func (a *API) Register(rg *gin.RouterGroup) {
	rg.POST("/cache/:sessionId/message", a.addMessage)
	rg.GET("/cache/:sessionId/messages", a.getMessages)
	rg.GET("/cache/:sessionId/summary", a.getSummary)
	rg.POST("/cache/:sessionId/summary", a.setSummary)
	rg.DELETE("/cache/:sessionId/trim", a.trim)
	rg.GET("/cache/:sessionId/exists", a.exists)
	rg.DELETE("/cache/:sessionId", a.clear)
}

func (a *API) addMessage(c *gin.Context) {
	sessionID := c.Param("sessionId")

	var req addMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg := Message{Role: req.Role, Content: req.Content}
	if req.Timestamp != 0 {
		msg.Timestamp = time.UnixMilli(req.Timestamp)
	}

	length, err := a.store.Append(c.Request.Context(), sessionID, msg)
	if err != nil {
		a.storeError(c, "add message", sessionID, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":             true,
		"length":              length,
		"needs_summarization": length >= a.messageLimit,
	})
}

func (a *API) getMessages(c *gin.Context) {
	sessionID := c.Param("sessionId")

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	messages, err := a.store.Messages(c.Request.Context(), sessionID, limit)
	if err != nil {
		a.storeError(c, "get messages", sessionID, err)
		return
	}

	out := make([]gin.H, 0, len(messages))
	for _, m := range messages {
		entry := gin.H{"role": m.Role, "content": m.Content}
		if !m.Timestamp.IsZero() {
			entry["timestamp"] = m.Timestamp.UnixMilli()
		}
		out = append(out, entry)
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "messages": out})
}

func (a *API) getSummary(c *gin.Context) {
	sessionID := c.Param("sessionId")

	summary, ok, err := a.store.Summary(c.Request.Context(), sessionID)
	if err != nil {
		a.storeError(c, "get summary", sessionID, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "summary": summary, "exists": ok})
}

func (a *API) setSummary(c *gin.Context) {
	sessionID := c.Param("sessionId")

	var req setSummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := a.store.SetSummary(c.Request.Context(), sessionID, req.Summary); err != nil {
		a.storeError(c, "set summary", sessionID, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (a *API) trim(c *gin.Context) {
	sessionID := c.Param("sessionId")

	keepLast := a.messageLimit
	if raw := c.Query("keep_last"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "keep_last must be a non-negative integer"})
			return
		}
		keepLast = n
	}

	trimmed, err := a.store.TrimToTail(c.Request.Context(), sessionID, keepLast)
	if err != nil {
		a.storeError(c, "trim", sessionID, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "trimmed": trimmed})
}

func (a *API) exists(c *gin.Context) {
	sessionID := c.Param("sessionId")

	length, err := a.store.Length(c.Request.Context(), sessionID)
	if err != nil {
		a.storeError(c, "exists", sessionID, err)
		return
	}
	_, hasSummary, err := a.store.Summary(c.Request.Context(), sessionID)
	if err != nil {
		a.storeError(c, "exists", sessionID, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"exists": length > 0 || hasSummary, "length": length})
}

func (a *API) clear(c *gin.Context) {
	sessionID := c.Param("sessionId")

	if err := a.store.ClearSession(c.Request.Context(), sessionID); err != nil {
		a.storeError(c, "clear", sessionID, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// HealthCheck reports liveness of the backing store.
func (a *API) HealthCheck(c *gin.Context) {
	if err := a.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (a *API) storeError(c *gin.Context, op, sessionID string, err error) {
	if errors.Is(err, ErrCacheUnavailable) {
		slog.Error("Hot window store unavailable", "op", op, "sessionId", sessionID, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "cache unavailable"})
		return
	}
	slog.Error("Cache operation failed", "op", op, "sessionId", sessionID, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "cache operation failed"})
}
