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
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// =============================================================================
// HTTP API
// =============================================================================

type appendMessageRequest struct {
	UserID  string `json:"user_id" binding:"required"`
	Role    string `json:"role" binding:"required,oneof=user assistant"`
	Content string `json:"content" binding:"required"`
}

type upsertSummaryRequest struct {
	UserID       string `json:"user_id" binding:"required"`
	Summary      string `json:"summary" binding:"required"`
	MessageCount int    `json:"message_count" binding:"gte=0"`
}

// API exposes the durable transcript store over HTTP.
type API struct {
	store Store
}

// NewAPI builds the transcript HTTP API.
func NewAPI(store Store) *API {
	return &API{store: store}
}

// Register wires the transcript routes onto the given router group.
func (a *API) Register(rg *gin.RouterGroup) {
	rg.POST("/transcript/:sessionId/message", a.appendMessage)
	rg.GET("/transcript/:sessionId/messages", a.getMessages)
	rg.GET("/transcript/:sessionId/count", a.getCount)
	rg.GET("/transcript/:sessionId/summary", a.getSummary)
	rg.PUT("/transcript/:sessionId/summary", a.upsertSummary)
	rg.DELETE("/transcript/:sessionId", a.deleteSession)
}

func (a *API) appendMessage(c *gin.Context) {
	sessionID := c.Param("sessionId")

	var req appendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := a.store.AppendMessage(c.Request.Context(), sessionID, req.UserID, req.Role, req.Content)
	if err != nil {
		slog.Error("Transcript append failed", "sessionId", sessionID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist message"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":    true,
		"message_id": msg.ID.String(),
		"timestamp":  msg.Timestamp.UnixMilli(),
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
		slog.Error("Transcript read failed", "sessionId", sessionID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read transcript"})
		return
	}

	out := make([]gin.H, 0, len(messages))
	for _, m := range messages {
		out = append(out, gin.H{
			"message_id": m.ID.String(),
			"role":       m.Role,
			"content":    m.Content,
			"timestamp":  m.Timestamp.UnixMilli(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "messages": out})
}

func (a *API) getCount(c *gin.Context) {
	sessionID := c.Param("sessionId")

	count, err := a.store.MessageCount(c.Request.Context(), sessionID)
	if err != nil {
		slog.Error("Transcript count failed", "sessionId", sessionID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": count})
}

func (a *API) getSummary(c *gin.Context) {
	sessionID := c.Param("sessionId")

	rec, ok, err := a.store.Summary(c.Request.Context(), sessionID)
	if err != nil {
		slog.Error("Summary read failed", "sessionId", sessionID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read summary"})
		return
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{"success": true, "exists": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"exists":        true,
		"summary":       rec.Summary,
		"user_id":       rec.UserID,
		"last_updated":  rec.LastUpdated.UnixMilli(),
		"message_count": rec.MessageCount,
	})
}

func (a *API) upsertSummary(c *gin.Context) {
	sessionID := c.Param("sessionId")

	var req upsertSummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec := SummaryRecord{
		SessionID:    sessionID,
		UserID:       req.UserID,
		Summary:      req.Summary,
		LastUpdated:  time.Now(),
		MessageCount: req.MessageCount,
	}
	if err := a.store.UpsertSummary(c.Request.Context(), rec); err != nil {
		slog.Error("Summary upsert failed", "sessionId", sessionID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to write summary"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (a *API) deleteSession(c *gin.Context) {
	sessionID := c.Param("sessionId")

	if err := a.store.DeleteSession(c.Request.Context(), sessionID); err != nil {
		slog.Error("Session delete failed", "sessionId", sessionID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete session"})
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
