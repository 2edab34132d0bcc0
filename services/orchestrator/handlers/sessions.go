// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vivalabs/viva/services/orchestrator/coordinator"
	"github.com/vivalabs/viva/services/orchestrator/datatypes"
	"github.com/vivalabs/viva/services/orchestrator/middleware"
	"github.com/vivalabs/viva/services/transcript"
)

// SessionHandler serves session administration: history, context, direct
// message recording, and deletion.
type SessionHandler struct {
	coord *coordinator.Coordinator
}

// NewSessionHandler builds the session handler.
func NewSessionHandler(coord *coordinator.Coordinator) *SessionHandler {
	return &SessionHandler{coord: coord}
}

// HandleHistory returns the durable transcript, oldest first.
func (h *SessionHandler) HandleHistory(c *gin.Context) {
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

	messages, err := h.coord.FullHistory(c.Request.Context(), sessionID, limit)
	if err != nil {
		slog.Error("History read failed", "sessionId", sessionID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read history"})
		return
	}

	c.JSON(http.StatusOK, datatypes.HistoryResponse{
		SessionID: sessionID,
		Messages:  toMessageViews(messages),
	})
}

// HandleContext returns the summary and hot window the next prompt would
// use. An unknown session yields an empty context, not a 404.
func (h *SessionHandler) HandleContext(c *gin.Context) {
	sessionID := c.Param("sessionId")

	summary, window, err := h.coord.ConversationContext(c.Request.Context(), sessionID)
	if err != nil {
		slog.Error("Context read failed", "sessionId", sessionID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read context"})
		return
	}

	views := make([]datatypes.MessageView, 0, len(window))
	for _, m := range window {
		views = append(views, datatypes.MessageView{
			Role:      m.Role,
			Content:   m.Content,
			Timestamp: m.Timestamp.UnixMilli(),
		})
	}
	c.JSON(http.StatusOK, datatypes.ContextResponse{
		SessionID: sessionID,
		Summary:   summary,
		Messages:  views,
	})
}

// HandleRecordMessage writes one turn through the pipeline without
// generating a reply.
func (h *SessionHandler) HandleRecordMessage(c *gin.Context) {
	sessionID := c.Param("sessionId")

	var req datatypes.RecordMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := middleware.UserID(c)

	msg, err := h.coord.RecordMessage(c.Request.Context(), sessionID, userID, req.Role, req.Content)
	if err != nil {
		if errors.Is(err, coordinator.ErrPersistenceFailed) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "message could not be persisted"})
			return
		}
		slog.Error("Message record failed", "sessionId", sessionID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "record failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":    true,
		"message_id": msg.ID.String(),
		"timestamp":  msg.Timestamp.UnixMilli(),
	})
}

// HandleDeleteSession removes the session everywhere.
func (h *SessionHandler) HandleDeleteSession(c *gin.Context) {
	sessionID := c.Param("sessionId")

	if err := h.coord.DeleteSession(c.Request.Context(), sessionID); err != nil {
		slog.Error("Session delete failed", "sessionId", sessionID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func toMessageViews(messages []transcript.Message) []datatypes.MessageView {
	views := make([]datatypes.MessageView, 0, len(messages))
	for _, m := range messages {
		views = append(views, datatypes.MessageView{
			MessageID: m.ID.String(),
			Role:      m.Role,
			Content:   m.Content,
			Timestamp: m.Timestamp.UnixMilli(),
		})
	}
	return views
}
