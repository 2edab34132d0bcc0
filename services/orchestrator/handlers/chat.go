// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers contains the orchestrator's HTTP handlers.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vivalabs/viva/services/orchestrator/coordinator"
	"github.com/vivalabs/viva/services/orchestrator/datatypes"
	"github.com/vivalabs/viva/services/orchestrator/middleware"
	"github.com/vivalabs/viva/services/orchestrator/services"
)

// ChatHandler serves the conversational endpoint.
type ChatHandler struct {
	chat *services.ChatService
}

// NewChatHandler builds the chat handler.
func NewChatHandler(chat *services.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

// HandleChat processes one chat turn: record, assemble, generate, record.
func (h *ChatHandler) HandleChat(c *gin.Context) {
	var req datatypes.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := middleware.UserID(c)

	reply, err := h.chat.Chat(c.Request.Context(), req.SessionID, userID, req.Message)
	if err != nil {
		if errors.Is(err, coordinator.ErrPersistenceFailed) {
			slog.Error("Chat turn lost to persistence failure",
				"sessionId", req.SessionID, "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "message could not be persisted"})
			return
		}
		slog.Error("Chat turn failed", "sessionId", req.SessionID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "chat failed"})
		return
	}

	c.JSON(http.StatusOK, datatypes.ChatResponse{
		SessionID: req.SessionID,
		Reply:     reply,
	})
}
