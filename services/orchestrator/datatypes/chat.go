// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes holds the wire types shared by the orchestrator's
// handlers.
package datatypes

// ChatRequest is the POST /v1/chat body.
type ChatRequest struct {
	SessionID string `json:"session_id" binding:"required,max=128"`
	Message   string `json:"message" binding:"required"`
}

// ChatResponse is the reply envelope for a chat turn.
type ChatResponse struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
}

// MessageView is one transcript entry as returned to clients.
type MessageView struct {
	MessageID string `json:"message_id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// HistoryResponse is the GET /v1/sessions/:id/history envelope.
type HistoryResponse struct {
	SessionID string        `json:"session_id"`
	Messages  []MessageView `json:"messages"`
}

// ContextResponse is the GET /v1/sessions/:id/context envelope: the summary
// plus the hot window that the next prompt would be assembled from.
type ContextResponse struct {
	SessionID string        `json:"session_id"`
	Summary   string        `json:"summary"`
	Messages  []MessageView `json:"messages"`
}

// RecordMessageRequest is the POST /v1/sessions/:id/messages body, for
// clients that write turns without generating a reply.
type RecordMessageRequest struct {
	Role    string `json:"role" binding:"required,oneof=user assistant"`
	Content string `json:"content" binding:"required"`
}
