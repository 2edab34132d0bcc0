// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package services contains the orchestrator's business logic, sitting
// between the HTTP handlers and the storage/model layers.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/vivalabs/viva/pkg/config"
	"github.com/vivalabs/viva/services/cache"
	"github.com/vivalabs/viva/services/llm"
	"github.com/vivalabs/viva/services/orchestrator/coordinator"
	"github.com/vivalabs/viva/services/vectorstore"
)

var tracer = otel.Tracer("viva.orchestrator.chat")

// Retriever fetches grounding chunks for a query. Optional; a nil retriever
// disables document grounding.
type Retriever interface {
	Search(ctx context.Context, query string, limit int) ([]vectorstore.Chunk, error)
}

// ChatService assembles prompts from the conversation context and produces
// assistant turns.
type ChatService struct {
	coord     *coordinator.Coordinator
	client    llm.Client
	retriever Retriever
	prompts   config.PromptsConfig
	assistant config.AssistantConfig
}

// NewChatService builds the chat pipeline. retriever may be nil.
func NewChatService(coord *coordinator.Coordinator, client llm.Client, retriever Retriever,
	prompts config.PromptsConfig, assistant config.AssistantConfig) *ChatService {
	return &ChatService{
		coord:     coord,
		client:    client,
		retriever: retriever,
		prompts:   prompts,
		assistant: assistant,
	}
}

// Chat records the user message, assembles the prompt from the running
// summary plus the hot window, generates the reply, and records it.
//
// # Inputs
//
//   - ctx: request context; durable writes are internally shielded from its
//     cancellation.
//   - sessionID, userID: conversation identity.
//   - userMessage: the user's new turn.
//
// # Outputs
//
//   - string: the assistant's reply
//   - error: ErrPersistenceFailed when the transcript write failed, or the
//     model error when generation failed
func (s *ChatService) Chat(ctx context.Context, sessionID, userID, userMessage string) (string, error) {
	ctx, span := tracer.Start(ctx, "ChatService.Chat")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", sessionID))

	if _, err := s.coord.RecordMessage(ctx, sessionID, userID, "user", userMessage); err != nil {
		return "", err
	}

	summary, window, err := s.coord.ConversationContext(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("assemble context: %w", err)
	}

	messages := s.buildMessages(ctx, summary, window, userMessage)

	reply, err := s.client.Chat(ctx, messages, llm.GenerationParams{})
	if err != nil {
		slog.Error("Chat generation failed", "sessionId", sessionID, "error", err)
		return "", fmt.Errorf("generate reply: %w", err)
	}
	reply = strings.TrimSpace(reply)

	if _, err := s.coord.RecordMessage(ctx, sessionID, userID, "assistant", reply); err != nil {
		// The reply was generated but could not be persisted. Surfacing the
		// error keeps the durable transcript authoritative.
		return "", err
	}
	return reply, nil
}

// buildMessages renders the system prompt and the window into a chat-shaped
// request. The window already contains the new user message; when the hot
// window was unavailable the user message is appended explicitly so the
// model always sees it.
func (s *ChatService) buildMessages(ctx context.Context, summary string, window []cache.Message, userMessage string) []llm.ChatMessage {
	system := strings.ReplaceAll(s.prompts.SystemTemplate, "{chatbot_name}", s.assistant.ChatbotName)
	system = strings.ReplaceAll(system, "{person_name}", s.assistant.PersonName)

	var sb strings.Builder
	sb.WriteString(system)
	if summary != "" {
		sb.WriteString("\n\nConversation summary so far:\n")
		sb.WriteString(summary)
	}
	if s.retriever != nil {
		chunks, err := s.retriever.Search(ctx, userMessage, 0)
		if err != nil {
			slog.Warn("Document retrieval failed, answering without grounding", "error", err)
		} else if len(chunks) > 0 {
			sb.WriteString("\n\nRelevant documents:\n")
			for _, chunk := range chunks {
				sb.WriteString(fmt.Sprintf("[%s#%d] %s\n", chunk.Source, chunk.ChunkIndex, chunk.Content))
			}
		}
	}

	messages := []llm.ChatMessage{{Role: "system", Content: sb.String()}}
	sawUserMessage := false
	for _, m := range window {
		messages = append(messages, llm.ChatMessage{Role: m.Role, Content: m.Content})
		if m.Role == "user" && m.Content == userMessage {
			sawUserMessage = true
		}
	}
	if !sawUserMessage {
		messages = append(messages, llm.ChatMessage{Role: "user", Content: userMessage})
	}
	return messages
}
