// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llm wraps the model backends behind one small interface so the
// rest of the system never imports a provider SDK directly.
package llm

import "context"

// ChatMessage is one turn of a chat-shaped request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerationParams tunes a single request. Nil fields fall back to the
// backend's defaults.
type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopK        *int     `json:"top_k"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// Client defines the standard interface for any LLM backend.
type Client interface {
	// Generate produces a completion for a single prompt string.
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)

	// Chat produces the assistant's next turn for a message list.
	Chat(ctx context.Context, messages []ChatMessage, params GenerationParams) (string, error)
}
