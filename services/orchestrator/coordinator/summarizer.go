// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vivalabs/viva/services/cache"
	"github.com/vivalabs/viva/services/llm"
)

// Summarizer folds a batch of messages into a running conversation summary
// using a dedicated model. It is deliberately conservative: on any failure
// it hands back the previous summary untouched together with the error, so
// the caller can keep serving with stale context and skip destructive steps.
type Summarizer struct {
	client   llm.Client
	template string
}

// NewSummarizer builds a summarizer around the given backend. The template
// must contain the {current_summary} and {conversation} placeholders.
func NewSummarizer(client llm.Client, template string) *Summarizer {
	return &Summarizer{client: client, template: template}
}

// Summarize returns the updated summary covering previousSummary plus the
// batch. On failure it returns previousSummary and a non-nil error wrapping
// ErrSummarizationFailed.
func (s *Summarizer) Summarize(ctx context.Context, previousSummary string, batch []cache.Message) (string, error) {
	if len(batch) == 0 {
		return previousSummary, nil
	}

	prompt := s.buildPrompt(previousSummary, batch)

	updated, err := s.client.Generate(ctx, prompt, llm.GenerationParams{})
	if err != nil {
		slog.Error("Summary generation failed", "error", err)
		return previousSummary, fmt.Errorf("%w: %v", ErrSummarizationFailed, err)
	}

	updated = strings.TrimSpace(updated)
	if updated == "" {
		slog.Warn("Summary model returned empty output")
		return previousSummary, fmt.Errorf("%w: model returned empty summary", ErrSummarizationFailed)
	}
	return updated, nil
}

func (s *Summarizer) buildPrompt(previousSummary string, batch []cache.Message) string {
	if previousSummary == "" {
		previousSummary = "(none yet)"
	}
	prompt := strings.ReplaceAll(s.template, "{current_summary}", previousSummary)
	return strings.ReplaceAll(prompt, "{conversation}", FormatConversation(batch))
}

// FormatConversation renders messages as "Role: content" lines, one per
// message, with the role capitalized.
func FormatConversation(messages []cache.Message) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		lines = append(lines, fmt.Sprintf("%s: %s", capitalize(m.Role), m.Content))
	}
	return strings.Join(lines, "\n")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
