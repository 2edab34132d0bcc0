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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vivalabs/viva/services/cache"
	"github.com/vivalabs/viva/services/llm"
)

// promptCapturingLLM records the prompt it was given.
type promptCapturingLLM struct {
	prompt   string
	response string
	err      error
}

func (p *promptCapturingLLM) Generate(ctx context.Context, prompt string, params llm.GenerationParams) (string, error) {
	p.prompt = prompt
	if p.err != nil {
		return "", p.err
	}
	return p.response, nil
}

func (p *promptCapturingLLM) Chat(ctx context.Context, messages []llm.ChatMessage, params llm.GenerationParams) (string, error) {
	return p.Generate(ctx, "", params)
}

func TestFormatConversation(t *testing.T) {
	batch := []cache.Message{
		{Role: "user", Content: "what's the weather?"},
		{Role: "assistant", Content: "Sunny all week."},
	}
	got := FormatConversation(batch)
	assert.Equal(t, "User: what's the weather?\nAssistant: Sunny all week.", got)

	assert.Equal(t, "", FormatConversation(nil))
}

func TestSummarize_SubstitutesTemplate(t *testing.T) {
	model := &promptCapturingLLM{response: "updated summary"}
	s := NewSummarizer(model, "Prev: {current_summary}\nConv:\n{conversation}")

	got, err := s.Summarize(context.Background(), "old summary", []cache.Message{
		{Role: "user", Content: "hello"},
	})
	require.NoError(t, err)
	assert.Equal(t, "updated summary", got)
	assert.Equal(t, "Prev: old summary\nConv:\nUser: hello", model.prompt)
}

func TestSummarize_EmptyPreviousSummaryUsesPlaceholder(t *testing.T) {
	model := &promptCapturingLLM{response: "first summary"}
	s := NewSummarizer(model, "{current_summary}|{conversation}")

	_, err := s.Summarize(context.Background(), "", []cache.Message{
		{Role: "user", Content: "hi"},
	})
	require.NoError(t, err)
	assert.Equal(t, "(none yet)|User: hi", model.prompt)
}

func TestSummarize_FailureReturnsPreviousSummary(t *testing.T) {
	model := &promptCapturingLLM{err: errors.New("timeout")}
	s := NewSummarizer(model, "{current_summary}{conversation}")

	got, err := s.Summarize(context.Background(), "keep me", []cache.Message{
		{Role: "user", Content: "hi"},
	})
	assert.ErrorIs(t, err, ErrSummarizationFailed)
	assert.Equal(t, "keep me", got, "caller must be able to keep serving with the stale summary")
}

func TestSummarize_EmptyModelOutputIsFailure(t *testing.T) {
	model := &promptCapturingLLM{response: "   \n"}
	s := NewSummarizer(model, "{current_summary}{conversation}")

	got, err := s.Summarize(context.Background(), "keep me", []cache.Message{
		{Role: "user", Content: "hi"},
	})
	assert.ErrorIs(t, err, ErrSummarizationFailed)
	assert.Equal(t, "keep me", got)
}

func TestSummarize_EmptyBatchIsNoOp(t *testing.T) {
	model := &promptCapturingLLM{response: "should not be called"}
	s := NewSummarizer(model, "{current_summary}{conversation}")

	got, err := s.Summarize(context.Background(), "unchanged", nil)
	require.NoError(t, err)
	assert.Equal(t, "unchanged", got)
	assert.Empty(t, model.prompt)
}
