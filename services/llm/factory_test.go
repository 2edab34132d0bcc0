// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vivalabs/viva/pkg/config"
)

func TestNewClient_ProviderMapping(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("OLLAMA_BASE_URL", "http://localhost:11434")

	tests := []struct {
		name     string
		provider string
		want     any
	}{
		{"openai", "openai", &OpenAIClient{}},
		{"openai mixed case", "OpenAI", &OpenAIClient{}},
		{"ollama", "ollama", &OllamaClient{}},
		{"empty defaults to ollama", "", &OllamaClient{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client, err := NewClient(config.ModelConfig{Provider: tc.provider, Name: "m"})
			require.NoError(t, err)
			assert.IsType(t, tc.want, client)
		})
	}
}

func TestNewClient_UnknownProvider(t *testing.T) {
	_, err := NewClient(config.ModelConfig{Provider: "mainframe", Name: "m"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mainframe")
}
