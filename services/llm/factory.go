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
	"fmt"
	"strings"

	"github.com/vivalabs/viva/pkg/config"
)

// NewClient builds a backend from a model config. Chat and summarization
// can run on different backends; callers construct one client per role.
func NewClient(mc config.ModelConfig) (Client, error) {
	switch strings.ToLower(mc.Provider) {
	case "openai":
		return NewOpenAIClient(mc.Name)
	case "ollama", "":
		return NewOllamaClient(mc.Name)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", mc.Provider)
	}
}
