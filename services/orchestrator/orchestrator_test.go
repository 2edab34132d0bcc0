// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyConfigDefaults(t *testing.T) {
	cfg := applyConfigDefaults(Config{})
	assert.Equal(t, 12210, cfg.Port)
	assert.Equal(t, "viva-otel-collector:4317", cfg.OTelEndpoint)
	assert.False(t, cfg.EnableMetrics)

	cfg = applyConfigDefaults(Config{Port: 9000, OTelEndpoint: "collector:4317", EnableMetrics: true})
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "collector:4317", cfg.OTelEndpoint)
	assert.True(t, cfg.EnableMetrics, "caller's metrics choice is preserved")
}
