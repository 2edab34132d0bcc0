// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command orchestrator starts the Viva conversation orchestrator.
//
// This is the main entry point for the containerized orchestrator service.
// It loads the shared YAML configuration, applies environment overrides,
// and starts the server.
//
// # Environment Variables
//
//   - ORCHESTRATOR_PORT: HTTP server port (default: 12210)
//   - VIVA_CONFIG_PATH: config file path (default: ./config.yaml)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector (default: viva-otel-collector:4317)
//   - TRANSCRIPT_BACKEND: "cassandra" or "memory" (default: cassandra)
//   - ENABLE_METRICS: "false" disables pipeline metric registration (default: true)
//   - JWT_SECRET_KEY: token signing key (required)
//
// # Usage
//
//	# Build
//	go build -o orchestrator ./cmd/orchestrator
//
//	# Run
//	./orchestrator
package main

import (
	"log"
	"log/slog"
	"os"
	"strconv"

	"github.com/vivalabs/viva/pkg/config"
	"github.com/vivalabs/viva/services/orchestrator"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	appCfg, err := config.Load("")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	cfg := orchestrator.Config{
		Port:               getEnvInt("ORCHESTRATOR_PORT", 12210),
		OTelEndpoint:       getEnvString("OTEL_EXPORTER_OTLP_ENDPOINT", "viva-otel-collector:4317"),
		EnableMetrics:      getEnvString("ENABLE_METRICS", "true") != "false",
		InMemoryTranscript: getEnvString("TRANSCRIPT_BACKEND", "cassandra") == "memory",
		GinMode:            os.Getenv("GIN_MODE"),
	}

	slog.Info("Starting orchestrator",
		"port", cfg.Port,
		"message_limit", appCfg.Cache.MessageLimit,
		"chat_model", appCfg.Models.Chat.Name,
	)

	svc, err := orchestrator.New(cfg, appCfg)
	if err != nil {
		log.Fatalf("Failed to create orchestrator: %v", err)
	}

	if err := svc.Run(); err != nil {
		log.Fatalf("Orchestrator error: %v", err)
	}
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
