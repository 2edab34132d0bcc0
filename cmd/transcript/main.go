// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command transcript starts the Viva durable transcript service.
//
// The transcript service exposes the Cassandra-backed conversation record
// over HTTP. It is the ground truth for every message the system accepts.
//
// # Environment Variables
//
//   - TRANSCRIPT_PORT: HTTP server port (default: 12212)
//   - VIVA_CONFIG_PATH: config file path (default: ./config.yaml)
//   - TRANSCRIPT_BACKEND: "cassandra" or "memory" (default: cassandra)
//   - CASSANDRA_HOST / CASSANDRA_KEYSPACE: durable store settings
package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vivalabs/viva/pkg/config"
	"github.com/vivalabs/viva/services/transcript"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	var store transcript.Store
	if os.Getenv("TRANSCRIPT_BACKEND") == "memory" {
		slog.Warn("Using in-memory transcript store; messages will not survive restarts")
		store = transcript.NewMemoryStore()
	} else {
		cs, err := transcript.NewCassandraStore(cfg.Cassandra)
		if err != nil {
			log.Fatalf("Failed to connect to Cassandra at %s: %v", cfg.Cassandra.Host, err)
		}
		defer cs.Close()
		store = cs
	}

	api := transcript.NewAPI(store)

	router := gin.Default()
	router.GET("/health", api.HealthCheck)
	api.Register(router.Group("/v1"))

	port := getEnvInt("TRANSCRIPT_PORT", 12212)
	slog.Info("Starting transcript service", "port", port, "keyspace", cfg.Cassandra.Keyspace)
	if err := router.Run(fmt.Sprintf(":%d", port)); err != nil {
		log.Fatalf("Transcript service error: %v", err)
	}
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
