// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command vectorstore starts the Viva document retrieval service.
//
// The vectorstore service ingests personal documents into Weaviate, splits
// them into overlapping chunks, and serves semantic search for grounding
// chat replies.
//
// # Environment Variables
//
//   - VECTORSTORE_PORT: HTTP server port (default: 12214)
//   - VIVA_CONFIG_PATH: config file path (default: ./config.yaml)
//   - WEAVIATE_SERVICE_URL: Weaviate endpoint (default: http://localhost:8080)
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vivalabs/viva/pkg/config"
	"github.com/vivalabs/viva/services/vectorstore"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	svc, err := vectorstore.NewService(context.Background(), cfg.Weaviate, cfg.Chunking)
	if err != nil {
		log.Fatalf("Failed to connect to Weaviate at %s: %v", cfg.Weaviate.URL, err)
	}

	api := vectorstore.NewAPI(svc)

	router := gin.Default()
	router.GET("/health", api.HealthCheck)
	api.Register(router.Group("/v1"))

	port := getEnvInt("VECTORSTORE_PORT", 12214)
	slog.Info("Starting vectorstore service", "port", port, "weaviate", cfg.Weaviate.URL)
	if err := router.Run(fmt.Sprintf(":%d", port)); err != nil {
		log.Fatalf("Vectorstore service error: %v", err)
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
