// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command cache starts the Viva hot-window cache service.
//
// The cache service exposes the Redis-backed conversation window over HTTP
// so it can be scaled and probed independently of the orchestrator.
//
// # Environment Variables
//
//   - CACHE_PORT: HTTP server port (default: 12211)
//   - VIVA_CONFIG_PATH: config file path (default: ./config.yaml)
//   - REDIS_HOST / REDIS_PORT: hot-window store address
//   - CACHE_MESSAGE_LIMIT: threshold echoed on append (default: 10)
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
	"github.com/vivalabs/viva/services/cache"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	store, err := cache.NewRedisStore(context.Background(), cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis at %s: %v", cfg.Redis.Addr(), err)
	}
	defer store.Close()

	api := cache.NewAPI(store, cfg.Cache.MessageLimit)

	router := gin.Default()
	router.GET("/health", api.HealthCheck)
	api.Register(router.Group("/v1"))

	port := getEnvInt("CACHE_PORT", 12211)
	slog.Info("Starting cache service", "port", port, "redis", cfg.Redis.Addr())
	if err := router.Run(fmt.Sprintf(":%d", port)); err != nil {
		log.Fatalf("Cache service error: %v", err)
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
