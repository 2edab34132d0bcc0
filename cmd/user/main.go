// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command user starts the Viva user directory service.
//
// The user service handles registration, login, JWT issuance and refresh,
// and per-user session bookkeeping on top of Postgres.
//
// # Environment Variables
//
//   - USER_PORT: HTTP server port (default: 12213)
//   - VIVA_CONFIG_PATH: config file path (default: ./config.yaml)
//   - POSTGRES_HOST / POSTGRES_USER / POSTGRES_DB / POSTGRES_PASSWORD
//   - JWT_SECRET_KEY: token signing key (required)
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vivalabs/viva/pkg/auth"
	"github.com/vivalabs/viva/pkg/config"
	"github.com/vivalabs/viva/services/user"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	svc, err := user.NewService(context.Background(), cfg.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres at %s: %v", cfg.Postgres.Host, err)
	}
	defer svc.Close()

	issuer, err := auth.NewTokenIssuer(cfg.JWT.AccessTokenLifetime, cfg.JWT.RefreshTokenLifetime)
	if err != nil {
		log.Fatalf("Failed to create token issuer: %v", err)
	}

	api := user.NewAPI(svc, issuer)

	router := gin.Default()
	router.GET("/health", api.HealthCheck)
	api.Register(router.Group("/v1"))

	port := getEnvInt("USER_PORT", 12213)
	slog.Info("Starting user service", "port", port)
	if err := router.Run(fmt.Sprintf(":%d", port)); err != nil {
		log.Fatalf("User service error: %v", err)
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
