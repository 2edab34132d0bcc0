// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package routes wires the orchestrator's HTTP surface.
package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vivalabs/viva/pkg/auth"
	"github.com/vivalabs/viva/services/orchestrator/coordinator"
	"github.com/vivalabs/viva/services/orchestrator/handlers"
	"github.com/vivalabs/viva/services/orchestrator/middleware"
	"github.com/vivalabs/viva/services/orchestrator/services"
)

// Deps carries everything the route tree needs.
type Deps struct {
	Coordinator *coordinator.Coordinator
	Chat        *services.ChatService
	Issuer      *auth.TokenIssuer
	Healthcheck gin.HandlerFunc
}

// SetupRoutes registers the full route tree on the router.
//
// Layout:
//
//	GET  /health                          liveness (public)
//	GET  /metrics                         Prometheus (public)
//	POST /v1/chat                         one chat turn
//	GET  /v1/sessions/:id/history         durable transcript
//	GET  /v1/sessions/:id/context         summary + hot window
//	POST /v1/sessions/:id/messages        record without generating
//	DELETE /v1/sessions/:id               delete everywhere
func SetupRoutes(router *gin.Engine, deps Deps) {
	if deps.Healthcheck != nil {
		router.GET("/health", deps.Healthcheck)
	} else {
		router.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "healthy"})
		})
	}
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	chatHandler := handlers.NewChatHandler(deps.Chat)
	sessionHandler := handlers.NewSessionHandler(deps.Coordinator)

	v1 := router.Group("/v1")
	v1.Use(middleware.AuthMiddleware(deps.Issuer))
	{
		v1.POST("/chat", chatHandler.HandleChat)
		v1.GET("/sessions/:sessionId/history", sessionHandler.HandleHistory)
		v1.GET("/sessions/:sessionId/context", sessionHandler.HandleContext)
		v1.POST("/sessions/:sessionId/messages", sessionHandler.HandleRecordMessage)
		v1.DELETE("/sessions/:sessionId", sessionHandler.HandleDeleteSession)
	}
}
