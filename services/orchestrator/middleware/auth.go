// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package middleware provides HTTP middleware for the orchestrator service.
//
// # Authentication Flow
//
// The auth middleware extracts a bearer token from the Authorization header,
// verifies it as an access token, and stores the subject user id in the Gin
// context for downstream handlers.
//
//	Request
//	   │
//	   ▼
//	AuthMiddleware
//	   │
//	   ├─► Extract token from "Authorization: Bearer <token>"
//	   │
//	   ├─► issuer.VerifyAccessToken(token)
//	   │
//	   └─► Store user id in context
//	           │
//	           ▼
//	       Handler (retrieves via UserID)
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vivalabs/viva/pkg/auth"
)

// userIDKey is the context key for the authenticated user id.
// Using a typed key prevents collisions with other context values.
const userIDKey = "viva_user_id"

// UserID retrieves the authenticated user id from the Gin context. Returns
// empty string when the request was not authenticated.
func UserID(c *gin.Context) string {
	if v, exists := c.Get(userIDKey); exists {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// AuthMiddleware returns a Gin middleware that requires a valid access
// token and stores its subject for handlers.
func AuthMiddleware(issuer *auth.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		userID, err := issuer.VerifyAccessToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

// extractBearerToken parses the Authorization header expecting the format
// "Bearer <token>". Returns empty string if the header is missing or
// malformed. The "Bearer" prefix is case-insensitive per RFC 7235.
func extractBearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
