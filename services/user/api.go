// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package user

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vivalabs/viva/pkg/auth"
)

// =============================================================================
// HTTP API
// =============================================================================

type registerRequest struct {
	Username string `json:"username" binding:"required,min=3,max=64"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type addSessionRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Title     string `json:"title"`
}

// API exposes account and session-index operations. Register, login, and
// refresh are public; everything else requires a verified access token and
// operates on the token's subject.
type API struct {
	svc    *Service
	issuer *auth.TokenIssuer
}

// NewAPI builds the user HTTP API.
func NewAPI(svc *Service, issuer *auth.TokenIssuer) *API {
	return &API{svc: svc, issuer: issuer}
}

// Register wires the user routes onto the given router group.
func (a *API) Register(rg *gin.RouterGroup) {
	rg.POST("/users/register", a.register)
	rg.POST("/users/login", a.login)
	rg.POST("/users/refresh", a.refresh)

	authed := rg.Group("/", a.requireAuth)
	authed.GET("/users/me", a.me)
	authed.DELETE("/users/me", a.deleteMe)
	authed.GET("/users/me/sessions", a.listSessions)
	authed.POST("/users/me/sessions", a.addSession)
	authed.DELETE("/users/me/sessions/:sessionId", a.deleteSession)
}

// requireAuth verifies the bearer token and stashes the user id in the
// context.
func (a *API) requireAuth(c *gin.Context) {
	header := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
		return
	}

	userID, err := a.issuer.VerifyAccessToken(header[len(prefix):])
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	c.Set("userID", userID)
	c.Next()
}

func (a *API) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	u, err := a.svc.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if errors.Is(err, ErrUserExists) {
		c.JSON(http.StatusConflict, gin.H{"error": "username or email already taken"})
		return
	}
	if err != nil {
		slog.Error("Registration failed", "username", req.Username, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "user": u})
}

func (a *API) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	u, err := a.svc.Login(c.Request.Context(), req.Username, req.Password)
	if errors.Is(err, ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if err != nil {
		slog.Error("Login failed", "username", req.Username, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	access, err := a.issuer.IssueAccessToken(u.ID)
	if err != nil {
		slog.Error("Token issue failed", "userId", u.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}
	refresh, err := a.issuer.IssueRefreshToken(u.ID)
	if err != nil {
		slog.Error("Token issue failed", "userId", u.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"user":          u,
		"access_token":  access,
		"refresh_token": refresh,
	})
}

func (a *API) refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, err := a.issuer.VerifyRefreshToken(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}

	access, err := a.issuer.IssueAccessToken(userID)
	if err != nil {
		slog.Error("Token issue failed", "userId", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "refresh failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "access_token": access})
}

func (a *API) me(c *gin.Context) {
	userID := c.GetString("userID")

	u, err := a.svc.GetUser(c.Request.Context(), userID)
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	if err != nil {
		slog.Error("User lookup failed", "userId", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": u})
}

func (a *API) deleteMe(c *gin.Context) {
	userID := c.GetString("userID")

	if err := a.svc.DeleteUser(c.Request.Context(), userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		slog.Error("User delete failed", "userId", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (a *API) listSessions(c *gin.Context) {
	userID := c.GetString("userID")

	sessions, err := a.svc.Sessions(c.Request.Context(), userID)
	if err != nil {
		slog.Error("Session list failed", "userId", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	if sessions == nil {
		sessions = []Session{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "sessions": sessions})
}

func (a *API) addSession(c *gin.Context) {
	userID := c.GetString("userID")

	var req addSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := a.svc.AddSession(c.Request.Context(), userID, req.SessionID, req.Title); err != nil {
		slog.Error("Session add failed", "userId", userID, "sessionId", req.SessionID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "add failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true})
}

func (a *API) deleteSession(c *gin.Context) {
	userID := c.GetString("userID")
	sessionID := c.Param("sessionId")

	// Only the owner may remove a session from the index.
	owner, err := a.svc.SessionOwner(c.Request.Context(), sessionID)
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	if err != nil {
		slog.Error("Session lookup failed", "sessionId", sessionID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if owner != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your session"})
		return
	}

	if err := a.svc.DeleteSession(c.Request.Context(), sessionID); err != nil && !errors.Is(err, ErrNotFound) {
		slog.Error("Session delete failed", "sessionId", sessionID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// HealthCheck reports liveness of the backing store.
func (a *API) HealthCheck(c *gin.Context) {
	if err := a.svc.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}
