// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package vectorstore

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type ingestRequest struct {
	Source  string `json:"source" binding:"required"`
	Content string `json:"content" binding:"required"`
}

// API exposes document ingest and retrieval over HTTP.
type API struct {
	svc *Service
}

// NewAPI builds the vector store HTTP API.
func NewAPI(svc *Service) *API {
	return &API{svc: svc}
}

// Register wires the vector store routes onto the given router group.
func (a *API) Register(rg *gin.RouterGroup) {
	rg.POST("/documents", a.ingest)
	rg.GET("/documents/search", a.search)
	rg.DELETE("/documents/:source", a.deleteBySource)
}

func (a *API) ingest(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	count, err := a.svc.IngestDocument(c.Request.Context(), req.Source, req.Content)
	if err != nil {
		slog.Error("Document ingest failed", "source", req.Source, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ingest failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "chunks": count})
}

func (a *API) search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q query parameter is required"})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	chunks, err := a.svc.Search(c.Request.Context(), query, limit)
	if err != nil {
		slog.Error("Vector search failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}
	if chunks == nil {
		chunks = []Chunk{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "results": chunks})
}

func (a *API) deleteBySource(c *gin.Context) {
	source := c.Param("source")

	if err := a.svc.DeleteBySource(c.Request.Context(), source); err != nil {
		slog.Error("Document delete failed", "source", source, "error", err)
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
