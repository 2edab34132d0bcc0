// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package coordinator owns the conversation pipeline: write-through message
// recording, hot-window maintenance, and the asynchronous summarize-and-trim
// cycle that keeps prompts bounded as conversations grow.
//
// # Description
//
// Every message flows durable-first: the transcript store is ground truth
// and its failure aborts the operation. The hot window is written second,
// best effort; when it is down the pipeline degrades to durable-only reads
// and keeps serving. Once the window reaches the configured threshold, a
// detached cycle folds the window into the running summary and trims it.
//
// # Invariants
//
//   - A message is never visible in the hot window without being durable.
//   - The window is never trimmed unless the replacement summary was
//     produced and durably persisted first.
//   - At most one summarization cycle runs per session at a time.
//
// # Thread Safety
//
// All exported methods are safe for concurrent use.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/vivalabs/viva/services/cache"
	"github.com/vivalabs/viva/services/orchestrator/observability"
	"github.com/vivalabs/viva/services/transcript"
)

// cycleTimeout bounds one detached summarize-and-trim cycle, model call
// included.
const cycleTimeout = 2 * time.Minute

// Config carries the thresholds the coordinator operates with.
type Config struct {
	// MessageLimit is the hot-window length that triggers a cycle.
	MessageLimit int

	// TrimKeepLast is how many messages survive a successful cycle.
	TrimKeepLast int
}

// Coordinator wires the durable transcript, the hot window, and the
// summarizer into one pipeline.
type Coordinator struct {
	transcripts transcript.Store
	window      cache.HotWindowStore
	summarizer  *Summarizer
	cfg         Config
	metrics     *observability.ConversationMetrics

	flight singleflight.Group
	tasks  taskTracker
}

// New builds a coordinator. metrics may be nil; instrumentation is then
// skipped.
func New(transcripts transcript.Store, window cache.HotWindowStore, summarizer *Summarizer,
	cfg Config, metrics *observability.ConversationMetrics) *Coordinator {

	if cfg.MessageLimit <= 0 {
		cfg.MessageLimit = 10
	}
	if cfg.TrimKeepLast <= 0 {
		cfg.TrimKeepLast = cfg.MessageLimit
	}
	return &Coordinator{
		transcripts: transcripts,
		window:      window,
		summarizer:  summarizer,
		cfg:         cfg,
		metrics:     metrics,
	}
}

// =============================================================================
// Recording
// =============================================================================

// RecordMessage persists one message durable-first, mirrors it into the hot
// window, and kicks off a detached summarization cycle when the window has
// reached the threshold.
//
// The durable write is shielded from caller cancellation: once a client has
// handed us a message, a dropped connection must not lose it.
func (c *Coordinator) RecordMessage(ctx context.Context, sessionID, userID, role, content string) (transcript.Message, error) {
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	msg, err := c.transcripts.AppendMessage(persistCtx, sessionID, userID, role, content)
	if err != nil {
		c.recordMessageMetric(role, false)
		return transcript.Message{}, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	c.recordMessageMetric(role, true)

	length, err := c.window.Append(ctx, sessionID, cache.Message{
		Role:      role,
		Content:   content,
		Timestamp: msg.Timestamp,
	})
	if err != nil {
		// Degraded mode: the message is durable, the window just missed it.
		slog.Warn("Hot window append failed, continuing durable-only",
			"sessionId", sessionID, "error", err)
		c.recordDegraded("append")
		return msg, nil
	}

	if length >= c.cfg.MessageLimit {
		c.startCycle(sessionID, userID)
	}
	return msg, nil
}

// =============================================================================
// Reading
// =============================================================================

// ConversationContext returns the running summary and the hot-window
// messages used to assemble the next prompt.
//
// Cold start: when the window is empty but a durable summary exists, the
// summary alone is restored (and re-cached best effort). Evicted window
// messages are never re-inflated; they are already covered by the summary.
func (c *Coordinator) ConversationContext(ctx context.Context, sessionID string) (string, []cache.Message, error) {
	messages, err := c.window.Messages(ctx, sessionID, 0)
	if err != nil {
		slog.Warn("Hot window read failed, continuing durable-only",
			"sessionId", sessionID, "error", err)
		c.recordDegraded("read")
		messages = nil
	}

	summary, haveSummary, err := c.window.Summary(ctx, sessionID)
	if err != nil {
		c.recordDegraded("read")
		haveSummary = false
	}

	if !haveSummary {
		rec, ok, err := c.transcripts.Summary(ctx, sessionID)
		if err != nil {
			return "", nil, fmt.Errorf("restore summary: %w", err)
		}
		if ok {
			summary = rec.Summary
			if c.metrics != nil {
				c.metrics.RecordColdStart()
			}
			if err := c.window.SetSummary(ctx, sessionID, summary); err != nil {
				c.recordDegraded("append")
			}
		}
	}

	return summary, messages, nil
}

// FullHistory returns the durable transcript, oldest first. limit <= 0
// returns everything.
func (c *Coordinator) FullHistory(ctx context.Context, sessionID string, limit int) ([]transcript.Message, error) {
	return c.transcripts.Messages(ctx, sessionID, limit)
}

// =============================================================================
// Deletion
// =============================================================================

// DeleteSession removes the durable transcript and summary, then clears the
// hot window. The durable delete is authoritative; a cache failure only
// degrades.
func (c *Coordinator) DeleteSession(ctx context.Context, sessionID string) error {
	if err := c.transcripts.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	if err := c.window.ClearSession(ctx, sessionID); err != nil {
		slog.Warn("Hot window clear failed after durable delete",
			"sessionId", sessionID, "error", err)
		c.recordDegraded("clear")
	}
	return nil
}

// =============================================================================
// Summarization Cycle
// =============================================================================

// startCycle launches a detached summarize-and-trim cycle. The per-session
// single-flight collapses concurrent triggers; the task tracker lets
// shutdown wait for the cycle to finish.
func (c *Coordinator) startCycle(sessionID, userID string) {
	started := c.tasks.Go(func() {
		if c.metrics != nil {
			c.metrics.TaskStarted()
			defer c.metrics.TaskEnded()
		}
		_, _, _ = c.flight.Do(sessionID, func() (interface{}, error) {
			ctx, cancel := context.WithTimeout(context.Background(), cycleTimeout)
			defer cancel()
			c.runCycle(ctx, sessionID, userID)
			return nil, nil
		})
	})
	if !started {
		slog.Warn("Summarization cycle rejected, coordinator shutting down",
			"sessionId", sessionID)
	}
}

func (c *Coordinator) runCycle(ctx context.Context, sessionID, userID string) {
	start := time.Now()
	status := "failed"
	defer func() {
		if c.metrics != nil {
			c.metrics.RecordCycle(status, time.Since(start).Seconds())
		}
	}()

	batch, err := c.window.Messages(ctx, sessionID, 0)
	if err != nil {
		slog.Warn("Cycle skipped, hot window unreadable", "sessionId", sessionID, "error", err)
		c.recordDegraded("read")
		status = "skipped"
		return
	}
	if len(batch) < c.cfg.MessageLimit {
		// Another cycle got here first.
		status = "skipped"
		return
	}

	previous := c.currentSummary(ctx, sessionID)

	updated, err := c.summarizer.Summarize(ctx, previous, batch)
	if err != nil {
		// Stale summary stays; the window is NOT trimmed so nothing covered
		// only by the failed fold can be lost.
		slog.Error("Summarization cycle failed, keeping stale summary",
			"sessionId", sessionID, "error", err)
		return
	}

	// The fold covers every durable message up to this point, window
	// survivors included, so the record carries the absolute count rather
	// than an accumulator that would re-count survivors on the next fold.
	count, err := c.transcripts.MessageCount(ctx, sessionID)
	if err != nil {
		slog.Error("Cycle aborted, durable message count unavailable",
			"sessionId", sessionID, "error", err)
		return
	}
	if err := c.transcripts.UpsertSummary(ctx, transcript.SummaryRecord{
		SessionID:    sessionID,
		UserID:       userID,
		Summary:      updated,
		LastUpdated:  time.Now(),
		MessageCount: count,
	}); err != nil {
		// Durable summary write failed: treat like a failed fold and leave
		// the window intact.
		slog.Error("Cycle aborted, durable summary write failed",
			"sessionId", sessionID, "error", err)
		return
	}

	if err := c.window.SetSummary(ctx, sessionID, updated); err != nil {
		slog.Warn("Cached summary update failed", "sessionId", sessionID, "error", err)
		c.recordDegraded("append")
	}

	if _, err := c.window.TrimToTail(ctx, sessionID, c.cfg.TrimKeepLast); err != nil {
		slog.Warn("Window trim failed", "sessionId", sessionID, "error", err)
		c.recordDegraded("trim")
	}

	status = "success"
	slog.Info("Summarization cycle complete",
		"sessionId", sessionID, "folded", len(batch), "totalSummarized", count,
		"duration", time.Since(start))
}

// currentSummary prefers the cached summary and falls back to the durable
// record.
func (c *Coordinator) currentSummary(ctx context.Context, sessionID string) string {
	summary, ok, err := c.window.Summary(ctx, sessionID)
	if err == nil && ok {
		return summary
	}
	if err != nil {
		c.recordDegraded("read")
	}
	rec, ok, err := c.transcripts.Summary(ctx, sessionID)
	if err != nil || !ok {
		return ""
	}
	return rec.Summary
}

// =============================================================================
// Lifecycle
// =============================================================================

// Close stops accepting new cycles and waits for in-flight ones until ctx
// expires.
func (c *Coordinator) Close(ctx context.Context) error {
	if err := c.tasks.Drain(ctx); err != nil {
		slog.Warn("Shutdown drain cut short, background cycles abandoned", "error", err)
		return err
	}
	return nil
}

func (c *Coordinator) recordMessageMetric(role string, success bool) {
	if c.metrics != nil {
		c.metrics.RecordMessage(role, success)
	}
}

func (c *Coordinator) recordDegraded(op string) {
	if c.metrics != nil {
		c.metrics.RecordCacheDegraded(op)
	}
}
