// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package transcript implements the durable conversation store. Every
// message of every session lands here before anything else happens to it;
// the hot window in services/cache is only an accelerator on top.
package transcript

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Message is one durable transcript entry. ID is a time-ordered (version 1)
// UUID so clustering order in the database matches insertion order.
type Message struct {
	ID        uuid.UUID `json:"message_id"`
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// SummaryRecord is the durable copy of a session's running summary. It is
// what a cold start restores from when the hot window has been lost.
type SummaryRecord struct {
	SessionID    string    `json:"session_id"`
	UserID       string    `json:"user_id"`
	Summary      string    `json:"summary"`
	LastUpdated  time.Time `json:"last_updated"`
	MessageCount int       `json:"message_count"`
}

// Store is the durable transcript contract.
//
// A session that has never been written to is not an error anywhere in this
// interface: reads return empty results and deletes are no-ops. Errors mean
// the store itself failed, and callers must treat them as fatal for the
// operation in progress.
type Store interface {
	// AppendMessage persists one message and returns it with the assigned ID.
	AppendMessage(ctx context.Context, sessionID, userID, role, content string) (Message, error)

	// Messages returns up to limit messages oldest first. limit <= 0 returns
	// the full transcript.
	Messages(ctx context.Context, sessionID string, limit int) ([]Message, error)

	// MessageCount returns the number of messages in the transcript, 0 for
	// an unknown session.
	MessageCount(ctx context.Context, sessionID string) (int, error)

	// Summary returns the session's summary record, or ok=false when none
	// has been written.
	Summary(ctx context.Context, sessionID string) (SummaryRecord, bool, error)

	// UpsertSummary writes the summary record wholesale.
	UpsertSummary(ctx context.Context, rec SummaryRecord) error

	// DeleteSession removes the transcript and the summary record.
	DeleteSession(ctx context.Context, sessionID string) error

	// Ping reports store liveness.
	Ping(ctx context.Context) error
}
