// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package cache implements the hot-window store: a bounded, per-session
// window of recent chat messages plus an optional running summary, kept in
// Redis for fast prompt assembly.
//
// The hot window is a lossy accelerator. It may be empty or missing even
// when the durable transcript is not (after a trim, an eviction, or a
// restart); the transcript service is always the ground truth. Callers must
// treat ErrCacheUnavailable as "degrade", never as "fail the request".
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheUnavailable marks any hot-window store transport failure. The
// coordinator logs it and continues in durable-only mode; it must never
// surface to the end caller.
var ErrCacheUnavailable = errors.New("hot window store unavailable")

// Message is the role+content pair the hot window keeps per entry. The
// timestamp is carried through serialization at millisecond precision but is
// not used for ordering; list position is the order.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"-"`
}

// HotWindowStore is the contract the conversation coordinator depends on.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use across sessions. No
// per-session serialization is promised; the coordinator adds its own
// single-flight around the summarize-and-trim cycle.
type HotWindowStore interface {
	// Append adds a message to the tail of the session window, creating the
	// window implicitly, and returns the new window length.
	Append(ctx context.Context, sessionID string, msg Message) (int, error)

	// Messages returns up to limit most recent messages, oldest first.
	// limit <= 0 returns the whole window. A missing session yields an
	// empty slice, not an error.
	Messages(ctx context.Context, sessionID string, limit int) ([]Message, error)

	// Length returns the window size, 0 when the session is absent.
	Length(ctx context.Context, sessionID string) (int, error)

	// TrimToTail discards all but the most recent keepLast messages when the
	// window is longer than keepLast. Returns true only when something was
	// discarded. Idempotent: repeated calls are no-ops.
	TrimToTail(ctx context.Context, sessionID string, keepLast int) (bool, error)

	// Summary returns the running summary and whether one exists.
	Summary(ctx context.Context, sessionID string) (string, bool, error)

	// SetSummary replaces the running summary wholesale.
	SetSummary(ctx context.Context, sessionID, summary string) error

	// ClearSession removes the window and the summary.
	ClearSession(ctx context.Context, sessionID string) error

	// Ping reports store liveness.
	Ping(ctx context.Context) error
}
