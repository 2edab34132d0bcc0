// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vivalabs/viva/pkg/config"
)

// =============================================================================
// Redis Implementation
// =============================================================================

// RedisStore implements HotWindowStore on a Redis list + string pair per
// session:
//
//	session:<id>:messages  list of JSON {role, content, ts} entries
//	session:<id>:summary   plain string
//
// The client is pooled (PoolSize from config) and retries transient
// connection errors with bounded exponential backoff. There is deliberately
// no unbounded retry loop: after MaxRetries the error propagates as
// ErrCacheUnavailable and the caller degrades.
type RedisStore struct {
	client *redis.Client
}

// wireMessage is the cache serialization of a Message. The timestamp is
// stored as Unix milliseconds so sub-second precision survives round-trips.
type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	TsMs    int64  `json:"ts,omitempty"`
}

// NewRedisStore connects to Redis per cfg and verifies liveness with a ping.
//
// # Inputs
//
//   - ctx: used for the initial ping only.
//   - cfg: connection settings; see config.RedisConfig.
//
// # Outputs
//
//   - *RedisStore: ready for use
//   - error: non-nil when the server is unreachable at startup
func NewRedisStore(ctx context.Context, cfg config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:            cfg.Addr(),
		DB:              cfg.DB,
		PoolSize:        cfg.MaxConnections,
		MaxRetries:      cfg.MaxRetries,
		MinRetryBackoff: cfg.RetryBackoffMin,
		MaxRetryBackoff: cfg.RetryBackoffMax,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Addr(), err)
	}

	slog.Info("Hot window store connected", "addr", cfg.Addr(), "db", cfg.DB)
	return &RedisStore{client: client}, nil
}

// NewRedisStoreFromClient wraps an existing client. Used by tests.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func messagesKey(sessionID string) string {
	return fmt.Sprintf("session:%s:messages", sessionID)
}

func summaryKey(sessionID string) string {
	return fmt.Sprintf("session:%s:summary", sessionID)
}

// wrapErr tags every Redis transport failure as ErrCacheUnavailable so
// callers can branch with errors.Is without knowing the driver.
func wrapErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrCacheUnavailable, err)
}

// Append implements HotWindowStore.
func (s *RedisStore) Append(ctx context.Context, sessionID string, msg Message) (int, error) {
	wire := wireMessage{Role: msg.Role, Content: msg.Content}
	if !msg.Timestamp.IsZero() {
		wire.TsMs = msg.Timestamp.UnixMilli()
	}
	data, err := json.Marshal(wire)
	if err != nil {
		return 0, fmt.Errorf("encode message: %w", err)
	}

	length, err := s.client.RPush(ctx, messagesKey(sessionID), data).Result()
	if err != nil {
		return 0, wrapErr("append message", err)
	}

	slog.Debug("Appended message to hot window",
		"sessionId", sessionID, "role", msg.Role, "length", length)
	return int(length), nil
}

// Messages implements HotWindowStore.
func (s *RedisStore) Messages(ctx context.Context, sessionID string, limit int) ([]Message, error) {
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}

	raw, err := s.client.LRange(ctx, messagesKey(sessionID), start, -1).Result()
	if err != nil {
		return nil, wrapErr("read messages", err)
	}

	messages := make([]Message, 0, len(raw))
	for _, entry := range raw {
		var wire wireMessage
		if err := json.Unmarshal([]byte(entry), &wire); err != nil {
			// A corrupt entry is skipped rather than poisoning the window.
			slog.Warn("Skipping undecodable hot window entry", "sessionId", sessionID, "error", err)
			continue
		}
		msg := Message{Role: wire.Role, Content: wire.Content}
		if wire.TsMs != 0 {
			msg.Timestamp = time.UnixMilli(wire.TsMs)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// Length implements HotWindowStore.
func (s *RedisStore) Length(ctx context.Context, sessionID string) (int, error) {
	n, err := s.client.LLen(ctx, messagesKey(sessionID)).Result()
	if err != nil {
		return 0, wrapErr("window length", err)
	}
	return int(n), nil
}

// TrimToTail implements HotWindowStore.
func (s *RedisStore) TrimToTail(ctx context.Context, sessionID string, keepLast int) (bool, error) {
	if keepLast < 0 {
		return false, fmt.Errorf("keepLast must be >= 0, got %d", keepLast)
	}

	length, err := s.Length(ctx, sessionID)
	if err != nil {
		return false, err
	}
	if length <= keepLast {
		return false, nil
	}

	if keepLast == 0 {
		// LTRIM key 0 -1 keeps everything, so an empty tail needs DEL instead.
		if err := s.client.Del(ctx, messagesKey(sessionID)).Err(); err != nil {
			return false, wrapErr("trim window", err)
		}
	} else if err := s.client.LTrim(ctx, messagesKey(sessionID), int64(-keepLast), -1).Err(); err != nil {
		return false, wrapErr("trim window", err)
	}

	slog.Info("Trimmed hot window",
		"sessionId", sessionID, "keepLast", keepLast, "previousLength", length)
	return true, nil
}

// Summary implements HotWindowStore.
func (s *RedisStore) Summary(ctx context.Context, sessionID string) (string, bool, error) {
	val, err := s.client.Get(ctx, summaryKey(sessionID)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, wrapErr("read summary", err)
	}
	return val, true, nil
}

// SetSummary implements HotWindowStore.
func (s *RedisStore) SetSummary(ctx context.Context, sessionID, summary string) error {
	if err := s.client.Set(ctx, summaryKey(sessionID), summary, 0).Err(); err != nil {
		return wrapErr("set summary", err)
	}
	slog.Debug("Updated hot window summary", "sessionId", sessionID)
	return nil
}

// ClearSession implements HotWindowStore. Both keys go in a single DEL, so
// the pair is removed atomically from the caller's point of view.
func (s *RedisStore) ClearSession(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, messagesKey(sessionID), summaryKey(sessionID)).Err(); err != nil {
		return wrapErr("clear session", err)
	}
	slog.Info("Cleared hot window", "sessionId", sessionID)
	return nil
}

// Ping implements HotWindowStore.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return wrapErr("ping", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

var _ HotWindowStore = (*RedisStore)(nil)
