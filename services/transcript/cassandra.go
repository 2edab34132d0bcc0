// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package transcript

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"github.com/vivalabs/viva/pkg/config"
)

// =============================================================================
// Cassandra Implementation
// =============================================================================

// CassandraStore implements Store on Cassandra.
//
// # Description
//
// Messages cluster under their session partition by TIMEUUID, newest first,
// so "the most recent N" is a cheap LIMIT read. Reads reverse the rows
// before returning so callers always see oldest-first order. Summaries live
// in their own single-row-per-session table.
//
// # Limitations
//
//   - No paging: a full-transcript read materializes the whole partition.
//     Acceptable for conversational sessions, not for unbounded streams.
//
// # Assumptions
//
//   - The keyspace exists or the connecting user may create it.
type CassandraStore struct {
	session  *gocql.Session
	keyspace string
}

// NewCassandraStore connects to the cluster, creates the keyspace and tables
// when missing, and returns a ready store.
func NewCassandraStore(cfg config.CassandraConfig) (*CassandraStore, error) {
	// Keyspace bootstrap needs a session without a keyspace bound.
	boot := gocql.NewCluster(cfg.Host)
	boot.Port = cfg.Port
	boot.Timeout = 10 * time.Second
	bootSession, err := boot.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("connect to cassandra at %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	defer bootSession.Close()

	createKeyspace := fmt.Sprintf(`CREATE KEYSPACE IF NOT EXISTS %s
		WITH replication = {'class': 'SimpleStrategy', 'replication_factor': %d}`,
		cfg.Keyspace, cfg.ReplicationFactor)
	if err := bootSession.Query(createKeyspace).Exec(); err != nil {
		return nil, fmt.Errorf("create keyspace %s: %w", cfg.Keyspace, err)
	}

	cluster := gocql.NewCluster(cfg.Host)
	cluster.Port = cfg.Port
	cluster.Keyspace = cfg.Keyspace
	cluster.Consistency = gocql.Quorum
	cluster.Timeout = 10 * time.Second
	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("connect to keyspace %s: %w", cfg.Keyspace, err)
	}

	store := &CassandraStore{session: session, keyspace: cfg.Keyspace}
	if err := store.ensureTables(); err != nil {
		session.Close()
		return nil, err
	}

	slog.Info("Transcript store connected",
		"host", cfg.Host, "port", cfg.Port, "keyspace", cfg.Keyspace)
	return store, nil
}

func (s *CassandraStore) ensureTables() error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS chat_messages (
			session_id TEXT,
			message_id TIMEUUID,
			user_id TEXT,
			role TEXT,
			content TEXT,
			PRIMARY KEY (session_id, message_id)
		) WITH CLUSTERING ORDER BY (message_id DESC)`,
		`CREATE TABLE IF NOT EXISTS chat_summaries (
			session_id TEXT PRIMARY KEY,
			user_id TEXT,
			summary TEXT,
			last_updated TIMESTAMP,
			message_count INT
		)`,
	}
	for _, ddl := range tables {
		if err := s.session.Query(ddl).Exec(); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}

// AppendMessage implements Store.
func (s *CassandraStore) AppendMessage(ctx context.Context, sessionID, userID, role, content string) (Message, error) {
	id, err := uuid.NewUUID()
	if err != nil {
		return Message{}, fmt.Errorf("generate message id: %w", err)
	}

	err = s.session.Query(
		`INSERT INTO chat_messages (session_id, message_id, user_id, role, content)
		 VALUES (?, ?, ?, ?, ?)`,
		sessionID, gocql.UUID(id), userID, role, content,
	).WithContext(ctx).Exec()
	if err != nil {
		return Message{}, fmt.Errorf("append message for session %s: %w", sessionID, err)
	}

	msg := Message{
		ID:        id,
		SessionID: sessionID,
		UserID:    userID,
		Role:      role,
		Content:   content,
		Timestamp: time.Unix(id.Time().UnixTime()),
	}
	slog.Debug("Persisted message", "sessionId", sessionID, "messageId", id, "role", role)
	return msg, nil
}

// Messages implements Store. Rows come back newest first because of the
// clustering order; they are reversed before returning.
func (s *CassandraStore) Messages(ctx context.Context, sessionID string, limit int) ([]Message, error) {
	cql := `SELECT message_id, user_id, role, content
		FROM chat_messages WHERE session_id = ?`
	var query *gocql.Query
	if limit > 0 {
		query = s.session.Query(cql+" LIMIT ?", sessionID, limit)
	} else {
		query = s.session.Query(cql, sessionID)
	}

	iter := query.WithContext(ctx).Iter()

	var (
		newestFirst []Message
		id          gocql.UUID
		userID      string
		role        string
		content     string
	)
	for iter.Scan(&id, &userID, &role, &content) {
		mid := uuid.UUID(id)
		newestFirst = append(newestFirst, Message{
			ID:        mid,
			SessionID: sessionID,
			UserID:    userID,
			Role:      role,
			Content:   content,
			Timestamp: time.Unix(mid.Time().UnixTime()),
		})
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("read messages for session %s: %w", sessionID, err)
	}

	messages := make([]Message, len(newestFirst))
	for i, m := range newestFirst {
		messages[len(newestFirst)-1-i] = m
	}
	return messages, nil
}

// MessageCount implements Store.
func (s *CassandraStore) MessageCount(ctx context.Context, sessionID string) (int, error) {
	var count int
	err := s.session.Query(
		`SELECT COUNT(*) FROM chat_messages WHERE session_id = ?`, sessionID,
	).WithContext(ctx).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count messages for session %s: %w", sessionID, err)
	}
	return count, nil
}

// Summary implements Store.
func (s *CassandraStore) Summary(ctx context.Context, sessionID string) (SummaryRecord, bool, error) {
	var rec SummaryRecord
	rec.SessionID = sessionID
	err := s.session.Query(
		`SELECT user_id, summary, last_updated, message_count
		 FROM chat_summaries WHERE session_id = ?`, sessionID,
	).WithContext(ctx).Scan(&rec.UserID, &rec.Summary, &rec.LastUpdated, &rec.MessageCount)
	if errors.Is(err, gocql.ErrNotFound) {
		return SummaryRecord{}, false, nil
	}
	if err != nil {
		return SummaryRecord{}, false, fmt.Errorf("read summary for session %s: %w", sessionID, err)
	}
	return rec, true, nil
}

// UpsertSummary implements Store.
func (s *CassandraStore) UpsertSummary(ctx context.Context, rec SummaryRecord) error {
	err := s.session.Query(
		`INSERT INTO chat_summaries (session_id, user_id, summary, last_updated, message_count)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.SessionID, rec.UserID, rec.Summary, rec.LastUpdated, rec.MessageCount,
	).WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("upsert summary for session %s: %w", rec.SessionID, err)
	}
	slog.Debug("Persisted summary", "sessionId", rec.SessionID, "messageCount", rec.MessageCount)
	return nil
}

// DeleteSession implements Store.
func (s *CassandraStore) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.session.Query(
		`DELETE FROM chat_messages WHERE session_id = ?`, sessionID,
	).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("delete messages for session %s: %w", sessionID, err)
	}
	if err := s.session.Query(
		`DELETE FROM chat_summaries WHERE session_id = ?`, sessionID,
	).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("delete summary for session %s: %w", sessionID, err)
	}
	slog.Info("Deleted session transcript", "sessionId", sessionID)
	return nil
}

// Ping implements Store.
func (s *CassandraStore) Ping(ctx context.Context) error {
	return s.session.Query(`SELECT release_version FROM system.local`).
		WithContext(ctx).Exec()
}

// Close tears down the cluster session.
func (s *CassandraStore) Close() {
	s.session.Close()
}

var _ Store = (*CassandraStore)(nil)
