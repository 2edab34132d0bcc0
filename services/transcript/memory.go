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
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store for tests and single-node deployments
// that don't warrant a Cassandra cluster. Data does not survive a restart.
type MemoryStore struct {
	mu        sync.RWMutex
	messages  map[string][]Message
	summaries map[string]SummaryRecord
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		messages:  make(map[string][]Message),
		summaries: make(map[string]SummaryRecord),
	}
}

// AppendMessage implements Store.
func (s *MemoryStore) AppendMessage(ctx context.Context, sessionID, userID, role, content string) (Message, error) {
	id, err := uuid.NewUUID()
	if err != nil {
		return Message{}, err
	}
	msg := Message{
		ID:        id,
		SessionID: sessionID,
		UserID:    userID,
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}

	s.mu.Lock()
	s.messages[sessionID] = append(s.messages[sessionID], msg)
	s.mu.Unlock()
	return msg, nil
}

// Messages implements Store.
func (s *MemoryStore) Messages(ctx context.Context, sessionID string, limit int) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.messages[sessionID]
	if limit > 0 && limit < len(all) {
		all = all[len(all)-limit:]
	}
	out := make([]Message, len(all))
	copy(out, all)
	return out, nil
}

// MessageCount implements Store.
func (s *MemoryStore) MessageCount(ctx context.Context, sessionID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages[sessionID]), nil
}

// Summary implements Store.
func (s *MemoryStore) Summary(ctx context.Context, sessionID string) (SummaryRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.summaries[sessionID]
	return rec, ok, nil
}

// UpsertSummary implements Store.
func (s *MemoryStore) UpsertSummary(ctx context.Context, rec SummaryRecord) error {
	s.mu.Lock()
	s.summaries[rec.SessionID] = rec
	s.mu.Unlock()
	return nil
}

// DeleteSession implements Store.
func (s *MemoryStore) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.messages, sessionID)
	delete(s.summaries, sessionID)
	s.mu.Unlock()
	return nil
}

// Ping implements Store.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

var _ Store = (*MemoryStore)(nil)
