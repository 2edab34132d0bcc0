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
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_AppendAssignsOrderedIDs(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	first, err := store.AppendMessage(ctx, "s1", "u1", "user", "hello")
	require.NoError(t, err)
	second, err := store.AppendMessage(ctx, "s1", "u1", "assistant", "hi")
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, uuid.Version(1), first.ID.Version(), "message ids are time-ordered v1 uuids")

	msgs, err := store.Messages(ctx, "s1", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, "hi", msgs[1].Content)
}

func TestMemoryStore_MessagesLimit(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := store.AppendMessage(ctx, "s1", "u1", "user", fmt.Sprintf("m%d", i))
		require.NoError(t, err)
	}

	msgs, err := store.Messages(ctx, "s1", 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "m3", msgs[0].Content)
	assert.Equal(t, "m4", msgs[1].Content)

	msgs, err = store.Messages(ctx, "s1", 10)
	require.NoError(t, err)
	assert.Len(t, msgs, 5)
}

func TestMemoryStore_MessageCount(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	count, err := store.MessageCount(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	for i := 0; i < 3; i++ {
		_, err := store.AppendMessage(ctx, "s1", "u1", "user", fmt.Sprintf("m%d", i))
		require.NoError(t, err)
	}

	count, err = store.MessageCount(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestMemoryStore_UnknownSessionIsEmpty(t *testing.T) {
	store := NewMemoryStore()

	msgs, err := store.Messages(context.Background(), "missing", 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	_, ok, err := store.Summary(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_SummaryRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	rec := SummaryRecord{
		SessionID:    "s1",
		UserID:       "u1",
		Summary:      "planning a trip to Norway",
		LastUpdated:  time.Now(),
		MessageCount: 12,
	}
	require.NoError(t, store.UpsertSummary(ctx, rec))

	got, ok, err := store.Summary(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "planning a trip to Norway", got.Summary)
	assert.Equal(t, 12, got.MessageCount)

	rec.Summary = "booked the flights"
	rec.MessageCount = 20
	require.NoError(t, store.UpsertSummary(ctx, rec))

	got, _, err = store.Summary(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "booked the flights", got.Summary)
	assert.Equal(t, 20, got.MessageCount)
}

func TestMemoryStore_DeleteSession(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.AppendMessage(ctx, "s1", "u1", "user", "hello")
	require.NoError(t, err)
	require.NoError(t, store.UpsertSummary(ctx, SummaryRecord{SessionID: "s1", UserID: "u1", Summary: "x"}))

	require.NoError(t, store.DeleteSession(ctx, "s1"))

	msgs, err := store.Messages(ctx, "s1", 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)
	_, ok, err := store.Summary(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, ok)

	// Deleting again is a no-op.
	assert.NoError(t, store.DeleteSession(ctx, "s1"))
}

func TestMemoryStore_ConcurrentAppends(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := store.AppendMessage(ctx, "s1", "u1", "user", fmt.Sprintf("m%d", n))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	msgs, err := store.Messages(ctx, "s1", 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 20)
}
