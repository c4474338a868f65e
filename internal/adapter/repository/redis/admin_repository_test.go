package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/V4T54L/leadhub/internal/domain"
	"github.com/V4T54L/leadhub/internal/pkg/logger"
)

func TestAdminRepository_DeadLetterLifecycle(t *testing.T) {
	_, client, q, _, _ := setupQueue(t)
	ctx := context.Background()
	admin := NewAdminRepository(client, logger.Discard(), testStream, testDLQ)

	a, b := newEvent(), newEvent()
	a.FailureReason = "unreachable"
	require.NoError(t, q.MoveToDLQ(ctx, []domain.NotificationEvent{a, b}))

	letters, err := admin.ListDeadLetters(ctx, 10)
	require.NoError(t, err)
	require.Len(t, letters, 2)
	assert.Equal(t, a.ID, letters[0].Event.ID)
	assert.Equal(t, "unreachable", letters[0].Event.FailureReason)
	assert.WithinDuration(t, time.Now(), letters[0].FailedAt, time.Minute)

	n, err := admin.RequeueDeadLetters(ctx, letters[0].ID, "999-0")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	msgs, err := client.XRange(ctx, testStream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	var requeued domain.NotificationEvent
	require.NoError(t, json.Unmarshal([]byte(msgs[0].Values[payloadField].(string)), &requeued))
	assert.Equal(t, a.ID, requeued.ID)
	assert.Empty(t, requeued.FailureReason)

	remaining, err := admin.ListDeadLetters(ctx, 10)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, b.ID, remaining[0].Event.ID)

	trimmed, err := admin.TrimDeadLetters(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), trimmed)
}

func TestAdminRepository_RequeueNeedsIDs(t *testing.T) {
	_, client, _, _, _ := setupQueue(t)
	admin := NewAdminRepository(client, logger.Discard(), testStream, testDLQ)

	_, err := admin.RequeueDeadLetters(context.Background())
	assert.Error(t, err)
}

func TestAdminRepository_StreamInfoMissingStream(t *testing.T) {
	_, client, _, _, _ := setupQueue(t)
	admin := NewAdminRepository(client, logger.Discard(), "no_such_stream", testDLQ)

	info, err := admin.StreamInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.Length)
	assert.Empty(t, info.Groups)
}
