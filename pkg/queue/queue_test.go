package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T) (*Queue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewQueue(rdb, nil), mr
}

func notice(status string) ExpiryNoticePayload {
	days := 3
	return ExpiryNoticePayload{
		VideoID:         uuid.MustParse("11111111-1111-1111-1111-111111111111"),
		ARContentID:     uuid.MustParse("22222222-2222-2222-2222-222222222222"),
		Title:           "Promo",
		Status:          status,
		DaysRemaining:   &days,
		SubscriptionEnd: time.Date(2025, 12, 28, 0, 0, 0, 0, time.UTC),
	}
}

func TestEnqueueExpiryNotice_Dedupes(t *testing.T) {
	q, mr := newTestQueue(t)
	ctx := context.Background()

	ok, err := q.EnqueueExpiryNotice(ctx, notice("expiring"), time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = q.EnqueueExpiryNotice(ctx, notice("expiring"), time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = q.EnqueueExpiryNotice(ctx, notice("expired"), time.Hour)
	require.NoError(t, err)
	assert.True(t, ok, "a new status is a new notice")

	items, err := mr.List(QueueNotices)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	mr.FastForward(2 * time.Hour)
	ok, err = q.EnqueueExpiryNotice(ctx, notice("expiring"), time.Hour)
	require.NoError(t, err)
	assert.True(t, ok, "dedupe key expires with its ttl")
}

func TestDequeue(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	_, err := q.EnqueueExpiryNotice(ctx, notice("expiring"), time.Hour)
	require.NoError(t, err)

	job, err := q.Dequeue(ctx, 100*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, JobTypeExpiryNotice, job.Type)

	var p ExpiryNoticePayload
	require.NoError(t, json.Unmarshal(job.Payload, &p))
	assert.Equal(t, "expiring", p.Status)
	require.NotNil(t, p.DaysRemaining)
	assert.Equal(t, 3, *p.DaysRemaining)
}

func TestDequeue_Malformed(t *testing.T) {
	q, mr := newTestQueue(t)
	_, err := mr.Push(QueueNotices, "not json")
	require.NoError(t, err)

	job, err := q.Dequeue(context.Background(), 100*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestRetry_MovesToDLQ(t *testing.T) {
	q, mr := newTestQueue(t)
	ctx := context.Background()
	job := &Job{ID: "j1", Type: JobTypeExpiryNotice, Payload: json.RawMessage(`{}`)}

	for i := 1; i < MaxRetries; i++ {
		require.NoError(t, q.Retry(ctx, job))
		assert.Equal(t, i, job.Attempt)
	}
	notices, _ := mr.List(QueueNotices)
	assert.Len(t, notices, MaxRetries-1)

	require.NoError(t, q.Retry(ctx, job))
	dlq, err := mr.List(QueueDLQ)
	require.NoError(t, err)
	assert.Len(t, dlq, 1)
}
