package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/signalbox/pkg/adapters/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisLocker_LockUnlock(t *testing.T) {
	mr, client := newTestClient(t)

	locker := redis.NewLocker(client, "test:lock:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "session-1", 5*time.Second)
	require.NoError(t, err)
	require.NotNil(t, unlock)

	assert.True(t, mr.Exists("test:lock:lock:session-1"), "lock key should be set in Redis")

	err = unlock(ctx)
	require.NoError(t, err)

	assert.False(t, mr.Exists("test:lock:lock:session-1"), "lock key should be removed after unlock")
}

func TestRedisLocker_Contention(t *testing.T) {
	mr, client := newTestClient(t)

	locker1 := redis.NewLocker(client, "test:lock:")
	locker2 := redis.NewLocker(client, "test:lock:") // Same prefix -> contention
	ctx := context.Background()
	key := "shared-session"

	unlock1, err := locker1.Lock(ctx, key, 5*time.Second)
	require.NoError(t, err)

	// The second client polls until its context gives up.
	ctxTimeout, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = locker2.Lock(ctxTimeout, key, 5*time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.WithinDuration(t, start.Add(500*time.Millisecond), time.Now(), 100*time.Millisecond,
		"should block until timeout")

	require.NoError(t, unlock1(ctx))

	unlock2, err := locker2.Lock(ctx, key, 5*time.Second)
	require.NoError(t, err)
	defer func() { _ = unlock2(ctx) }()

	assert.True(t, mr.Exists("test:lock:lock:shared-session"))
}

func TestRedisLocker_UnlockOnlyOwn(t *testing.T) {
	mr, client := newTestClient(t)

	locker := redis.NewLocker(client, "test:lock:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "session-1", 5*time.Second)
	require.NoError(t, err)

	// Simulate another holder taking over after an expiry.
	mr.Set("test:lock:lock:session-1", "someone-else")

	require.NoError(t, unlock(ctx))
	assert.True(t, mr.Exists("test:lock:lock:session-1"),
		"unlock must not delete a lock held by another owner")
}
