package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisRunLockExcludesSecondHolder(t *testing.T) {
	mr, client := newTestRedis(t)
	lock := NewRedisRunLock(client, zap.NewNop())
	ctx := context.Background()

	release, err := lock.Acquire(ctx, "streak:run", time.Minute)
	require.NoError(t, err)
	assert.True(t, mr.Exists("marathon:lock:streak:run"))

	_, err = lock.Acquire(ctx, "streak:run", time.Minute)
	assert.ErrorIs(t, err, ErrRunInProgress)

	release()
	assert.False(t, mr.Exists("marathon:lock:streak:run"))

	release, err = lock.Acquire(ctx, "streak:run", time.Minute)
	require.NoError(t, err)
	release()
}

func TestRedisRunLockReleaseKeepsForeignLease(t *testing.T) {
	mr, client := newTestRedis(t)
	lock := NewRedisRunLock(client, zap.NewNop())
	ctx := context.Background()

	release, err := lock.Acquire(ctx, "streak:run", time.Second)
	require.NoError(t, err)

	// lease expires and another process takes it
	mr.FastForward(2 * time.Second)
	other, err := lock.Acquire(ctx, "streak:run", time.Minute)
	require.NoError(t, err)

	release()
	assert.True(t, mr.Exists("marathon:lock:streak:run"), "stale release must not drop the new holder's lease")
	other()
}
