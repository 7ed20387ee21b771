// services/run_lock.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var ErrRunInProgress = errors.New("another streak evaluation is in progress")

// RunLocker guards a named critical section across processes. The returned
// release func is safe to call once.
type RunLocker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (release func(), err error)
}

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisRunLock is a SET NX lease in Redis.
type RedisRunLock struct {
	client redis.UniversalClient
	prefix string
	logger *zap.Logger
}

func NewRedisRunLock(client redis.UniversalClient, logger *zap.Logger) *RedisRunLock {
	return &RedisRunLock{client: client, prefix: "marathon:lock:", logger: logger.Named("run_lock")}
}

func (l *RedisRunLock) Acquire(ctx context.Context, name string, ttl time.Duration) (func(), error) {
	key := l.prefix + name
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	if !ok {
		return nil, ErrRunInProgress
	}

	return func() {
		// the caller's ctx may already be cancelled
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil {
			l.logger.Warn("failed to release run lock", zap.String("key", key), zap.Error(err))
		}
	}, nil
}
