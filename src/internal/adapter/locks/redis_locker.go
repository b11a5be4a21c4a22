package locks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/api-sage/bridge-ledger/src/internal/commons"
	"github.com/api-sage/bridge-ledger/src/internal/logger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	lockKeyPrefix     = "bridge-ledger:lock:"
	acquirePollPeriod = 100 * time.Millisecond
)

// Released only when the stored token still matches, so an expired lock
// re-acquired by someone else is never deleted from under them.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

var _ Locker = (*RedisLocker)(nil)

// RedisLocker implements distributed locking on SET NX PX. Correct across
// processes; the value names the owner so waiters can report who they are
// stuck behind.
type RedisLocker struct {
	client      *redis.Client
	owner       string
	logInterval time.Duration
}

func NewRedisLocker(client *redis.Client, logInterval time.Duration) *RedisLocker {
	hostname, _ := os.Hostname()
	return &RedisLocker{
		client:      client,
		owner:       fmt.Sprintf("%s-%d", hostname, os.Getpid()),
		logInterval: logInterval,
	}
}

func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl, wait time.Duration) (func(), error) {
	redisKey := lockKeyPrefix + key
	token := l.owner + ":" + uuid.NewString()

	deadline := time.Now().Add(wait)
	nextDiagnostic := time.Now().Add(l.logInterval)

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			return l.releaseFunc(redisKey, token, key), nil
		}

		if time.Now().After(deadline) {
			holder := l.currentHolder(ctx, redisKey)
			logger.Error("lock acquisition timed out", commons.ErrLockTimeout, logger.Fields{
				"lockKey": key,
				"holder":  holder,
				"waitMs":  wait.Milliseconds(),
			})
			return nil, fmt.Errorf("lock %s held by %s: %w", key, holder, commons.ErrLockTimeout)
		}

		if time.Now().After(nextDiagnostic) {
			logger.Info("still waiting for lock", logger.Fields{
				"lockKey": key,
				"holder":  l.currentHolder(ctx, redisKey),
				"waiter":  l.owner,
			})
			nextDiagnostic = time.Now().Add(l.logInterval)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(acquirePollPeriod):
		}
	}
}

func (l *RedisLocker) Exists(ctx context.Context, key string) (bool, error) {
	count, err := l.client.Exists(ctx, lockKeyPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("check lock %s: %w", key, err)
	}
	return count > 0, nil
}

func (l *RedisLocker) releaseFunc(redisKey, token, key string) func() {
	released := false
	return func() {
		if released {
			return
		}
		released = true

		// Release must run even when the owning scope's context is gone.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			logger.Error("lock release failed, relying on ttl expiry", err, logger.Fields{
				"lockKey": key,
			})
		}
	}
}

func (l *RedisLocker) currentHolder(ctx context.Context, redisKey string) string {
	holder, err := l.client.Get(ctx, redisKey).Result()
	if err != nil {
		return "<unknown>"
	}
	return holder
}
