package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	keyPrefix      = "docuflow:lock:"
	releaseTimeout = 2 * time.Second
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisOptions struct {
	// TTL is the lease length; a crashed holder loses the lock after it.
	TTL           time.Duration
	RetryInterval time.Duration
	WaitTimeout   time.Duration
}

// Redis is a lease lock shared by every api-server replica.
type Redis struct {
	client redis.UniversalClient
	opts   RedisOptions
	logger *zap.Logger
}

func NewRedis(client redis.UniversalClient, opts RedisOptions, logger *zap.Logger) *Redis {
	if opts.TTL <= 0 {
		opts.TTL = 10 * time.Second
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 50 * time.Millisecond
	}
	return &Redis{client: client, opts: opts, logger: logger}
}

func (r *Redis) Lock(ctx context.Context, key string) (Unlock, error) {
	redisKey := keyPrefix + key
	token := uuid.NewString()

	waitCtx, cancel := withWait(ctx, r.opts.WaitTimeout)
	defer cancel()

	ticker := time.NewTicker(r.opts.RetryInterval)
	defer ticker.Stop()

	for {
		acquired, err := r.client.SetNX(waitCtx, redisKey, token, r.opts.TTL).Result()
		if err != nil {
			if waitCtx.Err() != nil {
				return nil, waitError(ctx, key)
			}
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if acquired {
			return r.unlocker(redisKey, token), nil
		}

		select {
		case <-waitCtx.Done():
			return nil, waitError(ctx, key)
		case <-ticker.C:
		}
	}
}

func (r *Redis) unlocker(redisKey, token string) Unlock {
	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
			defer cancel()
			if err := releaseScript.Run(ctx, r.client, []string{redisKey}, token).Err(); err != nil {
				r.logger.Warn("failed to release document lock", zap.String("key", redisKey), zap.Error(err))
			}
		})
	}
}
