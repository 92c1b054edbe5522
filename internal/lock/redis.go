// Package lock guards in-flight analyses across API replicas.
package lock

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "copysmith:analysis:"

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisGuard hands out short-lived SETNX locks. Redis failures fail open.
type RedisGuard struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// Options for connecting the guard
type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// NewRedisGuard creates a guard backed by a new Redis client
func NewRedisGuard(opts Options, logger *slog.Logger) *RedisGuard {
	rdb := redis.NewClient(&redis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: 2 * time.Second,
		ReadTimeout: 2 * time.Second,
	})
	return NewRedisGuardWithClient(rdb, opts.TTL, logger)
}

// NewRedisGuardWithClient creates a guard on an existing client
func NewRedisGuardWithClient(rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisGuard {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &RedisGuard{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger.With("component", "lock"),
	}
}

// Acquire tries to take the lock for key. It returns false only when another
// holder has it. The returned release func is always safe to call.
func (g *RedisGuard) Acquire(ctx context.Context, key string) (func(), bool) {
	fullKey := keyPrefix + key
	token := uuid.New().String()

	ok, err := g.rdb.SetNX(ctx, fullKey, token, g.ttl).Result()
	if err != nil {
		g.logger.Warn("redis unavailable, continuing without lock", "key", fullKey, "error", err)
		return func() {}, true
	}
	if !ok {
		return func() {}, false
	}

	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, g.rdb, []string{fullKey}, token).Err(); err != nil {
			g.logger.Warn("failed to release lock", "key", fullKey, "error", err)
		}
	}
	return release, true
}

// Close closes the Redis client
func (g *RedisGuard) Close() error {
	return g.rdb.Close()
}
