// Package ratelimit throttles callers by key. A Redis fixed window is used
// when Redis is configured so limits hold across server replicas; otherwise
// each process keeps an in-memory token bucket per key.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/cozy-creator/brandgen/internal/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var ErrInvalidLimit = errors.New("rate limit must be positive")

type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

func NewLimiter(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Limiter, error) {
	rps, burst := cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst
	if cfg.Redis == nil {
		return NewMemoryLimiter(rps, burst)
	}

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}

	if logger != nil {
		logger.Info("rate limiting through redis", zap.String("addr", opts.Addr))
	}
	return NewRedisLimiter(client, rps, burst)
}

// MemoryLimiter keeps one token bucket per key.
type MemoryLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
	now      func() time.Time
}

func NewMemoryLimiter(rps float64, burst int) (*MemoryLimiter, error) {
	if rps <= 0 || burst <= 0 {
		return nil, ErrInvalidLimit
	}

	return &MemoryLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(rps),
		burst:    burst,
		now:      time.Now,
	}, nil
}

func (l *MemoryLimiter) bucket(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = limiter
	}
	return limiter
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	limiter := l.bucket(key)
	now := l.now()

	reservation := limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return Decision{}, ErrInvalidLimit
	}
	if delay := reservation.DelayFrom(now); delay > 0 {
		reservation.CancelAt(now)
		return Decision{Allowed: false, RetryAfter: delay}, nil
	}

	return Decision{Allowed: true, Remaining: int(math.Floor(limiter.TokensAt(now)))}, nil
}

// RedisLimiter counts requests per key in fixed windows sized so that a
// full window admits burst requests at the configured rate.
type RedisLimiter struct {
	client redis.Cmdable
	limit  int
	window time.Duration
	prefix string
	now    func() time.Time
}

func NewRedisLimiter(client redis.Cmdable, rps float64, burst int) (*RedisLimiter, error) {
	if rps <= 0 || burst <= 0 {
		return nil, ErrInvalidLimit
	}

	return &RedisLimiter{
		client: client,
		limit:  burst,
		window: windowFor(rps, burst),
		prefix: "brandgen:ratelimit:",
		now:    time.Now,
	}, nil
}

func windowFor(rps float64, burst int) time.Duration {
	window := time.Duration(float64(burst) / rps * float64(time.Second))
	return max(window, time.Second)
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	now := l.now()
	start := now.Truncate(l.window)
	redisKey := fmt.Sprintf("%s%s:%d", l.prefix, key, start.Unix())

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, fmt.Errorf("rate limit %s: %w", key, err)
	}

	count := int(incr.Val())
	if count > l.limit {
		return Decision{Allowed: false, RetryAfter: start.Add(l.window).Sub(now)}, nil
	}
	return Decision{Allowed: true, Remaining: l.limit - count}, nil
}
