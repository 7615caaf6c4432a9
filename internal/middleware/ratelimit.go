package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"practice/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Decision is the outcome of one rate limit check.
type Decision struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

// Limiter takes one token for key.
type Limiter interface {
	Take(ctx context.Context, key string) (Decision, error)
	Capacity() int
}

// LocalLimiter keeps one token bucket per key in process memory.
type LocalLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	limit    rate.Limit
	burst    int
	clock    clockwork.Clock
	idleTTL  time.Duration
	lastScan time.Time
}

type bucket struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// NewLocalLimiter allows requests per window for each key, refilling evenly.
func NewLocalLimiter(requests int, window time.Duration, clock clockwork.Clock) *LocalLimiter {
	if requests < 1 {
		requests = 1
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &LocalLimiter{
		buckets: make(map[string]*bucket),
		limit:   rate.Every(window / time.Duration(requests)),
		burst:   requests,
		clock:   clock,
		idleTTL: time.Hour,
	}
}

func (l *LocalLimiter) Capacity() int { return l.burst }

func (l *LocalLimiter) Take(_ context.Context, key string) (Decision, error) {
	now := l.clock.Now()

	l.mu.Lock()
	if now.Sub(l.lastScan) > l.idleTTL {
		for k, b := range l.buckets {
			if now.Sub(b.lastAccess) > l.idleTTL {
				delete(l.buckets, k)
			}
		}
		l.lastScan = now
	}
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.lastAccess = now
	l.mu.Unlock()

	r := b.limiter.ReserveN(now, 1)
	delay := r.DelayFrom(now)
	if delay > 0 {
		r.CancelAt(now)
		return Decision{Allowed: false, RetryAfter: delay}, nil
	}
	remaining := int64(b.limiter.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}
	return Decision{Allowed: true, Remaining: remaining}, nil
}

// tokenBucketScript refills whole intervals and takes one token atomically.
var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local now_ms = tonumber(ARGV[1])
	local capacity = tonumber(ARGV[2])
	local refill_tokens = tonumber(ARGV[3])
	local interval_ms = tonumber(ARGV[4])
	local ttl_seconds = tonumber(ARGV[5])

	local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
	local tokens = tonumber(state[1])
	local last_refill = tonumber(state[2])

	if tokens == nil or last_refill == nil then
		tokens = capacity
		last_refill = now_ms
	end

	if interval_ms > 0 and refill_tokens > 0 then
		local elapsed = math.max(0, now_ms - last_refill)
		local intervals = math.floor(elapsed / interval_ms)
		if intervals > 0 then
			tokens = math.min(capacity, tokens + (intervals * refill_tokens))
			last_refill = last_refill + (intervals * interval_ms)
		end
	end

	local allowed = 0
	local retry_after_ms = 0
	if tokens > 0 then
		allowed = 1
		tokens = tokens - 1
	else
		retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
	end

	redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
	redis.call('EXPIRE', key, ttl_seconds)

	return { allowed, tokens, retry_after_ms }
`)

// RedisLimiter shares token buckets between instances through Redis.
type RedisLimiter struct {
	rdb      *redis.Client
	capacity int
	window   time.Duration
	clock    clockwork.Clock
}

// NewRedisLimiter refills the full capacity once per window.
func NewRedisLimiter(rdb *redis.Client, requests int, window time.Duration, clock clockwork.Clock) *RedisLimiter {
	if requests < 1 {
		requests = 1
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &RedisLimiter{rdb: rdb, capacity: requests, window: window, clock: clock}
}

func (l *RedisLimiter) Capacity() int { return l.capacity }

func (l *RedisLimiter) Take(ctx context.Context, key string) (Decision, error) {
	ttl := int64(math.Ceil((2 * l.window).Seconds()))
	vals, err := tokenBucketScript.Run(ctx, l.rdb, []string{key},
		l.clock.Now().UnixMilli(),
		l.capacity,
		l.capacity,
		l.window.Milliseconds(),
		ttl,
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit script: %w", err)
	}
	if len(vals) != 3 {
		return Decision{}, fmt.Errorf("rate limit script: unexpected result %v", vals)
	}
	return Decision{
		Allowed:    vals[0] == 1,
		Remaining:  vals[1],
		RetryAfter: time.Duration(vals[2]) * time.Millisecond,
	}, nil
}

// NewRedisClient connects to addr and returns nil when Redis is unreachable,
// in which case callers fall back to the local limiter.
func NewRedisClient(ctx context.Context, addr string) *redis.Client {
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil
	}
	return client
}

// RateLimit rejects requests over the limit with 429. Keys combine the
// prefix, client IP and route. Limiter failures let the request through.
func RateLimit(l Limiter, prefix string, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := rateKey(prefix, c)
		d, err := l.Take(c.Request.Context(), key)
		if err != nil {
			log.Warn("rate limiter unavailable", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(l.Capacity()))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))

		if !d.Allowed {
			secs := int(math.Ceil(d.RetryAfter.Seconds()))
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, response.Error(http.StatusTooManyRequests, "Too many requests, please try again later"))
			return
		}
		c.Next()
	}
}

func rateKey(prefix string, c *gin.Context) string {
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	return strings.Join([]string{prefix, "ip", ip, "route", c.Request.Method + " " + c.FullPath()}, ":")
}
