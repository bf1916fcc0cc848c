package service

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisSendAllowScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return current
`

const redisSendRefundScript = `
local current = tonumber(redis.call("GET", KEYS[1]) or "0")
if current > 0 then
  return redis.call("DECR", KEYS[1])
end
return 0
`

type redisSendRateLimiter struct {
	client redisEvaler
	window time.Duration
	max    int
	prefix string
}

type redisEvaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// NewRedisSendRateLimiter comparte el contador entre procesos. Ante errores de Redis deja pasar.
func NewRedisSendRateLimiter(client *redis.Client, window time.Duration, max int) SendRateLimiter {
	if client == nil || max <= 0 {
		return noopRateLimiter{}
	}
	if window <= 0 {
		window = time.Minute
	}
	return &redisSendRateLimiter{
		client: client,
		window: window,
		max:    max,
		prefix: "chat:send:rl:",
	}
}

func (l *redisSendRateLimiter) Allow(sender string) bool {
	if l == nil || l.client == nil {
		return true
	}
	key := strings.TrimSpace(sender)
	if key == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	seconds := int(l.window.Seconds())
	if seconds <= 0 {
		seconds = 60
	}
	count, err := l.client.Eval(ctx, redisSendAllowScript, []string{l.prefix + key}, seconds).Int()
	if err != nil {
		return true
	}
	return count <= l.max
}

// Refund no deja el contador por debajo de cero. Los errores de Redis se ignoran.
func (l *redisSendRateLimiter) Refund(sender string) {
	if l == nil || l.client == nil {
		return
	}
	key := strings.TrimSpace(sender)
	if key == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	_ = l.client.Eval(ctx, redisSendRefundScript, []string{l.prefix + key}).Err()
}
